package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"pilot/internal/agent"
	"pilot/internal/client"
	"pilot/internal/config"
	"pilot/internal/logging"
	"pilot/internal/store"
	"pilot/internal/ui"
)

const usageText = `pilot is a terminal client for an agent service.

Usage:
  pilot [command] [flags]

Commands:
  chat     open the chat UI (default)
  list     list stored conversations
  delete   delete a conversation
  config   print the effective configuration
  help     show help

Chat flags:
  --server <url>      agent API base URL (overrides config)
  --backend <name>    storage backend: bbolt or file (overrides config)

Examples:
  pilot
  pilot list
  pilot delete conv_4f1a9c02e77b12aa
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		exitOnErr("chat", runChat(nil))
		return
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
	case "chat":
		exitOnErr("chat", runChat(args[1:]))
	case "list":
		exitOnErr("list", runList(args[1:]))
	case "delete":
		exitOnErr("delete", runDelete(args[1:]))
	case "config":
		exitOnErr("config", runConfig(args[1:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func exitOnErr(command string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "pilot %s: %v\n", command, err)
	os.Exit(1)
}

func loadSettings() (config.Settings, error) {
	path, err := config.SettingsPath()
	if err != nil {
		return config.DefaultSettings(), err
	}
	return config.LoadSettings(path)
}

func runChat(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	server := fs.String("server", "", "agent API base URL")
	backend := fs.String("backend", "", "storage backend: bbolt or file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if *server != "" {
		settings.Server.Address = *server
	}
	if *backend != "" {
		settings.Storage.Backend = *backend
	}
	if settings.Debug.StreamDebug {
		os.Setenv("PILOT_STREAM_DEBUG", "1")
	}

	logger, closeLog, err := openLogger(settings)
	if err != nil {
		return err
	}
	defer closeLog()

	repo, err := openRepository(settings)
	if err != nil {
		return err
	}
	defer repo.Close()

	service := store.NewConversationService(repo, settings.Storage.MaxConversations, logger)
	saver := store.NewDebouncedSaver(service, store.DefaultSaveDebounce, logger)
	defer saver.Stop()

	session := agent.NewSession(client.New(settings.Server.Address), service, saver, agent.SessionOptions{
		Logger: logger,
	})

	logger.Info("chat ui starting",
		logging.F("server", settings.Server.Address),
		logging.F("backend", repo.Backend()))

	// The model calls session.Close on quit, which stops the saver and
	// performs the final synchronous save; flushing here would resurrect a
	// stale payload over that capture.
	program := tea.NewProgram(ui.NewModel(session), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}
	return nil
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	repo, err := openRepository(settings)
	if err != nil {
		return err
	}
	defer repo.Close()

	service := store.NewConversationService(repo, settings.Storage.MaxConversations, logging.Nop())
	metas, err := service.List(context.Background())
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("no conversations")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUPDATED\tTITLE")
	for _, meta := range metas {
		fmt.Fprintf(w, "%s\t%s\t%s\n", meta.ID, formatAge(meta.UpdatedAt), meta.Title)
	}
	return w.Flush()
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: pilot delete <conversation-id>")
	}
	id := fs.Arg(0)

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	repo, err := openRepository(settings)
	if err != nil {
		return err
	}
	defer repo.Close()

	service := store.NewConversationService(repo, settings.Storage.MaxConversations, logging.Nop())
	if err := service.Delete(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", id)
	return nil
}

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	path, err := config.SettingsPath()
	if err != nil {
		return err
	}
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	out, err := settings.Marshal()
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n%s", path, out)
	return nil
}

func openRepository(settings config.Settings) (store.Repository, error) {
	if settings.Storage.Backend == store.RepositoryBackendFile {
		conversationsPath, err := config.ConversationsPath()
		if err != nil {
			return nil, err
		}
		messagesDir, err := config.MessagesDir()
		if err != nil {
			return nil, err
		}
		return store.NewFileRepository(store.RepositoryPaths{
			ConversationsPath: conversationsPath,
			MessagesDir:       messagesDir,
		}), nil
	}
	dbPath, err := config.DBPath()
	if err != nil {
		return nil, err
	}
	return store.NewBboltRepository(dbPath)
}

// openLogger writes logfmt lines to a file under the data dir; stderr belongs
// to the TUI.
func openLogger(settings config.Settings) (logging.Logger, func(), error) {
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, nil, err
	}
	path := filepath.Join(dataDir, "pilot.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(file, logging.ParseLevel(settings.Logging.Level))
	return logger, func() { _ = file.Close() }, nil
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	age := time.Since(t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

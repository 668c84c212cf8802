package config

import (
	"errors"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultServerAddress    = "http://127.0.0.1:8000"
	defaultStorageBackend   = "bbolt"
	defaultMaxConversations = 100
)

type Settings struct {
	Server  ServerSettings  `toml:"server"`
	Storage StorageSettings `toml:"storage"`
	Logging LoggingSettings `toml:"logging"`
	Debug   DebugSettings   `toml:"debug"`
}

type ServerSettings struct {
	// Address is the base URL of the agent API.
	Address string `toml:"address"`
}

type StorageSettings struct {
	// Backend selects the conversation store: "bbolt" or "file".
	Backend string `toml:"backend"`
	// MaxConversations caps the metadata index; oldest entries are dropped.
	MaxConversations int `toml:"max_conversations"`
}

type LoggingSettings struct {
	Level string `toml:"level"`
}

type DebugSettings struct {
	// StreamDebug mirrors PILOT_STREAM_DEBUG=1 and logs raw stream activity.
	StreamDebug bool `toml:"stream_debug"`
}

func DefaultSettings() Settings {
	return Settings{
		Server:  ServerSettings{Address: defaultServerAddress},
		Storage: StorageSettings{Backend: defaultStorageBackend, MaxConversations: defaultMaxConversations},
		Logging: LoggingSettings{Level: "info"},
	}
}

// LoadSettings reads the settings file at path. A missing file yields the
// defaults; a malformed file is an error.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, err
	}
	if err := toml.Unmarshal(data, &settings); err != nil {
		return DefaultSettings(), err
	}
	return settings.normalized(), nil
}

func (s Settings) normalized() Settings {
	s.Server.Address = strings.TrimRight(strings.TrimSpace(s.Server.Address), "/")
	if s.Server.Address == "" {
		s.Server.Address = defaultServerAddress
	}
	switch strings.ToLower(strings.TrimSpace(s.Storage.Backend)) {
	case "file":
		s.Storage.Backend = "file"
	default:
		s.Storage.Backend = defaultStorageBackend
	}
	if s.Storage.MaxConversations <= 0 {
		s.Storage.MaxConversations = defaultMaxConversations
	}
	if strings.TrimSpace(s.Logging.Level) == "" {
		s.Logging.Level = "info"
	}
	return s
}

// Marshal renders settings as TOML, used by the config subcommand.
func (s Settings) Marshal() ([]byte, error) {
	return toml.Marshal(s)
}

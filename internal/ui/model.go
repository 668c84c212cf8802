package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pilot/internal/agent"
	"pilot/internal/types"
)

const (
	tickInterval     = 100 * time.Millisecond
	toastDuration    = 3 * time.Second
	minContentHeight = 6
	inputHeight      = 3
	chromeHeight     = 5 // header, status line, input frame
)

type uiMode int

const (
	uiModeChat uiMode = iota
	uiModeConversations
	uiModeCanvas
)

type tickMsg time.Time

type toast struct {
	text    string
	isError bool
	until   time.Time
}

type Model struct {
	session *agent.Session

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	mode          uiMode
	width         int
	height        int
	follow        bool
	toast         toast
	conversations []*types.ConversationMeta
	convCursor    int
	canvasView    viewport.Model

	renderedItems string
}

func NewModel(session *agent.Session) *Model {
	input := textarea.New()
	input.Placeholder = "Ask the agent…"
	input.CharLimit = 0
	input.SetHeight(inputHeight - 1)
	input.ShowLineNumbers = false
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = activityStyle

	return &Model{
		session: session,
		input:   input,
		spinner: spin,
		follow:  true,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.spinner.Tick, textarea.Blink)
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tickMsg:
		if m.session.ConsumeTick(time.Time(msg)) {
			m.refreshTranscript()
		}
		if m.session.Canvas() != nil && m.mode == uiModeChat {
			m.openCanvas()
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case uiModeConversations:
		return m.handleConversationsKey(msg)
	case uiModeCanvas:
		return m.handleCanvasKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		m.session.Close()
		return m, tea.Quit
	case "esc":
		if m.session.Loading() {
			m.session.Stop()
			m.refreshTranscript()
			m.showToast("stopped", false)
		}
		return m, nil
	case "enter":
		return m, m.submit()
	case "ctrl+n":
		m.session.NewConversation()
		m.refreshTranscript()
		m.showToast("new conversation", false)
		return m, nil
	case "ctrl+l":
		m.conversations = m.session.Conversations(context.Background())
		m.convCursor = 0
		m.mode = uiModeConversations
		return m, nil
	case "ctrl+y":
		if text := lastAssistantText(m.session.Items()); text != "" {
			if _, err := copyTextToClipboard(text); err != nil {
				m.showToast("copy failed: "+err.Error(), true)
			} else {
				m.showToast("copied", false)
			}
		}
		return m, nil
	case "ctrl+o":
		if m.session.Canvas() != nil {
			m.openCanvas()
		}
		return m, nil
	case "y":
		if m.resolvePending(true) {
			return m, nil
		}
	case "n":
		if m.resolvePending(false) {
			return m, nil
		}
	case "pgup":
		m.viewport.HalfViewUp()
		m.follow = m.viewport.AtBottom()
		return m, nil
	case "pgdown":
		m.viewport.HalfViewDown()
		m.follow = m.viewport.AtBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// resolvePending routes a bare y/n press to the oldest pending action. When
// the input has text the key belongs to the compose box instead.
func (m *Model) resolvePending(approve bool) bool {
	if strings.TrimSpace(m.input.Value()) != "" {
		return false
	}
	pending := m.session.PendingActions()
	if len(pending) == 0 {
		return false
	}
	var err error
	if approve {
		err = m.session.Confirm(context.Background(), pending[0])
	} else {
		err = m.session.Reject(context.Background(), pending[0])
	}
	if err != nil {
		m.showToast(err.Error(), true)
	}
	m.refreshTranscript()
	return true
}

func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := m.session.SendMessage(context.Background(), text); err != nil {
		m.showToast(err.Error(), true)
		m.refreshTranscript()
		return nil
	}
	m.input.Reset()
	m.follow = true
	m.refreshTranscript()
	return nil
}

func (m *Model) handleConversationsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.session.Close()
		return m, tea.Quit
	case "esc", "ctrl+l":
		m.mode = uiModeChat
		return m, nil
	case "up", "k":
		if m.convCursor > 0 {
			m.convCursor--
		}
		return m, nil
	case "down", "j":
		if m.convCursor < len(m.conversations)-1 {
			m.convCursor++
		}
		return m, nil
	case "enter":
		if m.convCursor < len(m.conversations) {
			id := m.conversations[m.convCursor].ID
			if err := m.session.SwitchConversation(context.Background(), id); err != nil {
				m.showToast(err.Error(), true)
			}
			m.refreshTranscript()
		}
		m.mode = uiModeChat
		return m, nil
	case "d":
		if m.convCursor < len(m.conversations) {
			id := m.conversations[m.convCursor].ID
			if err := m.session.DeleteConversation(context.Background(), id); err != nil {
				m.showToast(err.Error(), true)
			} else {
				m.conversations = m.session.Conversations(context.Background())
				if m.convCursor >= len(m.conversations) && m.convCursor > 0 {
					m.convCursor--
				}
				m.refreshTranscript()
			}
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleCanvasKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.session.Close()
		return m, tea.Quit
	case "esc", "q":
		m.session.CloseCanvas()
		m.mode = uiModeChat
		return m, nil
	}
	var cmd tea.Cmd
	m.canvasView, cmd = m.canvasView.Update(msg)
	return m, cmd
}

func (m *Model) openCanvas() {
	canvas := m.session.Canvas()
	if canvas == nil {
		return
	}
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	height := m.height - 4
	if height < minContentHeight {
		height = minContentHeight
	}
	m.canvasView = viewport.New(width, height)
	content := canvas.Content
	if canvas.IsHTML {
		// HTML documents are for the browser; show the source.
		m.canvasView.SetContent(content)
	} else {
		m.canvasView.SetContent(renderMarkdown(content, width-2))
	}
	m.mode = uiModeCanvas
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	contentHeight := height - chromeHeight - inputHeight
	if contentHeight < minContentHeight {
		contentHeight = minContentHeight
	}
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(width, contentHeight)
	} else {
		m.viewport.Width = width
		m.viewport.Height = contentHeight
	}
	m.input.SetWidth(width - 2)
	m.refreshTranscript()
}

// refreshTranscript re-renders the item log into the viewport.
func (m *Model) refreshTranscript() {
	if m.width == 0 {
		return
	}
	m.renderedItems = renderItems(m.session.Items(), m.viewport.Width)
	m.viewport.SetContent(m.renderedItems)
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) showToast(text string, isError bool) {
	m.toast = toast{text: text, isError: isError, until: time.Now().Add(toastDuration)}
}

func (m *Model) View() string {
	if m.width == 0 {
		return "loading…"
	}
	switch m.mode {
	case uiModeConversations:
		return m.viewConversations()
	case uiModeCanvas:
		return m.viewCanvas()
	}
	return m.viewChat()
}

func (m *Model) viewChat() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("pilot") + "\n")
	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(m.statusLine() + "\n")
	b.WriteString(m.input.View() + "\n")
	b.WriteString(helpStyle.Render("enter send · esc stop · y/n resolve action · ctrl+l conversations · ctrl+o canvas · ctrl+y copy · ctrl+c quit"))
	return b.String()
}

func (m *Model) statusLine() string {
	if m.toast.text != "" && time.Now().Before(m.toast.until) {
		style := toastInfoStyle
		if m.toast.isError {
			style = toastErrorStyle
		}
		return style.Render(" " + m.toast.text + " ")
	}
	if m.session.Loading() {
		return m.spinner.View() + activityStyle.Render(" thinking…")
	}
	if pending := m.session.PendingActions(); len(pending) > 0 {
		return activityStyle.Render(fmt.Sprintf("%d action(s) awaiting confirmation", len(pending)))
	}
	return statusStyle.Render("ready")
}

func (m *Model) viewConversations() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("conversations") + "\n\n")
	if len(m.conversations) == 0 {
		b.WriteString(statusStyle.Render("no conversations yet") + "\n")
	}
	for i, meta := range m.conversations {
		line := fmt.Sprintf("%s  %s", meta.UpdatedAt.Local().Format("Jan 02 15:04"), meta.Title)
		if i == m.convCursor {
			b.WriteString(sidebarActiveStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString(sidebarStyle.Render("  "+line) + "\n")
		}
	}
	b.WriteString("\n" + helpStyle.Render("enter open · d delete · esc back"))
	return b.String()
}

func (m *Model) viewCanvas() string {
	canvas := m.session.Canvas()
	title := ""
	if canvas != nil {
		title = canvas.Title
	}
	body := canvasBorderStyle.Render(m.canvasView.View())
	header := headerStyle.Render(title)
	footer := helpStyle.Render("esc close")
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

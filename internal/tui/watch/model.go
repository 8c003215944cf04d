package watch

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	wsURL   string
	httpURL string

	width  int
	height int

	// State mirrored from the directive stream
	health       HealthState
	session      SessionState
	directiveLog []directive

	// Live indicators
	ticker  Ticker
	spinner Spinner

	// UI state
	theme       Theme
	workerTable table.Model

	// Communication
	holder     *connHolder
	directives chan directive

	// Error display
	lastError string
}

// SessionState is the presentation state reconstructed from directives.
type SessionState struct {
	Feature       string
	Workers       map[string]bool
	TimerDisplay  string
	Recording     bool
	Blackout      bool
	LastGesture   string
	LastCommandAt time.Time
}

// New creates a new watch TUI model. wsURL is the daemon's WebSocket
// endpoint, httpURL its HTTP base for health polling.
func New(wsURL, httpURL string) *Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ST", Width: 2},
			{Title: "Worker", Width: 14},
		}),
		table.WithHeight(5),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = lipgloss.NewStyle()
	t.SetStyles(s)

	return &Model{
		wsURL:       wsURL,
		httpURL:     httpURL,
		session:     SessionState{Feature: "none", Workers: make(map[string]bool)},
		holder:      &connHolder{},
		directives:  make(chan directive, 100),
		ticker:      NewTicker(),
		spinner:     NewSpinner(),
		theme:       NewDefaultTheme(),
		workerTable: t,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		subscribeToDirectives(m.wsURL, m.holder, m.directives),
		receiveNextDirective(m.directives),
		func() tea.Msg { return fetchHealth(m.httpURL) },
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			return m, requestStatus(m.holder)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.ticker.Tick()
		m.spinner.Decay()
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case directiveMsg:
		d := directive(msg)

		// Directive log, newest first
		m.directiveLog = append([]directive{d}, m.directiveLog...)
		if len(m.directiveLog) > 50 {
			m.directiveLog = m.directiveLog[:50]
		}

		m.spinner.OnDirective()
		m.applyDirective(&m.session, d)
		m.workerTable.SetRows(workerRows(m.session, m.theme))

		m.health.Connected = true
		m.lastError = ""

		return m, receiveNextDirective(m.directives)

	case healthMsg:
		m.health.Status = msg.Status
		m.health.Connected = true
		m.health.LastCheck = time.Now()
		m.lastError = ""

		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.httpURL)
		})

	case wsDisconnectedMsg:
		m.health.Connected = false
		m.lastError = "disconnected, reconnecting..."
		// Reconnect after a short delay; the existing receiveNextDirective
		// goroutine is still waiting on the channel and will pick up
		// directives from the new subscription.
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return reconnectMsg{}
		})

	case reconnectMsg:
		return m, subscribeToDirectives(m.wsURL, m.holder, m.directives)

	case errMsg:
		if msg != nil {
			m.lastError = msg.Error()
		}
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.httpURL)
		})
	}

	return m, nil
}

// applyDirective folds one directive into the reconstructed session state.
func (m Model) applyDirective(s *SessionState, d directive) {
	switch d.Type {
	case "modeChanged":
		if mode, ok := d.Data["mode"].(string); ok {
			s.Feature = mode
		}
	case "resetAll":
		s.Feature = "none"
		s.Recording = false
		s.TimerDisplay = ""
	case "gestureRecognized":
		if g, ok := d.Data["gesture"].(string); ok {
			s.LastGesture = g
			s.LastCommandAt = d.At
		}
	case "recordingStarted":
		s.Recording = true
	case "recordingStopped":
		s.Recording = false
	case "updateTimer":
		if v, ok := d.Data["display"].(string); ok {
			s.TimerDisplay = v
		}
	case "hideTimer":
		s.TimerDisplay = ""
	case "toggleBlackout":
		s.Blackout = !s.Blackout
	case "showNotice":
		// Status replies carry a feature/worker snapshot.
		if f, ok := d.Data["feature"].(string); ok {
			s.Feature = f
		}
		if workers, ok := d.Data["workers"].(map[string]any); ok {
			for kind, v := range workers {
				running, _ := v.(bool)
				s.Workers[kind] = running
			}
		}
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing watch..."
	}

	header := renderHeader(m.health, m.ticker, m.spinner, m.theme, m.width)
	session := renderSession(m.session, m.workerTable, m.theme, m.width)
	stream := renderDirectiveStream(m.directiveLog, m.theme, m.width)

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.StatusFailed.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(" [q] Quit • [s] Request Status")

	parts := []string{header, session, stream}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	oracledomain "github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/business/watch/domain"
	"github.com/fd1az/multiprice-oracle/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status StepStatus
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// StaleHeadAfter marks the node as stale in the status bar after about five
// missed mainnet blocks.
const StaleHeadAfter = time.Minute

var startupOrder = []Step{StepConfig, StepEthereum, StepOracle, StepWatch}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	quotes      *components.QuotesComponent
	candidates  *components.CandidatesComponent
	stats       *components.StatsComponent
	connections *components.StatusComponent
	keys        KeyMap
	help        help.Model

	phase        Phase
	welcomeStart time.Time

	ready        bool
	quitting     bool
	paused       bool
	showSpreads  bool
	width        int
	height       int
	currentBlock uint64
	lastUpdate   time.Time
	errors       ring[ErrorEntry]
	feed         ring[feedLine]

	startupComplete bool
	startupSteps    map[Step]*StartupStep
	startupTime     time.Time

	latencyTotal time.Duration
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()

	sources := make([]string, 0, oracledomain.NumSources)
	for _, s := range oracledomain.AllSources() {
		sources = append(sources, s.String())
	}

	connections := components.NewStatusComponent(StaleHeadAfter)
	connections.Update(components.ConnectionStatus{Name: "Ethereum"})

	return Model{
		quotes:       components.NewQuotesComponent(),
		candidates:   components.NewCandidatesComponent(sources, 50),
		stats:        components.NewStatsComponent(sources),
		connections:  connections,
		keys:         DefaultKeyMap(),
		showSpreads:  true,
		help:         help.New(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		errors:       newRing[ErrorEntry](3),
		feed:         newRing[feedLine](6),
		startupSteps: map[Step]*StartupStep{
			StepConfig:   {Name: "Loading configuration", Status: StatusDone},
			StepEthereum: {Name: "Connecting to Ethereum", Status: StatusPending},
			StepOracle:   {Name: "Resolving price sources", Status: StatusPending},
			StepWatch:    {Name: "Resolving watched pairs", Status: StatusPending},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) leaveWelcome() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Called directly; Send() must not be used from within Update.
	if OnStartModules != nil {
		go OnStartModules()
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.leaveWelcome()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.candidates.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.FailuresOnly):
			m.quotes.ToggleFailuresOnly()
		case key.Matches(msg, m.keys.Spreads):
			m.showSpreads = !m.showSpreads
		case key.Matches(msg, m.keys.Up):
			m.candidates.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.candidates.ScrollDown()
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors.reset()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		return m, tickCmd()

	case ReportMsg:
		if m.paused {
			return m, nil
		}
		m.applyReports(msg.Block, msg.Reports)
		m.lastUpdate = time.Now()

	case ConnectionStatusMsg:
		m.connections.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			LastUpdate: time.Now(),
		})
		if step, ok := m.startupSteps[Step(strings.ToLower(msg.Name))]; ok {
			if msg.Connected {
				step.Status = StatusConnected
			} else {
				step.Status = StatusConnecting
			}
		}
		m.lastUpdate = time.Now()

	case BlockMsg:
		if m.phase == PhaseStartup {
			m.phase = PhaseDashboard
		}
		m.currentBlock = msg.Number
		m.lastUpdate = time.Now()
		m.connections.Touch("Ethereum", m.lastUpdate)
		if msg.Reorg {
			m.log(feedReorg, fmt.Sprintf("Reorg: head replaced at #%d", msg.Number))
		} else {
			m.log(feedBlock, fmt.Sprintf("Block #%d received", msg.Number))
		}

	case ErrorMsg:
		m.errors.push(ErrorEntry{Message: msg.Error.Error(), Timestamp: time.Now()})

	case LogMsg:
		m.log(feedInfo, msg.Level+": "+msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		m.startupComplete = true
		for _, step := range m.startupSteps {
			if !step.Status.Ready() {
				m.startupComplete = false
				break
			}
		}
	}

	return m, nil
}

// applyReports feeds one block's reports into the components. Every value
// shown is computed by the watch domain; the UI only formats.
func (m *Model) applyReports(block uint64, reports []*domain.Report) {
	st := m.stats.Stats()
	st.BlocksProcessed++

	quotes := make([]components.QuoteRow, 0, len(reports))
	rows := make([]components.CandidateRow, 0, len(reports))
	for _, r := range reports {
		st.Quotes++
		m.latencyTotal += r.Latency

		row := components.QuoteRow{
			Pair:     r.Pair.Label(),
			AmountIn: r.Pair.AmountIn.String(),
		}
		if !r.OK() {
			st.Failed++
			row.Error = r.ErrorCode()
			quotes = append(quotes, row)
			continue
		}
		row.Value = r.Value().String()
		row.Rate = r.Rate()
		row.Selected = r.Result.Selected.String()
		st.Selected[row.Selected]++
		quotes = append(quotes, row)

		cells := make([]components.CandidateCell, 0, oracledomain.NumSources)
		for _, src := range oracledomain.AllSources() {
			bps, ok := r.SpreadBps(src)
			cells = append(cells, components.CandidateCell{
				Present:   ok,
				Selected:  ok && src == r.Result.Selected,
				SpreadBps: bps,
			})
		}
		rows = append(rows, components.CandidateRow{BlockNumber: block, Pair: r.Pair.Label(), Cells: cells})
	}

	if st.Quotes > 0 {
		st.AvgLatencyMs = float64(m.latencyTotal.Milliseconds()) / float64(st.Quotes)
	}
	m.stats.Update(st)
	m.quotes.Update(block, quotes)
	m.candidates.Add(rows...)
	m.log(feedBlock, fmt.Sprintf("Block #%d: %d quotes, %d failed", block, len(reports), len(reports)-len(rows)))
}

func (m *Model) log(kind feedKind, text string) {
	m.feed.push(feedLine{at: time.Now(), kind: kind, text: text})
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		if !m.startupComplete {
			return m.renderStartupScreen()
		}
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Multiprice Oracle "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.quotes.View()

	rightCol := m.renderActivityFeed()
	if m.showSpreads {
		rightCol += "\n\n" + m.candidates.View()
	}

	if m.width > 120 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		r := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, r))
	} else {
		b.WriteString(BoxStyle.Width(max(m.width-4, 40)).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(max(m.width-4, 40)).Render(rightCol))
	}
	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	if m.errors.len() > 0 {
		b.WriteString(ErrorHeaderStyle.Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors.items() {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(PausedStyle.Render("⏸ FROZEN"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderActivityFeed() string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if m.feed.len() == 0 {
		sb.WriteString(MutedValue.Render("  Waiting for blocks..."))
		return sb.String()
	}
	for _, line := range m.feed.items() {
		sb.WriteString(line.render())
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderWelcomeScreen() string {
	dots := strings.Repeat(".", int(time.Since(m.welcomeStart).Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")

	logo := `
   ███╗   ███╗██████╗  ██████╗
   ████╗ ████║██╔══██╗██╔═══██╗
   ██╔████╔██║██████╔╝██║   ██║
   ██║╚██╔╝██║██╔═══╝ ██║   ██║
   ██║ ╚═╝ ██║██║     ╚██████╔╝
   ╚═╝     ╚═╝╚═╝      ╚═════╝
`
	sb.WriteString(HeaderStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render("      M U L T I P R I C E   O R A C L E"))
	sb.WriteString("\n\n\n")
	sb.WriteString(OKStyle.Render(fmt.Sprintf("            Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("      Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

var spinner = []string{"◐", "◓", "◑", "◒"}

// stepBadge renders the icon and label for a startup stage.
func stepBadge(status StepStatus, elapsed time.Duration) (string, string) {
	switch status {
	case StatusConnected, StatusDone:
		return OKStyle.Render("✓"), OKStyle.Render("Ready")
	case StatusConnecting:
		frame := spinner[int(elapsed.Milliseconds()/200)%len(spinner)]
		return PendingStyle.Render(frame), PendingStyle.Render("Connecting...")
	case StatusFailed:
		return ErrorStyle.Render("✗"), ErrorStyle.Render("Failed")
	default:
		return MutedValue.Render("○"), MutedValue.Render("Pending")
	}
}

func (m Model) renderStartupScreen() string {
	elapsed := time.Since(m.startupTime)

	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(HeaderStyle.MarginBottom(1).Render("  Multiprice Oracle"))
	sb.WriteString("\n\n  Starting up...\n\n")

	for _, k := range startupOrder {
		step, ok := m.startupSteps[k]
		if !ok {
			continue
		}
		icon, label := stepBadge(step.Status, elapsed)
		fmt.Fprintf(&sb, "  %s %s %s\n", icon, MutedValue.Render(step.Name), label)
	}

	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render(fmt.Sprintf("  Elapsed: %s", elapsed.Round(time.Second))))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("  Waiting for first Ethereum block..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStatusBar() string {
	parts := []string{fmt.Sprintf("Block: #%d", m.currentBlock)}
	parts = append(parts, m.connections.View())

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}
	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules
// should start. Set by main.
var OnStartModules func()

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}

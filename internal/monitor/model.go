package monitor

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/ldash/internal/dashboard"
)

// Source is the dashboard the TUI renders and drives. *dashboard.Session
// implements it.
type Source interface {
	Snapshot(ctx context.Context, points int) (dashboard.Snapshot, error)
	Navigate(ctx context.Context, page string) error
	Refresh(ctx context.Context, i int) error
	RefreshAll(ctx context.Context) error
	NextSortColumn(ctx context.Context, i int) error
	ReverseSort(ctx context.Context, i int) error
	FilterTable(ctx context.Context, i int, keyword string) error
	Reconnect(ctx context.Context) error
}

// LayoutMode is the responsive layout picked from the terminal width.
type LayoutMode int

const (
	// LayoutSingle stacks cards in one column.
	LayoutSingle LayoutMode = iota
	// LayoutDouble places two cards per row.
	LayoutDouble
	// LayoutTriple places three cards per row.
	LayoutTriple
)

// Width breakpoints for layout modes
const (
	BreakpointDouble = 80
	BreakpointTriple = 120
)

const (
	// DefaultRedraw is how often a snapshot is pulled from the source.
	DefaultRedraw = time.Second
	// callTimeout bounds one call into the source.
	callTimeout = 2 * time.Second
	// spinnerInterval is the animation frame rate of the negotiation screen.
	spinnerInterval = 150 * time.Millisecond
)

// Options configure the model.
type Options struct {
	// Target is the agent shown in the header, e.g. a URL or SSH host.
	Target  string
	Version string
	Redraw  time.Duration
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	src  Source
	opts Options

	snap    dashboard.Snapshot
	snapErr error

	width    int
	height   int
	selected int
	showHelp bool
	quitting bool

	filter    textinput.Model
	filtering bool

	// status is the outcome of the last key action, cleared on the next one.
	status    string
	statusErr bool

	spinnerFrame int
}

// tickMsg triggers a snapshot pull.
type tickMsg time.Time

// spinnerTickMsg advances the negotiation spinner.
type spinnerTickMsg time.Time

// snapshotMsg carries a fresh snapshot.
type snapshotMsg struct {
	snap dashboard.Snapshot
	err  error
}

// actionMsg reports the outcome of a key action.
type actionMsg struct {
	name string
	err  error
}

// NewModel creates a dashboard model over src.
func NewModel(src Source, opts Options) Model {
	if opts.Redraw <= 0 {
		opts.Redraw = DefaultRedraw
	}

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter rows"
	ti.CharLimit = 64
	ti.Cursor.SetMode(cursor.CursorStatic)

	return Model{src: src, opts: opts, filter: ti}
}

// Init pulls the first snapshot and starts the timers.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.snapshotCmd(),
		m.tickCmd(),
		m.spinnerTickCmd(),
	)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, m.snapshotCmd()

	case tickMsg:
		return m, tea.Batch(m.tickCmd(), m.snapshotCmd())

	case spinnerTickMsg:
		m.spinnerFrame = (m.spinnerFrame + 1) % len(ConnectingSpinnerFrames)
		return m, m.spinnerTickCmd()

	case snapshotMsg:
		m.snapErr = msg.err
		if msg.err == nil {
			m.snap = msg.snap
			m.clampSelection()
		}

	case actionMsg:
		m.status = msg.name
		m.statusErr = msg.err != nil
		if msg.err != nil {
			m.status = msg.name + ": " + firstLine(msg.err.Error())
		}
		return m, m.snapshotCmd()
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

// Snapshot is the last snapshot pulled from the source.
func (m Model) Snapshot() dashboard.Snapshot {
	return m.snap
}

// Selected is the index of the highlighted widget.
func (m Model) Selected() int {
	return m.selected
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.snap.Widgets) {
		m.selected = len(m.snap.Widgets) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.opts.Redraw, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) spinnerTickCmd() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}

// snapshotCmd pulls a snapshot sized to the current card width.
func (m Model) snapshotCmd() tea.Cmd {
	src, points := m.src, m.graphPoints()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		snap, err := src.Snapshot(ctx, points)
		return snapshotMsg{snap: snap, err: err}
	}
}

// action runs fn against the source off the UI goroutine.
func (m *Model) action(name string, fn func(ctx context.Context) error) tea.Cmd {
	m.status = ""
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return actionMsg{name: name, err: fn(ctx)}
	}
}

// Layout returns the layout mode for the current width.
func (m Model) Layout() LayoutMode {
	switch {
	case m.width >= BreakpointTriple:
		return LayoutTriple
	case m.width >= BreakpointDouble:
		return LayoutDouble
	}
	return LayoutSingle
}

// graphPoints is the number of samples a card graph can show; each braille
// cell holds two.
func (m Model) graphPoints() int {
	w := m.cardWidth() - 4
	if w < cardMinGraphWidth {
		w = cardMinGraphWidth
	}
	return w * 2
}

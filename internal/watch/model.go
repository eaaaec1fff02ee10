// Package watch animates a search in the terminal, one expansion per tick.
package watch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdrpinto/roboroute"
)

const (
	minInterval     = 10 * time.Millisecond
	maxInterval     = 2 * time.Second
	defaultInterval = 80 * time.Millisecond
)

type keyMap struct {
	Pause   key.Binding
	Step    key.Binding
	Faster  key.Binding
	Slower  key.Binding
	Restart key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Step, k.Faster, k.Slower, k.Restart, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var keys = keyMap{
	Pause:   key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause")),
	Step:    key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n", "step")),
	Faster:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
	Slower:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "slower")),
	Restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	wallStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	openStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	closedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	endStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

type tickMsg struct{ generation int }

// Model is the bubbletea model for `roboroute watch`.
type Model struct {
	pathfinder *roboroute.Pathfinder
	cells      [][]int
	start      roboroute.Cell
	goal       roboroute.Cell

	stepper  *roboroute.Stepper[roboroute.Cell]
	grid     *roboroute.Grid
	snapshot roboroute.StepSnapshot[roboroute.Cell]
	onPath   map[roboroute.Cell]bool
	err      error

	paused     bool
	interval   time.Duration
	generation int

	help help.Model
}

// NewModel validates the request up front so a bad grid fails before the
// program takes over the terminal. A blocked endpoint is not an error here;
// the model simply starts out done.
func NewModel(pathfinder *roboroute.Pathfinder, cells [][]int, start, goal roboroute.Cell) (*Model, error) {
	m := &Model{
		pathfinder: pathfinder,
		cells:      cells,
		start:      start,
		goal:       goal,
		interval:   defaultInterval,
		help:       help.New(),
	}
	if err := m.reset(); err != nil {
		return nil, err
	}
	return m, nil
}

// SetPaused starts the model paused, for single-stepping with n.
func (m *Model) SetPaused(paused bool) { m.paused = paused }

// SetInterval sets the delay between automatic steps.
func (m *Model) SetInterval(interval time.Duration) {
	m.interval = min(max(interval, minInterval), maxInterval)
}

func (m *Model) reset() error {
	if m.stepper != nil {
		m.stepper.Close()
	}
	m.stepper, m.grid, m.err = nil, nil, nil
	m.snapshot = roboroute.StepSnapshot[roboroute.Cell]{}
	m.onPath = nil
	m.generation++

	stepper, grid, err := m.pathfinder.NewStepper(context.Background(), m.cells, m.start, m.goal)
	switch {
	case errors.Is(err, roboroute.ErrNoPath):
		m.grid, _ = roboroute.NewGrid(m.cells)
		m.snapshot.Done = true
		return nil
	case err != nil:
		return err
	}
	m.stepper, m.grid = stepper, grid
	return nil
}

// Close releases the stepper.
func (m *Model) Close() {
	if m.stepper != nil {
		m.stepper.Close()
	}
}

// Done reports whether the search has finished.
func (m *Model) Done() bool { return m.snapshot.Done }

// Found reports whether the finished search reached the goal.
func (m *Model) Found() bool { return m.snapshot.Found }

func (m *Model) tick() tea.Cmd {
	generation := m.generation
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{generation: generation} })
}

func (m *Model) Init() tea.Cmd {
	if m.paused || m.Done() {
		return nil
	}
	return m.tick()
}

// advance runs one expansion. It is a no-op once the search is done.
func (m *Model) advance() {
	if m.stepper == nil || m.snapshot.Done {
		return
	}
	snapshot, err := m.stepper.Step()
	m.snapshot = snapshot
	if err != nil {
		m.err = err
		m.snapshot.Done = true
	}
	if snapshot.Found {
		m.onPath = make(map[roboroute.Cell]bool, len(snapshot.Path))
		for _, c := range snapshot.Path {
			m.onPath[c] = true
		}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if msg.generation != m.generation || m.paused {
			return m, nil
		}
		m.advance()
		if m.Done() {
			return m, nil
		}
		return m, m.tick()
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Pause):
			m.paused = !m.paused
			if !m.paused && !m.Done() {
				m.generation++
				return m, m.tick()
			}
		case key.Matches(msg, keys.Step):
			m.paused = true
			m.advance()
		case key.Matches(msg, keys.Faster):
			m.SetInterval(m.interval / 2)
		case key.Matches(msg, keys.Slower):
			m.SetInterval(m.interval * 2)
		case key.Matches(msg, keys.Restart):
			if err := m.reset(); err != nil {
				m.err = err
				return m, nil
			}
			if !m.paused && !m.Done() {
				return m, m.tick()
			}
		}
	}
	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.header()))
	b.WriteString("\n\n")

	if m.grid != nil {
		for r := 0; r < m.grid.Rows(); r++ {
			for c := 0; c < m.grid.Cols(); c++ {
				b.WriteString(m.glyph(roboroute.Cell{Row: r, Col: c}))
			}
			b.WriteString("\n")
		}
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) header() string {
	state := "searching"
	switch {
	case m.snapshot.Found:
		state = fmt.Sprintf("found, %d steps", len(m.snapshot.Path)-1)
	case m.snapshot.Done:
		state = "no path"
	case m.paused:
		state = "paused"
	}
	return fmt.Sprintf("%s -> %s  step %d  open %d  closed %d  %s  (%s, %s)",
		m.start, m.goal, m.snapshot.StepIndex, len(m.snapshot.Open), len(m.snapshot.Closed),
		state, m.pathfinder.Heuristic(), m.interval)
}

func (m *Model) glyph(cell roboroute.Cell) string {
	switch {
	case cell == m.start:
		return endStyle.Render("S")
	case cell == m.goal:
		return endStyle.Render("G")
	case m.grid.IsBlocked(cell):
		return wallStyle.Render("#")
	case m.onPath[cell]:
		return pathStyle.Render("*")
	case !m.snapshot.Done && m.snapshot.StepIndex > 0 && cell == m.snapshot.Current:
		return currentStyle.Render("@")
	case m.snapshot.Closed[cell]:
		return closedStyle.Render(".")
	case m.snapshot.Open[cell]:
		return openStyle.Render("o")
	default:
		return " "
	}
}

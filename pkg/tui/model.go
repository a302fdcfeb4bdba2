// Package tui provides the Bubble Tea live view of a tracking session.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chenBenjamin97/repcounter/pkg/reps"
	"github.com/chenBenjamin97/repcounter/pkg/tracking"
)

const refreshInterval = 100 * time.Millisecond

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	cardStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	upStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	downStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#1890FF")).Bold(true)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

type keyMap struct {
	Reset key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit and save")),
}

//Session is the part of tracking.Tracker the view drives
type Session interface {
	Snapshot() tracking.Snapshot
	Reset() error
}

type tickMsg time.Time

// Model implements tea.Model. It polls the session snapshot and quits on q,
// leaving the session running for the caller to stop and save.
type Model struct {
	session Session
	snap    tracking.Snapshot
	errMsg  string
	width   int
}

func NewModel(session Session) *Model {
	return &Model{session: session, snap: session.Snapshot()}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		m.snap = m.session.Snapshot()
		return m, tick()
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if key.Matches(msg, keys.Reset) {
			if err := m.session.Reset(); err != nil {
				m.errMsg = err.Error()
			} else {
				m.errMsg = ""
			}
			m.snap = m.session.Snapshot()
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s · %s", m.snap.Exercise, m.snap.Source)))
	b.WriteString("\n")

	angle := "-"
	if m.snap.Angle != nil {
		angle = fmt.Sprintf("%.0f°", *m.snap.Angle)
	}

	cards := []string{
		card("reps", cardValueStyle.Render(fmt.Sprintf("%d", m.snap.Count))),
		card("state", stateLabel(m.snap.State)),
		card("angle", cardValueStyle.Render(angle)),
	}
	if m.snap.AssistMode {
		cards = append(cards, card("assisted", cardValueStyle.Render(fmt.Sprintf("%d", m.snap.Assisted))))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	b.WriteString("\n")

	if !m.snap.StartedAt.IsZero() {
		b.WriteString(helpStyle.Render(fmt.Sprintf("elapsed %s", time.Since(m.snap.StartedAt).Truncate(time.Second))))
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(helpLine(keys.Reset, keys.Quit)))
	b.WriteString("\n")

	return b.String()
}

func card(title, value string) string {
	return cardStyle.Render(cardTitleStyle.Render(title) + "\n" + value)
}

func stateLabel(s reps.State) string {
	switch s {
	case reps.StateUp:
		return upStyle.Render(s.String())
	case reps.StateDown:
		return downStyle.Render(s.String())
	default:
		return cardValueStyle.Render(s.String())
	}
}

func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

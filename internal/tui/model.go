// Package tui renders the live transcription view: a header with a clock, a
// scrolling sentence log, the current partial hypothesis, and a parameter
// footer.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/session"
)

// The log panel cannot scroll, so cap the number of sentences kept for
// display.
const maxSentences = 30

const banner = "Prifysgol Bangor a ffrindiau"

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	titleStyle     = lipgloss.NewStyle().Bold(true)
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	clockStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// Params is what the footer displays.
type Params struct {
	Model      string
	SampleRate int
	BlockSize  int
}

type (
	tickMsg   time.Time
	eventMsg  session.Event
	closedMsg struct{}
)

type Model struct {
	params Params
	events <-chan session.Event

	width     int
	height    int
	now       time.Time
	sentences []string
	partial   string
	done      bool

	clock func() time.Time
}

func NewModel(params Params, events <-chan session.Event) Model {
	return Model{
		params: params,
		events: events,
		now:    time.Now(),
		clock:  time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(evt)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()
	case eventMsg:
		evt := session.Event(msg)
		if evt.Partial {
			m.partial = evt.Text
		} else {
			m.partial = ""
			m.sentences = append(m.sentences, formatSentence(evt))
			if len(m.sentences) > maxSentences {
				m.sentences = m.sentences[len(m.sentences)-maxSentences:]
			}
		}
		return m, m.waitForEvent()
	case closedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func formatSentence(evt session.Event) string {
	ts := timestampStyle.Render(fmt.Sprintf("[%s]:", evt.Timestamp.Format("15:04:05")))
	return ts + " " + evt.Text
}

func (m Model) View() string {
	if m.width == 0 {
		return "starting..."
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	input := m.renderPanel("Live input", m.partial, 1)

	used := lipgloss.Height(header) + lipgloss.Height(footer) + lipgloss.Height(input)
	logHeight := m.height - used - 2
	if logHeight < 1 {
		logHeight = 1
	}

	visible := m.sentences
	if len(visible) > logHeight {
		visible = visible[len(visible)-logHeight:]
	}
	log := m.renderPanel("Sentence log", strings.Join(visible, "\n"), logHeight)

	return lipgloss.JoinVertical(lipgloss.Left, header, log, input, footer)
}

func (m Model) renderHeader() string {
	third := m.width / 3
	left := lipgloss.NewStyle().Width(third).Align(lipgloss.Left).Render(banner)
	center := lipgloss.NewStyle().Width(third).Align(lipgloss.Center).Render(titleStyle.Render("Vosk Live Demo"))
	right := lipgloss.NewStyle().Width(m.width - 2*third - 4).Align(lipgloss.Right).
		Render(clockStyle.Render(m.now.Format(time.ANSIC)))
	return panelStyle.Width(m.width - 2).Render(lipgloss.JoinHorizontal(lipgloss.Top, left, center, right))
}

func (m Model) renderFooter() string {
	components := []string{
		fmt.Sprintf("Model: %s", m.params.Model),
		fmt.Sprintf("Sample rate: %d", m.params.SampleRate),
		fmt.Sprintf("Block size: %d", m.params.BlockSize),
	}
	return m.renderPanel("Parameters", strings.Join(components, " | "), 1)
}

func (m Model) renderPanel(title, content string, height int) string {
	return panelStyle.Width(m.width - 2).Height(height).Render(
		titleStyle.Render(title) + "\n" + content)
}

// Run drives the TUI until the session ends or the user quits.
func Run(ctx context.Context, params Params, events <-chan session.Event) error {
	program := tea.NewProgram(NewModel(params, events), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if err != nil && ctx.Err() != nil {
		// Cancellation is the normal Ctrl-C exit path.
		return nil
	}
	return err
}

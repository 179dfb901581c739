// SPDX-License-Identifier: MIT
/*
Package tui renders tuning results in the terminal: the detected note,
the measured frequency, and a cents meter centered on perfect pitch.
Results arrive as bubbletea messages sent by the Sink adapter, so the
analysis loop never touches the UI loop directly.
*/
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tuner/internal/tuner"
)

// How long a result stays on screen before the display clears back to
// the listening state.
const resultTTL = time.Second

// meterHalfWidth is the number of meter cells on each side of center;
// each cell covers 5 cents, so the meter spans -50..+50.
const meterHalfWidth = 10

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 2).
			MarginBottom(1)

	noteStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			BorderStyle(lipgloss.RoundedBorder()).
			Padding(1, 4).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	inTuneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	sharpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	flatStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF"))
)

// ResultMsg delivers one tuning result to the UI.
type ResultMsg tuner.Result

// ClearMsg blanks the current result.
type ClearMsg struct{}

// TickMsg drives the stale-result cleanup.
type TickMsg time.Time

// Model is the bubbletea model for the tuner display.
type Model struct {
	current     *tuner.Result
	lastUpdated time.Time
	width       int
	height      int
}

// NewModel returns an empty tuner display.
func NewModel() Model {
	return Model{}
}

// Init starts the cleanup ticker.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update handles key presses, window sizing, result delivery, and
// stale-result expiry.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case ResultMsg:
		res := tuner.Result(msg)
		m.current = &res
		m.lastUpdated = time.Now()

	case ClearMsg:
		m.current = nil

	case TickMsg:
		if m.current != nil && time.Since(m.lastUpdated) > resultTTL {
			m.current = nil
		}
		return m, tick()
	}

	return m, nil
}

// View renders the display.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Tuner"))
	b.WriteString("\n")

	if m.current == nil {
		b.WriteString(infoStyle.Render("Listening..."))
	} else {
		b.WriteString(noteStyle.Render(m.current.Note))
		b.WriteString("\n")
		b.WriteString(renderMeter(m.current.Cents))
		b.WriteString("\n")
		b.WriteString(infoStyle.Render(fmt.Sprintf("%.2f Hz (ref %.2f) | %+.1f cents",
			m.current.Frequency, m.current.Reference, m.current.Cents)))
	}

	b.WriteString("\n\n")
	b.WriteString(infoStyle.Render("Press q to quit"))
	return b.String()
}

// renderMeter draws a fixed-width cents meter. The needle clamps to
// the +/-50 cent range; within 5 cents of center counts as in tune.
func renderMeter(cents float64) string {
	pos := int(math.Round(cents / 5))
	if pos > meterHalfWidth {
		pos = meterHalfWidth
	}
	if pos < -meterHalfWidth {
		pos = -meterHalfWidth
	}

	style := inTuneStyle
	if cents > 5 {
		style = sharpStyle
	} else if cents < -5 {
		style = flatStyle
	}

	var b strings.Builder
	b.WriteString("[")
	for i := -meterHalfWidth; i <= meterHalfWidth; i++ {
		switch {
		case i == pos:
			b.WriteString(style.Render("#"))
		case i == 0:
			b.WriteString("|")
		default:
			b.WriteString("-")
		}
	}
	b.WriteString("]")
	return b.String()
}

// SPDX-License-Identifier: MIT
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"tuner/internal/tuner"
)

// Sink forwards tuning results into a running bubbletea program.
// Program.Send is safe to call from the analysis goroutine and does
// not block.
type Sink struct {
	program *tea.Program
}

// NewSink wraps program as a tuner.Sink.
func NewSink(program *tea.Program) *Sink {
	return &Sink{program: program}
}

// Report sends the result to the UI.
func (s *Sink) Report(res tuner.Result) error {
	s.program.Send(ResultMsg(res))
	return nil
}

// Close blanks the display.
func (s *Sink) Close() error {
	s.program.Send(ClearMsg{})
	return nil
}

var _ tuner.Sink = (*Sink)(nil)

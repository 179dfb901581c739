// SPDX-License-Identifier: MIT
package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tuner/internal/tuner"
)

func updateModel(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model, cmd
}

func TestViewListeningState(t *testing.T) {
	view := NewModel().View()
	if !strings.Contains(view, "Listening...") {
		t.Errorf("idle view missing listening prompt:\n%s", view)
	}
	if !strings.Contains(view, "Press q to quit") {
		t.Errorf("idle view missing quit hint:\n%s", view)
	}
}

func TestResultMessageRendersNote(t *testing.T) {
	res := tuner.Result{Note: "E2", Reference: 82.41, Frequency: 81.0, Cents: -29.9}
	m, _ := updateModel(t, NewModel(), ResultMsg(res))

	view := m.View()
	if !strings.Contains(view, "E2") {
		t.Errorf("view missing note name:\n%s", view)
	}
	if !strings.Contains(view, "81.00 Hz (ref 82.41)") {
		t.Errorf("view missing frequency line:\n%s", view)
	}
	if !strings.Contains(view, "-29.9 cents") {
		t.Errorf("view missing cents deviation:\n%s", view)
	}
}

func TestClearMessageBlanksDisplay(t *testing.T) {
	m, _ := updateModel(t, NewModel(), ResultMsg(tuner.Result{Note: "A4"}))
	m, _ = updateModel(t, m, ClearMsg{})
	if !strings.Contains(m.View(), "Listening...") {
		t.Error("display not blanked after ClearMsg")
	}
}

func TestTickExpiresStaleResult(t *testing.T) {
	m, _ := updateModel(t, NewModel(), ResultMsg(tuner.Result{Note: "A4"}))
	m.lastUpdated = time.Now().Add(-2 * resultTTL)

	m, cmd := updateModel(t, m, TickMsg(time.Now()))
	if m.current != nil {
		t.Error("stale result not cleared")
	}
	if cmd == nil {
		t.Error("tick did not reschedule itself")
	}
}

func TestTickKeepsFreshResult(t *testing.T) {
	m, _ := updateModel(t, NewModel(), ResultMsg(tuner.Result{Note: "A4"}))
	m, _ = updateModel(t, m, TickMsg(time.Now()))
	if m.current == nil {
		t.Error("fresh result cleared too early")
	}
}

func TestQuitKeys(t *testing.T) {
	keys := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	}
	for _, key := range keys {
		_, cmd := updateModel(t, NewModel(), key)
		if cmd == nil {
			t.Fatalf("key %q produced no command", key.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("key %q did not quit", key.String())
		}
	}
}

func TestWindowSize(t *testing.T) {
	m, _ := updateModel(t, NewModel(), tea.WindowSizeMsg{Width: 80, Height: 24})
	if m.width != 80 || m.height != 24 {
		t.Errorf("size = %dx%d, want 80x24", m.width, m.height)
	}
}

func TestRenderMeterNeedle(t *testing.T) {
	// Dead center replaces the pipe with the needle.
	center := renderMeter(0)
	if strings.Contains(center, "|") {
		t.Errorf("centered meter still shows the center mark: %q", center)
	}
	if !strings.Contains(center, "#") {
		t.Errorf("centered meter missing needle: %q", center)
	}

	// Off-center keeps the mark and the needle lands on its side,
	// clamped to the meter range for extreme deviations.
	for _, cents := range []float64{30, 500} {
		meter := renderMeter(cents)
		if strings.Index(meter, "#") < strings.Index(meter, "|") {
			t.Errorf("needle for %+.0f cents left of center: %q", cents, meter)
		}
	}
	for _, cents := range []float64{-30, -500} {
		meter := renderMeter(cents)
		if strings.Index(meter, "#") > strings.Index(meter, "|") {
			t.Errorf("needle for %+.0f cents right of center: %q", cents, meter)
		}
	}
}

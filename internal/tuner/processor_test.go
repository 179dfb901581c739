// SPDX-License-Identifier: MIT
package tuner_test

import (
	"errors"
	"math"
	"testing"

	"tuner/internal/dsp"
	"tuner/internal/pitch"
	"tuner/internal/tuner"
	"tuner/pkg/testutil"
)

const (
	testSize       = 2048
	testSampleRate = 44100.0
)

// stubEstimator returns a fixed frequency or error regardless of input.
type stubEstimator struct {
	freq float64
	err  error
}

func (s stubEstimator) Estimate([]float64) (float64, error) {
	return s.freq, s.err
}

// loopSource serves the same frame forever.
type loopSource struct {
	frame []float64
}

func (l *loopSource) Read(frame []float64) error {
	copy(frame, l.frame)
	return nil
}

func newTestProcessor(t *testing.T, source tuner.Source, est dsp.Estimator, table pitch.Table, sinks ...tuner.Sink) *tuner.Processor {
	t.Helper()
	window, err := dsp.NewWindow(testSize, dsp.Hann)
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	p, err := tuner.NewProcessor(source, window, est, table, sinks...)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	return p
}

func TestProcessorEndToEnd(t *testing.T) {
	// Three voiced frames, then the source runs dry and the loop ends.
	frame := testutil.GenerateSineWave(testSize, testSampleRate, 440)
	source := &testutil.SliceSource{Frames: [][]float64{frame, frame, frame}}
	sink := &testutil.CaptureSink{}

	est, err := dsp.NewSpectralEstimator(testSize, testSampleRate)
	if err != nil {
		t.Fatalf("NewSpectralEstimator: %v", err)
	}
	p := newTestProcessor(t, source, est, pitch.DefaultTable(), sink)

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.Wait()

	if got := p.State(); got != tuner.StateIdle {
		t.Errorf("state after exhaustion = %v, want idle", got)
	}
	if err := p.Err(); !errors.Is(err, testutil.ErrOutOfFrames) {
		t.Errorf("loop error = %v, want ErrOutOfFrames", err)
	}

	results := sink.Results()
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, res := range results {
		if res.Note != "A4" {
			t.Errorf("result %d: note = %s, want A4", i, res.Note)
		}
		if res.Reference != 440.00 {
			t.Errorf("result %d: reference = %.2f, want 440.00", i, res.Reference)
		}
	}
}

func TestAnalyzeCentsAgainstSingleEntryTable(t *testing.T) {
	// A measured A#4 against a lone A4 reference is one semitone sharp.
	table := pitch.Table{{Name: "A4", Frequency: 440.00}}
	p := newTestProcessor(t, &loopSource{frame: make([]float64, testSize)},
		stubEstimator{freq: 466.16}, table)

	res, ok, err := p.Analyze(make([]float64, testSize))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !ok {
		t.Fatal("frame skipped, want a result")
	}
	if res.Note != "A4" {
		t.Errorf("note = %s, want A4", res.Note)
	}
	if math.Abs(res.Cents-100) > 0.05 {
		t.Errorf("cents = %.4f, want 100", res.Cents)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	frame := testutil.GenerateSineWave(testSize, testSampleRate, 440)
	est, err := dsp.NewSpectralEstimator(testSize, testSampleRate)
	if err != nil {
		t.Fatalf("NewSpectralEstimator: %v", err)
	}
	p := newTestProcessor(t, &loopSource{frame: frame}, est, pitch.DefaultTable())

	first, ok, err := p.Analyze(frame)
	if err != nil || !ok {
		t.Fatalf("first Analyze: ok=%v err=%v", ok, err)
	}
	second, ok, err := p.Analyze(frame)
	if err != nil || !ok {
		t.Fatalf("second Analyze: ok=%v err=%v", ok, err)
	}
	if first != second {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

func TestAnalyzeSkipsQuietFrames(t *testing.T) {
	cases := []struct {
		name string
		est  dsp.Estimator
	}{
		{"below floor", stubEstimator{freq: 10}},
		{"at floor", stubEstimator{freq: tuner.DefaultSilenceFloorHz}},
		{"no periodicity", stubEstimator{err: dsp.ErrNoPeriodicity}},
	}
	for _, c := range cases {
		p := newTestProcessor(t, &loopSource{frame: make([]float64, testSize)},
			c.est, pitch.DefaultTable())
		_, ok, err := p.Analyze(make([]float64, testSize))
		if err != nil {
			t.Errorf("%s: Analyze: %v", c.name, err)
		}
		if ok {
			t.Errorf("%s: frame reported, want skipped", c.name)
		}
	}
}

func TestSetSilenceFloor(t *testing.T) {
	p := newTestProcessor(t, &loopSource{frame: make([]float64, testSize)},
		stubEstimator{freq: 30}, pitch.DefaultTable())
	p.SetSilenceFloor(50)

	if _, ok, err := p.Analyze(make([]float64, testSize)); err != nil || ok {
		t.Errorf("30 Hz under a 50 Hz floor: ok=%v err=%v, want skipped", ok, err)
	}
}

func TestProcessorLifecycle(t *testing.T) {
	// A silent stub keeps the loop busy without reporting anything.
	p := newTestProcessor(t, &loopSource{frame: make([]float64, testSize)},
		stubEstimator{freq: 10}, pitch.DefaultTable())

	if got := p.State(); got != tuner.StateIdle {
		t.Fatalf("initial state = %v, want idle", got)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := p.State(); got != tuner.StateRunning {
		t.Errorf("state after Start = %v, want running", got)
	}
	if err := p.Start(); !errors.Is(err, tuner.ErrAlreadyRunning) {
		t.Errorf("second Start error = %v, want ErrAlreadyRunning", err)
	}

	if err := p.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if got := p.State(); got != tuner.StateIdle {
		t.Errorf("state after Stop = %v, want idle", got)
	}

	// The cycle restarts cleanly.
	if err := p.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestProcessorStopIdempotent(t *testing.T) {
	p := newTestProcessor(t, &loopSource{frame: make([]float64, testSize)},
		stubEstimator{freq: 10}, pitch.DefaultTable())
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("first Stop: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestProcessorSourceFailureIsFatal(t *testing.T) {
	deviceErr := errors.New("device unplugged")
	source := &testutil.SliceSource{Err: deviceErr}
	p := newTestProcessor(t, source, stubEstimator{freq: 440}, pitch.DefaultTable())

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.Wait()

	if got := p.State(); got != tuner.StateIdle {
		t.Errorf("state after failure = %v, want idle", got)
	}
	if err := p.Err(); !errors.Is(err, deviceErr) {
		t.Errorf("loop error = %v, want wrapped device error", err)
	}
}

func TestNewProcessorValidation(t *testing.T) {
	window, err := dsp.NewWindow(testSize, dsp.Hann)
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	est := stubEstimator{freq: 440}
	source := &loopSource{frame: make([]float64, testSize)}

	if _, err := tuner.NewProcessor(nil, window, est, pitch.DefaultTable()); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := tuner.NewProcessor(source, nil, est, pitch.DefaultTable()); err == nil {
		t.Error("expected error for nil window")
	}
	if _, err := tuner.NewProcessor(source, window, nil, pitch.DefaultTable()); err == nil {
		t.Error("expected error for nil estimator")
	}
	if _, err := tuner.NewProcessor(source, window, est, pitch.Table{}); err == nil {
		t.Error("expected error for empty table")
	}
}

func TestStateString(t *testing.T) {
	cases := map[tuner.State]string{
		tuner.StateIdle:     "idle",
		tuner.StateRunning:  "running",
		tuner.StateStopping: "stopping",
		tuner.State(99):     "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

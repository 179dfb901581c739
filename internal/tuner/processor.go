// SPDX-License-Identifier: MIT
/*
Package tuner owns the continuous acquire -> analyze -> report loop.
A Processor pulls fixed-size frames from a Source, runs the analysis
pipeline (window, estimate, nearest note, cents) and publishes one
Result per voiced frame to its sinks.

The pipeline itself is exposed as Analyze for callers that schedule
their own ticks instead of running the worker goroutine.
*/
package tuner

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"tuner/internal/dsp"
	applog "tuner/internal/log"
	"tuner/internal/pitch"
)

// DefaultSilenceFloorHz is the frequency at or below which a frame is
// treated as silence or noise floor and produces no Result.
const DefaultSilenceFloorHz = 20.0

// ErrAlreadyRunning is returned by Start when the processor is not idle.
var ErrAlreadyRunning = errors.New("tuner: processor already running")

// State of the processor lifecycle: Idle -> Running -> Stopping -> Idle.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Result is the terminal output of one analysis cycle.
type Result struct {
	Note      string  `json:"note"`
	Reference float64 `json:"reference_hz"`
	Frequency float64 `json:"frequency_hz"`
	Cents     float64 `json:"cents"`
}

// Source supplies audio frames on demand. Read fills frame completely
// with samples in [-1, 1] and may block until enough input is
// available. A device or stream failure is returned as an error and is
// fatal to the processor loop.
type Source interface {
	Read(frame []float64) error
}

// Sink consumes Results. Report must not block the analysis loop for
// more than a bounded short duration; implementations buffer or drop.
type Sink interface {
	Report(Result) error
	Close() error
}

// Processor drives the analysis loop over a Source.
type Processor struct {
	source       Source
	window       *dsp.Window
	estimator    dsp.Estimator
	table        pitch.Table
	sinks        []Sink
	silenceFloor float64

	// Frame buffers reused across cycles; owned by the worker.
	frame    []float64
	windowed []float64

	state    atomic.Int32
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.Mutex
	loopErr error
}

// NewProcessor wires the pipeline stages together. The frame size is
// taken from the window; the estimator must be built for the same
// size. The table is validated once here and shared read-only after.
func NewProcessor(source Source, window *dsp.Window, estimator dsp.Estimator, table pitch.Table, sinks ...Sink) (*Processor, error) {
	if source == nil {
		return nil, errors.New("tuner: source cannot be nil")
	}
	if window == nil || estimator == nil {
		return nil, errors.New("tuner: window and estimator cannot be nil")
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("tuner: invalid note table: %w", err)
	}

	size := window.Size()
	return &Processor{
		source:       source,
		window:       window,
		estimator:    estimator,
		table:        table,
		sinks:        sinks,
		silenceFloor: DefaultSilenceFloorHz,
		frame:        make([]float64, size),
		windowed:     make([]float64, size),
	}, nil
}

// SetSilenceFloor overrides the skip threshold in Hz. Must be called
// before Start.
func (p *Processor) SetSilenceFloor(hz float64) {
	p.silenceFloor = hz
}

// State returns the current lifecycle state.
func (p *Processor) State() State {
	return State(p.state.Load())
}

// Err returns the error that terminated the loop, if any.
func (p *Processor) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loopErr
}

// Start transitions Idle -> Running and launches the worker goroutine.
func (p *Processor) Start() error {
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrAlreadyRunning
	}

	p.mu.Lock()
	p.loopErr = nil
	p.mu.Unlock()
	p.done = make(chan struct{})
	p.stopOnce = sync.Once{}

	p.wg.Add(1)
	go p.run()

	applog.Debugf("tuner: processor started (frame size %d)", len(p.frame))
	return nil
}

// Stop transitions Running -> Stopping, waits for the in-flight cycle
// to drain, then settles in Idle. It returns the loop error, if the
// loop ended on one. Safe to call when already stopped.
func (p *Processor) Stop() error {
	if p.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		p.stopOnce.Do(func() { close(p.done) })
	}
	p.wg.Wait()
	p.state.Store(int32(StateIdle))
	return p.Err()
}

// Wait blocks until the worker loop has exited, either through Stop or
// a fatal acquisition error. Useful for finite sources such as files.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// run is the worker loop: one frame per cycle, cancellation checked
// between cycles, acquisition failures fatal.
func (p *Processor) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			applog.Debugf("tuner: processor received stop signal")
			return
		default:
		}

		if err := p.source.Read(p.frame); err != nil {
			p.fail(fmt.Errorf("tuner: frame acquisition failed: %w", err))
			return
		}

		res, ok, err := p.Analyze(p.frame)
		if err != nil {
			p.fail(fmt.Errorf("tuner: analysis failed: %w", err))
			return
		}
		if !ok {
			continue
		}

		for _, sink := range p.sinks {
			if err := sink.Report(res); err != nil {
				applog.Warnf("tuner: sink report failed: %v", err)
			}
		}
	}
}

// fail records the loop error and settles back in Idle.
func (p *Processor) fail(err error) {
	p.mu.Lock()
	p.loopErr = err
	p.mu.Unlock()
	p.state.Store(int32(StateIdle))
	applog.Errorf("%v", err)
}

// Analyze runs one synchronous analysis cycle over frame and returns
// the Result. ok is false when the frame was skipped as silence (at or
// below the silence floor, or no periodicity detected); that is the
// normal quiet-room case, not an error. All stages are deterministic:
// the same frame always yields the same Result.
func (p *Processor) Analyze(frame []float64) (res Result, ok bool, err error) {
	if err := p.window.ApplyTo(p.windowed, frame); err != nil {
		return Result{}, false, err
	}

	freq, err := p.estimator.Estimate(p.windowed)
	if err != nil {
		if errors.Is(err, dsp.ErrNoPeriodicity) {
			return Result{}, false, nil
		}
		return Result{}, false, err
	}
	if freq <= p.silenceFloor {
		return Result{}, false, nil
	}

	note, err := p.table.Nearest(freq)
	if err != nil {
		return Result{}, false, err
	}
	cents, err := pitch.Cents(freq, note.Frequency)
	if err != nil {
		return Result{}, false, err
	}

	return Result{
		Note:      note.Name,
		Reference: note.Frequency,
		Frequency: freq,
		Cents:     cents,
	}, true, nil
}

// SPDX-License-Identifier: MIT
//
// Package testutil provides synthetic signals and pipeline doubles
// shared by the package tests.
package testutil

import (
	"errors"
	"math"
	"sync"

	"tuner/internal/tuner"
)

// GenerateSineWave returns size samples of a pure sine at frequency
// Hz, sampled at sampleRate, amplitude 0.9.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = 0.9 * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// GenerateHarmonicWave returns a 440 Hz fundamental with two weaker
// harmonics, a rough stand-in for a plucked string.
func GenerateHarmonicWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = 0.5*math.Sin(2*math.Pi*440*t) +
			0.3*math.Sin(2*math.Pi*880*t) +
			0.2*math.Sin(2*math.Pi*1320*t)
	}
	return buffer
}

// ErrOutOfFrames is returned by a SliceSource once its frames are
// exhausted and no explicit error was configured.
var ErrOutOfFrames = errors.New("testutil: out of frames")

// SliceSource serves pre-built frames in order, then fails with Err
// (ErrOutOfFrames if unset). It implements tuner.Source.
type SliceSource struct {
	Frames [][]float64
	Err    error
	next   int
}

// Read copies the next frame into frame.
func (s *SliceSource) Read(frame []float64) error {
	if s.next >= len(s.Frames) {
		if s.Err != nil {
			return s.Err
		}
		return ErrOutOfFrames
	}
	copy(frame, s.Frames[s.next])
	s.next++
	return nil
}

// CaptureSink records every reported result. It implements tuner.Sink.
type CaptureSink struct {
	mu      sync.Mutex
	results []tuner.Result
}

// Report appends the result.
func (c *CaptureSink) Report(res tuner.Result) error {
	c.mu.Lock()
	c.results = append(c.results, res)
	c.mu.Unlock()
	return nil
}

// Close is a no-op.
func (c *CaptureSink) Close() error {
	return nil
}

// Results returns a snapshot of everything reported so far.
func (c *CaptureSink) Results() []tuner.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]tuner.Result, len(c.results))
	copy(out, c.results)
	return out
}

var (
	_ tuner.Source = (*SliceSource)(nil)
	_ tuner.Sink   = (*CaptureSink)(nil)
)

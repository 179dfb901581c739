// SPDX-License-Identifier: MIT
package dsp

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoPeriodicity is returned by the autocorrelation estimators when
// no lag produces a positive correlation (silence or non-periodic
// input). Callers treat it like the silence floor: skip the frame.
var ErrNoPeriodicity = errors.New("dsp: no periodicity detected")

// Estimator is the single capability both estimation strategies
// implement: given a windowed frame, return the dominant fundamental
// frequency in Hz.
//
// Implementations reuse internal workspaces and are not safe for
// concurrent use; each analysis goroutine owns its own Estimator.
type Estimator interface {
	Estimate(frame []float64) (float64, error)
}

// Algorithm names accepted by NewEstimator.
const (
	AlgorithmSpectral     = "spectral"
	AlgorithmAutocorr     = "autocorr"
	AlgorithmFastAutocorr = "fft-autocorr"
)

// NewEstimator constructs the estimator selected by name.
func NewEstimator(name string, size int, sampleRate float64) (Estimator, error) {
	switch strings.ToLower(name) {
	case AlgorithmSpectral, "fft":
		return NewSpectralEstimator(size, sampleRate)
	case AlgorithmAutocorr, "autocorrelation":
		return NewAutocorrEstimator(size, sampleRate)
	case AlgorithmFastAutocorr:
		return NewFastAutocorrEstimator(size, sampleRate)
	default:
		return nil, fmt.Errorf("dsp: unknown estimation algorithm %q", name)
	}
}

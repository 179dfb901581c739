// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"

	"github.com/mjibson/go-dsp/fft"
)

// AutocorrEstimator detects periodicity in the time domain. For each
// lag in [1, size/2) it correlates the first half of the frame with a
// shifted copy of itself and returns sampleRate/lag for the first
// strict maximum. Lag 0 is never a candidate; if no lag produces a
// positive correlation the frame is reported as unvoiced via
// ErrNoPeriodicity instead of dividing by a zero lag.
//
// The nested loop is O(N^2) per frame. Fine for N up to ~2048 at tens
// of frames per second; use SpectralEstimator or FastAutocorrEstimator
// above that.
type AutocorrEstimator struct {
	size       int
	sampleRate float64
}

// NewAutocorrEstimator creates the direct time-domain estimator for
// frames of the given size.
func NewAutocorrEstimator(size int, sampleRate float64) (*AutocorrEstimator, error) {
	if size < 4 {
		return nil, ErrFrameTooShort
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("dsp: sample rate must be positive, got %f", sampleRate)
	}
	return &AutocorrEstimator{size: size, sampleRate: sampleRate}, nil
}

// Estimate returns the frequency corresponding to the best-correlated
// lag of frame.
func (e *AutocorrEstimator) Estimate(frame []float64) (float64, error) {
	if len(frame) != e.size {
		return 0, ErrFrameSize
	}

	half := e.size / 2
	bestLag := 0
	bestCorr := 0.0
	for lag := 1; lag < half; lag++ {
		sum := 0.0
		for i := 0; i < half; i++ {
			sum += frame[i] * frame[i+lag]
		}
		if sum > bestCorr {
			bestCorr = sum
			bestLag = lag
		}
	}

	if bestLag == 0 {
		return 0, ErrNoPeriodicity
	}
	return e.sampleRate / float64(bestLag), nil
}

var _ Estimator = (*AutocorrEstimator)(nil)

// FastAutocorrEstimator computes the same lag sums as
// AutocorrEstimator through the frequency domain: the correlation of
// the first half-frame against the full frame is the inverse FFT of
// conj(FFT(half)) * FFT(frame), both zero-padded to 2N so nothing
// wraps around. O(N log N), equal to the direct sums up to floating
// point rounding, so the winning lag matches.
type FastAutocorrEstimator struct {
	size       int
	sampleRate float64
}

// NewFastAutocorrEstimator creates the FFT-based autocorrelation
// estimator for frames of the given size.
func NewFastAutocorrEstimator(size int, sampleRate float64) (*FastAutocorrEstimator, error) {
	if size < 4 {
		return nil, ErrFrameTooShort
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("dsp: sample rate must be positive, got %f", sampleRate)
	}
	return &FastAutocorrEstimator{size: size, sampleRate: sampleRate}, nil
}

// Estimate returns the frequency corresponding to the best-correlated
// lag of frame, computed via the power spectrum.
func (e *FastAutocorrEstimator) Estimate(frame []float64) (float64, error) {
	if len(frame) != e.size {
		return 0, ErrFrameSize
	}

	half := e.size / 2

	// Zero-pad both signals to 2N so the circular correlation has no
	// wraparound for lags below N.
	full := make([]float64, 2*e.size)
	copy(full, frame)
	head := make([]float64, 2*e.size)
	copy(head, frame[:half])

	fullSpec := fft.FFTReal(full)
	headSpec := fft.FFTReal(head)
	for i := range fullSpec {
		fullSpec[i] *= complex(real(headSpec[i]), -imag(headSpec[i]))
	}
	corr := fft.IFFT(fullSpec)

	bestLag := 0
	bestCorr := 0.0
	for lag := 1; lag < half; lag++ {
		if c := real(corr[lag]); c > bestCorr {
			bestCorr = c
			bestLag = lag
		}
	}

	if bestLag == 0 {
		return 0, ErrNoPeriodicity
	}
	return e.sampleRate / float64(bestLag), nil
}

var _ Estimator = (*FastAutocorrEstimator)(nil)

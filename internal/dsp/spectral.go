// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"tuner/pkg/bitint"
)

// SpectralEstimator finds the dominant frequency in the magnitude
// spectrum of a real FFT. Bin k maps to k*sampleRate/size Hz; the
// search covers k in [1, size/2), excluding the DC bin and the
// Nyquist/mirror half. The comparison is strict, so the lowest bin
// wins ties; an all-zero frame yields the lowest positive bin
// frequency, which the silence floor suppresses downstream.
type SpectralEstimator struct {
	size       int
	sampleRate float64
	fft        *fourier.FFT
	coeffs     []complex128 // size/2 + 1 complex bins, reused per frame
}

// NewSpectralEstimator builds the FFT plan and workspace for frames of
// the given power-of-two size.
func NewSpectralEstimator(size int, sampleRate float64) (*SpectralEstimator, error) {
	if size < 2 {
		return nil, ErrFrameTooShort
	}
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("dsp: spectral estimator size must be a power of 2, got %d", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("dsp: sample rate must be positive, got %f", sampleRate)
	}

	return &SpectralEstimator{
		size:       size,
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(size),
		coeffs:     make([]complex128, size/2+1),
	}, nil
}

// Estimate returns the bin frequency of the strongest positive-
// frequency bin of frame. The frame is expected to be windowed.
func (e *SpectralEstimator) Estimate(frame []float64) (float64, error) {
	if len(frame) != e.size {
		return 0, ErrFrameSize
	}

	e.fft.Coefficients(e.coeffs, frame)

	bestBin := 1
	bestMag := cmplx.Abs(e.coeffs[1])
	for k := 2; k < e.size/2; k++ {
		if mag := cmplx.Abs(e.coeffs[k]); mag > bestMag {
			bestMag = mag
			bestBin = k
		}
	}

	return float64(bestBin) * e.sampleRate / float64(e.size), nil
}

// BinWidth returns the frequency resolution in Hz per FFT bin.
func (e *SpectralEstimator) BinWidth() float64 {
	return e.sampleRate / float64(e.size)
}

var _ Estimator = (*SpectralEstimator)(nil)

// SPDX-License-Identifier: MIT
/*
Package dsp holds the per-frame analysis stages of the tuner: window
functions and the interchangeable fundamental-frequency estimators.
All stages operate on mono float64 frames in [-1, 1] and are pure with
respect to their input; estimators keep pre-allocated workspaces and
are therefore owned by a single analysis goroutine.
*/
package dsp

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// ErrFrameTooShort is returned when a frame has fewer than 2 samples,
// which is too short to window or analyze.
var ErrFrameTooShort = errors.New("dsp: frame must contain at least 2 samples")

// ErrFrameSize is returned when a frame length does not match the size
// a stage was constructed for.
var ErrFrameSize = errors.New("dsp: frame length does not match configured size")

// WindowFunc selects a window shape by name.
type WindowFunc int

const (
	Hann WindowFunc = iota
	Hamming
	Blackman
	BartlettHann
	Nuttall
	Lanczos
)

// ParseWindowFunc converts a string name (case-insensitive) to a
// WindowFunc. Unknown names return Hann and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "bartletthann":
		return BartlettHann, nil
	case "nuttall":
		return Nuttall, nil
	case "lanczos":
		return Lanczos, nil
	default:
		return Hann, fmt.Errorf("dsp: unknown window function name %q", name)
	}
}

// Window holds pre-computed window coefficients for one frame length.
// The default Hann shape is the raised cosine
// 0.5*(1-cos(2*pi*i/(N-1))), zero at both ends and symmetric.
type Window struct {
	coeffs []float64
}

// NewWindow pre-computes coefficients for frames of the given size.
func NewWindow(size int, fn WindowFunc) (*Window, error) {
	if size < 2 {
		return nil, ErrFrameTooShort
	}

	// The gonum window functions multiply in place, so seed with ones.
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch fn {
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	default:
		window.Hann(coeffs)
	}

	return &Window{coeffs: coeffs}, nil
}

// Size returns the frame length the window was built for.
func (w *Window) Size() int {
	return len(w.coeffs)
}

// Coeff returns the window coefficient at index i.
func (w *Window) Coeff(i int) float64 {
	return w.coeffs[i]
}

// Apply returns a new frame equal to the input multiplied element-wise
// by the window coefficients.
func (w *Window) Apply(frame []float64) ([]float64, error) {
	out := make([]float64, len(frame))
	if err := w.ApplyTo(out, frame); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyTo writes the windowed frame into dst without allocating.
// dst and frame must both match the window size.
func (w *Window) ApplyTo(dst, frame []float64) error {
	if len(frame) != len(w.coeffs) || len(dst) != len(w.coeffs) {
		return ErrFrameSize
	}
	for i, s := range frame {
		dst[i] = s * w.coeffs[i]
	}
	return nil
}

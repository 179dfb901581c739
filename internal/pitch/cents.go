// SPDX-License-Identifier: MIT
package pitch

import (
	"errors"
	"math"
)

// ErrInvalidFrequency is returned when a cents computation receives a
// non-positive frequency.
var ErrInvalidFrequency = errors.New("pitch: frequency must be positive")

// Cents returns the signed deviation of measured from reference in
// cents: 1200*log2(measured/reference). 100 cents is one semitone, an
// octave is +/-1200. The value is not clamped; rendering decides how
// to display extremes.
func Cents(measured, reference float64) (float64, error) {
	if measured <= 0 || reference <= 0 {
		return 0, ErrInvalidFrequency
	}
	return 1200 * math.Log2(measured/reference), nil
}

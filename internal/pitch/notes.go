// SPDX-License-Identifier: MIT
/*
Package pitch maps estimated frequencies onto the equal-tempered scale:
a fixed reference table of note frequencies, nearest-note lookup, and
the cents deviation between a measured and a reference frequency.
*/
package pitch

import (
	"errors"
	"fmt"
	"math"
)

// ErrEmptyTable is returned when a lookup runs against a table with no
// entries.
var ErrEmptyTable = errors.New("pitch: note table has no entries")

// Note is one reference entry: a pitch class with octave ("A4") and
// its equal-tempered frequency in Hz.
type Note struct {
	Name      string
	Frequency float64
}

// Table is an ordered set of reference notes. Lookup order is
// insertion order; the table is never mutated after construction and
// is safe to share across analysis cycles.
type Table []Note

// DefaultTable returns the standard reference table: 60 notes from
// C0 (16.35 Hz) through B4 (493.88 Hz) at two-decimal precision.
func DefaultTable() Table {
	return Table{
		{"C0", 16.35}, {"C#0", 17.32}, {"D0", 18.35}, {"D#0", 19.45},
		{"E0", 20.60}, {"F0", 21.83}, {"F#0", 23.12}, {"G0", 24.50},
		{"G#0", 25.96}, {"A0", 27.50}, {"A#0", 29.14}, {"B0", 30.87},
		{"C1", 32.70}, {"C#1", 34.65}, {"D1", 36.71}, {"D#1", 38.89},
		{"E1", 41.20}, {"F1", 43.65}, {"F#1", 46.25}, {"G1", 49.00},
		{"G#1", 51.91}, {"A1", 55.00}, {"A#1", 58.27}, {"B1", 61.74},
		{"C2", 65.41}, {"C#2", 69.30}, {"D2", 73.42}, {"D#2", 77.78},
		{"E2", 82.41}, {"F2", 87.31}, {"F#2", 92.50}, {"G2", 98.00},
		{"G#2", 103.83}, {"A2", 110.00}, {"A#2", 116.54}, {"B2", 123.47},
		{"C3", 130.81}, {"C#3", 138.59}, {"D3", 146.83}, {"D#3", 155.56},
		{"E3", 164.81}, {"F3", 174.61}, {"F#3", 185.00}, {"G3", 196.00},
		{"G#3", 207.65}, {"A3", 220.00}, {"A#3", 233.08}, {"B3", 246.94},
		{"C4", 261.63}, {"C#4", 277.18}, {"D4", 293.66}, {"D#4", 311.13},
		{"E4", 329.63}, {"F4", 349.23}, {"F#4", 369.99}, {"G4", 392.00},
		{"G#4", 415.30}, {"A4", 440.00}, {"A#4", 466.16}, {"B4", 493.88},
	}
}

// Nearest returns the table entry minimizing |reference - freq|.
// The scan is linear in insertion order and the comparison strict, so
// the earliest entry wins exact ties.
func (t Table) Nearest(freq float64) (Note, error) {
	if len(t) == 0 {
		return Note{}, ErrEmptyTable
	}

	best := t[0]
	bestDiff := math.Abs(t[0].Frequency - freq)
	for _, n := range t[1:] {
		if diff := math.Abs(n.Frequency - freq); diff < bestDiff {
			bestDiff = diff
			best = n
		}
	}
	return best, nil
}

// Validate checks the table invariants: at least one entry, strictly
// positive reference frequencies, no duplicates.
func (t Table) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTable
	}
	seen := make(map[float64]string, len(t))
	for _, n := range t {
		if n.Frequency <= 0 {
			return fmt.Errorf("pitch: note %q has non-positive frequency %f", n.Name, n.Frequency)
		}
		if prev, ok := seen[n.Frequency]; ok {
			return fmt.Errorf("pitch: notes %q and %q share frequency %.2f", prev, n.Name, n.Frequency)
		}
		seen[n.Frequency] = n.Name
	}
	return nil
}

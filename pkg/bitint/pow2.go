// SPDX-License-Identifier: MIT
//
// Package bitint provides allocation-free power-of-2 helpers used for
// sizing FFT frames and capture buffers. All operations are O(1) and
// safe to call from the real-time path.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Exact powers of 2 are returned unchanged; non-positive input yields 1.
//
// The size-1 before bits.Len is what keeps exact powers of 2 from being
// doubled: Len(8-1)=3 so 1<<3 = 8, whereas Len(8)=4 would give 16.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// A power of 2 has a single bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

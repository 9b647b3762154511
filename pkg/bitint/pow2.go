// SPDX-License-Identifier: MIT
/*
Package bitint provides the integer bit tricks the transform and
validation code relies on: power-of-two tests, rounding up to the next
power of two, integer log2 and bit reversal for radix-2 permutation tables.

All functions are allocation free and constant time, so they are safe to
call from the audio callback.

Usage:

	// Reject transform lengths the radix-2 kernel cannot handle.
	ok := bitint.IsPowerOfTwo(fftSize)

	// Number of butterfly stages for an n-point transform.
	stages := bitint.Log2(fftSize) // 1024 -> 10

	// Position of element i after the bit-reversal permutation.
	j := bitint.ReverseBits(i, stages)

----------------------------------------------------------------------

NextPowerOfTwo subtracts one before taking the bit length. Without the
subtraction an exact power of two would be doubled:

	size = 8, size-1 = 7 (0111), bits.Len(7) = 3, 1<<3 = 8
	size = 8, bits.Len(8) = 4 (1000), 1<<4 = 16 (wrong)
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size.
// Non-positive input returns 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of two <= size, or 0 when
// size is not positive.
func PrevPowerOfTwo(size int) int {
	if size <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo reports whether n is a positive power of two.
// A power of two has a single bit set, so clearing the lowest set bit
// with n&(n-1) leaves zero.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns floor(log2(n)) for n > 0 and -1 otherwise.
// For powers of two this is the exact exponent.
func Log2(n int) int {
	if n <= 0 {
		return -1
	}
	return bits.Len(uint(n)) - 1
}

// ReverseBits reverses the lowest width bits of v. Bits above width are
// discarded. Used to build the input permutation of an iterative
// radix-2 FFT.
func ReverseBits(v, width int) int {
	if width <= 0 {
		return 0
	}
	return int(bits.Reverse(uint(v)) >> (bits.UintSize - width))
}

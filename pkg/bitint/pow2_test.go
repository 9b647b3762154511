// SPDX-License-Identifier: MIT
package bitint

import (
	"fmt"
	"testing"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{-10, 1},     // Negative number
		{0, 1},       // Zero
		{1, 1},       // Smallest power
		{8, 8},       // Already power of two
		{10, 16},     // Not power of two
		{1000, 1024}, // Large number
		{8193, 16384},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%d", tt.n, tt.expected), func(t *testing.T) {
			if got := NextPowerOfTwo(tt.n); got != tt.expected {
				t.Errorf("NextPowerOfTwo(%d) = %d, expected %d", tt.n, got, tt.expected)
			}
		})
	}
}

func TestPrevPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{-3, 0},
		{0, 0},
		{1, 1},
		{63, 32},
		{64, 64},
		{100, 64},
		{8193, 8192},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%d", tt.n, tt.expected), func(t *testing.T) {
			if got := PrevPowerOfTwo(tt.n); got != tt.expected {
				t.Errorf("PrevPowerOfTwo(%d) = %d, expected %d", tt.n, got, tt.expected)
			}
		})
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected bool
	}{
		{-8, false},
		{0, false},
		{1, true},
		{63, false},
		{64, true},
		{100, false},
		{8192, true},
		{8193, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.n), func(t *testing.T) {
			if got := IsPowerOfTwo(tt.n); got != tt.expected {
				t.Errorf("IsPowerOfTwo(%d) = %v, expected %v", tt.n, got, tt.expected)
			}
		})
	}
}

func TestLog2(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{0, -1},
		{1, 0},
		{2, 1},
		{1024, 10},
		{1500, 10},
		{8192, 13},
	}

	for _, tt := range tests {
		if got := Log2(tt.n); got != tt.expected {
			t.Errorf("Log2(%d) = %d, expected %d", tt.n, got, tt.expected)
		}
	}
}

func TestReverseBits(t *testing.T) {
	// 3-bit permutation table for an 8-point transform.
	want := []int{0, 4, 2, 6, 1, 5, 3, 7}
	for i, expected := range want {
		if got := ReverseBits(i, 3); got != expected {
			t.Errorf("ReverseBits(%d, 3) = %d, expected %d", i, got, expected)
		}
	}

	if got := ReverseBits(5, 0); got != 0 {
		t.Errorf("ReverseBits with zero width = %d, expected 0", got)
	}
}

func TestBitintZeroAllocs(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		_ = IsPowerOfTwo(1024)
		_ = NextPowerOfTwo(1000)
		_ = Log2(4096)
		_ = ReverseBits(37, 10)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations, got %.1f", allocs)
	}
}

func BenchmarkReverseBits(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		for i := range 1024 {
			_ = ReverseBits(i, 10)
		}
	}
}

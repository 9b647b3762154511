// SPDX-License-Identifier: MIT
package fft

import (
	"math"

	"denoise/internal/params"
	"denoise/pkg/bitint"
)

// radix2 is an iterative decimation-in-time FFT. The element type decides
// the arithmetic width, so the fp32 variant really computes in single
// precision.
type radix2[C complex64 | complex128] struct {
	n         int
	precision params.Precision
	rev       []int // bit-reversal permutation
	twiddle   []C   // exp(-2*pi*i*k/n), k < n/2
	work      []C
}

var _ Backend = (*radix2[complex128])(nil)

func newRadix2[C complex64 | complex128](n int, precision params.Precision) *radix2[C] {
	stages := bitint.Log2(n)
	r := &radix2[C]{
		n:         n,
		precision: precision,
		rev:       make([]int, n),
		twiddle:   make([]C, n/2),
		work:      make([]C, n),
	}
	for i := range n {
		r.rev[i] = bitint.ReverseBits(i, stages)
	}
	for k := range n / 2 {
		angle := -2 * math.Pi * float64(k) / float64(n)
		r.twiddle[k] = C(complex(math.Cos(angle), math.Sin(angle)))
	}
	return r
}

func (r *radix2[C]) Size() int                   { return r.n }
func (r *radix2[C]) Variant() Variant            { return NativeRadix2 }
func (r *radix2[C]) Precision() params.Precision { return r.precision }

// butterflies runs the log2(n) stages over x, which must already be in
// bit-reversed order.
func (r *radix2[C]) butterflies(x []C) {
	n := r.n
	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		step := n / size
		for start := 0; start < n; start += size {
			for k := range half {
				w := r.twiddle[k*step]
				a := x[start+k]
				b := x[start+k+half] * w
				x[start+k] = a + b
				x[start+k+half] = a - b
			}
		}
	}
}

func (r *radix2[C]) Forward(dst []complex128, src []float64) error {
	if err := checkForward(r.n, dst, src); err != nil {
		return err
	}
	for i, v := range src {
		r.work[r.rev[i]] = C(complex(v, 0))
	}
	r.butterflies(r.work)
	for k := range dst {
		dst[k] = complex128(r.work[k])
	}
	return nil
}

// Inverse rebuilds the full Hermitian spectrum, conjugated, runs the
// forward kernel and keeps the real part: ifft(X) = conj(fft(conj(X)))/n,
// and the conjugate of a real result is itself.
func (r *radix2[C]) Inverse(dst []float64, src []complex128) error {
	if err := checkInverse(r.n, dst, src); err != nil {
		return err
	}
	n := r.n
	half := n / 2
	for k := 0; k <= half; k++ {
		v := src[k]
		r.work[r.rev[k]] = C(complex(real(v), -imag(v)))
	}
	for k := 1; k < half; k++ {
		// conj(conj(X[k])) for the mirrored bin n-k.
		r.work[r.rev[n-k]] = C(src[k])
	}
	r.butterflies(r.work)

	scale := 1 / float64(n)
	for i := range dst {
		dst[i] = real(complex128(r.work[i])) * scale
	}
	return nil
}

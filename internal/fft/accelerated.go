// SPDX-License-Identifier: MIT

//go:build !noaccel

package fft

import (
	"denoise/internal/params"

	algofft "github.com/MeKo-Christian/algo-fft"
)

const acceleratedCompiled = true

// MaxAcceleratedSize bounds the plans this package asks algo-fft for.
const MaxAcceleratedSize = 1 << 20

// accelerated adapts a complex algo-fft plan to the real-input contract.
// Input is promoted to complex with zero imaginary part; the inverse
// mirrors the half spectrum into the full Hermitian sequence. The plan's
// inverse is already normalised by 1/n.
type accelerated[C algofft.Complex] struct {
	n         int
	precision params.Precision
	plan      *algofft.Plan[C]
	in        []C
	out       []C
}

var _ Backend = (*accelerated[complex64])(nil)

func newAccelerated(size int, precision params.Precision) (Backend, error) {
	if err := checkSize(size, MaxAcceleratedSize); err != nil {
		return nil, err
	}
	switch precision {
	case params.FP64:
		plan, err := algofft.NewPlan64(size)
		if err != nil {
			return nil, unavailable("algo-fft plan for %d points: %v", size, err)
		}
		return newAcceleratedFrom(size, precision, plan), nil
	case params.FP32:
		plan, err := algofft.NewPlan32(size)
		if err != nil {
			return nil, unavailable("algo-fft plan for %d points: %v", size, err)
		}
		return newAcceleratedFrom(size, precision, plan), nil
	default:
		return nil, unavailable("unsupported precision %s", precision)
	}
}

func newAcceleratedFrom[C algofft.Complex](size int, precision params.Precision, plan *algofft.Plan[C]) *accelerated[C] {
	return &accelerated[C]{
		n:         size,
		precision: precision,
		plan:      plan,
		in:        make([]C, size),
		out:       make([]C, size),
	}
}

func (a *accelerated[C]) Size() int                   { return a.n }
func (a *accelerated[C]) Variant() Variant            { return AcceleratedLibrary }
func (a *accelerated[C]) Precision() params.Precision { return a.precision }

func (a *accelerated[C]) Forward(dst []complex128, src []float64) error {
	if err := checkForward(a.n, dst, src); err != nil {
		return err
	}
	for i, v := range src {
		a.in[i] = C(complex(v, 0))
	}
	if err := a.plan.Forward(a.out, a.in); err != nil {
		return err
	}
	for k := range dst {
		dst[k] = complex128(a.out[k])
	}
	return nil
}

func (a *accelerated[C]) Inverse(dst []float64, src []complex128) error {
	if err := checkInverse(a.n, dst, src); err != nil {
		return err
	}
	n := a.n
	half := n / 2
	for k := 0; k <= half; k++ {
		a.in[k] = C(src[k])
	}
	for k := 1; k < half; k++ {
		v := src[k]
		a.in[n-k] = C(complex(real(v), -imag(v)))
	}
	if err := a.plan.Inverse(a.out, a.in); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = real(complex128(a.out[i]))
	}
	return nil
}

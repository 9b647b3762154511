// SPDX-License-Identifier: MIT
/*
Package fft provides the real-input transform backends used by the spectral
processor.

Two variants share the Backend contract:
  - NativeRadix2: iterative bit-reversal Cooley-Tukey, always compiled in.
  - AcceleratedLibrary: algo-fft plans, compiled in unless the noaccel
    build tag is set.

A backend is fixed to one power-of-two length at construction. Forward
produces the N/2+1 non-negative frequency bins; Inverse consumes them and
returns the real sequence scaled by 1/N, so Inverse(Forward(x)) == x.
Neither method allocates.
*/
package fft

import (
	"errors"
	"fmt"
	"math"

	"denoise/internal/fault"
	"denoise/internal/params"
	"denoise/pkg/bitint"
	"denoise/pkg/build"
)

// Component is the name faults from this package are attributed to.
const Component = "fft"

// Size limits of the native kernel.
const (
	MinNativeSize = 2
	MaxNativeSize = 1 << 16
)

// ErrLength is returned when a buffer does not match the backend length.
var ErrLength = errors.New("fft: buffer length does not match transform size")

// Variant identifies a backend implementation.
type Variant int

const (
	NativeRadix2 Variant = iota
	AcceleratedLibrary
)

func (v Variant) String() string {
	switch v {
	case NativeRadix2:
		return "native-radix2"
	case AcceleratedLibrary:
		return "accelerated"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Backend is a fixed-length real-to-complex transform.
type Backend interface {
	// Forward transforms len(src) == Size() samples into
	// len(dst) == Size()/2+1 bins.
	Forward(dst []complex128, src []float64) error
	// Inverse transforms Size()/2+1 bins of a Hermitian spectrum back into
	// Size() real samples, scaled by 1/Size().
	Inverse(dst []float64, src []complex128) error
	Size() int
	Variant() Variant
	Precision() params.Precision
}

// Factory builds a backend for a size and precision.
type Factory func(size int, precision params.Precision) (Backend, error)

func init() {
	build.RegisterCapability("accelerated-fft", AcceleratedAvailable())
}

// AcceleratedAvailable reports whether the accelerated library was
// compiled into this binary.
func AcceleratedAvailable() bool {
	return acceleratedCompiled
}

// New returns the best available backend: the accelerated library when it
// is compiled in and accepts the size, otherwise the native kernel.
// When neither can serve the request the error is a BackendUnavailable
// *fault.Fault.
func New(size int, precision params.Precision) (Backend, error) {
	if acceleratedCompiled {
		if b, err := newAccelerated(size, precision); err == nil {
			return b, nil
		}
	}
	return NewNative(size, precision)
}

// NewNative returns the native radix-2 backend, the guaranteed fallback.
func NewNative(size int, precision params.Precision) (Backend, error) {
	if err := checkSize(size, MaxNativeSize); err != nil {
		return nil, err
	}
	switch precision {
	case params.FP64:
		return newRadix2[complex128](size, precision), nil
	case params.FP32:
		return newRadix2[complex64](size, precision), nil
	default:
		return nil, unavailable("unsupported precision %s", precision)
	}
}

func checkSize(size, limit int) error {
	if size < MinNativeSize || !bitint.IsPowerOfTwo(size) {
		return unavailable("size %d is not a power of two >= %d", size, MinNativeSize)
	}
	if size > limit {
		return unavailable("size %d exceeds the supported maximum %d", size, limit)
	}
	return nil
}

func unavailable(format string, args ...any) *fault.Fault {
	return fault.New(fault.BackendUnavailable, Component, fmt.Sprintf(format, args...))
}

func checkForward(n int, dst []complex128, src []float64) error {
	if len(src) != n || len(dst) != n/2+1 {
		return ErrLength
	}
	return nil
}

func checkInverse(n int, dst []float64, src []complex128) error {
	if len(dst) != n || len(src) != n/2+1 {
		return ErrLength
	}
	return nil
}

// HasNonFinite reports whether any bin has a NaN or infinite component.
func HasNonFinite(spectrum []complex128) bool {
	for _, c := range spectrum {
		re, im := real(c), imag(c)
		if math.IsNaN(re) || math.IsInf(re, 0) || math.IsNaN(im) || math.IsInf(im, 0) {
			return true
		}
	}
	return false
}

// SPDX-License-Identifier: MIT

//go:build !noaccel

package fft

import (
	"math/cmplx"
	"testing"

	"denoise/internal/params"

	"gonum.org/v1/gonum/dsp/fourier"
)

func TestAcceleratedMatchesGonum(t *testing.T) {
	for _, n := range []int{64, 1024, 4096} {
		backend, err := newAccelerated(n, params.FP64)
		if err != nil {
			t.Fatalf("newAccelerated(%d): %v", n, err)
		}
		if backend.Variant() != AcceleratedLibrary {
			t.Fatalf("Variant() = %s", backend.Variant())
		}

		input := testSignal(n)
		got := make([]complex128, n/2+1)
		if err := backend.Forward(got, input); err != nil {
			t.Fatal(err)
		}

		want := fourier.NewFFT(n).Coefficients(nil, input)
		for k := range got {
			if cmplx.Abs(got[k]-want[k]) > 1e-9*float64(n) {
				t.Fatalf("n=%d bin %d: got %v, want %v", n, k, got[k], want[k])
			}
		}
	}
}

func TestAcceleratedAgreesWithNative(t *testing.T) {
	accel, err := newAccelerated(testFFTSize, params.FP32)
	if err != nil {
		t.Fatal(err)
	}
	native, _ := NewNative(testFFTSize, params.FP64)

	input := testSignal(testFFTSize)
	a := make([]complex128, testFFTSize/2+1)
	b := make([]complex128, testFFTSize/2+1)
	_ = accel.Forward(a, input)
	_ = native.Forward(b, input)

	for k := range a {
		if cmplx.Abs(a[k]-b[k]) > 1e-2 {
			t.Fatalf("bin %d: fp32 accelerated %v, fp64 native %v", k, a[k], b[k])
		}
	}
}

func TestAcceleratedAvailable(t *testing.T) {
	if !AcceleratedAvailable() {
		t.Error("AcceleratedAvailable() = false in a build without noaccel")
	}
}

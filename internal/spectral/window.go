// SPDX-License-Identifier: MIT
package spectral

import (
	"denoise/internal/params"

	"gonum.org/v1/gonum/dsp/window"
)

// normFloor is the smallest overlap-add window sum that is still divided
// out. Positions below it are emitted as silence.
const normFloor = 1e-6

// NewWindow returns the n coefficients of the analysis window w.
func NewWindow(w params.WindowFunc, n int) []float64 {
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1
	}
	switch w {
	case params.Hann:
		window.Hann(coeffs)
	case params.Hamming:
		window.Hamming(coeffs)
	case params.Blackman:
		window.Blackman(coeffs)
	case params.BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case params.BartlettHann:
		window.BartlettHann(coeffs)
	case params.Nuttall:
		window.Nuttall(coeffs)
	case params.Rectangular:
	default:
		window.Hann(coeffs)
	}
	return coeffs
}

// inverseOverlapNorm returns, for each of the hop output positions, the
// reciprocal of the sum of window coefficients that overlap there. A frame
// analysed with win and added back every hop samples is restored to unit
// gain by multiplying with this table. Positions where the window sum is
// below normFloor get 0.
func inverseOverlapNorm(win []float64, hop int) []float64 {
	inv := make([]float64, hop)
	for j := range inv {
		var sum float64
		for k := j; k < len(win); k += hop {
			sum += win[k]
		}
		if sum >= normFloor {
			inv[j] = 1 / sum
		}
	}
	return inv
}

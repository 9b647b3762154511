// SPDX-License-Identifier: MIT
package spectral

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// rolloffFraction is the share of total magnitude below the rolloff
// frequency.
const rolloffFraction = 0.95

// Features describe the shape of the denoised magnitude spectrum of the
// most recent analysis hop. All are zero for a silent hop.
type Features struct {
	Centroid      float64 `json:"centroid_hz"`    // Magnitude-weighted mean frequency.
	Spread        float64 `json:"spread_hz"`      // Magnitude-weighted deviation around Centroid.
	Flatness      float64 `json:"flatness"`       // Geometric over arithmetic mean of non-zero bins, 0..1.
	Rolloff       float64 `json:"rolloff_hz"`     // Lowest frequency below which 95% of the magnitude lies.
	MeanMagnitude float64 `json:"mean_magnitude"` // Average bin magnitude.
	PeakMagnitude float64 `json:"peak_magnitude"` // Largest bin magnitude.
}

// compute fills f from mags, with binHz the centre frequency of each bin.
// cum is scratch of the same length.
func (f *Features) compute(mags, binHz, cum []float64) {
	sum := floats.Sum(mags)
	if !(sum > 0) {
		*f = Features{}
		return
	}

	centroid, variance := stat.PopMeanVariance(binHz, mags)
	f.Centroid = centroid
	f.Spread = math.Sqrt(variance)
	f.MeanMagnitude = sum / float64(len(mags))
	f.PeakMagnitude = floats.Max(mags)

	var logSum float64
	nonZero := 0
	for _, m := range mags {
		if m > 0 {
			logSum += math.Log(m)
			nonZero++
		}
	}
	f.Flatness = math.Exp(logSum/float64(nonZero)) / f.MeanMagnitude

	floats.CumSum(cum, mags)
	target := rolloffFraction * sum
	f.Rolloff = binHz[len(binHz)-1]
	for i, c := range cum {
		if c >= target {
			f.Rolloff = binHz[i]
			break
		}
	}
}

// SPDX-License-Identifier: MIT
package spectral

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// thresholdRise is applied to the threshold after every frame that is not
// classified as noise, so a raised background level is eventually learned.
const thresholdRise = 1.001

// calibrationQuantile selects the calibration energy the threshold is
// seeded from.
const calibrationQuantile = 0.25

// classifier decides per analysis hop whether the frame is dominated by
// background noise, using an energy threshold that adapts to the input.
//
// The first calibration hops are always treated as noise and their
// energies recorded. The threshold is then seeded from the lower quartile
// of those energies times factor. Afterwards it follows a smoothed estimate
// of the energy of noise frames.
//
// Hops at or below the silence energy count as noise but are neither
// recorded nor folded into the estimate, so leading or intermittent digital
// silence cannot pull the threshold down to zero.
type classifier struct {
	factor  float64
	decay   float64
	silence float64

	calib      []float64
	calibrated bool

	noiseEnergy float64
	threshold   float64
}

func newClassifier(factor, decay, silence float64, calibrationFrames int) classifier {
	return classifier{
		factor:  factor,
		decay:   decay,
		silence: silence,
		calib:   make([]float64, 0, calibrationFrames),
	}
}

// observe classifies one hop by its mean power.
func (c *classifier) observe(energy float64) bool {
	if energy <= c.silence {
		return true
	}
	if !c.calibrated {
		if cap(c.calib) == 0 {
			c.seed(energy)
			return true
		}
		c.calib = append(c.calib, energy)
		if len(c.calib) == cap(c.calib) {
			slices.Sort(c.calib)
			c.seed(stat.Quantile(calibrationQuantile, stat.Empirical, c.calib, nil))
		}
		return true
	}

	if energy <= c.threshold {
		c.noiseEnergy = c.decay*c.noiseEnergy + (1-c.decay)*energy
		c.threshold = c.factor * max(c.noiseEnergy, c.silence)
		return true
	}
	c.threshold *= thresholdRise
	return false
}

func (c *classifier) seed(energy float64) {
	c.noiseEnergy = energy
	c.threshold = c.factor * max(energy, c.silence)
	c.calibrated = true
}

func (c *classifier) reset() {
	c.calib = c.calib[:0]
	c.calibrated = false
	c.noiseEnergy = 0
	c.threshold = 0
}

func (c *classifier) calibrating() bool {
	return !c.calibrated
}

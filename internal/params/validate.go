// SPDX-License-Identifier: MIT
package params

import (
	"fmt"
	"math"

	"denoise/pkg/bitint"
)

// FieldError names the configuration field that failed validation.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// IsValidFFTSize reports whether n is a power of two in [MinFFTSize, MaxFFTSize].
func IsValidFFTSize(n int) bool {
	return n >= MinFFTSize && n <= MaxFFTSize && bitint.IsPowerOfTwo(n)
}

// IsValidSampleRate reports whether rate lies in [MinSampleRate, MaxSampleRate].
func IsValidSampleRate(rate float64) bool {
	return finite(rate) && rate >= MinSampleRate && rate <= MaxSampleRate
}

// IsValidNumBands reports whether numBands is in [MinBands, MaxBands] and
// does not exceed the fftSize/2 bins available below Nyquist.
func IsValidNumBands(numBands, fftSize int) bool {
	return numBands >= MinBands && numBands <= MaxBands && numBands <= fftSize/2
}

// IsValidOverlap reports whether the overlap fraction is in [MinOverlap, MaxOverlap].
func IsValidOverlap(overlap float64) bool {
	return finite(overlap) && overlap >= MinOverlap && overlap <= MaxOverlap
}

// IsValidFrequency reports whether hz lies in [MinFrequency, MaxFrequency].
func IsValidFrequency(hz float64) bool {
	return finite(hz) && hz >= MinFrequency && hz <= MaxFrequency
}

// IsValidFrequencyRange reports whether both bounds are valid and lo < hi.
func IsValidFrequencyRange(lo, hi float64) bool {
	return IsValidFrequency(lo) && IsValidFrequency(hi) && lo < hi
}

// IsValidMemoryPoolSize reports whether bytes lies in [MinMemoryPool, MaxMemoryPool].
func IsValidMemoryPoolSize(bytes int) bool {
	return bytes >= MinMemoryPool && bytes <= MaxMemoryPool
}

// IsValidPrecision reports whether p is FP32 or FP64.
func IsValidPrecision(p Precision) bool {
	return p == FP32 || p == FP64
}

// IsValidDecay reports whether d is a smoothing coefficient in [0, 1).
func IsValidDecay(d float64) bool {
	return finite(d) && d >= 0 && d < 1
}

// IsValidGainFloor reports whether g is in [0, 1].
func IsValidGainFloor(g float64) bool {
	return finite(g) && g >= 0 && g <= 1
}

// IsValidPositive reports whether v is finite and strictly positive.
func IsValidPositive(v float64) bool {
	return finite(v) && v > 0
}

// IsValidThresholdFactor reports whether f is finite and at least 1.
func IsValidThresholdFactor(f float64) bool {
	return finite(f) && f >= 1
}

// IsValidCalibrationFrames reports whether n is in [0, MaxCalibrationHop].
func IsValidCalibrationFrames(n int) bool {
	return n >= 0 && n <= MaxCalibrationHop
}

// Validate checks every field of c in a fixed order and returns a
// *FieldError for the first one that fails, or nil.
func Validate(c Configuration) error {
	switch {
	case !IsValidFFTSize(c.FFTSize):
		reason := fmt.Sprintf("must be a power of two in [%d, %d]", MinFFTSize, MaxFFTSize)
		if c.FFTSize >= MinFFTSize && c.FFTSize <= MaxFFTSize {
			reason += fmt.Sprintf(", nearest is %d", bitint.NextPowerOfTwo(c.FFTSize))
		}
		return &FieldError{"fft_size", c.FFTSize, reason}
	case !IsValidSampleRate(c.SampleRate):
		return &FieldError{"sample_rate", c.SampleRate, fmt.Sprintf("must be in [%d, %d] Hz", MinSampleRate, MaxSampleRate)}
	case !IsValidNumBands(c.NumBands, c.FFTSize):
		return &FieldError{"num_bands", c.NumBands, fmt.Sprintf("must be in [%d, %d] and <= fft_size/2 (%d)", MinBands, MaxBands, c.FFTSize/2)}
	case !IsValidFrequency(c.MinFrequency):
		return &FieldError{"min_frequency", c.MinFrequency, fmt.Sprintf("must be in [%.0f, %.0f] Hz", MinFrequency, MaxFrequency)}
	case !IsValidFrequency(c.MaxFrequency):
		return &FieldError{"max_frequency", c.MaxFrequency, fmt.Sprintf("must be in [%.0f, %.0f] Hz", MinFrequency, MaxFrequency)}
	case !IsValidFrequencyRange(c.MinFrequency, c.MaxFrequency):
		return &FieldError{"frequency_range", [2]float64{c.MinFrequency, c.MaxFrequency}, "min_frequency must be below max_frequency"}
	case !IsValidOverlap(c.Overlap):
		return &FieldError{"overlap", c.Overlap, fmt.Sprintf("must be in [%.2f, %.2f]", MinOverlap, MaxOverlap)}
	case !IsValidMemoryPoolSize(c.MemoryPoolSize):
		return &FieldError{"memory_pool_size", c.MemoryPoolSize, fmt.Sprintf("must be in [%d, %d] bytes", MinMemoryPool, MaxMemoryPool)}
	case !IsValidPrecision(c.Precision):
		return &FieldError{"precision", c.Precision, "must be fp32 or fp64"}
	case !IsValidWindow(c.Window):
		return &FieldError{"window", c.Window, "unknown window function"}
	}
	return validateNoise(c.Noise)
}

func validateNoise(n NoiseTuning) error {
	switch {
	case !IsValidDecay(n.Decay):
		return &FieldError{"noise.decay", n.Decay, "must be in [0, 1)"}
	case !IsValidPositive(n.MinFloor):
		return &FieldError{"noise.min_floor", n.MinFloor, "must be positive"}
	case !IsValidGainFloor(n.GainFloor):
		return &FieldError{"noise.gain_floor", n.GainFloor, "must be in [0, 1]"}
	case !IsValidPositive(n.Epsilon):
		return &FieldError{"noise.epsilon", n.Epsilon, "must be positive"}
	case !IsValidThresholdFactor(n.ThresholdFactor):
		return &FieldError{"noise.threshold_factor", n.ThresholdFactor, "must be >= 1"}
	case !IsValidCalibrationFrames(n.CalibrationFrames):
		return &FieldError{"noise.calibration_frames", n.CalibrationFrames, fmt.Sprintf("must be in [0, %d]", MaxCalibrationHop)}
	case !IsValidDecay(n.GainSmoothing):
		return &FieldError{"noise.gain_smoothing", n.GainSmoothing, "must be in [0, 1)"}
	}
	return nil
}

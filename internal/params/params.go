// SPDX-License-Identifier: MIT
/*
Package params defines the engine Configuration and the pure predicates
that decide whether a configuration may be adopted.

Every predicate takes primitive input, has no side effects and is safe to
call from any goroutine. Validate runs them in a fixed order and reports
the first failing field; callers must treat the result as all-or-nothing.
*/
package params

import (
	"fmt"
	"math"
	"strings"
)

// Parameter limits.
const (
	MinFFTSize        = 64
	MaxFFTSize        = 8192
	MinSampleRate     = 8000
	MaxSampleRate     = 192000
	MinBands          = 1
	MaxBands          = 1024
	MinOverlap        = 0.0
	MaxOverlap        = 0.95
	MinFrequency      = 1.0
	MaxFrequency      = 96000.0
	MinMemoryPool     = 1 << 10
	MaxMemoryPool     = 16 << 20
	MaxCalibrationHop = 1000
)

// Precision selects the numeric width of the transform backend.
type Precision int

const (
	FP64 Precision = iota
	FP32
)

func (p Precision) String() string {
	switch p {
	case FP64:
		return "fp64"
	case FP32:
		return "fp32"
	default:
		return fmt.Sprintf("Precision(%d)", int(p))
	}
}

// ParsePrecision converts "fp32"/"fp64" (also "float32"/"float64",
// case-insensitive) into a Precision. Unknown names return FP64 and an error.
func ParsePrecision(name string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fp64", "float64", "double", "":
		return FP64, nil
	case "fp32", "float32", "single":
		return FP32, nil
	default:
		return FP64, fmt.Errorf("unknown precision %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Precision) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so YAML and flags can
// carry the precision by name.
func (p *Precision) UnmarshalText(text []byte) error {
	v, err := ParsePrecision(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// NoiseTuning holds the adaptive noise floor and gain parameters.
type NoiseTuning struct {
	Decay             float64 `yaml:"decay"`              // Floor smoothing per noise frame, [0, 1).
	MinFloor          float64 `yaml:"min_floor"`          // Lower bound of every floor estimate.
	GainFloor         float64 `yaml:"gain_floor"`         // Lowest gain applied to any bin.
	Epsilon           float64 `yaml:"epsilon"`            // Magnitude guard in the gain ratio.
	ThresholdFactor   float64 `yaml:"threshold_factor"`   // Noise energy multiplier for classification.
	CalibrationFrames int     `yaml:"calibration_frames"` // Hops that always learn before the threshold is seeded.
	GainSmoothing     float64 `yaml:"gain_smoothing"`     // Temporal gain smoothing, 0 disables.
}

// Configuration is an immutable snapshot of the engine parameters.
// It is passed and stored by value; replacing it replaces the whole value.
type Configuration struct {
	FFTSize        int         `yaml:"fft_size"`
	SampleRate     float64     `yaml:"sample_rate"`
	NumBands       int         `yaml:"num_bands"`
	MinFrequency   float64     `yaml:"min_frequency"`
	MaxFrequency   float64     `yaml:"max_frequency"`
	Overlap        float64     `yaml:"overlap"`
	MemoryPoolSize int         `yaml:"memory_pool_size"`
	Precision      Precision   `yaml:"precision"`
	Window         WindowFunc  `yaml:"window"`
	Noise          NoiseTuning `yaml:"noise"`
}

// DefaultNoiseTuning returns conservative suppression settings.
func DefaultNoiseTuning() NoiseTuning {
	return NoiseTuning{
		Decay:             0.95,
		MinFloor:          1e-9,
		GainFloor:         0.1,
		Epsilon:           1e-12,
		ThresholdFactor:   2.0,
		CalibrationFrames: 10,
		GainSmoothing:     0.5,
	}
}

// Default returns the reference configuration.
func Default() Configuration {
	return Configuration{
		FFTSize:        1024,
		SampleRate:     44100,
		NumBands:       32,
		MinFrequency:   20,
		MaxFrequency:   20000,
		Overlap:        0.75,
		MemoryPoolSize: 1 << 20,
		Precision:      FP64,
		Window:         Hann,
		Noise:          DefaultNoiseTuning(),
	}
}

// BinCount returns the number of bins of a real-input transform.
func (c Configuration) BinCount() int {
	return c.FFTSize/2 + 1
}

// Hop returns the analysis hop in samples, never less than one.
func (c Configuration) Hop() int {
	hop := int(math.Round(float64(c.FFTSize) * (1 - c.Overlap)))
	if hop < 1 {
		return 1
	}
	if hop > c.FFTSize {
		return c.FFTSize
	}
	return hop
}

// BinFrequency returns the centre frequency of bin i in Hz.
func (c Configuration) BinFrequency(i int) float64 {
	if c.FFTSize == 0 {
		return 0
	}
	return float64(i) * c.SampleRate / float64(c.FFTSize)
}

func (c Configuration) String() string {
	return fmt.Sprintf("fft=%d rate=%.0fHz bands=%d range=[%.0f,%.0f]Hz overlap=%.2f pool=%dB precision=%s window=%s",
		c.FFTSize, c.SampleRate, c.NumBands, c.MinFrequency, c.MaxFrequency, c.Overlap, c.MemoryPoolSize, c.Precision, c.Window)
}

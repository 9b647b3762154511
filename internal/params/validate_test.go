// SPDX-License-Identifier: MIT
package params

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidFFTSizeBoundaries(t *testing.T) {
	tests := []struct {
		n    int
		want bool
	}{
		{0, false},
		{32, false},
		{63, false},
		{64, true},
		{100, false},
		{1024, true},
		{4096, true},
		{8192, true},
		{8193, false},
		{16384, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidFFTSize(tt.n), "IsValidFFTSize(%d)", tt.n)
	}
}

func TestIsValidNumBandsNyquist(t *testing.T) {
	assert.True(t, IsValidNumBands(1, 64))
	assert.True(t, IsValidNumBands(32, 64))
	assert.False(t, IsValidNumBands(33, 64))
	assert.True(t, IsValidNumBands(512, 1024))
	assert.False(t, IsValidNumBands(600, 1024))
	assert.True(t, IsValidNumBands(1024, 8192))
	assert.False(t, IsValidNumBands(1025, 8192))
	assert.False(t, IsValidNumBands(0, 1024))
}

func TestScalarPredicates(t *testing.T) {
	assert.True(t, IsValidSampleRate(8000))
	assert.True(t, IsValidSampleRate(192000))
	assert.False(t, IsValidSampleRate(7999))
	assert.False(t, IsValidSampleRate(math.NaN()))

	assert.True(t, IsValidOverlap(0))
	assert.True(t, IsValidOverlap(0.95))
	assert.False(t, IsValidOverlap(0.96))
	assert.False(t, IsValidOverlap(-0.01))

	assert.True(t, IsValidFrequencyRange(1, 96000))
	assert.False(t, IsValidFrequencyRange(500, 500))
	assert.False(t, IsValidFrequencyRange(0.5, 100))
	assert.False(t, IsValidFrequencyRange(100, math.Inf(1)))

	assert.True(t, IsValidMemoryPoolSize(1024))
	assert.True(t, IsValidMemoryPoolSize(16<<20))
	assert.False(t, IsValidMemoryPoolSize(1023))
	assert.False(t, IsValidMemoryPoolSize(16<<20+1))

	assert.True(t, IsValidPrecision(FP32))
	assert.False(t, IsValidPrecision(Precision(7)))
}

// allPredicates is the conjunction Validate must agree with.
func allPredicates(c Configuration) bool {
	n := c.Noise
	return IsValidFFTSize(c.FFTSize) &&
		IsValidSampleRate(c.SampleRate) &&
		IsValidNumBands(c.NumBands, c.FFTSize) &&
		IsValidFrequency(c.MinFrequency) &&
		IsValidFrequency(c.MaxFrequency) &&
		IsValidFrequencyRange(c.MinFrequency, c.MaxFrequency) &&
		IsValidOverlap(c.Overlap) &&
		IsValidMemoryPoolSize(c.MemoryPoolSize) &&
		IsValidPrecision(c.Precision) &&
		IsValidWindow(c.Window) &&
		IsValidDecay(n.Decay) &&
		IsValidPositive(n.MinFloor) &&
		IsValidGainFloor(n.GainFloor) &&
		IsValidPositive(n.Epsilon) &&
		IsValidThresholdFactor(n.ThresholdFactor) &&
		IsValidCalibrationFrames(n.CalibrationFrames) &&
		IsValidDecay(n.GainSmoothing)
}

func TestValidateAgreesWithPredicates(t *testing.T) {
	mutations := []struct {
		name  string
		field string
		edit  func(*Configuration)
	}{
		{"default", "", func(*Configuration) {}},
		{"smallest fft", "", func(c *Configuration) { c.FFTSize = 64; c.NumBands = 32 }},
		{"largest fft", "", func(c *Configuration) { c.FFTSize = 8192; c.NumBands = 1024 }},
		{"fp32", "", func(c *Configuration) { c.Precision = FP32 }},
		{"no overlap", "", func(c *Configuration) { c.Overlap = 0 }},
		{"fft not pow2", "fft_size", func(c *Configuration) { c.FFTSize = 1000 }},
		{"fft too large", "fft_size", func(c *Configuration) { c.FFTSize = 16384 }},
		{"rate too low", "sample_rate", func(c *Configuration) { c.SampleRate = 4000 }},
		{"bands above nyquist", "num_bands", func(c *Configuration) { c.NumBands = 600 }},
		{"zero bands", "num_bands", func(c *Configuration) { c.NumBands = 0 }},
		{"min freq", "min_frequency", func(c *Configuration) { c.MinFrequency = 0 }},
		{"max freq", "max_frequency", func(c *Configuration) { c.MaxFrequency = 100000 }},
		{"inverted range", "frequency_range", func(c *Configuration) { c.MinFrequency, c.MaxFrequency = 5000, 100 }},
		{"overlap", "overlap", func(c *Configuration) { c.Overlap = 0.99 }},
		{"pool", "memory_pool_size", func(c *Configuration) { c.MemoryPoolSize = 512 }},
		{"precision", "precision", func(c *Configuration) { c.Precision = Precision(3) }},
		{"window", "window", func(c *Configuration) { c.Window = WindowFunc(42) }},
		{"decay", "noise.decay", func(c *Configuration) { c.Noise.Decay = 1 }},
		{"min floor", "noise.min_floor", func(c *Configuration) { c.Noise.MinFloor = 0 }},
		{"gain floor", "noise.gain_floor", func(c *Configuration) { c.Noise.GainFloor = 1.5 }},
		{"epsilon", "noise.epsilon", func(c *Configuration) { c.Noise.Epsilon = -1 }},
		{"threshold", "noise.threshold_factor", func(c *Configuration) { c.Noise.ThresholdFactor = 0.5 }},
		{"calibration", "noise.calibration_frames", func(c *Configuration) { c.Noise.CalibrationFrames = -1 }},
		{"smoothing", "noise.gain_smoothing", func(c *Configuration) { c.Noise.GainSmoothing = 1 }},
	}

	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(&cfg)

			err := Validate(cfg)
			assert.Equal(t, allPredicates(cfg), err == nil)

			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			var fe *FieldError
			require.True(t, errors.As(err, &fe), "expected *FieldError, got %v", err)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestValidateReportsFirstFailure(t *testing.T) {
	cfg := Default()
	cfg.FFTSize = 100
	cfg.SampleRate = 1

	var fe *FieldError
	require.ErrorAs(t, Validate(cfg), &fe)
	assert.Equal(t, "fft_size", fe.Field)
	assert.Contains(t, fe.Error(), "nearest is 128")
}

func TestConfigurationHop(t *testing.T) {
	tests := []struct {
		size    int
		overlap float64
		hop     int
	}{
		{1024, 0.75, 256},
		{1024, 0.5, 512},
		{1024, 0, 1024},
		{64, 0.95, 3},
	}
	for _, tt := range tests {
		c := Configuration{FFTSize: tt.size, Overlap: tt.overlap}
		assert.Equal(t, tt.hop, c.Hop(), "size=%d overlap=%.2f", tt.size, tt.overlap)
	}
	assert.Equal(t, 513, Default().BinCount())
}

func TestParsePrecisionAndWindow(t *testing.T) {
	p, err := ParsePrecision("FP32")
	require.NoError(t, err)
	assert.Equal(t, FP32, p)

	_, err = ParsePrecision("fp16")
	assert.Error(t, err)

	var w WindowFunc
	require.NoError(t, w.UnmarshalText([]byte("Blackman")))
	assert.Equal(t, Blackman, w)

	w2, err := ParseWindowFunc("triangle")
	assert.Error(t, err)
	assert.Equal(t, Hann, w2)
}

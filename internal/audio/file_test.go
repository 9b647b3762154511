// SPDX-License-Identifier: MIT
package audio

import (
	"os"
	"path/filepath"
	"testing"

	"denoise/internal/engine"
	"denoise/internal/params"
	"denoise/pkg/utils"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	in := utils.ToFloat32(utils.GenerateSineWave(4410, 44100, 440))
	for i := range in {
		in[i] *= 0.8
	}
	require.NoError(t, WriteFile(path, in, 44100, 24))

	clip, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, 44100, clip.SampleRate)
	assert.Equal(t, 24, clip.BitDepth)
	assert.Equal(t, 1, clip.Channels)
	require.Len(t, clip.Samples, len(in))
	for i := range in {
		require.InDelta(t, in[i], clip.Samples[i], 1e-5)
	}
	assert.InDelta(t, 0.1, clip.Duration(), 1e-9)
}

func TestOpenFileStereoMixdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, 16000, 16, 2, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 16000},
		SourceBitDepth: 16,
		Data:           []int{16384, 0, -16384, -16384, 8192, 8192},
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	clip, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, clip.Channels)
	require.Len(t, clip.Samples, 3)
	assert.InDelta(t, 0.25, clip.Samples[0], 1e-6)
	assert.InDelta(t, -0.5, clip.Samples[1], 1e-6)
	assert.InDelta(t, 0.25, clip.Samples[2], 1e-6)
}

func TestOpenFileErrors(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)

	junk := filepath.Join(t.TempDir(), "junk.wav")
	require.NoError(t, os.WriteFile(junk, []byte("not a riff file"), 0o644))
	_, err = OpenFile(junk)
	assert.Error(t, err)
}

func TestNewRecorderRejectsBitDepth(t *testing.T) {
	_, err := NewRecorder(filepath.Join(t.TempDir(), "x.wav"), 44100, 12)
	assert.Error(t, err)
}

func TestRecorderClipsAndCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	rec, err := NewRecorder(path, 8000, 16)
	require.NoError(t, err)
	require.NoError(t, rec.Write([]float32{2, -2, 0}))
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())
	assert.ErrorIs(t, rec.Write([]float32{0}), ErrRecorderClosed)

	clip, err := OpenFile(path)
	require.NoError(t, err)
	require.Len(t, clip.Samples, 3)
	assert.InDelta(t, 1, clip.Samples[0], 1e-4)
	assert.InDelta(t, -1, clip.Samples[1], 1e-4)
}

func TestRenderCompensatesLatency(t *testing.T) {
	e := engine.New(engine.WithoutFaultLogging())
	t.Cleanup(e.Shutdown)
	cfg := params.Default()
	cfg.Noise.GainFloor = 1
	require.NoError(t, e.Configure(cfg))

	in := utils.ToFloat32(utils.GenerateNoise(5000, 0.3, 17))
	out, stats, err := Render(e, in, cfg.FFTSize, e.Latency())
	require.NoError(t, err)
	require.Len(t, out, len(in))
	assert.Equal(t, 6, stats.Frames)
	assert.Equal(t, 6, stats.Processed)
	for i := range in {
		require.InDelta(t, in[i], out[i], 1e-4, "sample %d", i)
	}
}

func TestRenderPassthroughAndErrors(t *testing.T) {
	e := engine.New(engine.WithoutFaultLogging())
	in := []float32{0.1, 0.2, 0.3}
	out, stats, err := Render(e, in, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, 2, stats.Bypassed)

	_, _, err = Render(e, in, 0, 0)
	assert.Error(t, err)

	e.Shutdown()
	_, _, err = Render(e, in, 2, 0)
	assert.ErrorIs(t, err, engine.ErrClosed)
}

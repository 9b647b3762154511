// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"denoise/internal/audio"
	"denoise/internal/config"
	"denoise/internal/params"
	"denoise/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidateDefaults(t *testing.T) {
	out, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration OK: fft=1024")
	assert.Contains(t, out, "Hop: 256 samples")
}

func TestValidateFlagsOverride(t *testing.T) {
	out, err := execute(t, "validate", "--fft-size", "2048", "--bands", "64", "--overlap", "0.5", "--window", "hamming", "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "fft=2048")
	assert.Contains(t, out, "bands=64")
	assert.Contains(t, out, "window=hamming")
	assert.Contains(t, out, "fft_size: 2048")
}

func TestValidateRejects(t *testing.T) {
	_, err := execute(t, "validate", "--bands", "600")
	require.Error(t, err)
	var fe *params.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "num_bands", fe.Field)

	_, err = execute(t, "validate", "--precision", "fp16")
	assert.Error(t, err)
}

func TestValidateConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "denoise.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  fft_size: 512\n  noise:\n    gain_floor: 0.2\n"), 0o644))

	out, err := execute(t, "validate", "--config", path, "--sample-rate", "48000")
	require.NoError(t, err)
	assert.Contains(t, out, "fft=512 rate=48000Hz")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "denoise")
	assert.Contains(t, out, "commit:")
	assert.Contains(t, out, "accelerated-fft:")
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	signal := utils.ToFloat32(utils.GenerateNoise(8000, 0.25, 3))
	require.NoError(t, audio.WriteFile(in, signal, 16000, 16))

	stdout, err := execute(t, "process", in, out, "--gain-floor", "1", "--fft-size", "512")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote "+out)
	assert.Contains(t, stdout, "processed")

	clip, err := audio.OpenFile(out)
	require.NoError(t, err)
	assert.Equal(t, 16000, clip.SampleRate)
	assert.Equal(t, 16, clip.BitDepth)
	require.Len(t, clip.Samples, len(signal))
	for i := range signal {
		require.InDelta(t, signal[i], clip.Samples[i], 2e-4, "sample %d", i)
	}
}

func TestProcessArgs(t *testing.T) {
	_, err := execute(t, "process", "only-one.wav")
	assert.Error(t, err)

	_, err = execute(t, "process", filepath.Join(t.TempDir(), "missing.wav"), "out.wav")
	assert.Error(t, err)
}

func TestRecordingPath(t *testing.T) {
	cfg := config.Default()
	cfg.Recording.OutputDir = filepath.Join(t.TempDir(), "rec")
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := recordingPath(&cfg, "", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Recording.OutputDir, "recording-04-03-2026-050607.wav"), path)
	assert.DirExists(t, cfg.Recording.OutputDir)

	path, err = recordingPath(&cfg, "/tmp/x.wav", now)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.wav", path)
}

// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"denoise/internal/params"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Engine != params.Default() {
		t.Errorf("expected default engine section, got %+v", cfg.Engine)
	}
	if !cfg.Recovery.Enabled || cfg.Recovery.MaxRetries != 3 {
		t.Errorf("unexpected recovery defaults: %+v", cfg.Recovery)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
engine:
  fft_size: 2048
  sample_rate: 48000
  num_bands: 64
  overlap: 0.5
  precision: fp32
  window: blackman
  noise:
    gain_floor: 0.2
    calibration_frames: 4
recovery:
  max_retries: 5
audio:
  input_channels: 2
transport:
  udp_enabled: true
  udp_send_interval: 50ms
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	e := cfg.Engine
	if e.FFTSize != 2048 || e.SampleRate != 48000 || e.NumBands != 64 || e.Overlap != 0.5 {
		t.Errorf("engine section not applied: %s", e)
	}
	if e.Precision != params.FP32 || e.Window != params.Blackman {
		t.Errorf("expected fp32/blackman, got %s/%s", e.Precision, e.Window)
	}
	if e.Noise.GainFloor != 0.2 || e.Noise.CalibrationFrames != 4 {
		t.Errorf("noise section not applied: %+v", e.Noise)
	}
	// Keys absent from the file keep their defaults.
	if e.MaxFrequency != 20000 || e.Noise.Decay != 0.95 {
		t.Errorf("defaults lost: max=%v decay=%v", e.MaxFrequency, e.Noise.Decay)
	}
	if cfg.Recovery.MaxRetries != 5 || !cfg.Recovery.Enabled {
		t.Errorf("recovery: %+v", cfg.Recovery)
	}
	if cfg.Transport.UDPSendInterval != 50*time.Millisecond {
		t.Errorf("udp_send_interval: %v", cfg.Transport.UDPSendInterval)
	}
}

func TestLoadConfig_InvalidEngine(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, "engine:\n  fft_size: 1000\n")
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var fe *params.FieldError
	if !errors.As(err, &fe) || fe.Field != "fft_size" {
		t.Errorf("expected fft_size field error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV_ENGINE_FFT_SIZE", "512")
	t.Setenv("ENV_ENGINE_PRECISION", "fp32")
	t.Setenv("ENV_UDP_ENABLED", "true")
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "10.0.0.1:7000")
	t.Setenv("ENV_UDP_SEND_INTERVAL", "not-a-duration")
	t.Setenv("ENV_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine.FFTSize != 512 || cfg.Engine.Precision != params.FP32 {
		t.Errorf("engine overrides not applied: %s", cfg.Engine)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "10.0.0.1:7000" {
		t.Errorf("udp overrides not applied: %+v", cfg.Transport)
	}
	if cfg.Transport.UDPSendInterval != DefaultUDPInterval {
		t.Errorf("unparsable interval should be ignored, got %v", cfg.Transport.UDPSendInterval)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level override not applied: %s", cfg.LogLevel)
	}
}

func TestValidateSections(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"retries", func(c *Config) { c.Recovery.MaxRetries = -1 }, "max_retries"},
		{"channels", func(c *Config) { c.Audio.InputChannels = 0 }, "input_channels"},
		{"bit depth", func(c *Config) { c.Recording.Enabled = true; c.Recording.BitDepth = 12 }, "bit_depth"},
		{"udp address", func(c *Config) { c.Transport.UDPEnabled = true; c.Transport.UDPTargetAddress = "localhost" }, "udp_target_address"},
		{"report interval", func(c *Config) { c.Transport.WebSocketEnabled = true; c.Transport.ReportInterval = 0 }, "report_interval"},
		{"engine", func(c *Config) { c.Engine.Overlap = 0.99 }, "overlap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"denoise/internal/log"
	"denoise/internal/params"

	"gopkg.in/yaml.v3"
)

// DefaultPath is searched when LoadConfig is given an empty path.
const DefaultPath = "config.yaml"

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool                 `yaml:"debug"`     // Enable debug mode (verbose logging).
	LogLevel  string               `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Engine    params.Configuration `yaml:"engine"`    // Noise reduction parameters, including engine.noise.
	Recovery  RecoveryConfig       `yaml:"recovery"`  // Fault recovery policy.
	Audio     AudioConfig          `yaml:"audio"`     // Audio device settings.
	Recording RecordingConfig      `yaml:"recording"` // Recording of the denoised output.
	Transport TransportConfig      `yaml:"transport"` // Telemetry transports.
}

// RecoveryConfig controls how faults on the audio path are retried.
type RecoveryConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxRetries int  `yaml:"max_retries"` // Consecutive faults tolerated before bypass.
}

// AudioConfig holds settings related to audio input/output. Sample rate and
// buffer size follow the engine section.
type AudioConfig struct {
	InputDevice    int  `yaml:"input_device"`    // PortAudio device index for input (-1 for default).
	OutputDevice   int  `yaml:"output_device"`   // PortAudio device index for output (-1 for default).
	LowLatency     bool `yaml:"low_latency"`     // Request low latency settings from PortAudio.
	InputChannels  int  `yaml:"input_channels"`  // Captured channels, mixed down to mono.
	OutputChannels int  `yaml:"output_channels"` // Playback channels, the mono result is duplicated.
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Record the denoised stream to WAV.
	OutputDir string `yaml:"output_dir"` // Directory to save recorded audio files.
	BitDepth  int    `yaml:"bit_depth"`  // 16, 24 or 32.
}

// TransportConfig holds settings related to sending engine telemetry.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve engine snapshots over a websocket.
	WebSocketAddr    string        `yaml:"websocket_addr"`     // Listen address, e.g. ":8080".
	ReportInterval   time.Duration `yaml:"report_interval"`    // Interval between snapshot reports.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending band magnitudes over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target for UDP packets, e.g. "127.0.0.1:9090".
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
}

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, DefaultPath is tried and, failing that, built-in defaults are
// used. Environment overrides are applied last, then the result is
// validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks every section. The engine section is checked by
// params.Validate and its *params.FieldError is preserved in the chain.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	if err := params.Validate(c.Engine); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if c.Recovery.MaxRetries < 0 {
		return errors.New("recovery.max_retries must not be negative")
	}
	if c.Audio.InputChannels < 1 || c.Audio.InputChannels > MaxChannels {
		return fmt.Errorf("audio.input_channels must be in [1, %d], got %d", MaxChannels, c.Audio.InputChannels)
	}
	if c.Audio.OutputChannels < 0 || c.Audio.OutputChannels > MaxChannels {
		return fmt.Errorf("audio.output_channels must be in [0, %d], got %d", MaxChannels, c.Audio.OutputChannels)
	}
	if c.Recording.Enabled {
		switch c.Recording.BitDepth {
		case 16, 24, 32:
		default:
			return fmt.Errorf("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
		}
		if c.Recording.OutputDir == "" {
			return errors.New("recording.output_dir must be set when recording is enabled")
		}
	}
	if c.Transport.WebSocketEnabled {
		if c.Transport.ReportInterval <= 0 {
			return errors.New("transport.report_interval must be positive when the websocket is enabled")
		}
	}
	if c.Transport.UDPEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.UDPTargetAddress); err != nil {
			return fmt.Errorf("transport.udp_target_address %q: %w", c.Transport.UDPTargetAddress, err)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return errors.New("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	return nil
}

// applyEnvOverrides applies ENV_* variables on top of the file values.
// Values that do not parse are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	lookupBool("ENV_DEBUG", &c.Debug)
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		log.Infof("configuration: Overriding log_level from env: %s", val)
	}

	// ENV_ENGINE_{...}
	lookupInt("ENV_ENGINE_FFT_SIZE", &c.Engine.FFTSize)
	lookupFloat("ENV_ENGINE_SAMPLE_RATE", &c.Engine.SampleRate)
	lookupInt("ENV_ENGINE_NUM_BANDS", &c.Engine.NumBands)
	lookupFloat("ENV_ENGINE_OVERLAP", &c.Engine.Overlap)
	if val, ok := os.LookupEnv("ENV_ENGINE_PRECISION"); ok {
		if p, err := params.ParsePrecision(val); err == nil {
			c.Engine.Precision = p
			log.Infof("configuration: Overriding engine.precision from env: %s", p)
		} else {
			log.Warnf("configuration: Ignoring ENV_ENGINE_PRECISION: %v", err)
		}
	}

	// ENV_UDP_{...} and ENV_WS_{...}
	lookupBool("ENV_UDP_ENABLED", &c.Transport.UDPEnabled)
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		log.Infof("configuration: Overriding transport.udp_target_address from env: %s", val)
	}
	lookupDuration("ENV_UDP_SEND_INTERVAL", &c.Transport.UDPSendInterval)
	lookupBool("ENV_WS_ENABLED", &c.Transport.WebSocketEnabled)
	if val, ok := os.LookupEnv("ENV_WS_ADDR"); ok {
		c.Transport.WebSocketAddr = val
		log.Infof("configuration: Overriding transport.websocket_addr from env: %s", val)
	}
}

func lookupBool(key string, dst *bool) {
	if val, ok := os.LookupEnv(key); ok {
		v, err := strconv.ParseBool(val)
		if err != nil {
			log.Warnf("configuration: Ignoring %s: %v", key, err)
			return
		}
		*dst = v
		log.Infof("configuration: Overriding %s from env: %v", key, v)
	}
}

func lookupInt(key string, dst *int) {
	if val, ok := os.LookupEnv(key); ok {
		v, err := strconv.Atoi(val)
		if err != nil {
			log.Warnf("configuration: Ignoring %s: %v", key, err)
			return
		}
		*dst = v
		log.Infof("configuration: Overriding %s from env: %d", key, v)
	}
}

func lookupFloat(key string, dst *float64) {
	if val, ok := os.LookupEnv(key); ok {
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Warnf("configuration: Ignoring %s: %v", key, err)
			return
		}
		*dst = v
		log.Infof("configuration: Overriding %s from env: %g", key, v)
	}
}

func lookupDuration(key string, dst *time.Duration) {
	if val, ok := os.LookupEnv(key); ok {
		v, err := time.ParseDuration(val)
		if err != nil {
			log.Warnf("configuration: Ignoring %s: %v", key, err)
			return
		}
		*dst = v
		log.Infof("configuration: Overriding %s from env: %s", key, v)
	}
}

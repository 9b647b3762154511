// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"denoise/internal/fault"
	"denoise/internal/params"
)

// Defaults for the application sections. Engine defaults come from
// params.Default.
const (
	DefaultLogLevel       = "info"
	DefaultDeviceID       = -1 // PortAudio system default
	DefaultInputChannels  = 1
	DefaultOutputChannels = 1
	DefaultBitDepth       = 16
	DefaultOutputDir      = "./recordings"
	DefaultWebSocketAddr  = ":8080"
	DefaultUDPTarget      = "127.0.0.1:9090"
	DefaultUDPInterval    = 33 * time.Millisecond // ~30 Hz
	DefaultReportInterval = 250 * time.Millisecond

	MaxChannels = 32
)

// Default returns the built-in configuration used when no file is found.
func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Engine:   params.Default(),
		Recovery: RecoveryConfig{
			Enabled:    true,
			MaxRetries: fault.DefaultMaxRetries,
		},
		Audio: AudioConfig{
			InputDevice:    DefaultDeviceID,
			OutputDevice:   DefaultDeviceID,
			InputChannels:  DefaultInputChannels,
			OutputChannels: DefaultOutputChannels,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultOutputDir,
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{
			WebSocketAddr:    DefaultWebSocketAddr,
			ReportInterval:   DefaultReportInterval,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPInterval,
		},
	}
}

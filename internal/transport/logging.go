// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	"denoise/internal/log"
)

// LoggingTransport implements the Transport interface by logging data at
// debug level. It is used when no network transport is enabled.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Debug("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data as JSON, falling back to its Go
// representation when it cannot be marshalled.
func (lt *LoggingTransport) Send(data any) error {
	if log.GetLevel() > log.LevelDebug {
		return nil
	}
	entry := log.WithComponent("transport")
	if r, ok := data.(Report); ok {
		entry.WithFields(log.Fields{
			"engine": r.Engine,
			"state":  r.Snapshot.State.String(),
			"hops":   r.Snapshot.Hops,
			"gain":   r.Snapshot.MeanGain,
			"errors": r.Faults.TotalErrors,
		}).Debug("report")
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		entry.Debugf("received (%T): %+v", data, data)
		return nil
	}
	entry.Debugf("received (%T): %s", data, raw)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)

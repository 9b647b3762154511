// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"time"

	"denoise/internal/fault"
	"denoise/internal/spectral"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport: closed")

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe and must not block the caller for
// long; slow consumers drop messages.
type Transport interface {
	Send(data any) error
	Close() error
}

// SnapshotSource is the read side of an engine as seen by telemetry.
type SnapshotSource interface {
	ID() string
	Snapshot() spectral.Snapshot
	Statistics() fault.Statistics
}

// Report is the message published for every reporting interval.
type Report struct {
	Engine   string            `json:"engine"`
	Time     time.Time         `json:"time"`
	Snapshot spectral.Snapshot `json:"snapshot"`
	Faults   fault.Statistics  `json:"faults"`
}

// NewReport captures the current state of src.
func NewReport(src SnapshotSource, now time.Time) Report {
	return Report{
		Engine:   src.ID(),
		Time:     now,
		Snapshot: src.Snapshot(),
		Faults:   src.Statistics(),
	}
}

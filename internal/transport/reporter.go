// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"errors"
	"time"

	"denoise/internal/log"
)

// Reporter periodically publishes a Report of an engine on a Transport.
type Reporter struct {
	src      SnapshotSource
	out      Transport
	interval time.Duration
	now      func() time.Time
}

// NewReporter returns a Reporter. A non-positive interval defaults to
// 250ms.
func NewReporter(src SnapshotSource, out Transport, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Reporter{src: src, out: out, interval: interval, now: time.Now}
}

// Run publishes until ctx is cancelled or the transport is closed. It
// returns nil on cancellation.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.out.Send(NewReport(r.src, r.now())); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				log.Warnf("Reporter: send failed: %v", err)
			}
		}
	}
}

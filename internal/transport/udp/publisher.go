// SPDX-License-Identifier: MIT
package udp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	applog "denoise/internal/log"
	"denoise/internal/spectral"
)

// headerSize is the fixed part of a packet: sequence, timestamp, count.
const headerSize = 4 + 8 + 2

// DefaultInterval is used when a non-positive interval is requested.
const DefaultInterval = 16 * time.Millisecond

// BandSource provides the latest band magnitudes.
type BandSource interface {
	SnapshotInto(dst *spectral.Snapshot) bool
}

// Publisher periodically reads the band magnitudes of an engine, packs
// them into the binary packet format below and sends them with a Sender.
// It runs in a separate goroutine managed by Start and Stop.
type Publisher struct {
	sender   *Sender
	src      BandSource
	interval time.Duration
	now      func() time.Time

	doneChan chan struct{}
	ticker   *time.Ticker
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum uint32

	// Reused between packets.
	snap   spectral.Snapshot
	packet []byte
}

// NewPublisher creates a Publisher. Both sender and src are required.
func NewPublisher(interval time.Duration, sender *Sender, src BandSource) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("udp publisher: sender cannot be nil")
	}
	if src == nil {
		return nil, errors.New("udp publisher: band source cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultInterval
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s, Target: %s)", interval, sender.Target())

	return &Publisher{
		sender:   sender,
		src:      src,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Start begins the periodic publishing process. Calling Start on a running
// publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				if err := p.publish(); err != nil {
					applog.Debugf("UDPPublisher: %v", err)
				}
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
// It is safe to call Stop multiple times.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Publisher goroutine finished after %d packets.", p.sequenceNum)
	return nil
}

// Run publishes until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	p.Start()
	<-ctx.Done()
	return p.Stop()
}

/*
UDP Packet Structure (BigEndian)

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |  Band Count   |     Band Magnitudes     |
|      (uint32)     |  (int64, ns epoch)    |   (uint16)    |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+
*/

// publish sends one packet. Nothing is sent while the engine is
// unconfigured.
func (p *Publisher) publish() error {
	if !p.src.SnapshotInto(&p.snap) {
		return nil
	}
	p.sequenceNum++
	p.packet = AppendPacket(p.packet[:0], p.sequenceNum, p.now(), p.snap.Bands)
	return p.sender.Send(p.packet)
}

// AppendPacket appends the encoding of one packet to dst. At most
// math.MaxUint16 bands are encoded.
func AppendPacket(dst []byte, seq uint32, ts time.Time, bands []float64) []byte {
	if len(bands) > math.MaxUint16 {
		bands = bands[:math.MaxUint16]
	}
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(ts.UnixNano()))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(bands)))
	for _, v := range bands {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(v)))
	}
	return dst
}

// Packet is a decoded band packet.
type Packet struct {
	Sequence  uint32
	Timestamp time.Time
	Bands     []float32
}

// DecodePacket parses a packet produced by AppendPacket.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, fmt.Errorf("udp packet: %d bytes is shorter than the header", len(b))
	}
	n := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b) != headerSize+4*n {
		return Packet{}, fmt.Errorf("udp packet: expected %d bytes for %d bands, got %d", headerSize+4*n, n, len(b))
	}
	pkt := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(b[4:12]))),
		Bands:     make([]float32, n),
	}
	for i := range pkt.Bands {
		off := headerSize + 4*i
		pkt.Bands[i] = math.Float32frombits(binary.BigEndian.Uint32(b[off : off+4]))
	}
	return pkt, nil
}

// Close stops the publisher.
func (p *Publisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*Publisher)(nil)

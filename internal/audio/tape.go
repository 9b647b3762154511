// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"sync/atomic"

	"denoise/internal/log"
)

// tapeDepth is the number of callback buffers that may wait for the writer
// before samples are dropped.
const tapeDepth = 64

// tape hands callback buffers to a Recorder on its own goroutine so file
// I/O never runs on the audio thread.
//
// Buffers cycle between free and full. Both channels hold every buffer, so
// the send in push never blocks.
type tape struct {
	rec  *Recorder
	free chan []float32
	full chan []float32
	stop chan struct{}
	done chan struct{}

	written *atomic.Uint64
	dropped *atomic.Uint64
	err     error // owned by drain until done is closed
}

func newTape(rec *Recorder, frameSize int, written, dropped *atomic.Uint64) *tape {
	t := &tape{
		rec:     rec,
		free:    make(chan []float32, tapeDepth),
		full:    make(chan []float32, tapeDepth),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		written: written,
		dropped: dropped,
	}
	for range tapeDepth {
		t.free <- make([]float32, frameSize)
	}
	go t.drain()
	return t
}

// push queues a copy of samples for the writer. When every buffer is in
// flight the samples are dropped and counted instead.
func (t *tape) push(samples []float32) {
	select {
	case buf := <-t.free:
		n := copy(buf[:cap(buf)], samples)
		t.full <- buf[:n]
	default:
		t.dropped.Add(uint64(len(samples)))
	}
}

func (t *tape) drain() {
	defer close(t.done)
	for {
		select {
		case buf := <-t.full:
			t.write(buf)
		case <-t.stop:
			for {
				select {
				case buf := <-t.full:
					t.write(buf)
				default:
					t.err = errors.Join(t.err, t.rec.Close())
					return
				}
			}
		}
	}
}

// write stores one buffer and returns it to the free list. After the first
// failure the rest of the recording is discarded.
func (t *tape) write(buf []float32) {
	if t.err == nil {
		if err := t.rec.Write(buf); err != nil {
			log.Errorf("Audio: recording failed: %v", err)
			t.err = err
		} else {
			t.written.Add(uint64(len(buf)))
		}
	}
	if t.err != nil {
		t.dropped.Add(uint64(len(buf)))
	}
	t.free <- buf[:cap(buf)]
}

// close flushes queued buffers, finalises the file and returns the first
// write or close error. It must be called once.
func (t *tape) close() error {
	close(t.stop)
	<-t.done
	return t.err
}

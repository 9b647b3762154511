// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrRecorderClosed is returned by Write after Close.
var ErrRecorderClosed = errors.New("recorder closed")

// Recorder writes mono float samples to a PCM WAV file.
type Recorder struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
	scale   float64
	written int
}

// NewRecorder creates path and prepares a mono WAV encoder. bitDepth must
// be 16, 24 or 32.
func NewRecorder(path string, sampleRate, bitDepth int) (*Recorder, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		path:    path,
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, bitDepth, 1, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
		scale: float64(int64(1)<<(bitDepth-1) - 1),
	}, nil
}

// Path returns the file being written.
func (r *Recorder) Path() string { return r.path }

// Samples returns the number of samples written so far.
func (r *Recorder) Samples() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Write appends samples, clipping them to [-1, 1].
func (r *Recorder) Write(samples []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return ErrRecorderClosed
	}
	if cap(r.buf.Data) < len(samples) {
		r.buf.Data = make([]int, len(samples))
	}
	r.buf.Data = r.buf.Data[:len(samples)]
	for i, s := range samples {
		r.buf.Data[i] = quantize(s, r.scale)
	}
	if err := r.encoder.Write(r.buf); err != nil {
		return err
	}
	r.written += len(samples)
	return nil
}

// Close finalises the WAV header and closes the file. It is safe to call
// more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return nil
	}
	encErr := r.encoder.Close()
	r.encoder = nil
	fileErr := r.file.Close()
	r.file = nil
	return errors.Join(encErr, fileErr)
}

func quantize(s float32, scale float64) int {
	v := float64(s)
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	return int(math.Round(v * scale))
}

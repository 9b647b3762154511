// SPDX-License-Identifier: MIT
/*
Package audio connects the noise reducer to sound hardware and files.

A Stream opens a duplex PortAudio stream whose callback mixes the input
down to mono, denoises it one frame at a time and fans the result out to
every output channel. Files are handled by ReadClip, WriteClip and Render.

Thread Safety:
  - The callback runs on a locked OS thread and touches only buffers
    allocated in NewStream.
  - Recording is switched with an atomic pointer so the callback never
    waits for StartRecording or StopRecording. The callback only copies
    samples into preallocated buffers; a writer goroutine does the file
    I/O and samples are dropped when it falls behind.
*/
package audio

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"denoise/internal/log"
	"denoise/internal/spectral"

	"github.com/gordonklaus/portaudio"
)

// FrameProcessor denoises one mono frame. *engine.Engine satisfies it.
type FrameProcessor interface {
	ProcessFrameInto(dst, src []float32) (spectral.Outcome, error)
}

// StreamConfig describes the devices and buffer geometry of a Stream.
type StreamConfig struct {
	InputDevice     int
	OutputDevice    int
	InputChannels   int
	OutputChannels  int // 0 opens an input-only stream
	SampleRate      float64
	FramesPerBuffer int // must equal the engine's FFT size
	LowLatency      bool
	RecordBitDepth  int
}

// StreamStats counts callback activity.
type StreamStats struct {
	Callbacks   uint64
	Processed   uint64
	Bypassed    uint64
	Substituted uint64
	Errors      uint64
	Recorded    uint64
	Dropped     uint64 // samples lost because the recording writer fell behind
}

// ErrRecording is returned by StartRecording while a recording is active.
var ErrRecording = errors.New("already recording")

// Stream is a running duplex audio stream.
type Stream struct {
	cfg  StreamConfig
	proc FrameProcessor

	mono     []float32
	denoised []float32

	mu      sync.Mutex
	stream  *portaudio.Stream
	running bool

	recording atomic.Pointer[tape]

	callbacks   atomic.Uint64
	processed   atomic.Uint64
	bypassed    atomic.Uint64
	substituted atomic.Uint64
	errors      atomic.Uint64
	recorded    atomic.Uint64
	dropped     atomic.Uint64
}

func newStream(cfg StreamConfig, proc FrameProcessor) (*Stream, error) {
	if cfg.FramesPerBuffer <= 0 {
		return nil, fmt.Errorf("invalid frames per buffer: %d", cfg.FramesPerBuffer)
	}
	if cfg.InputChannels <= 0 {
		return nil, fmt.Errorf("invalid input channels: %d", cfg.InputChannels)
	}
	if cfg.OutputChannels < 0 {
		return nil, fmt.Errorf("invalid output channels: %d", cfg.OutputChannels)
	}
	if cfg.RecordBitDepth == 0 {
		cfg.RecordBitDepth = 16
	}
	return &Stream{
		cfg:      cfg,
		proc:     proc,
		mono:     make([]float32, cfg.FramesPerBuffer),
		denoised: make([]float32, cfg.FramesPerBuffer),
	}, nil
}

// NewStream resolves the configured devices and opens, but does not start,
// the stream. PortAudio must be initialised.
func NewStream(cfg StreamConfig, proc FrameProcessor) (*Stream, error) {
	s, err := newStream(cfg, proc)
	if err != nil {
		return nil, err
	}

	in, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   in,
			Channels: cfg.InputChannels,
			Latency:  latency(in, cfg.LowLatency, true),
		},
		SampleRate:      cfg.SampleRate,
		FramesPerBuffer: cfg.FramesPerBuffer,
	}
	if cfg.OutputChannels > 0 {
		out, err := OutputDevice(cfg.OutputDevice)
		if err != nil {
			return nil, err
		}
		params.Output = portaudio.StreamDeviceParameters{
			Device:   out,
			Channels: cfg.OutputChannels,
			Latency:  latency(out, cfg.LowLatency, false),
		}
	}

	stream, err := portaudio.OpenStream(params, s.process)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	s.stream = stream

	log.WithFields(log.Fields{
		"input":  in.Name,
		"rate":   cfg.SampleRate,
		"frames": cfg.FramesPerBuffer,
	}).Info("Audio: stream opened")
	return s, nil
}

func latency(d *portaudio.DeviceInfo, low, input bool) time.Duration {
	switch {
	case input && low:
		return d.DefaultLowInputLatency
	case input:
		return d.DefaultHighInputLatency
	case low:
		return d.DefaultLowOutputLatency
	default:
		return d.DefaultHighOutputLatency
	}
}

// Start begins audio processing.
func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return errors.New("stream not open")
	}
	if s.running {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return err
	}
	s.running = true
	return nil
}

// Stop halts the callback. The stream can be restarted.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil || !s.running {
		return nil
	}
	s.running = false
	return s.stream.Stop()
}

// Close stops any recording and releases the stream.
func (s *Stream) Close() error {
	recErr := s.StopRecording()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return recErr
	}
	var stopErr error
	if s.running {
		stopErr = s.stream.Stop()
		s.running = false
	}
	closeErr := s.stream.Close()
	s.stream = nil
	return errors.Join(recErr, stopErr, closeErr)
}

// StartRecording writes the denoised signal to a WAV file at path.
func (s *Stream) StartRecording(path string) error {
	if s.Recording() {
		return ErrRecording
	}
	rec, err := NewRecorder(path, int(s.cfg.SampleRate), s.cfg.RecordBitDepth)
	if err != nil {
		return err
	}
	t := newTape(rec, s.cfg.FramesPerBuffer, &s.recorded, &s.dropped)
	if !s.recording.CompareAndSwap(nil, t) {
		t.close()
		return ErrRecording
	}
	log.Infof("Audio: recording to %s", path)
	return nil
}

// StopRecording flushes and finalises the active recording, if any.
func (s *Stream) StopRecording() error {
	t := s.recording.Swap(nil)
	if t == nil {
		return nil
	}
	err := t.close()
	log.WithFields(log.Fields{
		"samples": t.rec.Samples(),
		"dropped": s.dropped.Load(),
	}).Infof("Audio: stopped recording %s", t.rec.Path())
	return err
}

// Recording reports whether a recording is active.
func (s *Stream) Recording() bool { return s.recording.Load() != nil }

// Stats returns the callback counters.
func (s *Stream) Stats() StreamStats {
	return StreamStats{
		Callbacks:   s.callbacks.Load(),
		Processed:   s.processed.Load(),
		Bypassed:    s.bypassed.Load(),
		Substituted: s.substituted.Load(),
		Errors:      s.errors.Load(),
		Recorded:    s.recorded.Load(),
		Dropped:     s.dropped.Load(),
	}
}

// process is the PortAudio callback. Hot path: no allocations.
func (s *Stream) process(in, out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.callbacks.Add(1)
	Mixdown(s.mono, in, s.cfg.InputChannels)

	outcome, err := s.proc.ProcessFrameInto(s.denoised, s.mono)
	if err != nil {
		if s.errors.Add(1) == 1 {
			log.Errorf("Audio: frame rejected: %v", err)
		}
		copy(s.denoised, s.mono)
	} else {
		switch outcome {
		case spectral.Processed:
			s.processed.Add(1)
		case spectral.Bypassed:
			s.bypassed.Add(1)
		case spectral.Substituted:
			s.substituted.Add(1)
		}
	}

	Fanout(out, s.denoised, s.cfg.OutputChannels)

	if t := s.recording.Load(); t != nil {
		t.push(s.denoised)
	}
}

// Mixdown averages interleaved channels of in into dst. Frames missing from
// in are zero.
func Mixdown(dst, in []float32, channels int) {
	if channels <= 1 {
		n := copy(dst, in)
		clear(dst[n:])
		return
	}
	inv := 1 / float32(channels)
	for i := range dst {
		base := i * channels
		if base+channels > len(in) {
			clear(dst[i:])
			return
		}
		var sum float32
		for _, v := range in[base : base+channels] {
			sum += v
		}
		dst[i] = sum * inv
	}
}

// Fanout writes mono to every channel of the interleaved buffer out.
func Fanout(out, mono []float32, channels int) {
	if channels <= 0 {
		return
	}
	if channels == 1 {
		n := copy(out, mono)
		clear(out[n:])
		return
	}
	for i := range len(out) / channels {
		var v float32
		if i < len(mono) {
			v = mono[i]
		}
		frame := out[i*channels : (i+1)*channels]
		for c := range frame {
			frame[c] = v
		}
	}
}

// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"

	"denoise/internal/spectral"

	"github.com/go-audio/wav"
)

// FileSource is a WAV file decoded to mono float samples in [-1, 1].
type FileSource struct {
	Path       string
	SampleRate int
	BitDepth   int
	Channels   int
	Samples    []float32
}

// OpenFile decodes the PCM WAV file at path and mixes it down to mono.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("%s: missing audio format", path)
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(decoder.BitDepth)
	}
	if depth < 8 || depth > 32 {
		return nil, fmt.Errorf("%s: unsupported bit depth %d", path, depth)
	}

	channels := buf.Format.NumChannels
	interleaved := make([]float32, len(buf.Data))
	scale := 1 / float32(int64(1)<<(depth-1))
	for i, v := range buf.Data {
		interleaved[i] = float32(v) * scale
	}
	mono := make([]float32, len(interleaved)/channels)
	Mixdown(mono, interleaved, channels)

	return &FileSource{
		Path:       path,
		SampleRate: buf.Format.SampleRate,
		BitDepth:   depth,
		Channels:   channels,
		Samples:    mono,
	}, nil
}

// Duration returns the length of the clip in seconds.
func (f *FileSource) Duration() float64 {
	if f.SampleRate == 0 {
		return 0
	}
	return float64(len(f.Samples)) / float64(f.SampleRate)
}

// WriteFile encodes mono samples to a WAV file at path.
func WriteFile(path string, samples []float32, sampleRate, bitDepth int) error {
	rec, err := NewRecorder(path, sampleRate, bitDepth)
	if err != nil {
		return err
	}
	if err := rec.Write(samples); err != nil {
		return errors.Join(err, rec.Close())
	}
	return rec.Close()
}

// RenderStats counts frame outcomes of a Render call.
type RenderStats struct {
	Frames      int
	Processed   int
	Bypassed    int
	Substituted int
}

// Render runs samples through proc in frames of frameSize, exactly as the
// live stream would, and returns an output aligned with the input: the
// first latency samples of processor output are discarded and the tail is
// flushed with silence.
func Render(proc FrameProcessor, samples []float32, frameSize, latency int) ([]float32, RenderStats, error) {
	var stats RenderStats
	if frameSize <= 0 {
		return nil, stats, fmt.Errorf("invalid frame size: %d", frameSize)
	}
	if latency < 0 {
		latency = 0
	}

	total := len(samples) + latency
	frames := (total + frameSize - 1) / frameSize
	rendered := make([]float32, frames*frameSize)
	in := make([]float32, frameSize)

	for i := range frames {
		off := i * frameSize
		n := 0
		if off < len(samples) {
			n = copy(in, samples[off:])
		}
		clear(in[n:])

		outcome, err := proc.ProcessFrameInto(rendered[off:off+frameSize], in)
		if err != nil {
			return nil, stats, fmt.Errorf("frame %d: %w", i, err)
		}
		stats.Frames++
		switch outcome {
		case spectral.Processed:
			stats.Processed++
		case spectral.Bypassed:
			stats.Bypassed++
		case spectral.Substituted:
			stats.Substituted++
		}
	}

	return rendered[latency : latency+len(samples)], stats, nil
}

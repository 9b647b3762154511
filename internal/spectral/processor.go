// SPDX-License-Identifier: MIT
/*
Package spectral implements the streaming spectral noise reducer.

A Processor turns fixed-size frames of time-domain samples into frames of
the same size with stationary background noise attenuated:

	ring -> window -> forward FFT -> noise profile -> gain -> inverse FFT -> overlap-add

Every Process call consumes exactly FFTSize samples and produces exactly
FFTSize samples. Analysis runs once per hop (FFTSize * (1 - Overlap)
samples) over the most recent FFTSize input samples, so the output lags
the input by FFTSize samples.

Thread Safety:
  - Process runs on a single audio goroutine and does not allocate once the
    buffer pool is warm.
  - State, Snapshot and Close may be called from any goroutine.
  - Reset must not run concurrently with Process.
*/
package spectral

import (
	"errors"
	"math"
	"sync/atomic"

	"denoise/internal/fault"
	"denoise/internal/fft"
	"denoise/internal/params"
	"denoise/internal/pool"

	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
)

// Component is the name faults from this package are attributed to.
const Component = "spectral"

var (
	// ErrClosed is returned by Process after Close.
	ErrClosed = errors.New("spectral: processor closed")
	// ErrFrameLength is returned when a frame is not exactly FFTSize samples.
	ErrFrameLength = fault.New(fault.InvalidConfiguration, Component, "frame length does not match fft size")
)

var (
	errSpectrumNonFinite = fault.New(fault.NumericFault, Component, "non-finite value in spectrum")
	errFrameNonFinite    = fault.New(fault.NumericFault, Component, "non-finite value in resynthesised frame")
)

// Options customise a Processor.
type Options struct {
	// Backend builds the transform. Defaults to fft.New.
	Backend fft.Factory
	// OnStateChange is called from the goroutine that caused the change.
	// Transitions into and out of Processing are not reported.
	OnStateChange func(from, to State)
}

// Processor is a streaming spectral noise reducer for one configuration.
type Processor struct {
	cfg     params.Configuration
	tuning  params.NoiseTuning
	ctrl    *fault.Controller
	backend fft.Backend
	state   atomic.Int32
	onState func(from, to State)

	size int
	hop  int
	bins int

	frames  *pool.Pool[float64]
	spectra *pool.Pool[complex128]

	window  []float64
	invNorm []float64

	// Streaming state.
	delay   []float32
	ring    []float64
	pending int
	acc     []float64
	fifo    []float64
	fifoLen int

	// Per-bin working state.
	re       []float64
	im       []float64
	mags     []float64
	power    []float64
	floor    []float64
	gain     []float64
	gainPrev []float64
	scratch  []float64
	bandVals []float64
	binHz    []float64
	cumMags  []float64
	features Features
	layout   bandLayout
	classify classifier
	meanGain float64

	frameCount  atomic.Uint64
	hopCount    atomic.Uint64
	noiseHops   atomic.Uint64
	bypassed    atomic.Uint64
	substituted atomic.Uint64

	pub *published
}

// New builds a Processor for cfg. cfg must already be valid. Faults are
// reported to ctrl. When the requested backend cannot be built the native
// radix-2 backend is used instead and the fallback is recorded on ctrl.
func New(cfg params.Configuration, ctrl *fault.Controller, opts Options) (*Processor, error) {
	if err := params.Validate(cfg); err != nil {
		return nil, fault.Wrap(fault.InvalidConfiguration, Component, err)
	}

	backend, err := newBackend(cfg, ctrl, opts.Backend)
	if err != nil {
		return nil, err
	}

	n := cfg.FFTSize
	hop := cfg.Hop()
	bins := cfg.BinCount()
	sets := pool.SetsFor(cfg.MemoryPoolSize, n, bins)

	p := &Processor{
		cfg:      cfg,
		tuning:   cfg.Noise,
		ctrl:     ctrl,
		backend:  backend,
		onState:  opts.OnStateChange,
		size:     n,
		hop:      hop,
		bins:     bins,
		frames:   pool.New[float64](n, sets),
		spectra:  pool.New[complex128](bins, sets),
		delay:    make([]float32, n),
		ring:     make([]float64, n),
		acc:      make([]float64, n),
		fifo:     make([]float64, n+hop),
		re:       make([]float64, bins),
		im:       make([]float64, bins),
		mags:     make([]float64, bins),
		power:    make([]float64, bins),
		floor:    make([]float64, bins),
		gain:     make([]float64, bins),
		gainPrev: make([]float64, bins),
		scratch:  make([]float64, bins),
		bandVals: make([]float64, cfg.NumBands),
		binHz:    make([]float64, bins),
		cumMags:  make([]float64, bins),
		layout: newBandLayout(cfg.NumBands, bins, cfg.SampleRate/float64(n),
			cfg.MinFrequency, cfg.MaxFrequency),
		classify: newClassifier(cfg.Noise.ThresholdFactor, cfg.Noise.Decay,
			cfg.Noise.MinFloor*cfg.Noise.MinFloor, cfg.Noise.CalibrationFrames),
		pub:      newPublished(cfg.NumBands, bins),
	}
	floats.Span(p.binHz, 0, cfg.SampleRate/2)
	p.window = NewWindow(cfg.Window, n)
	p.invNorm = inverseOverlapNorm(p.window, hop)

	// One warning per processor; the pools share it.
	var warned atomic.Bool
	exhausted := func() {
		if warned.CompareAndSwap(false, true) {
			ctrl.HandleWarning("buffer pool exhausted, allocating on the audio path", Component)
		}
	}
	p.frames.OnExhausted(exhausted)
	p.spectra.OnExhausted(exhausted)

	p.resetStreaming()
	p.resetProfile()
	p.setState(Ready)
	return p, nil
}

func newBackend(cfg params.Configuration, ctrl *fault.Controller, factory fft.Factory) (fft.Backend, error) {
	if factory == nil {
		factory = fft.New
	}
	b, err := factory(cfg.FFTSize, cfg.Precision)
	if err == nil && b.Size() == cfg.FFTSize {
		return b, nil
	}

	native, nerr := fft.NewNative(cfg.FFTSize, cfg.Precision)
	if nerr != nil {
		return nil, nerr
	}
	if err == nil {
		err = fft.ErrLength
	}
	f := fault.Wrap(fault.BackendUnavailable, fft.Component, err)
	f.Message = "falling back to native radix-2: " + f.Message
	ctrl.Record(f)
	return native, nil
}

// Configuration returns the configuration the processor was built with.
func (p *Processor) Configuration() params.Configuration { return p.cfg }

// Backend returns the transform backend in use.
func (p *Processor) Backend() fft.Backend { return p.backend }

// State returns the current lifecycle state.
func (p *Processor) State() State { return State(p.state.Load()) }

// Latency returns the delay, in samples, between input and output.
func (p *Processor) Latency() int { return p.size }

func (p *Processor) setState(to State) {
	from := State(p.state.Swap(int32(to)))
	p.notify(from, to)
}

func (p *Processor) notify(from, to State) {
	if from == to || from == Processing || to == Processing || p.onState == nil {
		return
	}
	p.onState(from, to)
}

// Process denoises one frame. len(src) and len(dst) must equal FFTSize.
// The error is non-nil only when dst was left untouched.
//
// Frames that are bypassed or substituted carry the previous input frame,
// with non-finite samples zeroed, so the output keeps its Latency() delay
// whatever the outcome.
func (p *Processor) Process(dst, src []float32) (Outcome, error) {
	if len(src) != p.size || len(dst) != p.size {
		return Bypassed, ErrFrameLength
	}

	if !p.state.CompareAndSwap(int32(Ready), int32(Processing)) {
		if p.State() == Closed {
			return Bypassed, ErrClosed
		}
		copy(dst, p.delay)
		p.hold(src)
		p.bypassed.Add(1)
		p.frameCount.Add(1)
		return Bypassed, nil
	}

	g := p.ctrl.Begin(Component)
	err := p.run(&g, dst, src)
	p.frameCount.Add(1)

	if err == nil {
		copy(p.delay, src)
		p.pub.offer(&p.classify, p.meanGain, &p.features, p.bandVals, p.floor)
		p.finish(Ready)
		return Processed, nil
	}

	copy(dst, p.delay)
	p.resetStreaming()
	p.hold(src)
	p.substituted.Add(1)

	if g.Resolution() == fault.Unrecoverable {
		p.finish(Faulted)
	} else {
		p.finish(Ready)
	}
	return Substituted, nil
}

// hold makes src, with non-finite samples zeroed, both the analysis
// history and the frame the next bypass or substitution emits.
func (p *Processor) hold(src []float32) {
	for i, v := range src {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			v, f = 0, 0
		}
		p.delay[i] = v
		p.ring[i] = f
	}
}

// finish leaves Processing unless Close intervened.
func (p *Processor) finish(to State) {
	if p.state.CompareAndSwap(int32(Processing), int32(to)) {
		p.notify(Ready, to)
	}
}

func (p *Processor) run(g *fault.Guard, dst, src []float32) (err error) {
	defer g.End(&err)

	n := p.size
	for off := 0; off < n; {
		k := min(p.hop-p.pending, n-off)
		copy(p.ring, p.ring[k:])
		tail := p.ring[n-k:]
		for i, v := range src[off : off+k] {
			tail[i] = float64(v)
		}
		p.pending += k
		off += k

		if p.pending == p.hop {
			p.pending = 0
			if err := p.analyze(); err != nil {
				return err
			}
		}
	}

	for i := range dst {
		dst[i] = float32(p.fifo[i])
	}
	copy(p.fifo, p.fifo[n:p.fifoLen])
	p.fifoLen -= n
	return nil
}

// analyze runs one hop over the analysis ring and appends hop samples to
// the output FIFO.
func (p *Processor) analyze() error {
	frame := p.frames.Get()
	spectrum := p.spectra.Get()
	err := p.analyzeInto(frame, spectrum)
	p.spectra.Put(spectrum)
	p.frames.Put(frame)
	return err
}

func (p *Processor) analyzeInto(frame []float64, spectrum []complex128) error {
	copy(frame, p.ring)
	vecmath.MulBlockInPlace(frame, p.window)

	if err := p.backend.Forward(spectrum, frame); err != nil {
		return err
	}
	if fft.HasNonFinite(spectrum) {
		return errSpectrumNonFinite
	}

	for i, c := range spectrum {
		p.re[i], p.im[i] = real(c), imag(c)
	}
	vecmath.Magnitude(p.mags, p.re, p.im)
	vecmath.Power(p.power, p.re, p.im)
	energy := floats.Sum(p.power) / float64(p.bins)

	if p.classify.observe(energy) {
		p.learnNoise()
		p.noiseHops.Add(1)
	}
	p.computeGain()

	vecmath.MulBlockInPlace(p.re, p.gain)
	vecmath.MulBlockInPlace(p.im, p.gain)
	for i := range spectrum {
		spectrum[i] = complex(p.re[i], p.im[i])
	}
	vecmath.MulBlock(p.scratch, p.mags, p.gain)
	p.layout.compute(p.bandVals, p.scratch)
	p.features.compute(p.scratch, p.binHz, p.cumMags)

	if err := p.backend.Inverse(frame, spectrum); err != nil {
		return err
	}
	if hasNonFinite64(frame) {
		return errFrameNonFinite
	}

	vecmath.AddBlockInPlace(p.acc, frame)
	out := p.fifo[p.fifoLen : p.fifoLen+p.hop]
	vecmath.MulBlock(out, p.acc[:p.hop], p.invNorm)
	p.fifoLen += p.hop
	copy(p.acc, p.acc[p.hop:])
	clear(p.acc[p.size-p.hop:])

	p.hopCount.Add(1)
	return nil
}

// learnNoise folds the current magnitudes into the noise profile.
func (p *Processor) learnNoise() {
	d := p.tuning.Decay
	minFloor := p.tuning.MinFloor
	for i, m := range p.mags {
		p.floor[i] = math.Max(minFloor, d*p.floor[i]+(1-d)*m)
	}
}

// computeGain derives the spectral subtraction gain from the noise profile,
// smooths it over time and across neighbouring bins and stores it in
// p.gain. Every step is a convex combination so the result stays within
// [GainFloor, 1].
func (p *Processor) computeGain() {
	t := p.tuning
	s := t.GainSmoothing
	for i, m := range p.mags {
		g := 1 - p.floor[i]/math.Max(t.Epsilon, m)
		g = min(max(g, t.GainFloor), 1)
		g = s*p.gainPrev[i] + (1-s)*g
		p.gainPrev[i] = g
	}

	g := p.gainPrev
	last := len(g) - 1
	if last == 0 {
		p.gain[0] = g[0]
	} else {
		p.scratch[0] = 0.75*g[0] + 0.25*g[1]
		for i := 1; i < last; i++ {
			p.scratch[i] = 0.25*g[i-1] + 0.5*g[i] + 0.25*g[i+1]
		}
		p.scratch[last] = 0.25*g[last-1] + 0.75*g[last]
		copy(p.gain, p.scratch)
	}
	p.meanGain = floats.Sum(p.gain) / float64(len(p.gain))
}

// resetStreaming drops buffered audio and primes the output FIFO with one
// hop of silence.
func (p *Processor) resetStreaming() {
	clear(p.delay)
	clear(p.ring)
	clear(p.acc)
	clear(p.fifo)
	p.pending = 0
	p.fifoLen = p.hop
}

func (p *Processor) resetProfile() {
	for i := range p.floor {
		p.floor[i] = p.tuning.MinFloor
		p.gainPrev[i] = 1
		p.gain[i] = 1
	}
	clear(p.bandVals)
	p.features = Features{}
	p.meanGain = 1
	p.classify.reset()
}

// Reset clears buffered audio, the noise profile and the threshold
// calibration, and leaves a faulted processor Ready again.
func (p *Processor) Reset() {
	if p.State() == Closed {
		return
	}
	p.resetStreaming()
	p.resetProfile()
	p.ctrl.Clear(Component)
	p.setState(Ready)
}

// Close moves the processor to Closed. Later Process calls return
// ErrClosed.
func (p *Processor) Close() {
	p.setState(Closed)
}

// Snapshot fills dst with the processor's counters and the most recently
// published analysis values.
func (p *Processor) Snapshot(dst *Snapshot) {
	dst.State = p.State()
	dst.Backend = p.backend.Variant().String()
	dst.Frames = p.frameCount.Load()
	dst.Hops = p.hopCount.Load()
	dst.NoiseHops = p.noiseHops.Load()
	dst.Bypassed = p.bypassed.Load()
	dst.Substituted = p.substituted.Load()
	_, fm := p.frames.Stats()
	_, sm := p.spectra.Stats()
	dst.PoolMisses = fm + sm
	p.pub.copyInto(dst)
}

// BandFrequencies returns the lower edge in Hz of each analysis band.
func (p *Processor) BandFrequencies() []float64 {
	out := make([]float64, p.layout.len())
	copy(out, p.layout.lowHz)
	return out
}

func hasNonFinite64(buf []float64) bool {
	for _, v := range buf {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

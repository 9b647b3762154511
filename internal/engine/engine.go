// SPDX-License-Identifier: MIT
/*
Package engine is the public face of the noise reducer.

An Engine owns one fault controller and at most one active processing
pipeline. The control goroutine calls Configure, Reset and Shutdown; the
audio goroutine calls ProcessFrameInto. The two sides share nothing but an
atomically published pipeline, so reconfiguring never blocks the audio
path:

	e := engine.New()
	if err := e.Configure(params.Default()); err != nil {
		...
	}
	outcome, err := e.ProcessFrameInto(out, in)
*/
package engine

import (
	"errors"
	"sync"
	"sync/atomic"

	"denoise/internal/fault"
	"denoise/internal/fft"
	"denoise/internal/log"
	"denoise/internal/params"
	"denoise/internal/spectral"

	"github.com/google/uuid"
)

// Component is the name faults raised by the engine itself are attributed to.
const Component = "engine"

// Outcome describes what a frame call wrote to its destination.
type Outcome = spectral.Outcome

const (
	OutcomeProcessed   = spectral.Processed
	OutcomeBypassed    = spectral.Bypassed
	OutcomeSubstituted = spectral.Substituted
)

var (
	// ErrClosed is returned by every operation after Shutdown.
	ErrClosed = errors.New("engine: shut down")
	// ErrFrameLength is returned for frames that are not FFTSize samples.
	ErrFrameLength = spectral.ErrFrameLength
)

// pipeline is an immutable pairing of a configuration with the processor
// built for it.
type pipeline struct {
	cfg  params.Configuration
	proc *spectral.Processor
}

// Engine is safe for one audio goroutine plus any number of control
// goroutines.
type Engine struct {
	id   uuid.UUID
	ctrl *fault.Controller

	mu     sync.Mutex
	pipe   atomic.Pointer[pipeline]
	closed atomic.Bool

	factory fft.Factory
	onState func(from, to spectral.State)
	quiet   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithBackendFactory replaces the transform factory used for every
// pipeline the engine builds.
func WithBackendFactory(f fft.Factory) Option {
	return func(e *Engine) { e.factory = f }
}

// WithRecovery sets the recovery policy of the engine's fault controller.
func WithRecovery(enabled bool, maxRetries int) Option {
	return func(e *Engine) { e.ctrl.Configure(enabled, maxRetries) }
}

// WithStateCallback is notified about processor state changes.
func WithStateCallback(fn func(from, to spectral.State)) Option {
	return func(e *Engine) { e.onState = fn }
}

// WithoutFaultLogging leaves the controller callbacks unset.
func WithoutFaultLogging() Option {
	return func(e *Engine) { e.quiet = true }
}

// New returns an unconfigured engine. Until Configure succeeds frames pass
// through unchanged.
func New(opts ...Option) *Engine {
	e := &Engine{
		id:   uuid.New(),
		ctrl: fault.NewController(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if !e.quiet {
		e.installLogging()
	}
	return e
}

func (e *Engine) installLogging() {
	id := e.id.String()
	e.ctrl.SetErrorCallback(func(ctx fault.ErrorContext) {
		entry := log.WithFields(log.Fields{
			"engine":    id,
			"component": ctx.Component,
			"kind":      ctx.Kind.String(),
			"retry":     ctx.RetryCount,
		})
		if ctx.Recoverable {
			entry.Warn(ctx.Message)
		} else {
			entry.Error(ctx.Message)
		}
	})
	e.ctrl.SetWarningCallback(func(message, component string) {
		log.WithFields(log.Fields{"engine": id, "component": component}).Warn(message)
	})
}

// ID returns the engine's instance identifier.
func (e *Engine) ID() string { return e.id.String() }

// Faults returns the engine's fault controller.
func (e *Engine) Faults() *fault.Controller { return e.ctrl }

// Configure validates cfg and, when it is valid, replaces the active
// pipeline. On error the previous configuration stays in effect and the
// error is a *fault.Fault: InvalidConfiguration wrapping a
// *params.FieldError, or BackendUnavailable.
func (e *Engine) Configure(cfg params.Configuration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrClosed
	}
	if err := params.Validate(cfg); err != nil {
		f := fault.Wrap(fault.InvalidConfiguration, Component, err)
		e.ctrl.Record(f)
		return f
	}
	if err := e.install(cfg); err != nil {
		return err
	}

	log.WithFields(log.Fields{"engine": e.ID()}).Infof("Engine: configured %s", cfg)
	return nil
}

// install builds a pipeline for cfg and publishes it. e.mu must be held.
func (e *Engine) install(cfg params.Configuration) error {
	proc, err := spectral.New(cfg, e.ctrl, spectral.Options{
		Backend:       e.factory,
		OnStateChange: e.onState,
	})
	if err != nil {
		return err
	}

	old := e.pipe.Swap(&pipeline{cfg: cfg, proc: proc})
	e.ctrl.Clear(spectral.Component)
	if old != nil {
		old.proc.Close()
	}
	return nil
}

// Configuration returns the active configuration and whether one is set.
func (e *Engine) Configuration() (params.Configuration, bool) {
	p := e.pipe.Load()
	if p == nil {
		return params.Configuration{}, false
	}
	return p.cfg, true
}

// ProcessFrameInto denoises src into dst. Both must hold FFTSize samples.
// The error is non-nil only when dst was not written; faults inside the
// frame are reported through the controller and the outcome.
func (e *Engine) ProcessFrameInto(dst, src []float32) (Outcome, error) {
	if e.closed.Load() {
		return e.reject(ErrClosed)
	}

	p := e.pipe.Load()
	if p == nil {
		if len(dst) != len(src) {
			return e.reject(ErrFrameLength)
		}
		copy(dst, src)
		return OutcomeBypassed, nil
	}

	outcome, err := p.proc.Process(dst, src)
	// Lost a race with Configure or Reset; the replacement is already
	// published.
	for err == spectral.ErrClosed {
		if e.closed.Load() {
			return e.reject(ErrClosed)
		}
		outcome, err = e.pipe.Load().proc.Process(dst, src)
	}
	if err != nil {
		return e.reject(err)
	}
	return outcome, nil
}

const (
	msgRejectedClosed = "frame rejected: engine shut down"
	msgRejectedLength = "frame rejected: length does not match fft size"
)

// reject reports a frame that was not written to the controller.
func (e *Engine) reject(err error) (Outcome, error) {
	msg := msgRejectedLength
	if err == ErrClosed {
		msg = msgRejectedClosed
	}
	e.ctrl.HandleWarning(msg, Component)
	return OutcomeBypassed, err
}

// ProcessFrame is ProcessFrameInto with a freshly allocated destination.
func (e *Engine) ProcessFrame(src []float32) ([]float32, error) {
	dst := make([]float32, len(src))
	if _, err := e.ProcessFrameInto(dst, src); err != nil {
		return nil, err
	}
	return dst, nil
}

// Reset discards buffered audio, the learned noise profile and any
// degraded state by rebuilding the pipeline with the same configuration.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrClosed
	}
	p := e.pipe.Load()
	if p == nil {
		return nil
	}
	return e.install(p.cfg)
}

// Shutdown stops processing. It is safe to call more than once.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Swap(true) {
		return
	}
	if p := e.pipe.Load(); p != nil {
		p.proc.Close()
	}
	log.WithFields(log.Fields{"engine": e.ID()}).Info("Engine: shut down")
}

// State returns the processor state, Uninitialized before the first
// Configure and Closed after Shutdown.
func (e *Engine) State() spectral.State {
	if e.closed.Load() {
		return spectral.Closed
	}
	p := e.pipe.Load()
	if p == nil {
		return spectral.Uninitialized
	}
	return p.proc.State()
}

// Statistics returns the fault counters.
func (e *Engine) Statistics() fault.Statistics { return e.ctrl.Statistics() }

// ResetStatistics zeroes the fault counters.
func (e *Engine) ResetStatistics() { e.ctrl.ResetStatistics() }

// Snapshot returns a copy of the active processor's observable state.
func (e *Engine) Snapshot() spectral.Snapshot {
	var s spectral.Snapshot
	e.SnapshotInto(&s)
	return s
}

// SnapshotInto fills dst, reusing its slices. It reports false when no
// pipeline is configured.
func (e *Engine) SnapshotInto(dst *spectral.Snapshot) bool {
	p := e.pipe.Load()
	if p == nil {
		*dst = spectral.Snapshot{State: e.State()}
		return false
	}
	p.proc.Snapshot(dst)
	dst.State = e.State()
	return true
}

// BandFrequencies returns the lower edge in Hz of each analysis band, or
// nil when unconfigured.
func (e *Engine) BandFrequencies() []float64 {
	p := e.pipe.Load()
	if p == nil {
		return nil
	}
	return p.proc.BandFrequencies()
}

// Latency returns the processing delay in samples.
func (e *Engine) Latency() int {
	p := e.pipe.Load()
	if p == nil {
		return 0
	}
	return p.proc.Latency()
}

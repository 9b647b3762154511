// SPDX-License-Identifier: MIT
/*
Package fault routes typed faults from the engine components to a single
per-engine Controller that keeps statistics, invokes injected callbacks and
decides, under a bounded retry budget, whether a component keeps running or
drops into bypass.
*/
package fault

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a fault.
type Kind int

const (
	// InvalidConfiguration is a validator rejection; the previous
	// configuration stays in effect.
	InvalidConfiguration Kind = iota
	// BackendUnavailable means the requested transform size or precision
	// is not supported; callers fall back to the native backend.
	BackendUnavailable
	// NumericFault is a NaN, Inf or out-of-range value mid-pipeline.
	NumericFault
	// ResourceExhausted means the buffer pool ran dry.
	ResourceExhausted
	// CriticalFailure is not recoverable and forces bypass.
	CriticalFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidConfiguration:
		return "InvalidConfiguration"
	case BackendUnavailable:
		return "BackendUnavailable"
	case NumericFault:
		return "NumericFault"
	case ResourceExhausted:
		return "ResourceExhausted"
	case CriticalFailure:
		return "CriticalFailure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinels matched by errors.Is against any *Fault of the same kind.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrBackendUnavailable   = errors.New("transform backend unavailable")
	ErrNumeric              = errors.New("numeric fault")
	ErrResourceExhausted    = errors.New("resource exhausted")
	ErrCritical             = errors.New("critical failure")
)

func (k Kind) sentinel() error {
	switch k {
	case InvalidConfiguration:
		return ErrInvalidConfiguration
	case BackendUnavailable:
		return ErrBackendUnavailable
	case NumericFault:
		return ErrNumeric
	case ResourceExhausted:
		return ErrResourceExhausted
	default:
		return ErrCritical
	}
}

// Fault is the error value components return for classified failures.
type Fault struct {
	Kind        Kind
	Component   string
	Message     string
	Recoverable bool
	Err         error
}

// New returns a Fault with the recoverability implied by its kind.
func New(kind Kind, component, message string) *Fault {
	return &Fault{
		Kind:        kind,
		Component:   component,
		Message:     message,
		Recoverable: kind != CriticalFailure,
	}
}

// Wrap returns a Fault carrying err as its cause.
func Wrap(kind Kind, component string, err error) *Fault {
	f := New(kind, component, err.Error())
	f.Err = err
	return f
}

func (f *Fault) Error() string {
	if f.Component == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s: %s: %s", f.Component, f.Kind, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Is matches the kind sentinel so callers can write errors.Is(err, fault.ErrNumeric).
func (f *Fault) Is(target error) bool {
	return target == f.Kind.sentinel()
}

// As returns the *Fault in err's chain. Errors that are not faults are
// wrapped as a non-recoverable CriticalFailure attributed to component.
func As(err error, component string) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return Wrap(CriticalFailure, component, err)
}

// IsKind reports whether err carries a Fault of the given kind.
func IsKind(err error, kind Kind) bool {
	var f *Fault
	return errors.As(err, &f) && f.Kind == kind
}

// ErrorContext describes one handled fault.
type ErrorContext struct {
	Kind        Kind
	Message     string
	Component   string
	Recoverable bool
	Timestamp   time.Time
	RetryCount  int
}

// Statistics accumulates fault counters for one controller.
type Statistics struct {
	TotalErrors         uint64
	RecoveredErrors     uint64
	UnrecoverableErrors uint64
	TotalWarnings       uint64
	LastErrorTime       time.Time
	LastErrorComponent  string
}

// SPDX-License-Identifier: MIT
package fault

import (
	"sync"
	"time"
)

// DefaultMaxRetries is the retry budget of a new controller.
const DefaultMaxRetries = 3

// Resolution is the controller's verdict on a handled fault.
type Resolution int

const (
	// Clean means the guarded operation reported no fault.
	Clean Resolution = iota
	// Recovered means the fault was resolved and the component continues.
	Recovered
	// Retrying means no recovery strategy was available yet and the retry
	// budget is not spent; the next operation is the retry.
	Retrying
	// Unrecoverable means the component must drop into bypass.
	Unrecoverable
)

func (r Resolution) String() string {
	switch r {
	case Clean:
		return "clean"
	case Recovered:
		return "recovered"
	case Retrying:
		return "retrying"
	case Unrecoverable:
		return "unrecoverable"
	default:
		return "unknown"
	}
}

// ErrorCallback observes every handled fault. It runs synchronously on the
// goroutine that reported the fault, so it must not block.
type ErrorCallback func(ctx ErrorContext)

// WarningCallback observes warnings.
type WarningCallback func(message, component string)

// RecoveryCallback attempts to repair component after a fault of kind and
// reports whether it succeeded.
type RecoveryCallback func(kind Kind, component string) bool

// Controller is the fault router for one engine instance. All methods are
// safe for concurrent use; the critical sections only touch counters and
// small maps, and callbacks are invoked outside the lock.
type Controller struct {
	mu         sync.Mutex
	enabled    bool
	maxRetries int

	stats   Statistics
	last    ErrorContext
	hasLast bool

	retries  map[string]int
	pending  map[string]bool
	degraded map[string]bool

	onError    ErrorCallback
	onWarning  WarningCallback
	onRecovery RecoveryCallback

	now func() time.Time
}

// NewController returns a controller with recovery enabled and the
// default retry budget.
func NewController() *Controller {
	return &Controller{
		enabled:    true,
		maxRetries: DefaultMaxRetries,
		retries:    make(map[string]int),
		pending:    make(map[string]bool),
		degraded:   make(map[string]bool),
		now:        time.Now,
	}
}

// Configure sets whether recovery is attempted and the per-component
// retry budget. Negative budgets are treated as zero.
func (c *Controller) Configure(enableRecovery bool, maxRetries int) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	c.mu.Lock()
	c.enabled = enableRecovery
	c.maxRetries = maxRetries
	c.mu.Unlock()
}

func (c *Controller) SetErrorCallback(cb ErrorCallback) {
	c.mu.Lock()
	c.onError = cb
	c.mu.Unlock()
}

func (c *Controller) SetWarningCallback(cb WarningCallback) {
	c.mu.Lock()
	c.onWarning = cb
	c.mu.Unlock()
}

func (c *Controller) SetRecoveryCallback(cb RecoveryCallback) {
	c.mu.Lock()
	c.onRecovery = cb
	c.mu.Unlock()
}

// HandleError records a fault, notifies the error callback and, for
// recoverable faults with recovery enabled, runs the recovery policy.
//
// Each recoverable fault spends one retry of the component's budget. When
// the count reaches the budget the fault is unrecoverable. Otherwise a
// registered recovery callback decides (true recovers and refills the
// budget, false is unrecoverable). Without a callback the fault is left
// Retrying and a later Succeeded call for the component counts as the
// recovery.
func (c *Controller) HandleError(kind Kind, message, component string, recoverable bool) Resolution {
	now := c.now()

	c.mu.Lock()
	ctx := ErrorContext{
		Kind:        kind,
		Message:     message,
		Component:   component,
		Recoverable: recoverable,
		Timestamp:   now,
		RetryCount:  c.retries[component],
	}
	c.stats.TotalErrors++
	c.stats.LastErrorTime = now
	c.stats.LastErrorComponent = component
	c.last = ctx
	c.hasLast = true
	onError := c.onError
	enabled := c.enabled
	c.mu.Unlock()

	if onError != nil {
		onError(ctx)
	}

	if !recoverable || !enabled {
		c.markUnrecoverable(component)
		return Unrecoverable
	}
	return c.recover(kind, component)
}

// HandleFault is HandleError for a *Fault value.
func (c *Controller) HandleFault(f *Fault) Resolution {
	return c.HandleError(f.Kind, f.Message, f.Component, f.Recoverable)
}

// AttemptRecovery spends one retry for component and reports whether the
// component recovered.
func (c *Controller) AttemptRecovery(kind Kind, component string) bool {
	return c.recover(kind, component) == Recovered
}

func (c *Controller) recover(kind Kind, component string) Resolution {
	c.mu.Lock()
	n := c.retries[component] + 1
	c.retries[component] = n
	exhausted := n >= c.maxRetries
	cb := c.onRecovery
	if !exhausted && cb == nil {
		c.pending[component] = true
	}
	c.mu.Unlock()

	if exhausted {
		c.markUnrecoverable(component)
		return Unrecoverable
	}
	if cb == nil {
		return Retrying
	}
	if !cb(kind, component) {
		c.markUnrecoverable(component)
		return Unrecoverable
	}

	c.mu.Lock()
	c.stats.RecoveredErrors++
	delete(c.retries, component)
	delete(c.pending, component)
	c.mu.Unlock()
	return Recovered
}

func (c *Controller) markUnrecoverable(component string) {
	c.mu.Lock()
	c.stats.UnrecoverableErrors++
	c.degraded[component] = true
	delete(c.retries, component)
	delete(c.pending, component)
	c.mu.Unlock()
}

// Succeeded reports a clean operation for component. It resets the
// component's consecutive retry count and settles a pending retry as
// recovered.
func (c *Controller) Succeeded(component string) {
	c.mu.Lock()
	if len(c.retries) > 0 {
		delete(c.retries, component)
	}
	if c.pending[component] {
		delete(c.pending, component)
		c.stats.RecoveredErrors++
	}
	c.mu.Unlock()
}

// Record accounts for a fault that the caller already resolved locally,
// such as a rejected configuration or a backend fallback. It counts as
// both an error and a recovery and never touches the retry budget.
func (c *Controller) Record(f *Fault) {
	now := c.now()

	c.mu.Lock()
	ctx := ErrorContext{
		Kind:        f.Kind,
		Message:     f.Message,
		Component:   f.Component,
		Recoverable: true,
		Timestamp:   now,
	}
	c.stats.TotalErrors++
	c.stats.RecoveredErrors++
	c.stats.LastErrorTime = now
	c.stats.LastErrorComponent = f.Component
	c.last = ctx
	c.hasLast = true
	onError := c.onError
	c.mu.Unlock()

	if onError != nil {
		onError(ctx)
	}
}

// HandleWarning counts a warning and notifies the warning callback.
func (c *Controller) HandleWarning(message, component string) {
	c.mu.Lock()
	c.stats.TotalWarnings++
	cb := c.onWarning
	c.mu.Unlock()

	if cb != nil {
		cb(message, component)
	}
}

// Statistics returns a copy of the counters.
func (c *Controller) Statistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// ResetStatistics zeroes the counters and forgets the last error.
func (c *Controller) ResetStatistics() {
	c.mu.Lock()
	c.stats = Statistics{}
	c.last = ErrorContext{}
	c.hasLast = false
	c.mu.Unlock()
}

// LastError returns the most recent fault, if any.
func (c *Controller) LastError() (ErrorContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.hasLast
}

// RetryCount returns the consecutive retries spent by component.
func (c *Controller) RetryCount(component string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retries[component]
}

// IsDegraded reports whether component was marked unrecoverable.
func (c *Controller) IsDegraded(component string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded[component]
}

// Clear drops the degraded mark and any retry state for component.
func (c *Controller) Clear(component string) {
	c.mu.Lock()
	delete(c.degraded, component)
	delete(c.retries, component)
	delete(c.pending, component)
	c.mu.Unlock()
}

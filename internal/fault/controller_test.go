// SPDX-License-Identifier: MIT
package fault

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testComponent = "spectral"

func newTestController() *Controller {
	c := NewController()
	fixed := time.Date(2025, 4, 13, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }
	return c
}

func TestHandleErrorExhaustsBudgetWithoutCallback(t *testing.T) {
	c := newTestController()
	c.Configure(true, 3)

	assert.Equal(t, Retrying, c.HandleError(NumericFault, "nan", testComponent, true))
	assert.Equal(t, Retrying, c.HandleError(NumericFault, "nan", testComponent, true))
	assert.Equal(t, Unrecoverable, c.HandleError(NumericFault, "nan", testComponent, true))

	stats := c.Statistics()
	assert.Equal(t, uint64(3), stats.TotalErrors)
	assert.Equal(t, uint64(0), stats.RecoveredErrors)
	assert.Equal(t, uint64(1), stats.UnrecoverableErrors)
	assert.Equal(t, testComponent, stats.LastErrorComponent)
	assert.True(t, c.IsDegraded(testComponent))
}

func TestSucceededSettlesPendingRetry(t *testing.T) {
	c := newTestController()
	c.Configure(true, 3)

	require.Equal(t, Retrying, c.HandleError(NumericFault, "nan", testComponent, true))
	assert.Equal(t, 1, c.RetryCount(testComponent))

	c.Succeeded(testComponent)

	stats := c.Statistics()
	assert.Equal(t, uint64(1), stats.RecoveredErrors)
	assert.Equal(t, 0, c.RetryCount(testComponent))
	assert.False(t, c.IsDegraded(testComponent))

	// Budget is per run of consecutive faults.
	assert.Equal(t, Retrying, c.HandleError(NumericFault, "nan", testComponent, true))
	assert.Equal(t, Retrying, c.HandleError(NumericFault, "nan", testComponent, true))
	assert.False(t, c.IsDegraded(testComponent))
}

func TestRecoveryCallback(t *testing.T) {
	c := newTestController()

	var calls []string
	c.SetRecoveryCallback(func(kind Kind, component string) bool {
		calls = append(calls, fmt.Sprintf("%s/%s", kind, component))
		return kind == NumericFault
	})

	assert.Equal(t, Recovered, c.HandleError(NumericFault, "inf", testComponent, true))
	assert.Equal(t, Recovered, c.HandleError(NumericFault, "inf", testComponent, true))
	assert.Equal(t, Recovered, c.HandleError(NumericFault, "inf", testComponent, true))
	assert.Equal(t, Recovered, c.HandleError(NumericFault, "inf", testComponent, true))
	assert.Equal(t, Unrecoverable, c.HandleError(ResourceExhausted, "pool", "pool", true))

	stats := c.Statistics()
	assert.Equal(t, uint64(5), stats.TotalErrors)
	assert.Equal(t, uint64(4), stats.RecoveredErrors)
	assert.Equal(t, uint64(1), stats.UnrecoverableErrors)
	assert.Len(t, calls, 5)
	assert.True(t, c.IsDegraded("pool"))
	assert.False(t, c.IsDegraded(testComponent))
}

func TestNonRecoverableAndDisabledRecovery(t *testing.T) {
	c := newTestController()
	c.SetRecoveryCallback(func(Kind, string) bool { return true })

	assert.Equal(t, Unrecoverable, c.HandleError(CriticalFailure, "backend lost", testComponent, false))

	c.Clear(testComponent)
	c.Configure(false, 3)
	assert.Equal(t, Unrecoverable, c.HandleError(NumericFault, "nan", testComponent, true))
	assert.Equal(t, uint64(2), c.Statistics().UnrecoverableErrors)
}

func TestZeroRetryBudget(t *testing.T) {
	c := newTestController()
	c.Configure(true, 0)
	c.SetRecoveryCallback(func(Kind, string) bool { return true })

	assert.False(t, c.AttemptRecovery(NumericFault, testComponent))
	assert.True(t, c.IsDegraded(testComponent))
}

func TestCallbacksAndLastError(t *testing.T) {
	c := newTestController()

	var seen []ErrorContext
	var warnings []string
	c.SetErrorCallback(func(ctx ErrorContext) { seen = append(seen, ctx) })
	c.SetWarningCallback(func(msg, component string) { warnings = append(warnings, component+": "+msg) })

	_, ok := c.LastError()
	assert.False(t, ok)

	c.HandleError(NumericFault, "first", testComponent, true)
	c.HandleError(NumericFault, "second", testComponent, true)
	c.HandleWarning("pool depleted", "pool")

	require.Len(t, seen, 2)
	assert.Equal(t, 0, seen[0].RetryCount)
	assert.Equal(t, 1, seen[1].RetryCount)
	assert.Equal(t, []string{"pool: pool depleted"}, warnings)

	last, ok := c.LastError()
	require.True(t, ok)
	assert.Equal(t, "second", last.Message)
	assert.Equal(t, NumericFault, last.Kind)
	assert.Equal(t, uint64(1), c.Statistics().TotalWarnings)

	c.ResetStatistics()
	assert.Equal(t, Statistics{}, c.Statistics())
	_, ok = c.LastError()
	assert.False(t, ok)
}

func TestRecordCountsAsRecovered(t *testing.T) {
	c := newTestController()
	c.Record(New(InvalidConfiguration, "engine", "num_bands"))

	stats := c.Statistics()
	assert.Equal(t, uint64(1), stats.TotalErrors)
	assert.Equal(t, uint64(1), stats.RecoveredErrors)
	assert.Equal(t, 0, c.RetryCount("engine"))
}

func guarded(g *Guard, fn func() error) (err error) {
	defer g.End(&err)
	return fn()
}

func TestGuardReportsExactlyOnce(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := newTestController()
		g := c.Begin(testComponent)
		require.NoError(t, guarded(&g, func() error { return nil }))
		assert.True(t, g.Done())
		assert.Equal(t, Clean, g.Resolution())
		assert.Equal(t, uint64(0), c.Statistics().TotalErrors)
	})

	t.Run("fault", func(t *testing.T) {
		c := newTestController()
		g := c.Begin(testComponent)
		err := guarded(&g, func() error { return New(NumericFault, testComponent, "nan") })
		assert.ErrorIs(t, err, ErrNumeric)
		assert.Equal(t, Retrying, g.Resolution())

		var nilErr error
		g.End(&nilErr)
		assert.Equal(t, uint64(1), c.Statistics().TotalErrors)
	})

	t.Run("plain error", func(t *testing.T) {
		c := newTestController()
		g := c.Begin(testComponent)
		err := guarded(&g, func() error { return errors.New("boom") })
		require.Error(t, err)
		assert.Equal(t, Unrecoverable, g.Resolution())
		last, _ := c.LastError()
		assert.Equal(t, CriticalFailure, last.Kind)
	})

	t.Run("panic", func(t *testing.T) {
		c := newTestController()
		g := c.Begin(testComponent)
		var err error
		assert.NotPanics(t, func() {
			err = guarded(&g, func() error { panic("index out of range") })
		})
		assert.True(t, IsKind(err, CriticalFailure))
		assert.Equal(t, Unrecoverable, g.Resolution())
		assert.Equal(t, uint64(1), c.Statistics().UnrecoverableErrors)
	})
}

func TestGuardSuccessZeroAllocs(t *testing.T) {
	c := newTestController()
	allocs := testing.AllocsPerRun(100, func() {
		g := c.Begin(testComponent)
		_ = guarded(&g, func() error { return nil })
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations for a clean guarded call, got %.1f", allocs)
	}
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		kind     Kind
		severity int
		critical bool
	}{
		{InvalidConfiguration, 20, false},
		{ResourceExhausted, 40, false},
		{NumericFault, 50, false},
		{BackendUnavailable, 60, false},
		{CriticalFailure, 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.severity, ErrorSeverity(tt.kind))
			assert.Equal(t, tt.critical, IsCriticalError(tt.kind))
		})
	}
}

func TestFaultErrorChain(t *testing.T) {
	cause := errors.New("plan creation failed")
	f := Wrap(BackendUnavailable, "fft", cause)

	wrapped := fmt.Errorf("configure: %w", f)
	assert.ErrorIs(t, wrapped, ErrBackendUnavailable)
	assert.ErrorIs(t, wrapped, cause)
	assert.NotErrorIs(t, wrapped, ErrNumeric)
	assert.True(t, IsKind(wrapped, BackendUnavailable))
	assert.Equal(t, "fft: BackendUnavailable: plan creation failed", f.Error())
	assert.True(t, f.Recoverable)
	assert.False(t, New(CriticalFailure, "", "x").Recoverable)
}

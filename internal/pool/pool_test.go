// SPDX-License-Identifier: MIT
package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPutReuse(t *testing.T) {
	p := New[float64](8, 2)
	require.Equal(t, 2, p.Available())

	a := p.Get()
	a[0] = 42
	p.Put(a)

	b := p.Get()
	assert.Len(t, b, 8)
	assert.Equal(t, 0.0, b[0], "buffers must come back zeroed")

	gets, misses := p.Stats()
	assert.Equal(t, uint64(2), gets)
	assert.Equal(t, uint64(0), misses)
}

func TestExhaustionWarnsOnce(t *testing.T) {
	p := New[complex128](4, 1)

	warnings := 0
	p.OnExhausted(func() { warnings++ })

	first := p.Get()
	second := p.Get()
	third := p.Get()

	assert.Len(t, second, 4)
	assert.Len(t, third, 4)
	assert.Equal(t, 1, warnings)

	_, misses := p.Stats()
	assert.Equal(t, uint64(2), misses)

	p.Put(first)
	p.Put(second) // beyond capacity, dropped
	assert.Equal(t, 1, p.Available())
}

func TestZeroCapacityAlwaysAllocates(t *testing.T) {
	p := New[float64](16, 0)
	warnings := 0
	p.OnExhausted(func() { warnings++ })

	for range 5 {
		buf := p.Get()
		require.Len(t, buf, 16)
		p.Put(buf)
	}
	assert.Equal(t, 1, warnings)
	assert.Equal(t, 0, p.Cap())
}

func TestPutRejectsWrongLength(t *testing.T) {
	p := New[float64](8, 1)
	_ = p.Get()
	p.Put(make([]float64, 7))
	assert.Equal(t, 0, p.Available())
}

func TestSetsFor(t *testing.T) {
	// 1024 float64 + 513 complex128 = 8192 + 8208 bytes.
	assert.Equal(t, 0, SetsFor(1024, 1024, 513))
	assert.Equal(t, 1, SetsFor(16400, 1024, 513))
	assert.Equal(t, MaxBuffers, SetsFor(16<<20, 64, 33))
	assert.Equal(t, 0, SetsFor(0, 64, 33))
}

func TestPoolHotPath(t *testing.T) {
	p := New[float64](1024, 2)
	allocs := testing.AllocsPerRun(100, func() {
		buf := p.Get()
		p.Put(buf)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations for pooled Get/Put, got %.1f", allocs)
	}
}

// SPDX-License-Identifier: MIT
//
// Package pool provides fixed-capacity pools of equally sized buffers for
// the real-time path.
//
// Unlike sync.Pool the capacity is bounded and known up front, derived from
// the configured memory budget, and a Get never blocks: when the pool is
// empty it allocates a fresh buffer and reports the exhaustion once.
package pool

import (
	"sync/atomic"
	"unsafe"
)

// MaxBuffers caps a single pool regardless of the memory budget.
const MaxBuffers = 64

// Pool hands out buffers of a fixed length.
type Pool[T any] struct {
	length int
	free   chan []T

	gets   atomic.Uint64
	misses atomic.Uint64
	warned atomic.Bool

	onExhausted func()
}

// New returns a pool of capacity buffers of length elements each, all
// allocated immediately. A zero capacity is allowed: every Get then
// allocates.
func New[T any](length, capacity int) *Pool[T] {
	if capacity < 0 {
		capacity = 0
	}
	if capacity > MaxBuffers {
		capacity = MaxBuffers
	}
	p := &Pool[T]{
		length: length,
		free:   make(chan []T, capacity),
	}
	for range capacity {
		p.free <- make([]T, length)
	}
	return p
}

// OnExhausted registers fn to run the first time Get finds the pool empty.
// It must be set before the pool is shared.
func (p *Pool[T]) OnExhausted(fn func()) {
	p.onExhausted = fn
}

// Get returns a zeroed buffer. It never blocks.
func (p *Pool[T]) Get() []T {
	p.gets.Add(1)
	select {
	case buf := <-p.free:
		clear(buf)
		return buf
	default:
	}

	p.misses.Add(1)
	if p.warned.CompareAndSwap(false, true) && p.onExhausted != nil {
		p.onExhausted()
	}
	return make([]T, p.length)
}

// Put returns buf to the pool. Buffers of the wrong length, and buffers
// beyond capacity, are dropped.
func (p *Pool[T]) Put(buf []T) {
	if len(buf) != p.length {
		return
	}
	select {
	case p.free <- buf:
	default:
	}
}

// Len returns the buffer length.
func (p *Pool[T]) Len() int { return p.length }

// Cap returns the number of buffers the pool retains.
func (p *Pool[T]) Cap() int { return cap(p.free) }

// Available returns how many buffers are ready without allocation.
func (p *Pool[T]) Available() int { return len(p.free) }

// Stats returns the number of Get calls and how many of them allocated.
func (p *Pool[T]) Stats() (gets, misses uint64) {
	return p.gets.Load(), p.misses.Load()
}

// SetsFor returns how many frame/spectrum buffer pairs fit into budget
// bytes for the given lengths.
func SetsFor(budget, frameLen, bins int) int {
	var (
		f float64
		c complex128
	)
	per := frameLen*int(unsafe.Sizeof(f)) + bins*int(unsafe.Sizeof(c))
	if per <= 0 || budget <= 0 {
		return 0
	}
	return min(budget/per, MaxBuffers)
}

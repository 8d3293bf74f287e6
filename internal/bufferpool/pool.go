// pool.go: Pooled scratch buffers for event rendering
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package bufferpool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Pool statistics for monitoring and debugging
var (
	getCount   int64
	putCount   int64
	allocCount int64
	dropCount  int64
)

const (
	// MaxBufferSize is the maximum buffer capacity before dropping.
	// Buffers larger than this are discarded to prevent memory bloat.
	MaxBufferSize = 1 << 16 // 64 KiB

	// DefaultCapacity is the initial capacity hint for new buffers.
	// Rendered event lines are short; 256 bytes covers the common case
	// without reallocation.
	DefaultCapacity = 256
)

var pool = sync.Pool{
	New: func() any {
		atomic.AddInt64(&allocCount, 1)
		return bytes.NewBuffer(make([]byte, 0, DefaultCapacity))
	},
}

// Get returns a reset *bytes.Buffer from the pool, ready for use.
func Get() *bytes.Buffer {
	atomic.AddInt64(&getCount, 1)
	b := pool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// Put returns the buffer to the pool. Buffers that grew past
// MaxBufferSize release their backing storage instead of keeping it
// resident in the pool.
func Put(b *bytes.Buffer) {
	if b == nil {
		return
	}
	atomic.AddInt64(&putCount, 1)
	if b.Cap() > MaxBufferSize {
		atomic.AddInt64(&dropCount, 1)
		*b = *bytes.NewBuffer(make([]byte, 0, DefaultCapacity))
	}
	b.Reset()
	pool.Put(b)
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Gets        int64
	Puts        int64
	Allocations int64
	Drops       int64
}

// GetStats returns a snapshot of current pool statistics.
func GetStats() Stats {
	return Stats{
		Gets:        atomic.LoadInt64(&getCount),
		Puts:        atomic.LoadInt64(&putCount),
		Allocations: atomic.LoadInt64(&allocCount),
		Drops:       atomic.LoadInt64(&dropCount),
	}
}

// ResetStats zeroes all pool counters. For tests and benchmarks.
func ResetStats() {
	atomic.StoreInt64(&getCount, 0)
	atomic.StoreInt64(&putCount, 0)
	atomic.StoreInt64(&allocCount, 0)
	atomic.StoreInt64(&dropCount, 0)
}

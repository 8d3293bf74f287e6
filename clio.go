// clio.go: Log instance and the hot-path event ring
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package clio

import (
	"sync/atomic"

	"github.com/agilira/go-errors"
)

// Event is one event record. In the ring only TimeCycles, Type, Track
// and Data are meaningful; Time is filled at snapshot time with seconds
// since log init.
type Event struct {
	TimeCycles uint64

	Type  uint16
	Track uint16

	// Data holds the payload encoded under the type's descriptor.
	// Multi-byte fields inside it are packed, not aligned.
	Data [EventDataSize]byte

	Time float64
}

// maxRingCapacity bounds the capacity hint. One record is 40 bytes; a
// ring at this bound is already 40 GiB, far past any sane flight
// recorder.
const maxRingCapacity = 1 << 30

// Log is one binary event log: a fixed-capacity ring of event records,
// the type and track registries, and the clock samples needed to align
// and serialize the stream.
//
// A Log is single-writer. Emit, snapshot, merge and (de)serialization on
// the same Log must not run concurrently; the one exception is the
// disable limit, which is atomic so that a config watcher can flip
// tracing on and off under a live emitter.
type Log struct {
	// Hot-path state.
	ring         []Event
	ringCap      uint64 // power of two; 0 when the ring is disabled
	nTotalEvents uint64 // recorded emissions; slot = n & (ringCap-1)
	disableLimit uint64 // atomic; emissions at or past the limit are dropped
	coarse       bool   // timestamp via the shared time cache

	// Registries.
	types         []EventType
	typesByFormat map[string]int
	tracks        []Track
	defaultTrack  Track

	// Clock calibration. initTime and serializeTime pair the cycle
	// counter with the OS clock; Merge derives stream alignment from
	// them, Deserialize recovers the producer's clock rate.
	initTime        timeStamp
	serializeTime   timeStamp
	secondsPerClock float64
	nsecPerCPUClock float64

	deltaPolicy ClockDeltaPolicy

	// events is the offline linearization, materialized by Events and
	// populated directly by Merge and Deserialize.
	events []Event
}

// New creates a Log. The capacity hint is rounded up to the next power
// of two; a hint of 0 takes DefaultCapacity. Config.DisableRing disables
// the ring entirely, turning emitters into no-ops.
func New(cfg Config, opts ...Option) (*Log, error) {
	cfg = cfg.WithDefaults()
	if cfg.Capacity > maxRingCapacity {
		return nil, errors.New(ErrCodeInvalidConfig, "ring capacity hint out of range")
	}

	l := &Log{
		typesByFormat:   make(map[string]int),
		coarse:          cfg.CoarseTimestamps,
		deltaPolicy:     cfg.ClockDelta,
		secondsPerClock: nominalSecondsPerClock,
		nsecPerCPUClock: nominalNsecPerClock,
	}
	atomic.StoreUint64(&l.disableLimit, cfg.DisableLimit)

	if cfg.Capacity > 0 {
		l.ringCap = nextPow2(uint64(cfg.Capacity))
		l.ring = make([]Event, l.ringCap)
	}

	// Track 0 is always the default track.
	l.defaultTrack = Track{Name: "default"}
	l.RegisterTrack(&l.defaultTrack)

	for _, opt := range opts {
		opt(l)
	}

	l.initTime = timeNow()
	return l, nil
}

// now reads the configured cycle source.
func (l *Log) now() uint64 {
	if l.coarse {
		return clockCyclesCoarse()
	}
	return clockCycles()
}

// EventData is the raw emit operation: it claims the next ring slot,
// stamps it with cycles and the given indices, and returns the payload
// slot for the caller to fill under the type's descriptor. Returns nil
// when the ring is disabled or the disable limit has been reached; an
// emit observing the limit exactly is dropped.
//
// This is the hot path: one bounds check, one masked index, one
// fixed-width write. No allocation, no locks, no failure.
func (l *Log) EventData(typeIndex, trackIndex int, cycles uint64) []byte {
	if l.ringCap == 0 || l.nTotalEvents >= atomic.LoadUint64(&l.disableLimit) {
		return nil
	}
	e := &l.ring[l.nTotalEvents&(l.ringCap-1)]
	e.TimeCycles = cycles
	e.Type = uint16(typeIndex)
	e.Track = uint16(trackIndex)
	l.nTotalEvents++
	return e.Data[:]
}

// Emit records one event of type t on the default track, encoding args
// under t's descriptor. Unregistered types register lazily on first
// emit, so package-level EventType values work without setup.
func (l *Log) Emit(t *EventType, args ...interface{}) {
	l.EmitTrack(t, &l.defaultTrack, args...)
}

// EmitTrack records one event of type t on track tr.
//
// Encoding failures (argument/descriptor mismatch, payload overflow)
// zero the payload from the failing field onward and are otherwise
// silent: emitters never fail visibly.
func (l *Log) EmitTrack(t *EventType, tr *Track, args ...interface{}) {
	if t.typeIndexPlusOne == 0 {
		if l.RegisterType(t) < 0 {
			return
		}
	}
	if tr.trackIndexPlusOne == 0 {
		l.RegisterTrack(tr)
	}

	d := l.EventData(int(t.typeIndexPlusOne)-1, int(tr.trackIndexPlusOne)-1, l.now())
	if d == nil {
		return
	}
	_ = encodeArgs(d, l.types[t.typeIndexPlusOne-1].FormatArgs, args)
}

// eventRange returns the number of live records and the ring index of
// the oldest one.
func (l *Log) eventRange() (n uint64, lo uint64) {
	if l.ringCap == 0 {
		return 0, 0
	}
	if l.nTotalEvents <= l.ringCap {
		return l.nTotalEvents, 0
	}
	return l.ringCap, l.nTotalEvents & (l.ringCap - 1)
}

// Peek linearizes the ring into a fresh slice, oldest record first, with
// Time converted to seconds since log init. Peek is non-destructive and
// idempotent; it never disturbs the ring.
func (l *Log) Peek() []Event {
	n, j := l.eventRange()
	es := make([]Event, 0, n)
	for i := uint64(0); i < n; i++ {
		e := l.ring[j]
		e.Time = float64(int64(e.TimeCycles-l.initTime.cpu)) * l.secondsPerClock
		es = append(es, e)
		j = (j + 1) & (l.ringCap - 1)
	}
	return es
}

// Events returns the materialized event sequence, linearizing the ring
// on first use and caching the result. Merge and Deserialize operate on
// (and replace) this sequence.
func (l *Log) Events() []Event {
	if l.events == nil {
		l.events = l.Peek()
	}
	return l.events
}

// TotalEvents returns the count of recorded emissions, including records
// since overwritten by ring wrap.
func (l *Log) TotalEvents() uint64 { return l.nTotalEvents }

// Capacity returns the rounded ring capacity.
func (l *Log) Capacity() uint64 { return l.ringCap }

// SetDisableLimit caps recorded emissions: once TotalEvents reaches
// limit, further emits are dropped silently. A limit of 0 records
// nothing. Safe to call from another goroutine.
func (l *Log) SetDisableLimit(limit uint64) {
	atomic.StoreUint64(&l.disableLimit, limit)
}

// Disable stops event collection, pinning the limit at the current
// count. Safe to call from another goroutine.
func (l *Log) Disable() {
	atomic.StoreUint64(&l.disableLimit, l.nTotalEvents)
}

// Enable resumes unlimited event collection. Safe to call from another
// goroutine.
func (l *Log) Enable() {
	atomic.StoreUint64(&l.disableLimit, ^uint64(0))
}

// Enabled reports whether the next emit would be recorded.
func (l *Log) Enabled() bool {
	return l.ringCap != 0 && l.nTotalEvents < atomic.LoadUint64(&l.disableLimit)
}

// nextPow2 returns the smallest power of two >= v.
func nextPow2(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}

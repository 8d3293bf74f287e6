// clock.go: Time source and clock calibration for the clio event log
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package clio

import (
	"time"

	"github.com/agilira/go-timecache"
)

// timeStamp is a paired sample of the two clocks: the monotonic cycle
// counter and the OS wall clock in nanoseconds. Init-time and
// serialize-time samples of both clocks are what lets Merge align event
// streams that were timed independently.
type timeStamp struct {
	cpu    uint64 // cycle counter at sample time
	osNsec uint64 // wall clock, nanoseconds since the Unix epoch
}

// The cycle counter is the Go runtime's monotonic clock in nanosecond
// units, anchored at package init so that every Log in the process shares
// one counter. One nanosecond per cycle makes the nominal calibration
// exact, but calibration values are still carried per Log and recomputed
// from the envelope's paired samples after Deserialize, so nothing
// downstream assumes the 1:1 ratio.
var (
	clockEpoch     = time.Now()
	clockEpochNano = clockEpoch.UnixNano()
)

const (
	nominalSecondsPerClock = 1e-9
	nominalNsecPerClock    = 1.0
)

// clockCycles reads the cycle counter. One monotonic clock read, no
// syscall on modern runtimes.
func clockCycles() uint64 {
	return uint64(time.Since(clockEpoch))
}

// clockCyclesCoarse reads the cycle counter from the shared time cache
// instead of the clock. Resolution degrades to the cache refresh period
// (about half a millisecond); cost drops to a single atomic load. Used
// when a Log is configured with CoarseTimestamps.
func clockCyclesCoarse() uint64 {
	d := timecache.CachedTimeNano() - clockEpochNano
	if d < 0 {
		return 0
	}
	return uint64(d)
}

// timeNow samples both clocks back to back. The two reads are as close
// together as we can make them; the residual skew is folded into the
// merge heuristic's 100ns tolerance.
func timeNow() timeStamp {
	return timeStamp{
		cpu:    clockCycles(),
		osNsec: uint64(time.Now().UnixNano()),
	}
}

// diffOSNsec returns t1 - t2 on the wall clock, in nanoseconds.
func diffOSNsec(t1, t2 timeStamp) int64 {
	return int64(t1.osNsec) - int64(t2.osNsec)
}

// diffCPU returns t1 - t2 on the cycle counter.
func diffCPU(t1, t2 timeStamp) int64 {
	return int64(t1.cpu) - int64(t2.cpu)
}

// nsecPerClock derives nanoseconds per cycle from two paired samples.
// For a freshly deserialized Log this is the only calibration available:
// the envelope carries the init-time and serialize-time sample pairs and
// the ratio of the two deltas recovers the producer's clock rate.
func nsecPerClock(init, serialize timeStamp) float64 {
	dcpu := diffCPU(serialize, init)
	if dcpu == 0 {
		return nominalNsecPerClock
	}
	return float64(diffOSNsec(serialize, init)) / float64(dcpu)
}

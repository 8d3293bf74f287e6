// merge.go: Cross-log merge with clock alignment
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package clio

import (
	"math"
	"sort"
)

// Clock agreement tolerances for the same-time-source heuristic: the two
// logs' rates must agree within clockRateTolerance nsec/clock and the OS
// and cycle views of the start-time delta within clockSkewToleranceNsec.
const (
	clockRateTolerance     = 1e-2
	clockSkewToleranceNsec = 100
)

// Merge appends src's events into l's materialized event sequence,
// remapping src's type indices into l's registry by canonical format
// string and aligning the two clocks.
//
// Track indices are not remapped; merge inputs are expected to share a
// track layout (typically "default" plus per-CPU tracks registered in
// the same order).
//
// The start-time delta between the streams is computed twice, from the
// OS clock and from the cycle counters scaled by the mean clock rate.
// Under ClockDeltaAuto the cycle delta wins only when the two logs
// plausibly share a time source (see ClockDeltaPolicy); the cycle
// counters are then finer-grained than the OS samples. The
// later-starting side's events are shifted by the delta, and the result
// is stably sorted by time: equal-time events keep insertion order, l's
// events before src's.
func (l *Log) Merge(src *Log) {
	srcEvents := src.Events()
	l.Events()

	nDst := len(l.events)
	for _, e := range srcEvents {
		e.Type = uint16(l.findOrCreateType(&src.types[e.Type]))
		l.events = append(l.events, e)
	}

	// A log that never serialized has no calibration of its own; adopt
	// src's so the delta math below has one consistent basis. Typical
	// when l is an empty merge target.
	if l.serializeTime.cpu == 0 {
		l.initTime = src.initTime
		l.serializeTime = src.serializeTime
		l.nsecPerCPUClock = src.nsecPerCPUClock
	}

	dtOSNsec := float64(diffOSNsec(src.initTime, l.initTime))
	dtCPUNsec := float64(diffCPU(src.initTime, l.initTime)) *
		0.5 * (l.nsecPerCPUClock + src.nsecPerCPUClock)

	dt := dtOSNsec
	switch l.deltaPolicy {
	case ClockDeltaCPU:
		dt = dtCPUNsec
	case ClockDeltaOS:
		// dtOSNsec already chosen.
	default:
		if math.Abs(src.nsecPerCPUClock-l.nsecPerCPUClock) < clockRateTolerance &&
			math.Abs(dtOSNsec-dtCPUNsec) < clockSkewToleranceNsec {
			dt = dtCPUNsec
		}
	}
	dt *= 1e-9

	if dt > 0 {
		// src started after l: shift the appended events.
		for i := nDst; i < len(l.events); i++ {
			l.events[i].Time += dt
		}
	} else {
		// l started after src: shift l's own events.
		for i := 0; i < nDst; i++ {
			l.events[i].Time += dt
		}
	}

	sort.SliceStable(l.events, func(i, j int) bool {
		return l.events[i].Time < l.events[j].Time
	})
}

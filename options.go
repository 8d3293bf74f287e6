// options.go: Functional options for Log creation
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package clio

import "sync/atomic"

// Option mutates a Log during New, after config defaults are applied and
// before the init-time clock sample is taken.
type Option func(*Log)

// WithDisableLimit caps recorded emissions, overriding the config value.
// Unlike Config.DisableLimit, a limit of 0 here means exactly that:
// record nothing.
func WithDisableLimit(limit uint64) Option {
	return func(l *Log) {
		atomic.StoreUint64(&l.disableLimit, limit)
	}
}

// WithCoarseTimestamps switches the hot path to the shared time cache.
func WithCoarseTimestamps() Option {
	return func(l *Log) {
		l.coarse = true
	}
}

// WithClockDeltaPolicy forces Merge's clock-alignment choice, mainly for
// tests that need a deterministic delta source.
func WithClockDeltaPolicy(p ClockDeltaPolicy) Option {
	return func(l *Log) {
		l.deltaPolicy = p
	}
}

// doc.go: Package documentation for the clio binary event log
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package clio is a low-overhead binary event log for in-process tracing
// of high-frequency events.
//
// A Log owns a fixed-capacity ring of fixed-width event records. Emitters
// write records at near-clock-read cost: a timestamp, a type index, a
// track index and a 20-byte payload encoded under the event type's
// descriptor string. The ring is a flight recorder, not a queue: once it
// wraps, the oldest records are overwritten in place and there is no
// back-pressure.
//
// Each Log is single-writer. The intended multi-producer pattern is one
// Log per producer, combined offline with Merge, which remaps event types
// by format string and aligns the two clocks.
//
// Offline, a Log can be linearized (Peek, Events), rendered as text
// (FormatEvent), merged with other logs (Merge) and written to a
// self-describing envelope (Serialize) that can be reloaded on a machine
// of different width or endianness (Deserialize).
//
// Basic usage:
//
//	log, _ := clio.New(clio.Config{Capacity: 4096})
//	rx := &clio.EventType{Format: "rx pkt len=%d"}
//	...
//	log.Emit(rx, pktLen)                  // hot path
//	...
//	for _, e := range log.Events() {      // report time
//		fmt.Println(log.FormatEvent(&e))
//	}
package clio

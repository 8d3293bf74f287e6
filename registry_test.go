// registry_test.go: Tests for the event type and track registries
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package clio

import (
	"testing"

	"github.com/agilira/go-errors"
)

func TestRegisterType_AssignsDenseIndices(t *testing.T) {
	l := newTestLog(t, 8)

	i0 := l.RegisterType(&EventType{Format: "a=%d"})
	i1 := l.RegisterType(&EventType{Format: "b=%d"})
	i2 := l.RegisterType(&EventType{Format: "c=%d"})

	if i0 != 0 || i1 != 1 || i2 != 2 {
		t.Errorf("Expected indices 0,1,2, got %d,%d,%d", i0, i1, i2)
	}
	if l.NumTypes() != 3 {
		t.Errorf("Expected 3 types, got %d", l.NumTypes())
	}
}

func TestRegisterType_DedupByFormat(t *testing.T) {
	l := newTestLog(t, 8)

	first := l.RegisterType(&EventType{Format: "pkt len=%d"})
	n := l.NumTypes()
	second := l.RegisterType(&EventType{Format: "pkt len=%d"})

	if first != second {
		t.Errorf("Expected same index for same format, got %d and %d", first, second)
	}
	if l.NumTypes() != n {
		t.Errorf("Expected type count to stay %d, got %d", n, l.NumTypes())
	}
}

func TestRegisterType_InfersDescriptor(t *testing.T) {
	l := newTestLog(t, 8)

	et := &EventType{Format: "x=%d y=%d"}
	i := l.RegisterType(et)

	if et.FormatArgs != "22" {
		t.Errorf("Expected inferred descriptor %q on caller's type, got %q", "22", et.FormatArgs)
	}
	if l.types[i].FormatArgs != "22" {
		t.Errorf("Expected inferred descriptor %q in registry, got %q", "22", l.types[i].FormatArgs)
	}
}

func TestRegisterType_ExplicitDescriptorWins(t *testing.T) {
	l := newTestLog(t, 8)

	et := &EventType{Format: "state=%s", FormatArgs: "t", EnumStrings: []string{"A", "B"}}
	i := l.RegisterType(et)

	if l.types[i].FormatArgs != "t" {
		t.Errorf("Expected explicit descriptor %q, got %q", "t", l.types[i].FormatArgs)
	}
}

func TestRegisterType_FunctionPrepended(t *testing.T) {
	l := newTestLog(t, 8)

	et := &EventType{Format: "enter fd=%d", Function: "acceptLoop"}
	i := l.RegisterType(et)

	want := "acceptLoop enter fd=%d"
	if l.types[i].Format != want {
		t.Errorf("Expected canonicalized format %q, got %q", want, l.types[i].Format)
	}

	// The canonicalized string is the dedup key.
	j := l.RegisterType(&EventType{Format: "enter fd=%d", Function: "acceptLoop"})
	if i != j {
		t.Errorf("Expected dedup on canonicalized format, got %d and %d", i, j)
	}
}

func TestRegisterType_CopiesEnumStrings(t *testing.T) {
	l := newTestLog(t, 8)

	enums := []string{"IDLE", "RUN"}
	i := l.RegisterType(&EventType{Format: "st=%s", FormatArgs: "t", EnumStrings: enums})

	enums[0] = "CLOBBERED"
	if l.types[i].EnumStrings[0] != "IDLE" {
		t.Errorf("Expected registry-owned enum copy, got %q", l.types[i].EnumStrings[0])
	}
}

func TestRegisterType_RejectsBadDescriptor(t *testing.T) {
	// Silence the stderr handler; the registration is expected to report.
	SetErrorHandler(func(err *errors.Error) {})
	defer SetErrorHandler(nil)

	l := newTestLog(t, 8)
	if i := l.RegisterType(&EventType{Format: "bad", FormatArgs: "q"}); i != -1 {
		t.Errorf("Expected -1 for unknown descriptor code, got %d", i)
	}
	if i := l.RegisterType(&EventType{Format: "bad2", FormatArgs: "222222222"}); i != -1 {
		t.Errorf("Expected -1 past the arity cap, got %d", i)
	}
}

func TestRegisterTrack_NoDedup(t *testing.T) {
	l := newTestLog(t, 8)

	a := l.RegisterTrack(&Track{Name: "cpu0"})
	b := l.RegisterTrack(&Track{Name: "cpu0"})

	if a == b {
		t.Error("Expected distinct indices for repeated track registration")
	}
	if l.NumTracks() != 3 { // default + two registrations
		t.Errorf("Expected 3 tracks, got %d", l.NumTracks())
	}
}

func TestEmit_LazyRegistration(t *testing.T) {
	l := newTestLog(t, 8)

	et := &EventType{Format: "lazy=%d"}
	tr := &Track{Name: "side"}
	l.EmitTrack(et, tr, 7)

	if et.typeIndexPlusOne == 0 {
		t.Error("Expected emit to register the type lazily")
	}
	if tr.trackIndexPlusOne == 0 {
		t.Error("Expected emit to register the track lazily")
	}
	events := l.Peek()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if got := l.FormatTrack(&events[0]); got != "side" {
		t.Errorf("Expected track %q, got %q", "side", got)
	}
}

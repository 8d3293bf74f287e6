// serialize_test.go: Tests for the self-describing envelope
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package clio

import (
	"bytes"
	"testing"

	"github.com/cloudwego/gopkg/bufiox"
)

func TestSerialize_RoundTrip(t *testing.T) {
	l := newTestLog(t, 8)
	ta := &EventType{Format: "a=%d"}
	tb := &EventType{Format: "b=%s"}
	cpu1 := &Track{Name: "cpu1"}

	l.Emit(ta, 1)
	l.EmitTrack(tb, cpu1, "one")
	l.Emit(ta, 2)
	l.EmitTrack(tb, cpu1, "two")

	data, err := l.SerializeBytes()
	if err != nil {
		t.Fatalf("Expected serialize to succeed, got: %v", err)
	}

	restored := newTestLog(t, 8)
	if err := restored.DeserializeBytes(data); err != nil {
		t.Fatalf("Expected deserialize to succeed, got: %v", err)
	}

	orig := l.Events()
	got := restored.Events()
	if len(got) != len(orig) {
		t.Fatalf("Expected %d events, got %d", len(orig), len(got))
	}
	for i := range orig {
		if a, b := l.FormatEvent(&orig[i]), restored.FormatEvent(&got[i]); a != b {
			t.Errorf("Event %d: expected render %q, got %q", i, a, b)
		}
		if a, b := l.FormatTrack(&orig[i]), restored.FormatTrack(&got[i]); a != b {
			t.Errorf("Event %d: expected track %q, got %q", i, a, b)
		}
		if orig[i].Time != got[i].Time {
			t.Errorf("Event %d: expected time %g, got %g", i, orig[i].Time, got[i].Time)
		}
	}

	if restored.Capacity() != l.Capacity() {
		t.Errorf("Expected ring capacity %d, got %d", l.Capacity(), restored.Capacity())
	}
	if restored.nsecPerCPUClock <= 0 {
		t.Errorf("Expected a positive recovered clock rate, got %g", restored.nsecPerCPUClock)
	}
}

func TestSerialize_RoundTripViaWriter(t *testing.T) {
	l := newTestLog(t, 8)
	l.Emit(&EventType{Format: "n=%d"}, 42)

	var buf bytes.Buffer
	if err := l.Serialize(&buf); err != nil {
		t.Fatalf("Expected serialize to succeed, got: %v", err)
	}

	restored := newTestLog(t, 8)
	if err := restored.Deserialize(&buf); err != nil {
		t.Fatalf("Expected deserialize to succeed, got: %v", err)
	}
	if len(restored.Events()) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(restored.Events()))
	}
	if got := restored.FormatEvent(&restored.Events()[0]); got != "n=42" {
		t.Errorf("Expected %q, got %q", "n=42", got)
	}
}

// Enum payloads survive the envelope: the string table travels with the
// type and the index re-resolves after reload.
func TestSerialize_EnumRoundTrip(t *testing.T) {
	l := newTestLog(t, 8)
	et := &EventType{
		Format:      "state=%s",
		FormatArgs:  "t",
		EnumStrings: []string{"IDLE", "RUN", "DONE"},
	}
	l.Emit(et, 1)

	if got := l.FormatEvent(&l.Events()[0]); got != "state=RUN" {
		t.Fatalf("Expected %q before round trip, got %q", "state=RUN", got)
	}

	data, err := l.SerializeBytes()
	if err != nil {
		t.Fatalf("Expected serialize to succeed, got: %v", err)
	}
	restored := newTestLog(t, 8)
	if err := restored.DeserializeBytes(data); err != nil {
		t.Fatalf("Expected deserialize to succeed, got: %v", err)
	}

	if got := restored.FormatEvent(&restored.Events()[0]); got != "state=RUN" {
		t.Errorf("Expected %q after round trip, got %q", "state=RUN", got)
	}
}

// The by-format index is rebuilt on load, so re-registering a reloaded
// format dedups against it.
func TestSerialize_RebuildsFormatIndex(t *testing.T) {
	l := newTestLog(t, 8)
	l.Emit(&EventType{Format: "dup=%d"}, 1)

	data, err := l.SerializeBytes()
	if err != nil {
		t.Fatalf("Expected serialize to succeed, got: %v", err)
	}
	restored := newTestLog(t, 8)
	if err := restored.DeserializeBytes(data); err != nil {
		t.Fatalf("Expected deserialize to succeed, got: %v", err)
	}

	n := restored.NumTypes()
	if i := restored.RegisterType(&EventType{Format: "dup=%d"}); i != 0 {
		t.Errorf("Expected reloaded format to dedup to index 0, got %d", i)
	}
	if restored.NumTypes() != n {
		t.Errorf("Expected type count to stay %d, got %d", n, restored.NumTypes())
	}
}

func TestDeserialize_BadMagic(t *testing.T) {
	l := newTestLog(t, 8)

	if err := l.DeserializeBytes([]byte("not an elog stream")); err == nil {
		t.Fatal("Expected an error for a foreign stream")
	} else if !IsLogError(err, ErrCodeBadMagic) {
		t.Errorf("Expected %s, got: %v", ErrCodeBadMagic, err)
	}

	if err := l.DeserializeBytes([]byte("elo")); err == nil {
		t.Fatal("Expected an error for a short stream")
	} else if !IsLogError(err, ErrCodeBadMagic) {
		t.Errorf("Expected %s, got: %v", ErrCodeBadMagic, err)
	}
}

func TestDeserialize_Truncated(t *testing.T) {
	l := newTestLog(t, 8)
	l.Emit(&EventType{Format: "n=%d"}, 7)

	data, err := l.SerializeBytes()
	if err != nil {
		t.Fatalf("Expected serialize to succeed, got: %v", err)
	}

	for _, cut := range []int{len(data) - 1, len(data) / 2, len(serializeMagic) + 2} {
		restored := newTestLog(t, 8)
		err := restored.DeserializeBytes(data[:cut])
		if err == nil {
			t.Errorf("Expected an error for a stream cut at %d bytes", cut)
			continue
		}
		if !IsLogError(err, ErrCodeTruncatedLog) {
			t.Errorf("Cut at %d: expected %s, got: %v", cut, ErrCodeTruncatedLog, err)
		}
	}
}

// A descriptor code unknown to this reader aborts deserialization: the
// payload bytes that follow could not be framed.
func TestDeserialize_UnknownDescriptorCode(t *testing.T) {
	var buf []byte
	ww := &wireWriter{w: bufiox.NewBytesWriter(&buf)}
	ww.putBytes([]byte(serializeMagic))
	ww.putUint32(4)
	putTimeStamp(ww, timeStamp{osNsec: 2_000_000_000, cpu: 2000})
	putTimeStamp(ww, timeStamp{osNsec: 1_000_000_000, cpu: 1000})
	ww.putUint32(1)          // one event type
	ww.putString("x=%d")     // format
	ww.putString("q")        // descriptor with an unknown code
	ww.putUint32(1)          // typeIndexPlusOne
	ww.putUint32(0)          // no enum strings
	if err := ww.flush(); err != nil {
		t.Fatalf("Expected envelope build to succeed, got: %v", err)
	}

	l := newTestLog(t, 8)
	err := l.DeserializeBytes(buf)
	if err == nil {
		t.Fatal("Expected an error for an unknown descriptor code")
	}
	if !IsLogError(err, ErrCodeBadDescriptor) {
		t.Errorf("Expected %s, got: %v", ErrCodeBadDescriptor, err)
	}
}

func TestDeserialize_EventIndexOutOfRange(t *testing.T) {
	var buf []byte
	ww := &wireWriter{w: bufiox.NewBytesWriter(&buf)}
	ww.putBytes([]byte(serializeMagic))
	ww.putUint32(4)
	putTimeStamp(ww, timeStamp{osNsec: 2_000_000_000, cpu: 2000})
	putTimeStamp(ww, timeStamp{osNsec: 1_000_000_000, cpu: 1000})
	ww.putUint32(0)     // no event types
	ww.putUint32(1)     // one track
	ww.putString("default")
	ww.putUint32(1)     // one event
	ww.putUint16(5)     // type index past the registry
	ww.putUint16(0)
	ww.putFloat64(0)
	if err := ww.flush(); err != nil {
		t.Fatalf("Expected envelope build to succeed, got: %v", err)
	}

	l := newTestLog(t, 8)
	err := l.DeserializeBytes(buf)
	if err == nil {
		t.Fatal("Expected an error for an out-of-range type index")
	}
	if !IsLogError(err, ErrCodeIndexRange) {
		t.Errorf("Expected %s, got: %v", ErrCodeIndexRange, err)
	}
}

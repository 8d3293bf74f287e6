// serialize.go: Self-describing on-disk envelope for event logs
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package clio

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/agilira/go-errors"
	"github.com/cloudwego/gopkg/bufiox"
)

// serializeMagic opens every envelope. Version bumps change the suffix.
const serializeMagic = "elog v0"

// Envelope layout, all integers big-endian, strings u32-length-prefixed:
//
//	magic "elog v0"
//	ring capacity          u32
//	serialize time         (osNsec u64, cpu u64)
//	init time              (osNsec u64, cpu u64)
//	event types            u32 count, then per type:
//	                       format, formatArgs, typeIndexPlusOne u32,
//	                       enum count u32, enum strings
//	tracks                 u32 count, then names
//	events                 u32 count, then per event:
//	                       type u16, track u16, time f64,
//	                       payload field by field per the descriptor
//
// Payloads are re-encoded field by field rather than copied as a blob,
// so a log written on one machine reads back on a machine of different
// width or endianness.

// Serialize writes the whole log to w: registries, clock samples and the
// materialized event sequence. The serialize-time clock sample is
// captured here; it is what later lets a reader (and Merge) recover this
// log's clock rate.
func (l *Log) Serialize(w io.Writer) error {
	return l.serializeTo(bufiox.NewDefaultWriter(w))
}

// SerializeBytes serializes into a fresh byte slice.
func (l *Log) SerializeBytes() ([]byte, error) {
	var buf []byte
	if err := l.serializeTo(bufiox.NewBytesWriter(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (l *Log) serializeTo(bw bufiox.Writer) error {
	ww := &wireWriter{w: bw}

	ww.putBytes([]byte(serializeMagic))
	ww.putUint32(uint32(l.ringCap))

	l.serializeTime = timeNow()
	putTimeStamp(ww, l.serializeTime)
	putTimeStamp(ww, l.initTime)

	ww.putUint32(uint32(len(l.types)))
	for i := range l.types {
		t := &l.types[i]
		ww.putString(t.Format)
		ww.putString(t.FormatArgs)
		ww.putUint32(t.typeIndexPlusOne)
		ww.putUint32(uint32(len(t.EnumStrings)))
		for _, s := range t.EnumStrings {
			ww.putString(s)
		}
	}

	ww.putUint32(uint32(len(l.tracks)))
	for i := range l.tracks {
		ww.putString(l.tracks[i].Name)
	}

	events := l.Events()
	ww.putUint32(uint32(len(events)))
	for i := range events {
		if err := l.serializeEvent(ww, &events[i]); err != nil {
			return err
		}
	}

	return ww.flush()
}

// serializeEvent re-encodes one event's payload onto the wire under its
// type's descriptor.
func (l *Log) serializeEvent(ww *wireWriter, e *Event) error {
	if int(e.Type) >= len(l.types) {
		return errors.New(ErrCodeIndexRange, "event type index out of range")
	}
	t := &l.types[e.Type]

	ww.putUint16(e.Type)
	ww.putUint16(e.Track)
	ww.putFloat64(e.Time)

	d := e.Data[:]
	off := 0
	for i := 0; i < len(t.FormatArgs); i++ {
		code := t.FormatArgs[i]
		if code == argString {
			end := off
			for end < len(d) && d[end] != 0 {
				end++
			}
			ww.putString(string(d[off:end]))
			off = end + 1
			continue
		}
		size := argSize(code)
		if size == 0 {
			return errors.New(ErrCodeBadDescriptor, "unknown descriptor code")
		}
		if off+size > len(d) {
			return errors.New(ErrCodePayloadOverflow, "descriptor runs past end of event data")
		}
		switch code {
		case argUint8:
			ww.putUint8(d[off])
		case argUint16:
			ww.putUint16(binary.LittleEndian.Uint16(d[off:]))
		case argUint32, argEnum:
			ww.putUint32(binary.LittleEndian.Uint32(d[off:]))
		case argUint64:
			ww.putUint64(binary.LittleEndian.Uint64(d[off:]))
		case argFloat32:
			ww.putFloat32(math.Float32frombits(binary.LittleEndian.Uint32(d[off:])))
		case argFloat64:
			ww.putFloat64(math.Float64frombits(binary.LittleEndian.Uint64(d[off:])))
		}
		off += size
	}
	return nil
}

// Deserialize replaces l's contents with the log read from r. On error
// the caller should discard l: partial state is not rolled back.
func (l *Log) Deserialize(r io.Reader) error {
	return l.deserializeFrom(bufiox.NewDefaultReader(r))
}

// DeserializeBytes deserializes from an in-memory envelope.
func (l *Log) DeserializeBytes(b []byte) error {
	return l.deserializeFrom(bufiox.NewBytesReader(b))
}

func (l *Log) deserializeFrom(br bufiox.Reader) error {
	rr := &wireReader{r: br}
	defer rr.release()

	rr.checkMagic(serializeMagic)

	ringCap := rr.getUint32()
	if rr.err != nil {
		return rr.err
	}
	if ringCap > maxRingCapacity {
		return errors.New(ErrCodeTruncatedLog, "serialized ring capacity out of range")
	}
	l.reinit(uint64(ringCap))

	l.serializeTime = getTimeStamp(rr)
	l.initTime = getTimeStamp(rr)
	l.nsecPerCPUClock = nsecPerClock(l.initTime, l.serializeTime)
	l.secondsPerClock = l.nsecPerCPUClock * 1e-9

	nTypes := rr.getUint32()
	if rr.err != nil {
		return rr.err
	}
	if nTypes > maxWireString {
		return errors.New(ErrCodeTruncatedLog, "serialized type count out of range")
	}
	l.types = make([]EventType, 0, nTypes)
	for i := uint32(0); i < nTypes; i++ {
		t := EventType{
			Format:     rr.getString(),
			FormatArgs: rr.getString(),
		}
		t.typeIndexPlusOne = rr.getUint32()
		nEnum := rr.getUint32()
		if rr.err != nil {
			return rr.err
		}
		if nEnum > maxWireString {
			return errors.New(ErrCodeTruncatedLog, "serialized enum count out of range")
		}
		// A descriptor code this reader does not know is fatal: the
		// payload bytes that follow could not be framed.
		if err := validFormatArgs(t.FormatArgs); err != nil {
			return err
		}
		for j := uint32(0); j < nEnum; j++ {
			t.EnumStrings = append(t.EnumStrings, rr.getString())
		}
		l.types = append(l.types, t)
		l.typesByFormat[t.Format] = int(i)
	}

	nTracks := rr.getUint32()
	if rr.err != nil {
		return rr.err
	}
	if nTracks > maxWireString {
		return errors.New(ErrCodeTruncatedLog, "serialized track count out of range")
	}
	l.tracks = make([]Track, 0, nTracks)
	for i := uint32(0); i < nTracks; i++ {
		l.tracks = append(l.tracks, Track{
			Name:              rr.getString(),
			trackIndexPlusOne: i + 1,
		})
	}
	if len(l.tracks) > 0 {
		l.defaultTrack = l.tracks[0]
	}

	nEvents := rr.getUint32()
	if rr.err != nil {
		return rr.err
	}
	if nEvents > maxRingCapacity {
		return errors.New(ErrCodeTruncatedLog, "serialized event count out of range")
	}
	events := make([]Event, 0, nEvents)
	for i := uint32(0); i < nEvents; i++ {
		e, err := l.deserializeEvent(rr)
		if err != nil {
			return err
		}
		events = append(events, e)
	}
	l.events = events

	return rr.err
}

// deserializeEvent reads one event, re-packing the payload into the
// record's little-endian in-memory form.
func (l *Log) deserializeEvent(rr *wireReader) (Event, error) {
	var e Event
	e.Type = rr.getUint16()
	e.Track = rr.getUint16()
	e.Time = rr.getFloat64()
	if rr.err != nil {
		return e, rr.err
	}
	if int(e.Type) >= len(l.types) {
		return e, errors.New(ErrCodeIndexRange, "serialized event type index out of range")
	}
	if int(e.Track) >= len(l.tracks) {
		return e, errors.New(ErrCodeIndexRange, "serialized event track index out of range")
	}

	t := &l.types[e.Type]
	d := e.Data[:]
	off := 0
	for i := 0; i < len(t.FormatArgs); i++ {
		code := t.FormatArgs[i]
		if code == argString {
			s := rr.getString()
			if rr.err != nil {
				return e, rr.err
			}
			if off+len(s)+1 > len(d) {
				return e, errors.New(ErrCodePayloadOverflow, "serialized string exceeds event data size")
			}
			copy(d[off:], s)
			off += len(s) + 1
			continue
		}
		size := argSize(code)
		if size == 0 {
			return e, errors.New(ErrCodeBadDescriptor, "unknown descriptor code")
		}
		if off+size > len(d) {
			return e, errors.New(ErrCodePayloadOverflow, "descriptor runs past end of event data")
		}
		switch code {
		case argUint8:
			d[off] = rr.getUint8()
		case argUint16:
			binary.LittleEndian.PutUint16(d[off:], rr.getUint16())
		case argUint32, argEnum:
			binary.LittleEndian.PutUint32(d[off:], rr.getUint32())
		case argUint64:
			binary.LittleEndian.PutUint64(d[off:], rr.getUint64())
		case argFloat32:
			binary.LittleEndian.PutUint32(d[off:], math.Float32bits(rr.getFloat32()))
		case argFloat64:
			binary.LittleEndian.PutUint64(d[off:], math.Float64bits(rr.getFloat64()))
		}
		off += size
	}
	return e, rr.err
}

// reinit resets l to an empty log with the given (already power-of-two)
// ring capacity, preserving creation-time behavior knobs.
func (l *Log) reinit(ringCap uint64) {
	l.ring = nil
	l.ringCap = 0
	if ringCap > 0 {
		l.ringCap = nextPow2(ringCap)
		l.ring = make([]Event, l.ringCap)
	}
	l.nTotalEvents = 0
	l.types = nil
	l.typesByFormat = make(map[string]int)
	l.tracks = nil
	l.events = nil
}

func putTimeStamp(ww *wireWriter, ts timeStamp) {
	ww.putUint64(ts.osNsec)
	ww.putUint64(ts.cpu)
}

func getTimeStamp(rr *wireReader) timeStamp {
	return timeStamp{
		osNsec: rr.getUint64(),
		cpu:    rr.getUint64(),
	}
}

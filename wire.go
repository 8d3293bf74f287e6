// wire.go: Byte-level serializer primitives over bufiox
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package clio

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/agilira/go-errors"
	"github.com/cloudwego/gopkg/bufiox"
)

// maxWireString bounds a length prefix read from the wire; anything
// larger is treated as corruption rather than allocated.
const maxWireString = 1 << 20

// wireWriter writes big-endian primitives through a bufiox.Writer with a
// sticky first error, so envelope code can stay linear instead of
// checking every put.
type wireWriter struct {
	w   bufiox.Writer
	err error
}

func (w *wireWriter) malloc(n int) []byte {
	if w.err != nil {
		return nil
	}
	buf, err := w.w.Malloc(n)
	if err != nil {
		w.err = errors.Wrap(err, ErrCodeWriteFailed, "serialize buffer write failed")
		return nil
	}
	return buf
}

func (w *wireWriter) putBytes(b []byte) {
	if w.err != nil {
		return
	}
	if _, err := w.w.WriteBinary(b); err != nil {
		w.err = errors.Wrap(err, ErrCodeWriteFailed, "serialize buffer write failed")
	}
}

func (w *wireWriter) putUint8(v uint8) {
	if b := w.malloc(1); b != nil {
		b[0] = v
	}
}

func (w *wireWriter) putUint16(v uint16) {
	if b := w.malloc(2); b != nil {
		binary.BigEndian.PutUint16(b, v)
	}
}

func (w *wireWriter) putUint32(v uint32) {
	if b := w.malloc(4); b != nil {
		binary.BigEndian.PutUint32(b, v)
	}
}

func (w *wireWriter) putUint64(v uint64) {
	if b := w.malloc(8); b != nil {
		binary.BigEndian.PutUint64(b, v)
	}
}

func (w *wireWriter) putFloat32(v float32) {
	w.putUint32(math.Float32bits(v))
}

func (w *wireWriter) putFloat64(v float64) {
	w.putUint64(math.Float64bits(v))
}

// putString writes a u32 length prefix followed by the raw bytes.
func (w *wireWriter) putString(s string) {
	w.putUint32(uint32(len(s)))
	w.putBytes([]byte(s))
}

func (w *wireWriter) flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.w.Flush(); err != nil {
		return errors.Wrap(err, ErrCodeWriteFailed, "serialize flush failed")
	}
	return nil
}

// wireReader mirrors wireWriter: big-endian primitives through a
// bufiox.Reader with a sticky first error. Short reads surface as
// truncation.
type wireReader struct {
	r   bufiox.Reader
	err error
}

func (r *wireReader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	buf, err := r.r.Next(n)
	if err != nil {
		r.err = errors.Wrap(err, ErrCodeTruncatedLog, "serialized log truncated")
		return nil
	}
	return buf
}

func (r *wireReader) getUint8() uint8 {
	if b := r.next(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *wireReader) getUint16() uint16 {
	if b := r.next(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *wireReader) getUint32() uint32 {
	if b := r.next(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *wireReader) getUint64() uint64 {
	if b := r.next(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (r *wireReader) getFloat32() float32 {
	return math.Float32frombits(r.getUint32())
}

func (r *wireReader) getFloat64() float64 {
	return math.Float64frombits(r.getUint64())
}

func (r *wireReader) getString() string {
	n := r.getUint32()
	if r.err != nil {
		return ""
	}
	if n > maxWireString {
		r.err = errors.New(ErrCodeTruncatedLog, "serialized string length out of range")
		return ""
	}
	b := r.next(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

// checkMagic consumes len(magic) bytes and requires an exact match.
func (r *wireReader) checkMagic(magic string) {
	b := r.next(len(magic))
	if b == nil {
		if r.err != nil {
			r.err = errors.New(ErrCodeBadMagic, "serialized log magic missing")
		}
		return
	}
	if !bytes.Equal(b, []byte(magic)) {
		r.err = errors.New(ErrCodeBadMagic, "serialized log magic mismatch")
	}
}

func (r *wireReader) release() {
	_ = r.r.Release(r.err)
}

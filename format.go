// format.go: Text rendering of decoded events
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package clio

import (
	"fmt"

	"github.com/agilira/clio/internal/bufferpool"
	"github.com/agilira/go-errors"
)

// FormatEvent renders e as one line of text: the payload is decoded
// under the type's descriptor and passed through the type's printf-style
// format. Zero-argument formats render verbatim; enum arguments render
// as their table string.
//
// A record whose payload does not decode under its descriptor is a
// programming error at the emit site; it is reported through the package
// error handler and rendered as the bare format string.
func (l *Log) FormatEvent(e *Event) string {
	if int(e.Type) >= len(l.types) {
		handleError(errors.New(ErrCodeIndexRange, "event type index out of range"))
		return ""
	}
	t := &l.types[e.Type]

	args, err := decodeArgs(e.Data[:], t)
	if err != nil {
		handleErr(err)
		return t.Format
	}
	if len(args) == 0 {
		return t.Format
	}

	buf := bufferpool.Get()
	defer bufferpool.Put(buf)
	fmt.Fprintf(buf, t.Format, args...)
	return buf.String()
}

// FormatTrack renders the name of e's track.
func (l *Log) FormatTrack(e *Event) string {
	if int(e.Track) >= len(l.tracks) {
		handleError(errors.New(ErrCodeIndexRange, "event track index out of range"))
		return ""
	}
	return l.tracks[e.Track].Name
}

// registry.go: Event type and track registries
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package clio

// EventType describes one kind of event. Types are interned into a Log
// by RegisterType; after registration the Log owns its copy and the
// format, descriptor and enum table of that copy are immutable.
type EventType struct {
	// Format is the printf-style template rendered for each event,
	// e.g. "rx pkt len=%d hdr=%s".
	Format string

	// FormatArgs is the descriptor string: one code per argument (see
	// codec.go). Left empty, it is inferred from Format at registration.
	FormatArgs string

	// Function is an optional annotation; when present it is prepended
	// to Format with a space at intern time, and the combined string is
	// the dedup key.
	Function string

	// EnumStrings is the table referenced by 't' descriptor codes.
	EnumStrings []string

	// typeIndexPlusOne is index+1 in the owning Log, stamped on the
	// caller's value at registration. Zero means "not yet registered",
	// which is what lets emit sites lazily register package-level types.
	typeIndexPlusOne uint32
}

// Track is a named lane of events, typically a CPU or a subsystem,
// carried alongside each record for display grouping. Track 0 of every
// Log is the default track, named "default".
type Track struct {
	Name string

	trackIndexPlusOne uint32
}

// canonicalFormat is the intern key: the function annotation, when
// present, folded into the format string.
func canonicalFormat(t *EventType) string {
	if t.Function != "" {
		return t.Function + " " + t.Format
	}
	return t.Format
}

// RegisterType interns t and returns its dense index. Registering a type
// whose canonical format is already present returns the existing index
// without adding an entry, so identical types declared from different
// call sites coalesce. t is rewritten in place: Format is canonicalized,
// FormatArgs is filled in when it was inferred, and the registered
// sentinel is stamped.
//
// Indices are dense, monotonically assigned, and never move.
func (l *Log) RegisterType(t *EventType) int {
	if t.FormatArgs == "" {
		t.FormatArgs = inferFormatArgs(t.Format)
	}
	if err := validFormatArgs(t.FormatArgs); err != nil {
		// Registering a malformed descriptor is a programming error;
		// report it and refuse the registration.
		handleErr(err)
		return -1
	}
	t.Format = canonicalFormat(t)
	t.Function = ""

	if i, ok := l.typesByFormat[t.Format]; ok {
		t.typeIndexPlusOne = uint32(i) + 1
		return i
	}

	i := len(l.types)
	own := EventType{
		Format:           t.Format,
		FormatArgs:       t.FormatArgs,
		EnumStrings:      append([]string(nil), t.EnumStrings...),
		typeIndexPlusOne: uint32(i) + 1,
	}
	l.types = append(l.types, own)
	l.typesByFormat[own.Format] = i

	t.typeIndexPlusOne = uint32(i) + 1
	return i
}

// findOrCreateType interns an already-canonicalized type coming from
// another Log (Merge), bypassing inference.
func (l *Log) findOrCreateType(t *EventType) int {
	if i, ok := l.typesByFormat[t.Format]; ok {
		return i
	}
	i := len(l.types)
	own := EventType{
		Format:           t.Format,
		FormatArgs:       t.FormatArgs,
		EnumStrings:      append([]string(nil), t.EnumStrings...),
		typeIndexPlusOne: uint32(i) + 1,
	}
	l.types = append(l.types, own)
	l.typesByFormat[own.Format] = i
	return i
}

// RegisterTrack registers tr and returns its dense index. Tracks are
// keyed by insertion order only; there is no dedup.
func (l *Log) RegisterTrack(tr *Track) int {
	i := len(l.tracks)
	l.tracks = append(l.tracks, Track{
		Name:              tr.Name,
		trackIndexPlusOne: uint32(i) + 1,
	})
	tr.trackIndexPlusOne = uint32(i) + 1
	return i
}

// NumTypes returns the number of interned event types.
func (l *Log) NumTypes() int { return len(l.types) }

// NumTracks returns the number of registered tracks.
func (l *Log) NumTracks() int { return len(l.tracks) }

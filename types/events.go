// Package types defines core domain types for the OmniAlpha stream consumer.
//
//nolint:revive // types is a common Go package naming convention
package types

import "fmt"

// EventKind is the wire discriminator of a decoded event.
type EventKind string

// Scan protocol event kinds, matching the `type` field of NDJSON records.
const (
	EventKindMeta     EventKind = "meta"
	EventKindProgress EventKind = "progress"
	EventKindMatch    EventKind = "match"
	EventKindError    EventKind = "error"
	EventKindDone     EventKind = "done"
)

// Chat protocol event kinds. These never appear as a `type` field on the wire:
// a fragment is any `data:` payload and end is the [DONE] sentinel.
const (
	EventKindFragment EventKind = "fragment"
	EventKindEnd      EventKind = "end"
)

// ChatDoneSentinel is the in-band terminator of a chat stream.
const ChatDoneSentinel = "[DONE]"

// IsTerminal returns true if the event kind ends a job successfully.
func (k EventKind) IsTerminal() bool {
	return k == EventKindDone || k == EventKindEnd
}

// Event is a decoded job event. The set of implementations is closed:
// only the variants in this file satisfy it.
type Event interface {
	// Kind returns the event discriminator.
	Kind() EventKind
	sealed()
}

// Meta announces that the stream opened, optionally declaring the number of
// items the server expects to process.
type Meta struct {
	Message string `json:"message" msgpack:"message"`
	Total   *int   `json:"total,omitempty" msgpack:"total,omitempty"`
}

// Progress reports the number of items processed so far.
type Progress struct {
	Current int `json:"current" msgpack:"current"`
}

// Match is one scan hit. Record is passed through as sent by the server.
type Match struct {
	Record Record `json:"data" msgpack:"data"`
}

// ReportedError is a non-fatal, server-reported fault for a single item.
type ReportedError struct {
	Message string `json:"message" msgpack:"message"`
	// Code is the instrument the error relates to, when the server names one.
	Code string `json:"code,omitempty" msgpack:"code,omitempty"`
}

// Done is the explicit successful terminator of a scan stream.
type Done struct {
	TotalScanned *int `json:"total_scanned,omitempty" msgpack:"total_scanned,omitempty"`
}

// Fragment is a piece of generated chat text.
type Fragment struct {
	Text string `json:"text" msgpack:"text"`
}

// End marks the [DONE] sentinel of a chat stream.
type End struct{}

func (Meta) Kind() EventKind          { return EventKindMeta }
func (Progress) Kind() EventKind      { return EventKindProgress }
func (Match) Kind() EventKind         { return EventKindMatch }
func (ReportedError) Kind() EventKind { return EventKindError }
func (Done) Kind() EventKind          { return EventKindDone }
func (Fragment) Kind() EventKind      { return EventKindFragment }
func (End) Kind() EventKind           { return EventKindEnd }

func (Meta) sealed()          {}
func (Progress) sealed()      {}
func (Match) sealed()         {}
func (ReportedError) sealed() {}
func (Done) sealed()          {}
func (Fragment) sealed()      {}
func (End) sealed()           {}

// Record is an opaque, server-defined match payload.
type Record map[string]any

// Code returns the instrument code of the record, or "" if absent.
func (r Record) Code() string {
	return r.stringField("code")
}

// Name returns the instrument name of the record, or "" if absent.
func (r Record) Name() string {
	return r.stringField("name")
}

func (r Record) stringField(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

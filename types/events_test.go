package types //nolint:revive // types is a valid package name

import (
	"testing"
)

func TestEventKind_IsTerminal(t *testing.T) {
	tests := []struct {
		kind EventKind
		want bool
	}{
		{EventKindDone, true},
		{EventKindEnd, true},
		{EventKindMeta, false},
		{EventKindProgress, false},
		{EventKindMatch, false},
		{EventKindError, false},
		{EventKindFragment, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got := tt.kind.IsTerminal()
			if got != tt.want {
				t.Errorf("EventKind(%q).IsTerminal() = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestEvent_Kinds(t *testing.T) {
	tests := []struct {
		event Event
		want  EventKind
	}{
		{Meta{Message: "Starting scan"}, EventKindMeta},
		{Progress{Current: 3}, EventKindProgress},
		{Match{Record: Record{"code": "600000"}}, EventKindMatch},
		{ReportedError{Message: "boom"}, EventKindError},
		{Done{}, EventKindDone},
		{Fragment{Text: "Hel"}, EventKindFragment},
		{End{}, EventKindEnd},
	}

	for _, tt := range tests {
		if got := tt.event.Kind(); got != tt.want {
			t.Errorf("%T.Kind() = %q, want %q", tt.event, got, tt.want)
		}
	}
}

func TestRecord_Accessors(t *testing.T) {
	r := Record{"code": "600000", "name": "浦发银行", "score": 1.5}
	if r.Code() != "600000" {
		t.Errorf("Code() = %q, want %q", r.Code(), "600000")
	}
	if r.Name() != "浦发银行" {
		t.Errorf("Name() = %q, want %q", r.Name(), "浦发银行")
	}

	numeric := Record{"code": 1}
	if numeric.Code() != "1" {
		t.Errorf("Code() on numeric = %q, want %q", numeric.Code(), "1")
	}

	if (Record{}).Name() != "" {
		t.Error("Name() on empty record should be empty")
	}
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r := Record{"code": "600000"}
	c := r.Clone()
	c["code"] = "000001"
	if r.Code() != "600000" {
		t.Errorf("original mutated through clone: %q", r.Code())
	}
	if Record(nil).Clone() != nil {
		t.Error("Clone of nil record should be nil")
	}
}

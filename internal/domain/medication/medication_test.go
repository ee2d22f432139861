package medication

import (
	"errors"
	"testing"
)

func TestListAdd(t *testing.T) {
	tests := []struct {
		name                  string
		inName, dose, freq    string
		wantErr               error
		wantLen, wantRevision int
	}{
		{"name_only", "Aspirin", "", "", nil, 1, 1},
		{"full_entry", "Aspirin", "81mg", "daily", nil, 1, 1},
		{"trims_whitespace", "  Aspirin  ", " 81mg ", "", nil, 1, 1},
		{"all_empty_silent_noop", "", "", "", nil, 0, 0},
		{"whitespace_only_silent_noop", "   ", " ", "", nil, 0, 0},
		{"missing_name_rejected", "", "5mg", "", ErrNameRequired, 0, 0},
		{"missing_name_with_frequency", "", "", "daily", ErrNameRequired, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewList()
			err := l.Add(tt.inName, tt.dose, tt.freq)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Add() error = %v, want %v", err, tt.wantErr)
			}
			if l.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", l.Len(), tt.wantLen)
			}
			if l.Revision() != tt.wantRevision {
				t.Errorf("Revision() = %d, want %d", l.Revision(), tt.wantRevision)
			}
		})
	}
}

func TestEntryDisplay(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{"full", Entry{Name: "Aspirin", Dose: "81mg", Frequency: "daily"}, "Aspirin — 81mg — daily"},
		{"name_only_no_trailing_separators", Entry{Name: "Aspirin"}, "Aspirin"},
		{"name_and_frequency", Entry{Name: "Aspirin", Frequency: "daily"}, "Aspirin — daily"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Display(); got != tt.want {
				t.Errorf("Display() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListRemove(t *testing.T) {
	l := NewList()
	for _, name := range []string{"A", "B", "C"} {
		if err := l.Add(name, "", ""); err != nil {
			t.Fatal(err)
		}
	}

	if err := l.Remove(1); err != nil {
		t.Fatalf("Remove(1) error = %v", err)
	}
	names := l.Names()
	if len(names) != 2 || names[0] != "A" || names[1] != "C" {
		t.Errorf("Names() after remove = %v, want [A C]", names)
	}
	if l.Revision() != 4 {
		t.Errorf("Revision() = %d, want 4", l.Revision())
	}

	if err := l.Remove(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Remove(5) error = %v, want ErrIndexOutOfRange", err)
	}
	if err := l.Remove(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Remove(-1) error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestListSerializationRoundTrip(t *testing.T) {
	l := NewList()
	if err := l.Add("Aspirin", "81mg", "daily"); err != nil {
		t.Fatal(err)
	}
	if err := l.Add("Lisinopril", "", ""); err != nil {
		t.Fatal(err)
	}

	parsed := Parse(l.JSON())
	if parsed.Len() != 2 {
		t.Fatalf("parsed Len() = %d, want 2", parsed.Len())
	}
	got := parsed.Entries()
	if got[0].Dose != "81mg" || got[1].Name != "Lisinopril" {
		t.Errorf("parsed entries = %+v", got)
	}

	flat := l.DisplayStrings()
	if flat[0] != "Aspirin — 81mg — daily" || flat[1] != "Lisinopril" {
		t.Errorf("DisplayStrings() = %v", flat)
	}
}

func TestParseTolerantOfGarbage(t *testing.T) {
	for _, raw := range []string{"", "not json", "{\"name\":1}"} {
		l := Parse(raw)
		if l.Len() != 0 {
			t.Errorf("Parse(%q).Len() = %d, want 0", raw, l.Len())
		}
	}
}

func TestEmptyListJSON(t *testing.T) {
	if got := NewList().JSON(); got != "[]" {
		t.Errorf("empty list JSON = %q, want []", got)
	}
}

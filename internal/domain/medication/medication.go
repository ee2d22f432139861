package medication

import (
	"encoding/json"
	"strings"
)

// Entry is one medication as entered on the intake form. Only the name is
// required; dose and frequency are free text.
type Entry struct {
	Name      string `json:"name"`
	Dose      string `json:"dose"`
	Frequency string `json:"frequency"`
}

// Display renders the chip text: non-empty parts joined with an em-dash
// separator, e.g. "Aspirin — 81mg — daily" or just "Aspirin".
func (e Entry) Display() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Name, e.Dose, e.Frequency} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " — ")
}

// List is an ordered medication list scoped to one intake page. Two
// independent instances exist per intake: current medications and new
// prescriptions.
type List struct {
	entries  []Entry
	revision int
}

func NewList() *List {
	return &List{}
}

// Add appends a trimmed entry. An entirely empty row is a silent no-op;
// a row with content but no name is rejected with ErrNameRequired so the
// caller can refocus the name field.
func (l *List) Add(name, dose, frequency string) error {
	name = strings.TrimSpace(name)
	dose = strings.TrimSpace(dose)
	frequency = strings.TrimSpace(frequency)

	if name == "" && dose == "" && frequency == "" {
		return nil
	}
	if name == "" {
		return ErrNameRequired
	}

	l.entries = append(l.entries, Entry{Name: name, Dose: dose, Frequency: frequency})
	l.revision++
	return nil
}

// Remove splices out the entry at index i.
func (l *List) Remove(i int) error {
	if i < 0 || i >= len(l.entries) {
		return ErrIndexOutOfRange
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	l.revision++
	return nil
}

func (l *List) Len() int {
	return len(l.entries)
}

// Revision increments on every mutation; callers compare revisions to
// detect the "changed" notification.
func (l *List) Revision() int {
	return l.revision
}

func (l *List) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Names returns the non-empty medication names, the shape the interaction
// check endpoint expects.
func (l *List) Names() []string {
	names := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Name != "" {
			names = append(names, e.Name)
		}
	}
	return names
}

// JSON serializes the list to the hidden-field JSON array form.
func (l *List) JSON() string {
	b, err := json.Marshal(l.entriesOrEmpty())
	if err != nil {
		return "[]"
	}
	return string(b)
}

// DisplayStrings is the flattened display-string array, the second hidden
// field read at submit time.
func (l *List) DisplayStrings() []string {
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Display()
	}
	return out
}

func (l *List) entriesOrEmpty() []Entry {
	if l.entries == nil {
		return []Entry{}
	}
	return l.entries
}

// Parse rebuilds a list from its serialized JSON form. Malformed input
// yields an empty list rather than an error; the stored value is not a
// firm contract.
func Parse(raw string) *List {
	var entries []Entry
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			entries = nil
		}
	}
	l := &List{entries: entries}
	return l
}

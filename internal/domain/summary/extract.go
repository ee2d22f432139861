// Package summary extracts the reviewable field set out of the
// transcript/summary payloads returned by the AI backend. The payload
// shape is not a firm contract: every field may arrive as a string, an
// array, a nested object, or a stringified JSON blob, under any of several
// historical key names. Extraction is a ranked list of candidate key paths
// per field, with an optional fuzzy key-pattern fallback.
package summary

import (
	"regexp"
	"sort"
	"strings"
)

// Field identifies one reviewable summary field.
type Field string

const (
	FieldAllergies    Field = "allergies"
	FieldSymptoms     Field = "symptoms"
	FieldDiagnosis    Field = "diagnosis"
	FieldMedications  Field = "medications"
	FieldInstructions Field = "instructions"
	FieldNotes        Field = "notes"
)

// Fields lists the reviewable fields in display order.
var Fields = []Field{
	FieldAllergies,
	FieldSymptoms,
	FieldDiagnosis,
	FieldMedications,
	FieldInstructions,
	FieldNotes,
}

// extractor binds a field to its ranked candidate paths (first non-empty
// match wins) and the fuzzy key pattern tried when every path misses.
type extractor struct {
	field Field
	paths []string
	fuzzy *regexp.Regexp
}

var extractors = []extractor{
	{FieldAllergies, []string{"allergies"}, regexp.MustCompile(`(?i)allerg`)},
	{FieldSymptoms, []string{"symptoms"}, regexp.MustCompile(`(?i)symptom`)},
	{FieldDiagnosis, []string{"diagnosis"}, regexp.MustCompile(`(?i)diagnos`)},
	{FieldMedications, []string{"medication", "medications"}, regexp.MustCompile(`(?i)medic(at|ine)|rx|meds`)},
	{FieldInstructions, []string{"follow-up-instructions", "instructions", "follow_up_instructions"}, regexp.MustCompile(`(?i)instruct|follow[-_\s]?up`)},
	{FieldNotes, []string{"notes", "additional_notes"}, regexp.MustCompile(`(?i)note`)},
}

var transcriptPaths = []string{"transcript", "text", "summary.transcript"}

// View is the flattened field set extracted from one payload. Values hold
// the raw picked values (still arrays/objects where the payload had them);
// rendering to display text happens separately so transformation requests
// can re-send the raw shapes.
type View struct {
	Transcript string
	Values     map[Field]any
}

// Extract pulls the field set out of a decoded payload. When fuzzy is
// true, fields whose candidate paths all miss fall back to a recursive
// key-pattern search over the whole summary.
func Extract(payload map[string]any, fuzzy bool) *View {
	summaryObj := payload
	if s, ok := payload["summary"].(map[string]any); ok && len(s) > 0 {
		summaryObj = s
	}

	v := &View{Values: make(map[Field]any, len(extractors))}
	v.Transcript = Stringify(pick(payload, transcriptPaths))

	for _, ex := range extractors {
		val := pick(summaryObj, ex.paths)
		if isEmpty(val) && fuzzy && ex.fuzzy != nil {
			val = findByKeyLike(summaryObj, ex.fuzzy)
		}
		if isEmpty(val) {
			val = ""
		}
		v.Values[ex.field] = val
	}
	return v
}

// Rendered formats one field for display.
func (v *View) Rendered(f Field) string {
	return FormatValue(v.Values[f])
}

// BaseSource rebuilds the canonical {transcript, summary} body sent to the
// simplify/translate endpoints. Raw values pass through so the backend
// sees the same shapes it produced.
func (v *View) BaseSource() map[string]any {
	summary := make(map[string]any, len(Fields))
	for _, f := range Fields {
		val := v.Values[f]
		if val == nil {
			val = ""
		}
		summary[string(f)] = val
	}
	return map[string]any{
		"transcript": v.Transcript,
		"summary":    summary,
	}
}

// valueAt walks a dot-separated path through nested objects.
func valueAt(obj map[string]any, path string) any {
	var cur any = obj
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[key]
		if !ok {
			return nil
		}
	}
	return cur
}

// pick returns the first non-empty value among the candidate paths.
func pick(obj map[string]any, paths []string) any {
	for _, p := range paths {
		if v := valueAt(obj, p); !isEmpty(v) {
			return v
		}
	}
	return nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	}
	return false
}

// findByKeyLike searches the payload recursively for the first non-empty
// value under a key matching re. Map keys are visited in sorted order so
// the result is deterministic.
func findByKeyLike(obj any, re *regexp.Regexp) any {
	var walk func(o any) any
	walk = func(o any) any {
		switch t := o.(type) {
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if re.MatchString(k) && !isEmpty(t[k]) {
					return t[k]
				}
			}
			for _, k := range keys {
				if found := walk(t[k]); found != nil {
					return found
				}
			}
		case []any:
			for _, item := range t {
				if found := walk(item); found != nil {
					return found
				}
			}
		}
		return nil
	}
	return walk(obj)
}

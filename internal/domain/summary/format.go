package summary

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// ParseMaybeJSON re-parses a string that looks like a stringified JSON
// array or object; anything else passes through unchanged.
func ParseMaybeJSON(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	t := strings.TrimSpace(s)
	if t == "" {
		return t
	}
	looksJSON := (strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]")) ||
		(strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}"))
	if looksJSON {
		var parsed any
		if err := json.Unmarshal([]byte(t), &parsed); err == nil {
			return parsed
		}
	}
	return s
}

// FormatValue renders a tolerant payload value as display text:
// arrays become one bullet per element; objects carrying name/dose/
// frequency render as that ordered triplet (omitting empty parts); other
// objects render key: value bullets; delimited strings split into bullets
// when more than one segment results; everything else is plain text.
func FormatValue(v any) string {
	return formatValue(v, 0)
}

func formatValue(v any, indent int) string {
	v = ParseMaybeJSON(v)
	pad := strings.Repeat("  ", indent)

	switch t := v.(type) {
	case []any:
		lines := make([]string, 0, len(t))
		for _, item := range t {
			switch item.(type) {
			case map[string]any, []any:
				lines = append(lines, formatValue(item, indent))
			default:
				lines = append(lines, pad+"• "+formatValue(item, indent+1))
			}
		}
		return strings.Join(lines, "\n")

	case map[string]any:
		if hasDoseShape(t) {
			lines := make([]string, 0, 3)
			for _, k := range []string{"name", "dose", "frequency"} {
				if val, ok := t[k]; ok && !isEmpty(val) {
					lines = append(lines, pad+"• "+k+": "+Stringify(val))
				}
			}
			return strings.Join(lines, "\n")
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			switch t[k].(type) {
			case map[string]any, []any:
				lines = append(lines, pad+"• "+k+": "+"\n"+formatValue(t[k], indent+1))
			default:
				lines = append(lines, pad+"• "+k+": "+Stringify(t[k]))
			}
		}
		return strings.Join(lines, "\n")

	case string:
		if strings.ContainsAny(t, "\n,") {
			parts := splitSegments(t)
			if len(parts) > 1 {
				for i, p := range parts {
					parts[i] = "• " + p
				}
				return strings.Join(parts, "\n")
			}
		}
		return t
	}

	return Stringify(v)
}

func hasDoseShape(m map[string]any) bool {
	for _, k := range []string{"name", "dose", "frequency"} {
		if v, ok := m[k]; ok && !isEmpty(v) {
			return true
		}
	}
	return false
}

// splitSegments splits on newlines, and on commas that fall outside
// double-quoted runs, then trims and drops empty segments.
func splitSegments(s string) []string {
	var (
		segments []string
		cur      strings.Builder
		inQuotes bool
	)
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			segments = append(segments, t)
		}
		cur.Reset()
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case r == '\n':
			flush()
		case r == ',' && !inQuotes:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return segments
}

// Stringify coerces a payload value to a plain string the way the display
// layer expects: JSON numbers drop trailing zeros, composites fall back to
// their JSON encoding.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

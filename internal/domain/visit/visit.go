// Package visit shapes the patient's visit history into display cards and
// applies the list page's filters.
package visit

import (
	"strconv"
	"strings"
	"time"
)

// Fallback labels for visits with missing metadata.
const (
	UnnamedVisit  = "Unnamed Visit"
	UnknownClinic = "Unknown Clinic"
	UnknownDoctor = "Unknown Doctor"
)

// RangeAll disables date filtering.
const RangeAll = "all"

type Card struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Clinic     string `json:"clinic"`
	DoctorName string `json:"doctor_name"`

	// Date is the raw visit_date as stored; FormattedDate is the display
	// form, or "Invalid Date" when the raw value does not parse.
	Date          string `json:"date"`
	FormattedDate string `json:"formatted_date"`
}

// NewCard builds a display card, substituting fallbacks for missing
// fields. The doctors map translates doctor IDs to names.
func NewCard(id, name, clinic, doctorID, visitDate string, doctors map[string]string) Card {
	title := name
	if title == "" {
		title = UnnamedVisit
	}
	if clinic == "" {
		clinic = UnknownClinic
	}
	doctorName := doctors[doctorID]
	if doctorName == "" {
		doctorName = UnknownDoctor
	}

	formatted := "Invalid Date"
	if t, ok := parseDate(visitDate); ok {
		formatted = t.Format("Jan 2, 2006")
	}

	return Card{
		ID:            id,
		Title:         title,
		Clinic:        clinic,
		DoctorName:    doctorName,
		Date:          visitDate,
		FormattedDate: formatted,
	}
}

// Filter mirrors the list page controls: a free-text term matched against
// everything visible on the card, and a within-N-days range chip.
type Filter struct {
	Term  string
	Range string // "all" or a day count
}

// Matches reports whether the card passes both filter legs at now.
func (f Filter) Matches(c Card, now time.Time) bool {
	term := strings.ToLower(strings.TrimSpace(f.Term))
	if term != "" {
		hay := strings.ToLower(strings.Join([]string{
			c.DoctorName, c.Title, c.FormattedDate, c.Clinic,
		}, " "))
		if !strings.Contains(hay, term) {
			return false
		}
	}
	return f.withinRange(c, now)
}

func (f Filter) withinRange(c Card, now time.Time) bool {
	if f.Range == "" || f.Range == RangeAll {
		return true
	}
	days, err := strconv.Atoi(f.Range)
	if err != nil {
		return true
	}
	t, ok := parseDate(c.Date)
	if !ok {
		// Undated visits only show under "all".
		return false
	}
	return now.Sub(t) <= time.Duration(days)*24*time.Hour
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"Jan 2, 2006",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

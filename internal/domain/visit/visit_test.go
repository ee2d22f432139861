package visit

import (
	"testing"
	"time"
)

var doctors = map[string]string{"doc-1": "Dr. Chen"}

func TestNewCardFallbacks(t *testing.T) {
	tests := []struct {
		name string
		card Card
		want Card
	}{
		{
			"complete_visit",
			NewCard("v1", "Annual Physical", "Westside Clinic", "doc-1", "2026-03-10", doctors),
			Card{ID: "v1", Title: "Annual Physical", Clinic: "Westside Clinic", DoctorName: "Dr. Chen", Date: "2026-03-10", FormattedDate: "Mar 10, 2026"},
		},
		{
			"missing_everything",
			NewCard("v2", "", "", "doc-9", "", doctors),
			Card{ID: "v2", Title: UnnamedVisit, Clinic: UnknownClinic, DoctorName: UnknownDoctor, Date: "", FormattedDate: "Invalid Date"},
		},
		{
			"unparseable_date",
			NewCard("v3", "Check-in", "Clinic", "doc-1", "sometime-last-week", doctors),
			Card{ID: "v3", Title: "Check-in", Clinic: "Clinic", DoctorName: "Dr. Chen", Date: "sometime-last-week", FormattedDate: "Invalid Date"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.card != tt.want {
				t.Errorf("card = %+v, want %+v", tt.card, tt.want)
			}
		})
	}
}

func TestFilterMatches(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	recent := NewCard("v1", "Asthma Follow-up", "Westside Clinic", "doc-1", "2026-03-15", doctors)
	old := NewCard("v2", "Annual Physical", "Eastside Clinic", "doc-9", "2025-01-05", doctors)
	undated := NewCard("v3", "", "", "", "", doctors)

	tests := []struct {
		name   string
		filter Filter
		card   Card
		want   bool
	}{
		{"empty_filter_matches_all", Filter{Range: RangeAll}, old, true},
		{"term_matches_title", Filter{Term: "asthma", Range: RangeAll}, recent, true},
		{"term_matches_doctor", Filter{Term: "chen", Range: RangeAll}, recent, true},
		{"term_matches_clinic", Filter{Term: "eastside", Range: RangeAll}, old, true},
		{"term_miss", Filter{Term: "cardiology", Range: RangeAll}, recent, false},
		{"within_seven_days", Filter{Range: "7"}, recent, true},
		{"outside_seven_days", Filter{Range: "7"}, old, false},
		{"within_365_days", Filter{Range: "365"}, old, false},
		{"undated_hidden_by_range", Filter{Range: "30"}, undated, false},
		{"undated_shown_by_all", Filter{Range: RangeAll}, undated, true},
		{"term_and_range_both_apply", Filter{Term: "asthma", Range: "7"}, recent, true},
		{"term_hits_but_range_misses", Filter{Term: "annual", Range: "7"}, old, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.card, now); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echovisit/echovisit-web/internal/domain"
	"github.com/echovisit/echovisit-web/internal/domain/vitals"
	"github.com/echovisit/echovisit-web/internal/session"
)

func newTestIntake(t *testing.T, handler http.HandlerFunc) (*IntakeService, session.Store, uuid.UUID) {
	t.Helper()
	store := session.NewMemoryStore()
	rec, err := store.Create(context.Background(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	checker := NewInteractionChecker(newTestUpstream(t, handler), testMetrics, zap.NewNop())
	svc := NewIntakeService(store, checker, newTestAudit(), zap.NewNop())
	return svc, store, rec.ID
}

func intakeClaims(sid uuid.UUID) *domain.Claims {
	return &domain.Claims{SessionID: sid, Role: domain.RoleDoctor, UserID: "d1", Name: "Dr. Lee"}
}

func noUpstream(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call: %s", r.URL.Path)
	}
}

func cleanCheck(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, `{"has_issue": false, "interactions": []}`)
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func TestSavePatientLink(t *testing.T) {
	svc, store, sid := newTestIntake(t, noUpstream(t))
	ctx := context.Background()

	if err := svc.SavePatientLink(ctx, sid, " pat@example.com ", "1990-04-02"); err != nil {
		t.Fatalf("SavePatientLink() error = %v", err)
	}

	rec, _ := store.Get(ctx, sid)
	if rec.Values[session.KeyPatientEmail] != "pat@example.com" {
		t.Errorf("patient_email = %q", rec.Values[session.KeyPatientEmail])
	}
	if rec.Values[session.KeyPatientBirthday] != "1990-04-02" {
		t.Errorf("patient_birthday = %q", rec.Values[session.KeyPatientBirthday])
	}
}

func TestUpdateVitalsPersistsSnapshot(t *testing.T) {
	svc, store, sid := newTestIntake(t, noUpstream(t))
	ctx := context.Background()

	view, err := svc.UpdateVitals(ctx, sid, VitalsInput{
		HeightFeet:   intp(5),
		HeightInches: intp(10),
		Weight:       floatp(160),
		Unit:         vitals.UnitPounds,
		Systolic:     intp(120),
		Diastolic:    intp(80),
	})
	if err != nil {
		t.Fatalf("UpdateVitals() error = %v", err)
	}
	if view.BMIIndicator != "BMI 23 — Normal" {
		t.Errorf("bmi indicator = %q", view.BMIIndicator)
	}
	if view.BPIndicator != "BP 120/80 mmHg — Normal" {
		t.Errorf("bp indicator = %q", view.BPIndicator)
	}

	rec, _ := store.Get(ctx, sid)
	if rec.Values[session.KeyHeightIn] != "70" {
		t.Errorf("height_in = %q", rec.Values[session.KeyHeightIn])
	}
	if rec.Values[session.KeyWeightLb] != "160" {
		t.Errorf("weight_lb = %q", rec.Values[session.KeyWeightLb])
	}
	if rec.Values[session.KeyBMI] != "23" {
		t.Errorf("bmi = %q", rec.Values[session.KeyBMI])
	}
	if rec.Values[session.KeyBPSystolic] != "120" || rec.Values[session.KeyBPDiastolic] != "80" {
		t.Errorf("bp = %q/%q", rec.Values[session.KeyBPSystolic], rec.Values[session.KeyBPDiastolic])
	}
}

func TestUpdateVitalsIncompleteClearsKeys(t *testing.T) {
	svc, store, sid := newTestIntake(t, noUpstream(t))
	ctx := context.Background()

	if _, err := svc.UpdateVitals(ctx, sid, VitalsInput{
		HeightFeet:   intp(5),
		HeightInches: intp(10),
		Weight:       floatp(160),
		Unit:         vitals.UnitPounds,
	}); err != nil {
		t.Fatal(err)
	}

	// Mid-edit: the weight field was emptied.
	view, err := svc.UpdateVitals(ctx, sid, VitalsInput{
		HeightFeet:   intp(5),
		HeightInches: intp(10),
	})
	if err != nil {
		t.Fatal(err)
	}
	if view.BMI != nil || view.BMIIndicator != "" {
		t.Errorf("cleared view = %+v", view)
	}

	rec, _ := store.Get(ctx, sid)
	for _, key := range []string{session.KeyHeightIn, session.KeyWeightLb, session.KeyBMI} {
		if _, ok := rec.Values[key]; ok {
			t.Errorf("%s should be cleared", key)
		}
	}
}

func TestUpdateVitalsKilogramsStoredAsPounds(t *testing.T) {
	svc, store, sid := newTestIntake(t, noUpstream(t))
	ctx := context.Background()

	if _, err := svc.UpdateVitals(ctx, sid, VitalsInput{
		HeightFeet:   intp(5),
		HeightInches: intp(10),
		Weight:       floatp(72.6),
		Unit:         vitals.UnitKilograms,
	}); err != nil {
		t.Fatal(err)
	}

	rec, _ := store.Get(ctx, sid)
	if rec.Values[session.KeyWeightLb] != "160.1" {
		t.Errorf("weight_lb = %q, want kg converted to pounds", rec.Values[session.KeyWeightLb])
	}
}

func TestAddMedicationPersistsAndChecks(t *testing.T) {
	svc, store, sid := newTestIntake(t, cleanCheck)
	ctx := context.Background()

	view, err := svc.AddMedication(ctx, sid, MedListNew, "Aspirin", "81mg", "daily")
	if err != nil {
		t.Fatalf("AddMedication() error = %v", err)
	}
	if len(view.New) != 1 || view.New[0].Display != "Aspirin — 81mg — daily" {
		t.Errorf("new list = %+v", view.New)
	}
	if view.Check.Status != CheckStateChecking {
		t.Errorf("check status = %q, want checking", view.Check.Status)
	}

	rec, _ := store.Get(ctx, sid)
	if rec.Values[session.KeyNewMedsJSON] == "" {
		t.Error("new_meds_json not persisted")
	}
	if rec.Values[session.KeyCurrentMedsJSON] == "" {
		t.Error("current_meds_json not persisted")
	}
}

func TestAddMedicationAllEmptyIsNoOp(t *testing.T) {
	svc, _, sid := newTestIntake(t, noUpstream(t))

	view, err := svc.AddMedication(context.Background(), sid, MedListNew, "  ", "", "")
	if err != nil {
		t.Fatalf("AddMedication() error = %v", err)
	}
	if len(view.New) != 0 {
		t.Errorf("new list = %+v, want empty", view.New)
	}
}

func TestAddMedicationEmptyNameRejected(t *testing.T) {
	svc, _, sid := newTestIntake(t, noUpstream(t))

	_, err := svc.AddMedication(context.Background(), sid, MedListCurrent, "", "10mg", "")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestRemoveMedication(t *testing.T) {
	svc, _, sid := newTestIntake(t, cleanCheck)
	ctx := context.Background()

	if _, err := svc.AddMedication(ctx, sid, MedListCurrent, "Aspirin", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddMedication(ctx, sid, MedListCurrent, "Metformin", "", ""); err != nil {
		t.Fatal(err)
	}

	view, err := svc.RemoveMedication(ctx, sid, MedListCurrent, 0)
	if err != nil {
		t.Fatalf("RemoveMedication() error = %v", err)
	}
	if len(view.Current) != 1 || view.Current[0].Name != "Metformin" {
		t.Errorf("current list = %+v", view.Current)
	}

	var vErr *ValidationError
	if _, err := svc.RemoveMedication(ctx, sid, MedListCurrent, 5); !errors.As(err, &vErr) {
		t.Errorf("out-of-range error = %v, want validation error", err)
	}
}

func TestSubmitBlockedWhileCheckInFlight(t *testing.T) {
	release := make(chan struct{})
	svc, _, sid := newTestIntake(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		cleanCheck(w, r)
	})
	defer close(release)
	ctx := context.Background()

	if _, err := svc.AddMedication(ctx, sid, MedListNew, "Aspirin", "", ""); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Submit(ctx, sid, intakeClaims(sid), VitalsInput{})
	if !errors.Is(err, ErrCheckInFlight) {
		t.Errorf("Submit() error = %v, want ErrCheckInFlight", err)
	}
}

func TestSubmitRecomputesVitals(t *testing.T) {
	svc, store, sid := newTestIntake(t, noUpstream(t))
	ctx := context.Background()

	view, err := svc.Submit(ctx, sid, intakeClaims(sid), VitalsInput{
		HeightFeet:   intp(6),
		HeightInches: intp(0),
		Weight:       floatp(180),
		Unit:         vitals.UnitPounds,
		Systolic:     intp(140),
		Diastolic:    intp(90),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if view.BP == nil || view.BP.Band != vitals.BandHigh {
		t.Errorf("bp view = %+v, want high band", view.BP)
	}

	rec, _ := store.Get(ctx, sid)
	if rec.Values[session.KeyHeightIn] != "72" {
		t.Errorf("height_in = %q", rec.Values[session.KeyHeightIn])
	}
}

package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echovisit/echovisit-web/internal/domain"
	"github.com/echovisit/echovisit-web/internal/domain/medication"
	"github.com/echovisit/echovisit-web/internal/domain/vitals"
	"github.com/echovisit/echovisit-web/internal/session"
)

// Med list identifiers used by the intake page.
const (
	MedListCurrent = "current"
	MedListNew     = "new"
)

// IntakeService backs the doctor intake page: patient link info, vitals,
// and the two medication lists, all persisted to the session as the doctor
// edits so a reload never loses work.
type IntakeService struct {
	sessions session.Store
	checker  *InteractionChecker
	audit    *AuditService
	log      *zap.Logger
}

func NewIntakeService(sessions session.Store, checker *InteractionChecker, audit *AuditService, log *zap.Logger) *IntakeService {
	return &IntakeService{sessions: sessions, checker: checker, audit: audit, log: log}
}

// Release drops the session's interaction-check state when it ends.
func (s *IntakeService) Release(sid uuid.UUID) {
	s.checker.Forget(sid)
}

// SavePatientLink stores the patient identifiers as soon as they change.
func (s *IntakeService) SavePatientLink(ctx context.Context, sid uuid.UUID, email, birthday string) error {
	return s.sessions.PutAll(ctx, sid, map[string]string{
		session.KeyPatientEmail:    strings.TrimSpace(email),
		session.KeyPatientBirthday: strings.TrimSpace(birthday),
	})
}

type VitalsInput struct {
	HeightFeet   *int              `json:"height_feet"`
	HeightInches *int              `json:"height_inches"`
	Weight       *float64          `json:"weight"`
	Unit         vitals.WeightUnit `json:"unit"`
	Systolic     *int              `json:"systolic"`
	Diastolic    *int              `json:"diastolic"`
}

type VitalsView struct {
	BMI          *vitals.BMIResult `json:"bmi,omitempty"`
	BMIIndicator string            `json:"bmi_indicator"`
	BP           *vitals.BPResult  `json:"bp,omitempty"`
	BPIndicator  string            `json:"bp_indicator"`
}

// UpdateVitals recomputes BMI/BP from the inputs and persists the derived
// snapshot. Incomplete inputs clear both the view and the stored keys.
func (s *IntakeService) UpdateVitals(ctx context.Context, sid uuid.UUID, in VitalsInput) (*VitalsView, error) {
	view := &VitalsView{}
	values := map[string]string{
		session.KeyHeightIn:    "",
		session.KeyWeightLb:    "",
		session.KeyBMI:         "",
		session.KeyBPSystolic:  "",
		session.KeyBPDiastolic: "",
	}

	if bmi, ok := vitals.ComputeBMI(vitals.BMIReading{
		HeightFeet:   in.HeightFeet,
		HeightInches: in.HeightInches,
		Weight:       in.Weight,
		Unit:         in.Unit,
	}); ok {
		view.BMI = bmi
		view.BMIIndicator = bmi.Indicator
		values[session.KeyHeightIn] = strconv.Itoa(totalInches(in))
		values[session.KeyWeightLb] = strconv.FormatFloat(poundsOf(in), 'f', -1, 64)
		values[session.KeyBMI] = strconv.FormatFloat(bmi.BMI, 'f', -1, 64)
	}

	if bp, ok := vitals.ComputeBP(in.Systolic, in.Diastolic); ok {
		view.BP = bp
		view.BPIndicator = bp.Indicator
		values[session.KeyBPSystolic] = strconv.Itoa(bp.Systolic)
		values[session.KeyBPDiastolic] = strconv.Itoa(bp.Diastolic)
	}

	if err := s.sessions.PutAll(ctx, sid, values); err != nil {
		return nil, err
	}
	return view, nil
}

type MedsView struct {
	Current []MedEntryView `json:"current"`
	New     []MedEntryView `json:"new"`
	Check   CheckResult    `json:"check"`
}

type MedEntryView struct {
	Name      string `json:"name"`
	Dose      string `json:"dose"`
	Frequency string `json:"frequency"`
	Display   string `json:"display"`
	Flagged   bool   `json:"flagged"`
}

// AddMedication appends an entry to one of the two lists and kicks off an
// interaction check with the updated lists.
func (s *IntakeService) AddMedication(ctx context.Context, sid uuid.UUID, list, name, dose, frequency string) (*MedsView, error) {
	current, added, err := s.loadLists(ctx, sid)
	if err != nil {
		return nil, err
	}
	target, err := s.pickList(list, current, added)
	if err != nil {
		return nil, err
	}

	before := target.Len()
	if err := target.Add(name, dose, frequency); err != nil {
		return nil, &ValidationError{Fields: []string{err.Error()}}
	}
	if target.Len() == before {
		// All-empty add is a silent no-op; nothing changed, nothing to check.
		return s.medsView(ctx, sid, current, added, false)
	}
	return s.medsView(ctx, sid, current, added, true)
}

// RemoveMedication splices an entry out and re-checks interactions.
func (s *IntakeService) RemoveMedication(ctx context.Context, sid uuid.UUID, list string, index int) (*MedsView, error) {
	current, added, err := s.loadLists(ctx, sid)
	if err != nil {
		return nil, err
	}
	target, err := s.pickList(list, current, added)
	if err != nil {
		return nil, err
	}
	if err := target.Remove(index); err != nil {
		return nil, &ValidationError{Fields: []string{err.Error()}}
	}
	return s.medsView(ctx, sid, current, added, true)
}

// CheckInteractions re-runs the check against the lists as stored, e.g.
// when the page reloads with meds already present.
func (s *IntakeService) CheckInteractions(ctx context.Context, sid uuid.UUID) (*MedsView, error) {
	current, added, err := s.loadLists(ctx, sid)
	if err != nil {
		return nil, err
	}
	return s.medsView(ctx, sid, current, added, true)
}

// Meds returns both lists plus the current interaction check state.
func (s *IntakeService) Meds(ctx context.Context, sid uuid.UUID) (*MedsView, error) {
	current, added, err := s.loadLists(ctx, sid)
	if err != nil {
		return nil, err
	}
	return s.medsView(ctx, sid, current, added, false)
}

/// Submit closes out the intake step: vitals are recomputed from the final
// inputs and snapshotted, and submission is refused while an interaction
// check is still in flight.
func (s *IntakeService) Submit(ctx context.Context, sid uuid.UUID, claims *domain.Claims, in VitalsInput) (*VitalsView, error) {
	if s.checker.Busy(sid) {
		return nil, ErrCheckInFlight
	}

	view, err := s.UpdateVitals(ctx, sid, in)
	if err != nil {
		return nil, err
	}

	s.audit.LogAsync(AuditEntry{
		SessionID:    sid.String(),
		UserID:       claims.UserID,
		UserRole:     string(claims.Role),
		Action:       string(domain.ActionSubmit),
		ResourceType: "intake",
	})
	return view, nil
}

func (s *IntakeService) loadLists(ctx context.Context, sid uuid.UUID) (current, added *medication.List, err error) {
	rec, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return nil, nil, err
	}
	return medication.Parse(rec.Values[session.KeyCurrentMedsJSON]),
		medication.Parse(rec.Values[session.KeyNewMedsJSON]), nil
}

func (s *IntakeService) pickList(name string, current, added *medication.List) (*medication.List, error) {
	switch name {
	case MedListCurrent:
		return current, nil
	case MedListNew:
		return added, nil
	}
	return nil, &ValidationError{Fields: []string{"list must be current or new"}}
}

func (s *IntakeService) medsView(ctx context.Context, sid uuid.UUID, current, added *medication.List, changed bool) (*MedsView, error) {
	if changed {
		if err := s.sessions.PutAll(ctx, sid, map[string]string{
			session.KeyCurrentMedsJSON: current.JSON(),
			session.KeyNewMedsJSON:     added.JSON(),
		}); err != nil {
			return nil, err
		}
	}

	var check CheckResult
	if changed {
		check = s.checker.Trigger(sid, current.Names(), added.Names())
	} else {
		check = s.checker.Result(sid)
	}

	flagged := make(map[string]bool, len(check.Flagged))
	for _, name := range check.Flagged {
		flagged[name] = true
	}

	return &MedsView{
		Current: entryViews(current, flagged),
		New:     entryViews(added, flagged),
		Check:   check,
	}, nil
}

func entryViews(l *medication.List, flagged map[string]bool) []MedEntryView {
	entries := l.Entries()
	views := make([]MedEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, MedEntryView{
			Name:      e.Name,
			Dose:      e.Dose,
			Frequency: e.Frequency,
			Display:   e.Display(),
			Flagged:   flagged[strings.ToLower(e.Name)],
		})
	}
	return views
}

func totalInches(in VitalsInput) int {
	feet, inches := 0, 0
	if in.HeightFeet != nil {
		feet = *in.HeightFeet
	}
	if in.HeightInches != nil {
		inches = *in.HeightInches
	}
	return feet*12 + inches
}

func poundsOf(in VitalsInput) float64 {
	if in.Weight == nil {
		return 0
	}
	if in.Unit == vitals.UnitKilograms {
		return vitals.PoundsFromKilograms(*in.Weight)
	}
	return *in.Weight
}

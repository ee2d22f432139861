package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echovisit/echovisit-web/internal/domain"
	"github.com/echovisit/echovisit-web/internal/domain/visit"
	"github.com/echovisit/echovisit-web/internal/session"
	"github.com/echovisit/echovisit-web/internal/upstream"
)

// VisitsService serves the patient's visit history list.
type VisitsService struct {
	client   *upstream.Client
	sessions session.Store
	log      *zap.Logger
}

func NewVisitsService(client *upstream.Client, sessions session.Store, log *zap.Logger) *VisitsService {
	return &VisitsService{client: client, sessions: sessions, log: log}
}

type VisitListView struct {
	PatientName string       `json:"patient_name"`
	Visits      []visit.Card `json:"visits"`
}

// List loads the patient's visits, resolves doctor names, and applies the
// search term and date-range filters.
func (s *VisitsService) List(ctx context.Context, sid uuid.UUID, claims *domain.Claims, filter visit.Filter) (*VisitListView, error) {
	rec, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	patientID := rec.Values[session.KeyPatientID]
	if patientID == "" || claims.Role != domain.RolePatient {
		return nil, ErrLoginRequired
	}

	doctors, err := s.doctorsMap(ctx)
	if err != nil {
		// Names degrade to the unknown-doctor fallback; the list still loads.
		s.log.Warn("doctor list unavailable", zap.Error(err))
		doctors = map[string]string{}
	}

	visits, err := s.client.PatientVisits(ctx, patientID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cards := make([]visit.Card, 0, len(visits))
	for _, v := range visits {
		card := visit.NewCard(v.ID, v.Name, v.Clinic, v.DoctorID, v.VisitDate, doctors)
		if filter.Matches(card, now) {
			cards = append(cards, card)
		}
	}

	return &VisitListView{
		PatientName: rec.Values[session.KeyPatientName],
		Visits:      cards,
	}, nil
}

func (s *VisitsService) doctorsMap(ctx context.Context) (map[string]string, error) {
	doctors, err := s.client.Doctors(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(doctors))
	for _, d := range doctors {
		m[d.ID] = d.Name
	}
	return m, nil
}

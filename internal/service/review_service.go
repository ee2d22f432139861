package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echovisit/echovisit-web/internal/domain"
	"github.com/echovisit/echovisit-web/internal/domain/summary"
	"github.com/echovisit/echovisit-web/internal/session"
	"github.com/echovisit/echovisit-web/pkg/metrics"
)

// ReviewService backs the doctor review page: the transcription result is
// flattened into editable fields, each with a lock toggle, and the edited
// payload is written back to the session once the doctor confirms.
type ReviewService struct {
	sessions session.Store
	audit    *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger

	mu     sync.Mutex
	states map[uuid.UUID]*reviewState
}

type reviewState struct {
	fields map[summary.Field]*fieldState
}

type fieldState struct {
	text   string
	locked bool
}

func NewReviewService(sessions session.Store, audit *AuditService, m *metrics.Collector, log *zap.Logger) *ReviewService {
	return &ReviewService{
		sessions: sessions,
		audit:    audit,
		metrics:  m,
		log:      log,
		states:   make(map[uuid.UUID]*reviewState),
	}
}

// Release drops the in-progress edit state when a session ends.
func (s *ReviewService) Release(sid uuid.UUID) {
	s.mu.Lock()
	delete(s.states, sid)
	s.mu.Unlock()
}

type ReviewView struct {
	Transcript string            `json:"transcript"`
	Audio      string            `json:"audio,omitempty"`
	Fields     []ReviewFieldView `json:"fields"`
}

type ReviewFieldView struct {
	Field  summary.Field `json:"field"`
	Text   string        `json:"text"`
	Locked bool          `json:"locked"`
}

// Load extracts the reviewable fields from the session's transcription
// result, using the fuzzy fallback so oddly keyed payloads still populate.
// Fields that arrive with content start locked; empty ones start open for
// the doctor to fill in.
func (s *ReviewService) Load(ctx context.Context, sid uuid.UUID) (*ReviewView, error) {
	rec, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	raw := rec.Values[session.KeyResult]
	if raw == "" {
		return nil, ErrNoResult
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, ErrNoResult
	}
	view := summary.Extract(payload, true)

	s.mu.Lock()
	st, ok := s.states[sid]
	if !ok {
		st = &reviewState{fields: make(map[summary.Field]*fieldState, len(summary.Fields))}
		for _, f := range summary.Fields {
			text := view.Rendered(f)
			st.fields[f] = &fieldState{
				text:   text,
				locked: strings.TrimSpace(text) != "",
			}
		}
		s.states[sid] = st
	}
	s.mu.Unlock()

	return s.buildView(sid, view.Transcript, rec.Values[session.KeyAudio]), nil
}

// SetLock toggles one field's lock.
func (s *ReviewService) SetLock(sid uuid.UUID, field summary.Field, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[sid]
	if !ok {
		return ErrNoResult
	}
	fs, ok := st.fields[field]
	if !ok {
		return &ValidationError{Fields: []string{"unknown field " + string(field)}}
	}
	fs.locked = locked
	return nil
}

// EditField replaces a field's text. Locked fields reject edits until
// unlocked.
func (s *ReviewService) EditField(sid uuid.UUID, field summary.Field, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[sid]
	if !ok {
		return ErrNoResult
	}
	fs, ok := st.fields[field]
	if !ok {
		return &ValidationError{Fields: []string{"unknown field " + string(field)}}
	}
	if fs.locked {
		return &ValidationError{Fields: []string{string(field) + " is locked"}}
	}
	fs.text = text
	return nil
}

// Submit finalizes the review. Without confirmation nothing changes; with
// it the edited field set replaces the summary in the stored result and
// the visit counts as submitted.
func (s *ReviewService) Submit(ctx context.Context, sid uuid.UUID, claims *domain.Claims, confirmed bool) (json.RawMessage, error) {
	if !confirmed {
		return nil, ErrReviewNotConfirmed
	}

	rec, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	raw := rec.Values[session.KeyResult]
	if raw == "" {
		return nil, ErrNoResult
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, ErrNoResult
	}

	s.mu.Lock()
	st, ok := s.states[sid]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNoResult
	}
	edited := make(map[string]any, len(st.fields))
	for f, fs := range st.fields {
		edited[string(f)] = fs.text
	}
	delete(s.states, sid)
	s.mu.Unlock()

	payload["summary"] = edited

	final, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Put(ctx, sid, session.KeyResult, string(final)); err != nil {
		return nil, err
	}

	s.metrics.VisitsSubmitted.Inc()
	s.audit.LogAsync(AuditEntry{
		SessionID:    sid.String(),
		UserID:       claims.UserID,
		UserRole:     string(claims.Role),
		Action:       string(domain.ActionSubmit),
		ResourceType: "visit",
	})
	s.log.Info("visit review submitted", zap.String("session_id", sid.String()))

	return final, nil
}

func (s *ReviewService) buildView(sid uuid.UUID, transcript, audio string) *ReviewView {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[sid]

	out := &ReviewView{Transcript: transcript, Audio: audio}
	for _, f := range summary.Fields {
		fs := st.fields[f]
		out.Fields = append(out.Fields, ReviewFieldView{Field: f, Text: fs.text, Locked: fs.locked})
	}
	return out
}

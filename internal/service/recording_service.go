package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echovisit/echovisit-web/internal/domain"
	"github.com/echovisit/echovisit-web/internal/session"
	"github.com/echovisit/echovisit-web/internal/upstream"
	"github.com/echovisit/echovisit-web/pkg/metrics"
)

// Recorder states.
const (
	RecordingIdle      = "idle"
	RecordingActive    = "recording"
	RecordingUploading = "uploading"
	RecordingDone      = "done"
	RecordingFailed    = "failed"
)

// RecordingService tracks the visit recording flow. The audio itself is
// captured client-side; this service receives the finished clip, sends it
// for transcription, and parks both the clip and the structured result in
// the session for the review step.
type RecordingService struct {
	client   *upstream.Client
	sessions session.Store
	audit    *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger

	mu     sync.Mutex
	states map[uuid.UUID]string
}

func NewRecordingService(client *upstream.Client, sessions session.Store, audit *AuditService, m *metrics.Collector, log *zap.Logger) *RecordingService {
	return &RecordingService{
		client:   client,
		sessions: sessions,
		audit:    audit,
		metrics:  m,
		log:      log,
		states:   make(map[uuid.UUID]string),
	}
}

// State returns the session's recorder state, idle when never started.
func (s *RecordingService) State(sid uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[sid]; ok {
		return st
	}
	return RecordingIdle
}

func (s *RecordingService) setState(sid uuid.UUID, state string) {
	s.mu.Lock()
	s.states[sid] = state
	s.mu.Unlock()
}

// Release drops the recorder state when a session ends.
func (s *RecordingService) Release(sid uuid.UUID) {
	s.mu.Lock()
	delete(s.states, sid)
	s.mu.Unlock()
}

// Begin marks the session as recording and clears any previous clip and
// result so a re-record never shows stale data.
func (s *RecordingService) Begin(ctx context.Context, sid uuid.UUID) error {
	if err := s.sessions.Delete(ctx, sid, session.KeyAudio, session.KeyResult); err != nil {
		return err
	}
	s.setState(sid, RecordingActive)
	return nil
}

type RecordingResult struct {
	State   string          `json:"state"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Complete receives the finished clip, uploads it for transcription, and
// stores the audio (as a data URL) and the structured payload in the
// session. A failed upload is terminal for this attempt; the caller starts
// over with Begin.
func (s *RecordingService) Complete(ctx context.Context, sid uuid.UUID, claims *domain.Claims, filename, contentType string, clip io.Reader) (*RecordingResult, error) {
	audio, err := io.ReadAll(clip)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, &ValidationError{Fields: []string{"audio clip is empty"}}
	}

	s.setState(sid, RecordingUploading)

	payload, err := s.client.Transcribe(ctx, filename, contentType, bytes.NewReader(audio))
	if err != nil {
		s.setState(sid, RecordingFailed)
		s.metrics.TranscriptionsTotal.WithLabelValues("error").Inc()
		s.log.Warn("transcription failed",
			zap.String("session_id", sid.String()),
			zap.Error(err))
		return nil, err
	}

	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(audio)
	if err := s.sessions.PutAll(ctx, sid, map[string]string{
		session.KeyAudio:  dataURL,
		session.KeyResult: string(payload),
	}); err != nil {
		s.setState(sid, RecordingFailed)
		return nil, err
	}

	s.setState(sid, RecordingDone)
	s.metrics.TranscriptionsTotal.WithLabelValues("ok").Inc()
	s.audit.LogAsync(AuditEntry{
		SessionID:    sid.String(),
		UserID:       claims.UserID,
		UserRole:     string(claims.Role),
		Action:       string(domain.ActionRecord),
		ResourceType: "recording",
	})

	return &RecordingResult{State: RecordingDone, Payload: payload}, nil
}

package service

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echovisit/echovisit-web/internal/domain"
	"github.com/echovisit/echovisit-web/internal/session"
)

func newTestRecording(t *testing.T, handler http.HandlerFunc) (*RecordingService, session.Store, uuid.UUID) {
	t.Helper()
	store := session.NewMemoryStore()
	rec, err := store.Create(context.Background(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewRecordingService(newTestUpstream(t, handler), store, newTestAudit(), testMetrics, zap.NewNop())
	return svc, store, rec.ID
}

func recordingClaims(sid uuid.UUID) *domain.Claims {
	return &domain.Claims{SessionID: sid, Role: domain.RoleDoctor, UserID: "d1", Name: "Dr. Lee"}
}

func TestBeginClearsPreviousAttempt(t *testing.T) {
	svc, store, sid := newTestRecording(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx := context.Background()

	if err := store.PutAll(ctx, sid, map[string]string{
		session.KeyAudio:  "data:audio/webm;base64,old",
		session.KeyResult: `{"transcript":"old"}`,
	}); err != nil {
		t.Fatal(err)
	}

	if err := svc.Begin(ctx, sid); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if svc.State(sid) != RecordingActive {
		t.Errorf("state = %q, want recording", svc.State(sid))
	}

	rec, _ := store.Get(ctx, sid)
	if _, ok := rec.Values[session.KeyAudio]; ok {
		t.Error("stale audio survived Begin()")
	}
	if _, ok := rec.Values[session.KeyResult]; ok {
		t.Error("stale result survived Begin()")
	}
}

func TestCompleteStoresAudioAndResult(t *testing.T) {
	svc, store, sid := newTestRecording(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Errorf("path = %s", r.URL.Path)
		}
		io.WriteString(w, `{"transcript":"hello there","summary":{"notes":"fine"}}`)
	})
	ctx := context.Background()

	if err := svc.Begin(ctx, sid); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Complete(ctx, sid, recordingClaims(sid), "visit.webm", "audio/webm", strings.NewReader("clip-bytes"))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if res.State != RecordingDone {
		t.Errorf("result state = %q", res.State)
	}
	if svc.State(sid) != RecordingDone {
		t.Errorf("state = %q, want done", svc.State(sid))
	}

	rec, _ := store.Get(ctx, sid)
	wantPrefix := "data:audio/webm;base64,"
	audio := rec.Values[session.KeyAudio]
	if !strings.HasPrefix(audio, wantPrefix) {
		t.Fatalf("audio = %q, want data URL", audio)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(audio, wantPrefix))
	if err != nil || string(decoded) != "clip-bytes" {
		t.Errorf("decoded audio = %q, %v", decoded, err)
	}
	if !strings.Contains(rec.Values[session.KeyResult], "hello there") {
		t.Errorf("result = %q", rec.Values[session.KeyResult])
	}
}

func TestCompleteUploadFailureIsTerminal(t *testing.T) {
	svc, store, sid := newTestRecording(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx := context.Background()

	if err := svc.Begin(ctx, sid); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Complete(ctx, sid, recordingClaims(sid), "visit.webm", "audio/webm", strings.NewReader("clip")); err == nil {
		t.Fatal("expected upload error")
	}
	if svc.State(sid) != RecordingFailed {
		t.Errorf("state = %q, want failed", svc.State(sid))
	}

	rec, _ := store.Get(ctx, sid)
	if _, ok := rec.Values[session.KeyResult]; ok {
		t.Error("failed attempt must not store a result")
	}
}

func TestCompleteEmptyClipRejected(t *testing.T) {
	svc, _, sid := newTestRecording(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called for an empty clip")
	})

	_, err := svc.Complete(context.Background(), sid, recordingClaims(sid), "visit.webm", "audio/webm", strings.NewReader(""))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

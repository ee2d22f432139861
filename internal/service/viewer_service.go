package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echovisit/echovisit-web/internal/domain"
	"github.com/echovisit/echovisit-web/internal/domain/summary"
	"github.com/echovisit/echovisit-web/internal/session"
	"github.com/echovisit/echovisit-web/internal/upstream"
	"github.com/echovisit/echovisit-web/pkg/metrics"
)

// View modes.
const (
	ModeOriginal   = "original"
	ModeSimplified = "simplified"
)

const maxFollowUps = 3

// fallbackPayload is the demo visit shown when no recorded visit exists
// and the caller asked for demo mode.
const fallbackPayload = `{
	"transcript": "This is a demo transcript. The patient reports chest tightness and shortness of breath when walking upstairs. Symptoms are worse at night.",
	"summary": {
		"allergies": "No known drug allergies",
		"symptoms": ["shortness of breath when walking upstairs", "chest tightness", "worse at night"],
		"diagnosis": "mild asthma",
		"medication": {"name": "albuterol inhaler", "dose": "2 puffs", "frequency": "as needed"},
		"instructions": ["use inhaler as prescribed", "avoid known triggers", "track symptom frequency"],
		"notes": "Follow up in 4–6 weeks if symptoms persist."
	}
}`

// ViewerService backs the patient-facing visit page: view the summary in
// the original or simplified register, in any supported language, with
// suggested follow-up questions and free-form Q&A. Every transform result
// is cached for the life of the view; the backend is asked for each
// mode/language combination at most once.
type ViewerService struct {
	client   *upstream.Client
	sessions session.Store
	audit    *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger

	mu    sync.Mutex
	views map[uuid.UUID]*viewerState
}

type viewerState struct {
	canonical *summary.View
	audio     string

	mu    sync.Mutex
	cache map[string]map[string]any // key: "{mode}|{lang}"

	fuMu      sync.Mutex
	followUps map[string][]string // key: language; "en" generated, rest translated
}

func NewViewerService(client *upstream.Client, sessions session.Store, audit *AuditService, m *metrics.Collector, log *zap.Logger) *ViewerService {
	return &ViewerService{
		client:   client,
		sessions: sessions,
		audit:    audit,
		metrics:  m,
		log:      log,
		views:    make(map[uuid.UUID]*viewerState),
	}
}

// Open loads the visit payload for viewing: a persisted visit when an ID is
// given, otherwise the session's recorded result, otherwise the demo
// payload if asked for. The canonical view is extracted once, without the
// fuzzy fallback, and seeds the transform cache.
func (s *ViewerService) Open(ctx context.Context, sid uuid.UUID, claims *domain.Claims, visitID string, demo bool) error {
	var (
		raw   []byte
		audio string
	)

	switch {
	case visitID != "":
		detail, err := s.client.VisitDetail(ctx, visitID)
		if err != nil {
			return err
		}
		raw = detail
	default:
		rec, err := s.sessions.Get(ctx, sid)
		if err != nil {
			return err
		}
		raw = []byte(rec.Values[session.KeyResult])
		audio = rec.Values[session.KeyAudio]
	}

	var payload map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			payload = nil
		}
	}
	if len(payload) == 0 {
		if !demo {
			return ErrNoResult
		}
		if err := json.Unmarshal([]byte(fallbackPayload), &payload); err != nil {
			return err
		}
	}

	canonical := summary.Extract(payload, false)
	st := &viewerState{
		canonical: canonical,
		audio:     audio,
		cache:     map[string]map[string]any{ModeOriginal + "|en": canonical.BaseSource()},
		followUps: make(map[string][]string),
	}

	s.mu.Lock()
	s.views[sid] = st
	s.mu.Unlock()

	s.audit.LogAsync(AuditEntry{
		SessionID:    sid.String(),
		UserID:       claims.UserID,
		UserRole:     string(claims.Role),
		Action:       string(domain.ActionView),
		ResourceType: "visit",
		ResourceID:   visitID,
	})
	return nil
}

func (s *ViewerService) state(sid uuid.UUID) (*viewerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.views[sid]
	if !ok {
		return nil, ErrNoResult
	}
	return st, nil
}

// Close drops the per-view cache.
func (s *ViewerService) Close(sid uuid.UUID) {
	s.mu.Lock()
	delete(s.views, sid)
	s.mu.Unlock()
}

type VisitView struct {
	Transcript string                   `json:"transcript"`
	Audio      string                   `json:"audio,omitempty"`
	Fields     map[summary.Field]string `json:"fields"`
	Lang       string                   `json:"lang"`
	Mode       string                   `json:"mode"`
	FollowUps  []string                 `json:"follow_ups,omitempty"`
}

// View returns the visit rendered for the requested language and mode. A
// failed transform falls back to the canonical original rather than
// erroring the page.
func (s *ViewerService) View(ctx context.Context, sid uuid.UUID, lang, mode string) (*VisitView, error) {
	st, err := s.state(sid)
	if err != nil {
		return nil, err
	}
	if lang == "" {
		lang = "en"
	}
	if mode == "" {
		mode = ModeOriginal
	}
	if mode != ModeOriginal && mode != ModeSimplified {
		return nil, &ValidationError{Fields: []string{"mode must be original or simplified"}}
	}

	payload, err := s.payloadFor(ctx, st, lang, mode)
	if err != nil {
		s.log.Warn("view transform failed, reverting to original",
			zap.String("session_id", sid.String()),
			zap.String("lang", lang),
			zap.String("mode", mode),
			zap.Error(err))
		return s.render(st, st.canonical.BaseSource(), "en", ModeOriginal), nil
	}
	return s.render(st, payload, lang, mode), nil
}

// ViewWithFollowUps fetches the requested view and its follow-up questions
// concurrently and joins them into one response.
func (s *ViewerService) ViewWithFollowUps(ctx context.Context, sid uuid.UUID, lang, mode string) (*VisitView, error) {
	var (
		wg   sync.WaitGroup
		view *VisitView
		qs   []string

		viewErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		view, viewErr = s.View(ctx, sid, lang, mode)
	}()
	go func() {
		defer wg.Done()
		questions, err := s.FollowUps(ctx, sid, lang)
		if err != nil {
			s.log.Warn("follow-up fetch failed", zap.Error(err))
			return
		}
		qs = questions
	}()
	wg.Wait()

	if viewErr != nil {
		return nil, viewErr
	}
	view.FollowUps = qs
	return view, nil
}

// FollowUps returns the suggested questions for the visit. The English set
// is generated once and truncated to three; other languages translate that
// set on first request and reuse the translation afterwards.
func (s *ViewerService) FollowUps(ctx context.Context, sid uuid.UUID, lang string) ([]string, error) {
	st, err := s.state(sid)
	if err != nil {
		return nil, err
	}
	if lang == "" {
		lang = "en"
	}

	english, err := s.englishFollowUps(ctx, st)
	if err != nil {
		return nil, err
	}
	if lang == "en" || len(english) == 0 {
		return english, nil
	}

	st.fuMu.Lock()
	cached, ok := st.followUps[lang]
	st.fuMu.Unlock()
	if ok {
		return cached, nil
	}

	translated, err := s.client.TranslateFollowUp(ctx, english, lang)
	if err != nil {
		return nil, err
	}
	st.fuMu.Lock()
	st.followUps[lang] = translated
	st.fuMu.Unlock()
	return translated, nil
}

type QAAnswer struct {
	Answer    string   `json:"answer"`
	FollowUps []string `json:"followups,omitempty"`
}

// Ask sends a free-form question with the canonical transcript and summary
// as context.
func (s *ViewerService) Ask(ctx context.Context, sid uuid.UUID, question string) (*QAAnswer, error) {
	if question == "" {
		return nil, &ValidationError{Fields: []string{"question is required"}}
	}
	st, err := s.state(sid)
	if err != nil {
		return nil, err
	}

	base := st.canonical.BaseSource()
	res, err := s.client.QA(ctx, &upstream.QARequest{
		Question: question,
		Context: upstream.QAContext{
			Transcript: st.canonical.Transcript,
			Summary:    base["summary"],
		},
	})
	if err != nil {
		return nil, err
	}
	s.metrics.QAQuestionsTotal.Inc()
	return &QAAnswer{Answer: res.Answer, FollowUps: res.FollowUps}, nil
}

// payloadFor resolves the cached payload for a mode/language pair,
// fetching through the backend when missing. Translations always start
// from English source material: the canonical original, or the simplified
// payload, which itself is fetched at most once.
func (s *ViewerService) payloadFor(ctx context.Context, st *viewerState, lang, mode string) (map[string]any, error) {
	key := mode + "|" + lang

	st.mu.Lock()
	if cached, ok := st.cache[key]; ok {
		st.mu.Unlock()
		s.metrics.TransformCacheHits.Inc()
		return cached, nil
	}
	st.mu.Unlock()
	s.metrics.TransformCacheMisses.Inc()

	if lang == "en" {
		// Only the simplified English payload is ever fetched here; the
		// original seeds the cache at Open.
		payload, err := s.simplified(ctx, st)
		if err != nil {
			return nil, err
		}
		return payload, nil
	}

	source := st.canonical.BaseSource()
	if mode == ModeSimplified {
		simplified, err := s.simplified(ctx, st)
		if err != nil {
			return nil, err
		}
		source = simplified
	}

	s.metrics.TransformRequests.WithLabelValues("translate").Inc()
	payload, err := s.client.TranslateAll(ctx, source, lang, mode)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	st.cache[key] = payload
	st.mu.Unlock()
	return payload, nil
}

func (s *ViewerService) simplified(ctx context.Context, st *viewerState) (map[string]any, error) {
	key := ModeSimplified + "|en"

	st.mu.Lock()
	if cached, ok := st.cache[key]; ok {
		st.mu.Unlock()
		return cached, nil
	}
	st.mu.Unlock()

	s.metrics.TransformRequests.WithLabelValues("simplify").Inc()
	payload, err := s.client.SimplifyAll(ctx, st.canonical.BaseSource())
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	st.cache[key] = payload
	st.mu.Unlock()
	return payload, nil
}

func (s *ViewerService) englishFollowUps(ctx context.Context, st *viewerState) ([]string, error) {
	st.fuMu.Lock()
	cached, ok := st.followUps["en"]
	st.fuMu.Unlock()
	if ok {
		return cached, nil
	}

	base := st.canonical.BaseSource()
	questions, err := s.client.FollowUp(ctx, base["summary"])
	if err != nil {
		return nil, err
	}
	if len(questions) > maxFollowUps {
		questions = questions[:maxFollowUps]
	}

	st.fuMu.Lock()
	st.followUps["en"] = questions
	st.fuMu.Unlock()

	s.metrics.FollowUpGenerations.Inc()
	return questions, nil
}

// render flattens a payload into per-field display text using the same
// extraction rules as the canonical view.
func (s *ViewerService) render(st *viewerState, payload map[string]any, lang, mode string) *VisitView {
	view := summary.Extract(payload, false)
	fields := make(map[summary.Field]string, len(summary.Fields))
	for _, f := range summary.Fields {
		fields[f] = view.Rendered(f)
	}
	return &VisitView{
		Transcript: view.Transcript,
		Audio:      st.audio,
		Fields:     fields,
		Lang:       lang,
		Mode:       mode,
	}
}

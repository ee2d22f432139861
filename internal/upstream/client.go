package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/echovisit/echovisit-web/internal/config"
)

// Client talks to the EchoVisit backend service. All visit intelligence
// lives there; this client only shapes requests and tolerates the looser
// corners of its responses.
type Client struct {
	baseURL           string
	httpClient        *http.Client
	transcribeTimeout time.Duration
	log               *zap.Logger
}

func NewClient(cfg config.UpstreamConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:        &http.Client{Timeout: cfg.Timeout},
		transcribeTimeout: cfg.TranscribeTimeout,
		log:               log,
	}
}

func (c *Client) do(ctx context.Context, method, path string, req, res any) error {
	var body io.Reader
	if req != nil {
		b := &bytes.Buffer{}
		if err := json.NewEncoder(b).Encode(req); err != nil {
			return fmt.Errorf("encoding %s request: %w", path, err)
		}
		body = b
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpRes, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode < 200 || httpRes.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(httpRes.Body, 4096))
		c.log.Warn("upstream call failed",
			zap.String("path", path),
			zap.Int("status", httpRes.StatusCode))
		return &Error{StatusCode: httpRes.StatusCode, Path: path, Body: string(raw)}
	}

	if res != nil {
		if err := json.NewDecoder(httpRes.Body).Decode(res); err != nil {
			return fmt.Errorf("decoding %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) SignupDoctor(ctx context.Context, req *SignupDoctorRequest) (*AuthResponse, error) {
	var res AuthResponse
	if err := c.do(ctx, http.MethodPost, "/signup/doctor", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) LoginDoctor(ctx context.Context, req *LoginDoctorRequest) (*AuthResponse, error) {
	var res AuthResponse
	if err := c.do(ctx, http.MethodPost, "/login/doctor", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) LoginPatient(ctx context.Context, req *LoginPatientRequest) (*AuthResponse, error) {
	var res AuthResponse
	if err := c.do(ctx, http.MethodPost, "/login/patient", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Doctors(ctx context.Context) ([]Doctor, error) {
	var res DoctorsResponse
	if err := c.do(ctx, http.MethodGet, "/doctors", nil, &res); err != nil {
		return nil, err
	}
	return res.Doctors, nil
}

func (c *Client) PatientVisits(ctx context.Context, patientID string) ([]Visit, error) {
	var res VisitsResponse
	if err := c.do(ctx, http.MethodGet, "/visits/patient/"+patientID, nil, &res); err != nil {
		return nil, err
	}
	return res.Visits, nil
}

// VisitDetail returns the stored visit fields untouched; the summary
// package takes it from there. The endpoint wraps them in {"visit": {...}};
// a bare object is accepted too.
func (c *Client) VisitDetail(ctx context.Context, visitID string) (json.RawMessage, error) {
	var res struct {
		Visit json.RawMessage `json:"visit"`
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/visits/"+visitID, nil, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &res); err == nil && len(res.Visit) > 0 {
		return res.Visit, nil
	}
	return raw, nil
}

// Transcribe streams recorded audio to the backend as a multipart upload
// and returns the structured visit payload it produced. Transcription runs
// a speech model, so it gets its own, longer timeout.
func (c *Client) Transcribe(ctx context.Context, filename, contentType string, audio io.Reader) (json.RawMessage, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("buffering audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.transcribeTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	client := &http.Client{Timeout: c.transcribeTimeout}
	httpRes, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling /transcribe: %w", err)
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode < 200 || httpRes.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(httpRes.Body, 4096))
		return nil, &Error{StatusCode: httpRes.StatusCode, Path: "/transcribe", Body: string(raw)}
	}

	var res json.RawMessage
	if err := json.NewDecoder(httpRes.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decoding /transcribe response: %w", err)
	}
	return res, nil
}

func (c *Client) CheckInteractions(ctx context.Context, currentMeds, newMeds []string) (*InteractionResponse, error) {
	req := &InteractionRequest{CurrentMeds: currentMeds, NewMeds: newMeds}
	var res InteractionResponse
	if err := c.do(ctx, http.MethodPost, "/check_interactions", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SimplifyAll sends the canonical {transcript, summary} source and returns
// the simplified payload in the same shape.
func (c *Client) SimplifyAll(ctx context.Context, source map[string]any) (map[string]any, error) {
	var res map[string]any
	if err := c.do(ctx, http.MethodPost, "/simplify_all", source, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// TranslateAll translates a source payload, which may be the canonical
// original or an already simplified one.
func (c *Client) TranslateAll(ctx context.Context, source map[string]any, lang, mode string) (map[string]any, error) {
	req := &TranslateRequest{
		Lang:       lang,
		Mode:       mode,
		Transcript: source["transcript"],
		Summary:    source["summary"],
	}
	var res map[string]any
	if err := c.do(ctx, http.MethodPost, "/translate_all", req, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) FollowUp(ctx context.Context, summary any) ([]string, error) {
	var res FollowUpResponse
	if err := c.do(ctx, http.MethodPost, "/follow_up", &FollowUpRequest{Summary: summary}, &res); err != nil {
		return nil, err
	}
	return res.Questions, nil
}

func (c *Client) TranslateFollowUp(ctx context.Context, questions []string, lang string) ([]string, error) {
	var res FollowUpResponse
	req := &TranslateFollowUpRequest{Questions: questions, Lang: lang}
	if err := c.do(ctx, http.MethodPost, "/translate_follow_up", req, &res); err != nil {
		return nil, err
	}
	return res.Questions, nil
}

// QA asks a question against the visit context. The model behind the
// endpoint sometimes answers with bare prose instead of JSON; that text
// becomes the answer rather than an error.
func (c *Client) QA(ctx context.Context, req *QARequest) (*QAResponse, error) {
	b := &bytes.Buffer{}
	if err := json.NewEncoder(b).Encode(req); err != nil {
		return nil, fmt.Errorf("encoding /qa request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/qa", b)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpRes, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling /qa: %w", err)
	}
	defer httpRes.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpRes.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading /qa response: %w", err)
	}
	if httpRes.StatusCode < 200 || httpRes.StatusCode >= 300 {
		return nil, &Error{StatusCode: httpRes.StatusCode, Path: "/qa", Body: string(raw)}
	}

	var res QAResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		text := strings.TrimSpace(string(raw))
		if text == "" {
			return nil, fmt.Errorf("empty /qa response")
		}
		return &QAResponse{Answer: text}, nil
	}
	return &res, nil
}

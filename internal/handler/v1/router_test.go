package v1

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/echovisit/echovisit-web/internal/config"
	"github.com/echovisit/echovisit-web/internal/domain"
	"github.com/echovisit/echovisit-web/internal/service"
	"github.com/echovisit/echovisit-web/internal/session"
	"github.com/echovisit/echovisit-web/internal/upstream"
	"github.com/echovisit/echovisit-web/pkg/auth"
	"github.com/echovisit/echovisit-web/pkg/metrics"
)

// One collector for the whole test binary; prometheus rejects duplicate
// metric registration.
var testMetrics = metrics.NewCollector("handlertest")

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:          "test-secret-test-secret-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "echovisit-web-test",
	}
}

// newTestRouter assembles the full router over an in-memory session store
// and a stubbed upstream, the same wiring the server does.
func newTestRouter(t *testing.T, upstreamHandler http.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(upstreamHandler)
	t.Cleanup(srv.Close)
	client := upstream.NewClient(config.UpstreamConfig{
		BaseURL:           srv.URL,
		Timeout:           5 * time.Second,
		TranscribeTimeout: 5 * time.Second,
	}, zap.NewNop())

	store := session.NewMemoryStore()
	tokens := auth.NewTokenManager(testJWTConfig())
	log := zap.NewNop()
	audit := service.NewAuditService(nopAuditRepo{}, testMetrics, log)
	t.Cleanup(audit.Shutdown)
	checker := service.NewInteractionChecker(client, testMetrics, log)

	cfg := &config.Config{
		App:    config.AppConfig{Environment: "test"},
		Server: config.ServerConfig{MaxUploadBytes: 1 << 20},
	}
	svcs := Services{
		Auth:      service.NewAuthService(client, store, tokens, audit, testMetrics, time.Hour, log),
		Intake:    service.NewIntakeService(store, checker, audit, log),
		Recording: service.NewRecordingService(client, store, audit, testMetrics, log),
		Review:    service.NewReviewService(store, audit, testMetrics, log),
		Visits:    service.NewVisitsService(client, store, log),
		Viewer:    service.NewViewerService(client, store, audit, testMetrics, log),
	}
	return NewRouter(cfg, svcs, tokens, testMetrics, log)
}

type nopAuditRepo struct{}

func (nopAuditRepo) Create(context.Context, *domain.AuditLog) error { return nil }

func TestRouterSmoke(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call: %s", r.URL.Path)
	})

	t.Run("healthz", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Error("X-Request-ID missing")
		}
	})

	t.Run("unmatched_path", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("metrics_endpoint", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d", w.Code)
		}
	})
}

func TestRouterAuthFlow(t *testing.T) {
	router := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login/doctor" {
			t.Errorf("unexpected upstream call: %s", r.URL.Path)
		}
		io.WriteString(w, `{"success":true,"doctor_id":"doc-1","name":"Dr. Chen"}`)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login/doctor",
		strings.NewReader(`{"email":"chen@clinic.org","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}

	var login struct {
		Data struct {
			UserID string `json:"user_id"`
			Tokens struct {
				AccessToken string `json:"access_token"`
			} `json:"tokens"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatal(err)
	}
	if login.Data.UserID != "doc-1" {
		t.Errorf("user_id = %q, want doc-1", login.Data.UserID)
	}
	access := login.Data.Tokens.AccessToken
	if access == "" {
		t.Fatal("no access token issued")
	}

	t.Run("authed_doctor_route", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/intake/meds", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
		}
	})

	t.Run("missing_token", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/intake/meds", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d", w.Code)
		}
		var res ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &res)
		if res.Code != "LOGIN_REQUIRED" {
			t.Errorf("code = %q", res.Code)
		}
	})

	t.Run("garbage_token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/intake/meds", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("wrong_role", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/visits", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Errorf("doctor token on patient route: status = %d", w.Code)
		}
	})
}

func TestRespondServiceErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &service.ValidationError{Fields: []string{"name is required"}}, http.StatusBadRequest, ""},
		{"invalid_credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, ""},
		{"login_required", service.ErrLoginRequired, http.StatusUnauthorized, "LOGIN_REQUIRED"},
		{"session_expired", session.ErrExpired, http.StatusUnauthorized, "LOGIN_REQUIRED"},
		{"token_expired", auth.ErrTokenExpired, http.StatusUnauthorized, "LOGIN_REQUIRED"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, ""},
		{"visit_not_found", service.ErrVisitNotFound, http.StatusNotFound, ""},
		{"no_result", service.ErrNoResult, http.StatusConflict, ""},
		{"check_in_flight", service.ErrCheckInFlight, http.StatusConflict, "CHECK_IN_FLIGHT"},
		{"not_confirmed", service.ErrReviewNotConfirmed, http.StatusPreconditionFailed, ""},
		{"upstream_4xx_passthrough", &upstream.Error{StatusCode: http.StatusNotFound, Path: "/visits/x"}, http.StatusNotFound, ""},
		{"upstream_5xx_masked", &upstream.Error{StatusCode: http.StatusInternalServerError, Path: "/qa"}, http.StatusBadGateway, ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondServiceError(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				var res ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
					t.Fatal(err)
				}
				if res.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", res.Code, tt.wantCode)
				}
			}
		})
	}
}

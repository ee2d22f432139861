package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/echovisit/echovisit-web/internal/config"
	"github.com/echovisit/echovisit-web/internal/domain"
	"github.com/echovisit/echovisit-web/internal/upstream"
	"github.com/echovisit/echovisit-web/pkg/metrics"
)

// One collector for the whole test binary; prometheus rejects duplicate
// metric registration.
var testMetrics = metrics.NewCollector("servicetest")

type nopAuditRepo struct{}

func (nopAuditRepo) Create(context.Context, *domain.AuditLog) error { return nil }

func newTestAudit() *AuditService {
	return NewAuditService(nopAuditRepo{}, testMetrics, zap.NewNop())
}

func newTestUpstream(t *testing.T, handler http.HandlerFunc) *upstream.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return upstream.NewClient(config.UpstreamConfig{
		BaseURL:           srv.URL,
		Timeout:           5 * time.Second,
		TranscribeTimeout: 5 * time.Second,
	}, zap.NewNop())
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echovisit/echovisit-web/internal/upstream"
	"github.com/echovisit/echovisit-web/pkg/metrics"
)

// Check states as exposed to the intake page.
const (
	CheckStateIdle     = ""
	CheckStateChecking = "checking"
	CheckStateOK       = "ok"
	CheckStateIssues   = "issues"
	CheckStateError    = "error"
)

type CheckResult struct {
	Status        string   `json:"status"`
	Lines         []string `json:"lines,omitempty"`
	Flagged       []string `json:"flagged,omitempty"`
	SubmitEnabled bool     `json:"submit_enabled"`
}

type checkState struct {
	mu      sync.Mutex
	busy    bool
	pending bool
	// Latest med lists that arrived while a check was in flight; replayed
	// once the in-flight request settles.
	pendingCurrent []string
	pendingNew     []string
	result         CheckResult
}

// InteractionChecker runs drug interaction checks against the upstream
// service, one in flight per session. Checks triggered while one is
// running are coalesced into a single requeued run with the latest lists.
type InteractionChecker struct {
	client  *upstream.Client
	metrics *metrics.Collector
	log     *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	states map[uuid.UUID]*checkState
}

func NewInteractionChecker(client *upstream.Client, m *metrics.Collector, log *zap.Logger) *InteractionChecker {
	return &InteractionChecker{
		client:  client,
		metrics: m,
		log:     log,
		timeout: 30 * time.Second,
		states:  make(map[uuid.UUID]*checkState),
	}
}

func (c *InteractionChecker) state(sid uuid.UUID) *checkState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[sid]
	if !ok {
		st = &checkState{result: CheckResult{Status: CheckStateIdle, SubmitEnabled: true}}
		c.states[sid] = st
	}
	return st
}

// Trigger starts a check for the given med lists. An empty new-meds list
// resets to a neutral state without calling upstream. If a check is already
// in flight the lists are queued and replayed after it settles.
func (c *InteractionChecker) Trigger(sid uuid.UUID, currentMeds, newMeds []string) CheckResult {
	st := c.state(sid)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.busy {
		// Queued behind the in-flight check; replayed when it settles. An
		// empty new-meds list queues a reset the same way.
		st.pending = true
		st.pendingCurrent = currentMeds
		st.pendingNew = newMeds
		return st.result
	}

	if len(newMeds) == 0 {
		c.metrics.InteractionChecks.WithLabelValues("skipped").Inc()
		st.result = CheckResult{Status: CheckStateIdle, SubmitEnabled: true}
		return st.result
	}

	st.busy = true
	st.result = CheckResult{Status: CheckStateChecking, SubmitEnabled: false}
	go c.run(sid, currentMeds, newMeds)
	return st.result
}

// Result returns the current check state for the session.
func (c *InteractionChecker) Result(sid uuid.UUID) CheckResult {
	st := c.state(sid)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.result
}

// Busy reports whether a check is still in flight.
func (c *InteractionChecker) Busy(sid uuid.UUID) bool {
	st := c.state(sid)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.busy
}

// Forget drops per-session state, e.g. on logout.
func (c *InteractionChecker) Forget(sid uuid.UUID) {
	c.mu.Lock()
	delete(c.states, sid)
	c.mu.Unlock()
}

func (c *InteractionChecker) run(sid uuid.UUID, currentMeds, newMeds []string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	res, err := c.client.CheckInteractions(ctx, currentMeds, newMeds)
	cancel()

	var result CheckResult
	switch {
	case err != nil:
		c.metrics.InteractionChecks.WithLabelValues("error").Inc()
		c.log.Warn("interaction check failed",
			zap.String("session_id", sid.String()),
			zap.Error(err))
		result = CheckResult{Status: CheckStateError, SubmitEnabled: true}
	case res.HasIssue && len(res.Interactions) > 0:
		c.metrics.InteractionChecks.WithLabelValues("issues").Inc()
		result = CheckResult{
			Status:        CheckStateIssues,
			Lines:         interactionLines(res.Interactions),
			Flagged:       flaggedNames(res.Interactions),
			SubmitEnabled: true,
		}
	default:
		c.metrics.InteractionChecks.WithLabelValues("ok").Inc()
		result = CheckResult{Status: CheckStateOK, SubmitEnabled: true}
	}

	st := c.state(sid)
	st.mu.Lock()
	st.result = result
	if st.pending {
		replayCur, replayNew := st.pendingCurrent, st.pendingNew
		st.pending = false
		st.pendingCurrent, st.pendingNew = nil, nil
		if len(replayNew) == 0 {
			st.busy = false
			st.result = CheckResult{Status: CheckStateIdle, SubmitEnabled: true}
			st.mu.Unlock()
			return
		}
		st.result = CheckResult{Status: CheckStateChecking, SubmitEnabled: false}
		st.mu.Unlock()
		go c.run(sid, replayCur, replayNew)
		return
	}
	st.busy = false
	st.mu.Unlock()
}

// interactionLines renders one display line per reported interaction.
func interactionLines(interactions []upstream.Interaction) []string {
	lines := make([]string, 0, len(interactions))
	for _, in := range interactions {
		severity := in.Severity
		if severity == "" {
			severity = "unknown"
		}
		line := fmt.Sprintf("• %s — %s", strings.Join(in.Pair, " + "), severity)
		if d := in.Detail(); d != "" {
			line += ": " + d
		}
		lines = append(lines, line)
	}
	return lines
}

// flaggedNames returns the lowercase union of every drug named in a pair.
func flaggedNames(interactions []upstream.Interaction) []string {
	seen := make(map[string]bool)
	var names []string
	for _, in := range interactions {
		for _, name := range in.Pair {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, key)
		}
	}
	return names
}

package provider

import (
	"sync"
	"time"
)

// Status classifies a provider by its recent failure streak.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Health is a point-in-time snapshot of one provider's state.
type Health struct {
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastFailure         *time.Time `json:"last_failure,omitempty"`
	Status              Status     `json:"status"`
}

type healthState struct {
	mu sync.Mutex
	Health
}

// HealthTracker records consecutive adapter failures per provider and
// gates dispatch once a provider crosses the down threshold. State
// lives for the process lifetime and is shared by all requests; each
// provider has its own lock so unrelated providers never contend.
//
// A down provider is only trusted again after a successful call; there
// is no time-based recovery.
type HealthTracker struct {
	mu        sync.RWMutex
	states    map[string]*healthState
	threshold int
}

// NewHealthTracker creates a tracker that marks a provider down after
// threshold consecutive failures (default 3 when threshold <= 0).
func NewHealthTracker(threshold int) *HealthTracker {
	if threshold <= 0 {
		threshold = 3
	}
	return &HealthTracker{
		states:    make(map[string]*healthState),
		threshold: threshold,
	}
}

func (t *HealthTracker) state(id string) *healthState {
	t.mu.RLock()
	s, ok := t.states[id]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.states[id]; ok {
		return s
	}
	s = &healthState{Health: Health{Status: StatusHealthy}}
	t.states[id] = s
	return s
}

// RecordSuccess resets the provider to healthy with zero failures.
func (t *HealthTracker) RecordSuccess(id string) {
	s := t.state(id)
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ConsecutiveFailures = 0
	s.Status = StatusHealthy
	s.LastSuccess = &now
}

// RecordFailure increments the provider's failure streak and recomputes
// its status.
func (t *HealthTracker) RecordFailure(id string) {
	s := t.state(id)
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ConsecutiveFailures++
	s.LastFailure = &now
	if s.ConsecutiveFailures >= t.threshold {
		s.Status = StatusDown
	} else {
		s.Status = StatusDegraded
	}
}

// Eligible reports whether the provider may be dispatched to. Degraded
// providers are still eligible; only down providers are skipped.
func (t *HealthTracker) Eligible(id string) bool {
	s := t.state(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Status != StatusDown
}

// Snapshot copies the current health of every tracked provider.
func (t *HealthTracker) Snapshot() map[string]Health {
	t.mu.RLock()
	ids := make([]string, 0, len(t.states))
	for id := range t.states {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	out := make(map[string]Health, len(ids))
	for _, id := range ids {
		s := t.state(id)
		s.mu.Lock()
		out[id] = s.Health
		s.mu.Unlock()
	}
	return out
}

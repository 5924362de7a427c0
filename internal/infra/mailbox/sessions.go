package mailbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/telemetry"
)

// Sessions tracks last activity per session id so idle sessions can be reaped.
type Sessions struct {
	// reap orders slot writes against expiry: writers share it, Reap holds it exclusively.
	reap     sync.RWMutex
	mu       sync.Mutex
	lastSeen map[string]time.Time
	streams  map[string]int
	idle     time.Duration
	clock    clockwork.Clock
	metrics  domain.Metrics
}

func NewSessions(idle time.Duration, clock clockwork.Clock, metrics domain.Metrics) *Sessions {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Sessions{
		lastSeen: make(map[string]time.Time),
		streams:  make(map[string]int),
		idle:     idle,
		clock:    clock,
		metrics:  metrics,
	}
}

// Attach marks a push channel as open for the session.
func (s *Sessions) Attach(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen[sessionID] = s.clock.Now()
	s.streams[sessionID]++
	s.metrics.SetActiveSessions(len(s.lastSeen))
}

// Detach marks a push channel as closed and reports whether the session is now gone.
func (s *Sessions) Detach(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streams[sessionID] > 1 {
		s.streams[sessionID]--
		return false
	}
	delete(s.streams, sessionID)
	delete(s.lastSeen, sessionID)
	s.metrics.SetActiveSessions(len(s.lastSeen))
	return true
}

// Touch records activity, registering the session if it is unknown.
func (s *Sessions) Touch(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, known := s.lastSeen[sessionID]
	s.lastSeen[sessionID] = s.clock.Now()
	if !known {
		s.metrics.SetActiveSessions(len(s.lastSeen))
	}
}

// TouchWhile records activity and runs write before any concurrent Reap can sweep the session.
func (s *Sessions) TouchWhile(sessionID string, write func() error) error {
	s.reap.RLock()
	defer s.reap.RUnlock()
	s.Touch(sessionID)
	return write()
}

// Reap expires idle sessions and hands their ids to sweep with slot writes held off.
func (s *Sessions) Reap(sweep func(expired []string) error) ([]string, error) {
	s.reap.Lock()
	defer s.reap.Unlock()
	expired := s.Expire()
	if len(expired) == 0 {
		return nil, nil
	}
	return expired, sweep(expired)
}

func (s *Sessions) Known(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lastSeen[sessionID]
	return ok
}

func (s *Sessions) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lastSeen)
}

// Expire removes sessions idle longer than the idle timeout and returns their ids in sorted order.
// Sessions with an open push channel never expire.
func (s *Sessions) Expire() []string {
	if s.idle <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	var expired []string
	for id, seen := range s.lastSeen {
		if s.streams[id] > 0 || now.Sub(seen) <= s.idle {
			continue
		}
		expired = append(expired, id)
		delete(s.lastSeen, id)
	}
	if len(expired) > 0 {
		s.metrics.SetActiveSessions(len(s.lastSeen))
	}
	sort.Strings(expired)
	return expired
}

// Janitor periodically expires idle sessions and sweeps their mailbox slots.
type Janitor struct {
	sessions  *Sessions
	store     domain.MailboxStore
	interval  time.Duration
	clock     clockwork.Clock
	heartbeat *telemetry.Heartbeat
	logger    *zap.Logger
}

func (j *Janitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		return
	}
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()
	j.heartbeat.Beat()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			j.sweep(ctx)
			j.heartbeat.Beat()
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	expired, err := j.sessions.Reap(func(expired []string) error {
		return j.store.Sweep(ctx, expired...)
	})
	if len(expired) == 0 {
		return
	}
	if err != nil {
		j.logger.Warn("mailbox sweep failed", zap.Int("sessions", len(expired)), zap.Error(err))
		return
	}
	j.logger.Info("idle sessions reaped",
		telemetry.EventField(telemetry.EventSessionReap),
		zap.Strings("sessions", expired),
	)
}

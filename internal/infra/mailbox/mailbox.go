package mailbox

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/telemetry"
)

// JanitorLoopName is the health check name of the idle session janitor.
const JanitorLoopName = "session_janitor"

// Mailbox bridges the command channel and the push channel of one session.
// Each session holds at most one undelivered message; a newer message replaces it.
type Mailbox struct {
	store        domain.MailboxStore
	sessions     *Sessions
	pollInterval time.Duration
	idle         time.Duration
	clock        clockwork.Clock
	metrics      domain.Metrics
	health       *telemetry.HealthTracker
	logger       *zap.Logger
}

type Options struct {
	Store        domain.MailboxStore
	PollInterval time.Duration
	// IdleTimeout expires sessions without an open push channel. Zero disables expiry.
	IdleTimeout time.Duration
	Clock       clockwork.Clock
	Metrics     domain.Metrics
	Health      *telemetry.HealthTracker
	Logger      *zap.Logger
}

func New(opts Options) *Mailbox {
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Duration(domain.DefaultMailboxPollIntervalMillis) * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailbox{
		store:        store,
		sessions:     NewSessions(opts.IdleTimeout, clock, metrics),
		pollInterval: interval,
		idle:         opts.IdleTimeout,
		clock:        clock,
		metrics:      metrics,
		health:       opts.Health,
		logger:       logger.Named("mailbox"),
	}
}

// Sessions exposes the session registry.
func (m *Mailbox) Sessions() *Sessions {
	return m.sessions
}

// Deliver stores the message for the session's push channel.
func (m *Mailbox) Deliver(ctx context.Context, sessionID string, message []byte) error {
	var replaced bool
	err := m.sessions.TouchWhile(sessionID, func() error {
		var err error
		replaced, err = m.store.Put(ctx, sessionID, message)
		return err
	})
	if err != nil {
		return err
	}
	if replaced {
		m.metrics.ObserveMailboxOverwrite()
		m.logger.Warn("undelivered message replaced",
			telemetry.EventField(telemetry.EventMailboxOverwrite),
			telemetry.SessionField(sessionID),
		)
	}
	return nil
}

// Stream polls the session's slot until ctx ends and passes every message to emit.
// An emit error ends the stream.
func (m *Mailbox) Stream(ctx context.Context, sessionID string, emit func(message []byte) error) error {
	m.sessions.Attach(sessionID)
	m.logger.Debug("push channel opened", telemetry.EventField(telemetry.EventSessionOpen), telemetry.SessionField(sessionID))
	defer m.detach(sessionID)

	ticker := m.clock.NewTicker(m.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
		message, ok, err := m.store.Take(ctx, sessionID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.logger.Warn("mailbox read failed", telemetry.SessionField(sessionID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		m.sessions.Touch(sessionID)
		if err := emit(message); err != nil {
			return err
		}
	}
}

func (m *Mailbox) detach(sessionID string) {
	if !m.sessions.Detach(sessionID) {
		return
	}
	m.logger.Debug("push channel closed", telemetry.EventField(telemetry.EventSessionClose), telemetry.SessionField(sessionID))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.store.Sweep(ctx, sessionID); err != nil {
		m.logger.Warn("mailbox sweep failed", telemetry.SessionField(sessionID), zap.Error(err))
	}
}

// RunJanitor expires idle sessions until ctx ends. It returns at once when expiry is disabled.
func (m *Mailbox) RunJanitor(ctx context.Context) {
	if m.idle <= 0 {
		return
	}
	interval := m.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	var heartbeat *telemetry.Heartbeat
	if m.health != nil {
		heartbeat = m.health.Register(JanitorLoopName, 3*interval)
		defer m.health.Unregister(JanitorLoopName)
	}
	janitor := &Janitor{
		sessions:  m.sessions,
		store:     m.store,
		interval:  interval,
		clock:     m.clock,
		heartbeat: heartbeat,
		logger:    m.logger,
	}
	janitor.Run(ctx)
}

func (m *Mailbox) Close() error {
	return m.store.Close()
}

package mailbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/telemetry"
)

type collector struct {
	mu       sync.Mutex
	messages []string
}

func (c *collector) emit(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, string(message))
	return nil
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...)
}

func TestMailbox_StreamDeliversAndDeletes(t *testing.T) {
	store := NewMemoryStore()
	box := New(Options{Store: store, PollInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := &collector{}
	done := make(chan error, 1)
	go func() { done <- box.Stream(ctx, "s1", got.emit) }()

	require.Eventually(t, func() bool { return box.Sessions().Known("s1") }, time.Second, time.Millisecond)
	require.NoError(t, box.Deliver(context.Background(), "s1", []byte(`{"id":1}`)))
	require.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, time.Second, time.Millisecond)
	require.Equal(t, []string{`{"id":1}`}, got.snapshot())
	require.Zero(t, store.Len())

	cancel()
	require.NoError(t, <-done)
	require.False(t, box.Sessions().Known("s1"))
}

func TestMailbox_OverwriteCountsMetric(t *testing.T) {
	metrics := &countingMetrics{}
	box := New(Options{Metrics: metrics})

	require.NoError(t, box.Deliver(context.Background(), "s", []byte("one")))
	require.NoError(t, box.Deliver(context.Background(), "s", []byte("two")))
	require.Equal(t, 1, metrics.overwrites)

	message, ok, err := box.store.Take(context.Background(), "s")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "two", string(message))
}

func TestMailbox_StreamStopsOnEmitError(t *testing.T) {
	box := New(Options{PollInterval: 5 * time.Millisecond})
	require.NoError(t, box.Deliver(context.Background(), "s", []byte("x")))

	err := box.Stream(context.Background(), "s", func([]byte) error { return context.Canceled })
	require.ErrorIs(t, err, context.Canceled)
}

func TestSessions_ExpireIdleOnly(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sessions := NewSessions(time.Minute, clock, nil)

	sessions.Touch("idle")
	sessions.Attach("streaming")
	clock.Advance(30 * time.Second)
	sessions.Touch("recent")
	clock.Advance(45 * time.Second)

	require.Equal(t, []string{"idle"}, sessions.Expire())
	require.False(t, sessions.Known("idle"))
	require.True(t, sessions.Known("streaming"))
	require.True(t, sessions.Known("recent"))
	require.Equal(t, 2, sessions.Count())
}

func TestSessions_ZeroIdleDisablesExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sessions := NewSessions(0, clock, nil)
	sessions.Touch("s")
	clock.Advance(24 * time.Hour)
	require.Empty(t, sessions.Expire())
}

func TestSessions_DetachCountsStreams(t *testing.T) {
	sessions := NewSessions(time.Minute, clockwork.NewFakeClock(), nil)
	sessions.Attach("s")
	sessions.Attach("s")
	require.False(t, sessions.Detach("s"))
	require.True(t, sessions.Detach("s"))
	require.False(t, sessions.Known("s"))
}

func TestJanitor_SweepsExpiredSlots(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewMemoryStore()
	sessions := NewSessions(time.Minute, clock, nil)
	health := telemetry.NewHealthTracker()
	janitor := &Janitor{
		sessions:  sessions,
		store:     store,
		interval:  time.Second,
		clock:     clock,
		heartbeat: health.Register(JanitorLoopName, time.Hour),
		logger:    zapNop(),
	}

	sessions.Touch("orphan")
	_, err := store.Put(context.Background(), "orphan", []byte("never read"))
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	janitor.sweep(context.Background())
	require.Zero(t, store.Len())
	require.False(t, sessions.Known("orphan"))
}

type gatedStore struct {
	*MemoryStore
	sweeping chan struct{}
	release  chan struct{}
}

func (s *gatedStore) Sweep(ctx context.Context, sessionIDs ...string) error {
	close(s.sweeping)
	<-s.release
	return s.MemoryStore.Sweep(ctx, sessionIDs...)
}

func TestJanitor_DeliveryDuringSweepSurvives(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := &gatedStore{MemoryStore: NewMemoryStore(), sweeping: make(chan struct{}), release: make(chan struct{})}
	box := New(Options{Store: store, IdleTimeout: time.Minute, Clock: clock})
	janitor := &Janitor{
		sessions: box.Sessions(),
		store:    store,
		interval: time.Second,
		clock:    clock,
		logger:   zapNop(),
	}

	box.Sessions().Touch("s")
	clock.Advance(2 * time.Minute)

	swept := make(chan struct{})
	go func() {
		janitor.sweep(context.Background())
		close(swept)
	}()
	<-store.sweeping

	delivered := make(chan error, 1)
	go func() {
		delivered <- box.Deliver(context.Background(), "s", []byte("fresh"))
	}()
	select {
	case err := <-delivered:
		t.Fatalf("delivery finished while the sweep was running: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	<-swept
	require.NoError(t, <-delivered)

	require.True(t, box.Sessions().Known("s"))
	message, ok, err := store.Take(context.Background(), "s")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "fresh", string(message))
}

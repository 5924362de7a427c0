package catalogcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

func countingLoader(calls *atomic.Int64, name string) Loader {
	return func(context.Context) ([]domain.ServerRecord, error) {
		calls.Add(1)
		return []domain.ServerRecord{{Name: name}}, nil
	}
}

func TestCache_IdempotentWithinTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := New(Options{Clock: clock})
	var calls atomic.Int64

	for i := 0; i < 5; i++ {
		got, err := cache.Get(context.Background(), "k", time.Minute, countingLoader(&calls, "weather"))
		require.NoError(t, err)
		assert.Equal(t, []domain.ServerRecord{{Name: "weather"}}, got)
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestCache_KeySeparation(t *testing.T) {
	cache := New(Options{Clock: clockwork.NewFakeClock()})
	var calls atomic.Int64

	a, err := cache.Get(context.Background(), "a", time.Minute, countingLoader(&calls, "a"))
	require.NoError(t, err)
	b, err := cache.Get(context.Background(), "b", time.Minute, countingLoader(&calls, "b"))
	require.NoError(t, err)

	assert.Equal(t, "a", a[0].Name)
	assert.Equal(t, "b", b[0].Name)
	assert.Equal(t, int64(2), calls.Load())
}

func TestCache_TTLExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := New(Options{Clock: clock})
	var calls atomic.Int64
	ttl := 60 * time.Second

	_, err := cache.Get(context.Background(), "k", ttl, countingLoader(&calls, "x"))
	require.NoError(t, err)

	clock.Advance(ttl - time.Millisecond)
	_, err = cache.Get(context.Background(), "k", ttl, countingLoader(&calls, "x"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())

	clock.Advance(2 * time.Millisecond)
	_, err = cache.Get(context.Background(), "k", ttl, countingLoader(&calls, "x"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestCache_SingleFlight(t *testing.T) {
	cache := New(Options{Clock: clockwork.NewFakeClock()})
	var calls atomic.Int64
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	loader := func(context.Context) ([]domain.ServerRecord, error) {
		calls.Add(1)
		once.Do(func() { close(started) })
		<-release
		return []domain.ServerRecord{{Name: "shared"}}, nil
	}

	const n = 16
	var wg sync.WaitGroup
	results := make([][]domain.ServerRecord, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Get(context.Background(), "k", time.Minute, loader)
		}(i)
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []domain.ServerRecord{{Name: "shared"}}, results[i])
	}
}

func TestCache_WaiterHonoursOwnDeadline(t *testing.T) {
	cache := New(Options{Clock: clockwork.NewFakeClock()})
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int64

	loader := func(context.Context) ([]domain.ServerRecord, error) {
		calls.Add(1)
		close(started)
		<-release
		return []domain.ServerRecord{{Name: "slow"}}, nil
	}

	leader := make(chan error, 1)
	go func() {
		_, err := cache.Get(context.Background(), "k", time.Minute, loader)
		leader <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	begin := time.Now()
	_, err := cache.Get(ctx, "k", time.Minute, loader)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(begin), 2*time.Second)

	close(release)
	require.NoError(t, <-leader)
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, 1, cache.Size())
}

func TestCache_CancelledLeaderDoesNotAbortLoad(t *testing.T) {
	cache := New(Options{Clock: clockwork.NewFakeClock()})
	release := make(chan struct{})

	loader := func(ctx context.Context) ([]domain.ServerRecord, error) {
		<-release
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return []domain.ServerRecord{{Name: "kept"}}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctx, "k", time.Minute, loader)
		done <- err
	}()
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return cache.Size() == 1 }, 2*time.Second, 5*time.Millisecond)
	got, err := cache.Get(context.Background(), "k", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "kept", got[0].Name)
}

func TestCache_NoNegativeCaching(t *testing.T) {
	cache := New(Options{Clock: clockwork.NewFakeClock()})
	var calls atomic.Int64
	boom := errors.New("registry down")

	failing := func(context.Context) ([]domain.ServerRecord, error) {
		calls.Add(1)
		return nil, boom
	}

	_, err := cache.Get(context.Background(), "k", time.Minute, failing)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Size())

	got, err := cache.Get(context.Background(), "k", time.Minute, countingLoader(&calls, "ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", got[0].Name)
	assert.Equal(t, int64(2), calls.Load())
}

func TestCache_ReturnsCopies(t *testing.T) {
	cache := New(Options{Clock: clockwork.NewFakeClock()})
	var calls atomic.Int64

	first, err := cache.Get(context.Background(), "k", time.Minute, countingLoader(&calls, "orig"))
	require.NoError(t, err)
	first[0].Name = "mutated"

	second, err := cache.Get(context.Background(), "k", time.Minute, countingLoader(&calls, "orig"))
	require.NoError(t, err)
	assert.Equal(t, "orig", second[0].Name)
}

func TestCache_InvalidateAndPurge(t *testing.T) {
	cache := New(Options{Clock: clockwork.NewFakeClock()})
	var calls atomic.Int64

	_, _ = cache.Get(context.Background(), "a", time.Minute, countingLoader(&calls, "a"))
	_, _ = cache.Get(context.Background(), "b", time.Minute, countingLoader(&calls, "b"))
	require.Equal(t, 2, cache.Size())

	cache.Invalidate("a")
	assert.Equal(t, 1, cache.Size())
	cache.Purge()
	assert.Equal(t, 0, cache.Size())
}

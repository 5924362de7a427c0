package mailbox

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/require"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

func storeFactories(t *testing.T) map[string]func(t *testing.T) domain.MailboxStore {
	t.Helper()
	return map[string]func(t *testing.T) domain.MailboxStore{
		"memory": func(t *testing.T) domain.MailboxStore {
			return NewMemoryStore()
		},
		"bbolt": func(t *testing.T) domain.MailboxStore {
			store, err := OpenBoltStore(filepath.Join(t.TempDir(), "nested", "mailbox.db"))
			require.NoError(t, err)
			return store
		},
		"redis": func(t *testing.T) domain.MailboxStore {
			server := miniredis.RunT(t)
			store, err := NewRedisStore(RedisStoreOptions{Address: server.Addr(), TTL: time.Minute})
			require.NoError(t, err)
			return store
		},
	}
}

func TestStores_OverwriteKeepsOnlyLatest(t *testing.T) {
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			t.Cleanup(func() { _ = store.Close() })
			ctx := context.Background()

			replaced, err := store.Put(ctx, "s1", []byte("first"))
			require.NoError(t, err)
			require.False(t, replaced)

			replaced, err = store.Put(ctx, "s1", []byte("second"))
			require.NoError(t, err)
			require.True(t, replaced)

			message, ok, err := store.Take(ctx, "s1")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "second", string(message))

			_, ok, err = store.Take(ctx, "s1")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestStores_SessionsAreIsolated(t *testing.T) {
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			t.Cleanup(func() { _ = store.Close() })
			ctx := context.Background()

			_, err := store.Put(ctx, "a", []byte("for a"))
			require.NoError(t, err)
			_, err = store.Put(ctx, "b", []byte("for b"))
			require.NoError(t, err)

			require.NoError(t, store.Sweep(ctx, "a", "missing"))

			_, ok, err := store.Take(ctx, "a")
			require.NoError(t, err)
			require.False(t, ok)

			message, ok, err := store.Take(ctx, "b")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "for b", string(message))
		})
	}
}

func TestStores_SweepRemovesEverySlot(t *testing.T) {
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			t.Cleanup(func() { _ = store.Close() })
			ctx := context.Background()

			ids := []string{"alpha", "beta", "gamma"}
			for _, id := range ids {
				_, err := store.Put(ctx, id, []byte("pending "+id))
				require.NoError(t, err)
			}
			require.NoError(t, store.Sweep(ctx, ids...))

			for _, id := range ids {
				_, ok, err := store.Take(ctx, id)
				require.NoError(t, err)
				require.False(t, ok, id)
			}
		})
	}
}

func TestMemoryStore_ClosedRejectsOperations(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	_, err := store.Put(context.Background(), "s", []byte("x"))
	require.ErrorIs(t, err, domain.ErrStoreClosed)
	_, _, err = store.Take(context.Background(), "s")
	require.ErrorIs(t, err, domain.ErrStoreClosed)
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailbox.db")
	store, err := OpenBoltStore(path)
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "s", []byte("pending"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.Put(context.Background(), "s", []byte("late"))
	require.ErrorIs(t, err, domain.ErrStoreClosed)

	reopened, err := OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	message, ok, err := reopened.Take(context.Background(), "s")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "pending", string(message))
}

func TestRedisStore_SlotsExpire(t *testing.T) {
	server := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{server.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	store, err := NewRedisStore(RedisStoreOptions{Client: client, TTL: 30 * time.Second})
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "s", []byte("pending"))
	require.NoError(t, err)
	require.True(t, server.Exists(redisKey("s")))

	server.FastForward(31 * time.Second)
	_, ok, err := store.Take(context.Background(), "s")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpenStore(t *testing.T) {
	store, err := OpenStore(StoreConfig{})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, store)

	store, err = OpenStore(StoreConfig{Backend: BackendBolt, Path: filepath.Join(t.TempDir(), "m.db")})
	require.NoError(t, err)
	require.IsType(t, &BoltStore{}, store)
	require.NoError(t, store.Close())

	_, err = OpenStore(StoreConfig{Backend: "etcd"})
	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	require.Equal(t, domain.CodeInvalidArgument, code)
}

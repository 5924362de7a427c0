package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/redis/rueidis"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

const redisKeyPrefix = "nacos-mcp-gateway:mailbox:"

// RedisStore shares mailbox slots across gateway replicas.
// Slots expire on their own after the configured TTL.
type RedisStore struct {
	client rueidis.Client
	ttl    time.Duration
	owned  bool
}

type RedisStoreOptions struct {
	Address string
	// Client overrides Address when set. The caller keeps ownership of it.
	Client rueidis.Client
	// TTL bounds how long an unread message is kept. Zero keeps it until read.
	TTL time.Duration
}

func NewRedisStore(opts RedisStoreOptions) (*RedisStore, error) {
	if opts.Client != nil {
		return &RedisStore{client: opts.Client, ttl: opts.TTL}, nil
	}
	if opts.Address == "" {
		return nil, fmt.Errorf("mailbox redis address is required")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{opts.Address},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect mailbox redis: %w", err)
	}
	return &RedisStore{client: client, ttl: opts.TTL, owned: true}, nil
}

func (s *RedisStore) Put(ctx context.Context, sessionID string, message []byte) (bool, error) {
	value := rueidis.BinaryString(message)
	var cmd rueidis.Completed
	if s.ttl > 0 {
		cmd = s.client.B().Set().Key(redisKey(sessionID)).Value(value).Get().Ex(s.ttl).Build()
	} else {
		cmd = s.client.B().Set().Key(redisKey(sessionID)).Value(value).Get().Build()
	}
	err := s.client.Do(ctx, cmd).Error()
	if rueidis.IsRedisNil(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("put mailbox slot: %w", err)
	}
	return true, nil
}

func (s *RedisStore) Take(ctx context.Context, sessionID string) ([]byte, bool, error) {
	message, err := s.client.Do(ctx, s.client.B().Getdel().Key(redisKey(sessionID)).Build()).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("take mailbox slot: %w", err)
	}
	return message, true, nil
}

func (s *RedisStore) Sweep(ctx context.Context, sessionIDs ...string) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	// One DEL per key: slots hash to different cluster slots.
	cmds := make(rueidis.Commands, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		cmds = append(cmds, s.client.B().Del().Key(redisKey(id)).Build())
	}
	var result *multierror.Error
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			result = multierror.Append(result, fmt.Errorf("sweep mailbox slot %s: %w", sessionIDs[i], err))
		}
	}
	return result.ErrorOrNil()
}

func (s *RedisStore) Close() error {
	if s.owned {
		s.client.Close()
	}
	return nil
}

func redisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

var _ domain.MailboxStore = (*RedisStore)(nil)

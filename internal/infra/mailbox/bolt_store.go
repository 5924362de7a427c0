package mailbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

var slotsBucket = []byte("mailbox_slots")

// BoltStore persists pending messages in a bbolt file so they survive a restart.
type BoltStore struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
}

func OpenBoltStore(path string) (*BoltStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("mailbox path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure mailbox dir: %w", err)
	}
	db, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open mailbox db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(slotsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure mailbox bucket: %w", err)
	}
	return &BoltStore{db: db, path: trimmed}, nil
}

// Path returns the database file location.
func (s *BoltStore) Path() string {
	return s.path
}

func (s *BoltStore) Put(_ context.Context, sessionID string, message []byte) (bool, error) {
	var replaced bool
	err := s.update(func(bucket *bolt.Bucket) error {
		key := []byte(sessionID)
		replaced = bucket.Get(key) != nil
		return bucket.Put(key, message)
	})
	return replaced, err
}

func (s *BoltStore) Take(_ context.Context, sessionID string) ([]byte, bool, error) {
	var message []byte
	err := s.update(func(bucket *bolt.Bucket) error {
		key := []byte(sessionID)
		value := bucket.Get(key)
		if value == nil {
			return nil
		}
		// Values are only valid for the life of the transaction.
		message = append([]byte(nil), value...)
		return bucket.Delete(key)
	})
	if err != nil {
		return nil, false, err
	}
	return message, message != nil, nil
}

func (s *BoltStore) Sweep(_ context.Context, sessionIDs ...string) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	return s.update(func(bucket *bolt.Bucket) error {
		for _, id := range sessionIDs {
			if err := bucket.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *BoltStore) update(fn func(bucket *bolt.Bucket) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(slotsBucket)
		if bucket == nil {
			return fmt.Errorf("mailbox bucket missing")
		}
		return fn(bucket)
	})
}

var _ domain.MailboxStore = (*BoltStore)(nil)

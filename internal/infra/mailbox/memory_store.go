package mailbox

import (
	"context"
	"sync"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

// MemoryStore keeps one pending message per session in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	slots  map[string][]byte
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, message []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, domain.ErrStoreClosed
	}
	_, replaced := s.slots[sessionID]
	s.slots[sessionID] = append([]byte(nil), message...)
	return replaced, nil
}

func (s *MemoryStore) Take(_ context.Context, sessionID string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, domain.ErrStoreClosed
	}
	message, ok := s.slots[sessionID]
	if !ok {
		return nil, false, nil
	}
	delete(s.slots, sessionID)
	return message, true, nil
}

func (s *MemoryStore) Sweep(_ context.Context, sessionIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	for _, id := range sessionIDs {
		delete(s.slots, id)
	}
	return nil
}

// Len returns the number of pending messages.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.slots = nil
	return nil
}

var _ domain.MailboxStore = (*MemoryStore)(nil)

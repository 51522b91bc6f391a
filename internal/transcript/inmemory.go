package transcript

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps the newest entries per user in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	perUser int
	records map[string][]Entry
}

// NewInMemoryStore keeps at most perUser entries per user; <= 0 means 500.
func NewInMemoryStore(perUser int) *InMemoryStore {
	if perUser <= 0 {
		perUser = 500
	}
	return &InMemoryStore{perUser: perUser, records: make(map[string][]Entry)}
}

func (s *InMemoryStore) SaveTurn(_ context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	arr := append(s.records[entry.UserID], entry)
	if over := len(arr) - s.perUser; over > 0 {
		arr = append([]Entry(nil), arr[over:]...)
	}
	s.records[entry.UserID] = arr
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, userID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.records[userID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > len(arr) {
		limit = len(arr)
	}
	out := make([]Entry, limit)
	copy(out, arr[len(arr)-limit:])
	return out, nil
}

func (s *InMemoryStore) Mode() string { return "memory" }

func (s *InMemoryStore) Close() error { return nil }

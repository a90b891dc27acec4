package noncestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/layer-3/minigate/core"
)

type entry struct {
	nonce     string
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the NonceStore interface,
// primarily intended for testing.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory nonce store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *MemoryStore) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

func memKey(identifier string, chainID int64) string {
	return fmt.Sprintf("%s:%s", identifier, core.ChainRef(chainID))
}

// Save stores a nonce, superseding any prior value for the pair.
func (s *MemoryStore) Save(ctx context.Context, identifier string, chainID int64, nonce string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[memKey(identifier, chainID)] = entry{nonce: nonce, expiresAt: expiresAt}
	return nil
}

// Consume deletes and returns the live nonce for the pair. The single lock
// makes the read and delete one operation.
func (s *MemoryStore) Consume(ctx context.Context, identifier string, chainID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memKey(identifier, chainID)
	e, ok := s.entries[key]
	if !ok {
		return "", core.ErrNonceExpiredOrMissing
	}
	delete(s.entries, key)
	if s.now().After(e.expiresAt) {
		return "", core.ErrNonceExpiredOrMissing
	}
	return e.nonce, nil
}

package identity

import (
	"context"
	"sync"

	"github.com/layer-3/minigate/core"
)

// MemoryStore is an in-memory implementation of the IdentityStore
// interface, honoring the same uniqueness invariants as the Postgres store.
// It is primarily intended for testing.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]core.User
	wallets  []core.WalletAddress
	accounts []core.Account
}

// NewMemoryStore creates a new in-memory identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]core.User)}
}

// FindWallet looks up the record for an exact (address, chainID) pair.
func (s *MemoryStore) FindWallet(ctx context.Context, address, chainID string) (*core.WalletAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.wallets {
		if w.Address == address && w.ChainID == chainID {
			out := w
			return &out, nil
		}
	}
	return nil, core.ErrNotFound
}

// FindWalletByAddress looks up the oldest record for the address on any chain.
func (s *MemoryStore) FindWalletByAddress(ctx context.Context, address string) (*core.WalletAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Insertion order is creation order.
	for _, w := range s.wallets {
		if w.Address == address {
			out := w
			return &out, nil
		}
	}
	return nil, core.ErrNotFound
}

// FindUser looks up a user by id.
func (s *MemoryStore) FindUser(ctx context.Context, id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	out := u
	return &out, nil
}

// ListWallets returns all wallet records owned by a user.
func (s *MemoryStore) ListWallets(ctx context.Context, userID string) ([]core.WalletAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var wallets []core.WalletAddress
	for _, w := range s.wallets {
		if w.UserID == userID {
			wallets = append(wallets, w)
		}
	}
	return wallets, nil
}

// CreateUserWithWallet writes user, primary wallet and account link under a
// single lock acquisition.
func (s *MemoryStore) CreateUserWithWallet(ctx context.Context, user *core.User, wallet *core.WalletAddress, account *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasWalletLocked(wallet.Address, wallet.ChainID) {
		return core.ErrDuplicate
	}
	s.users[user.ID] = *user
	s.wallets = append(s.wallets, *wallet)
	s.accounts = append(s.accounts, *account)
	return nil
}

// AddWallet links an additional wallet record and account link to an
// existing user.
func (s *MemoryStore) AddWallet(ctx context.Context, wallet *core.WalletAddress, account *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasWalletLocked(wallet.Address, wallet.ChainID) {
		return core.ErrDuplicate
	}
	s.wallets = append(s.wallets, *wallet)
	s.accounts = append(s.accounts, *account)
	return nil
}

// SetPersonVerified updates the stored personhood flag for a user.
func (s *MemoryStore) SetPersonVerified(ctx context.Context, userID string, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.PersonVerified = verified
	s.users[userID] = u
	return nil
}

// Accounts returns a copy of all account link records, used by tests.
func (s *MemoryStore) Accounts() []core.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

func (s *MemoryStore) hasWalletLocked(address, chainID string) bool {
	for _, w := range s.wallets {
		if w.Address == address && w.ChainID == chainID {
			return true
		}
	}
	return false
}

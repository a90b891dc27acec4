package ports

import (
	"context"
	"time"

	"github.com/layer-3/minigate/core"
)

// NonceStore persists single-use challenge nonces keyed by an opaque
// identifier plus chain context.
type NonceStore interface {
	// Save persists a nonce with an absolute expiry, superseding any prior
	// nonce for the same (identifier, chainID) pair.
	Save(ctx context.Context, identifier string, chainID int64, nonce string, expiresAt time.Time) error

	// Consume atomically deletes and returns the live nonce for the pair.
	// Returns core.ErrNonceExpiredOrMissing if absent or expired. At most
	// one concurrent caller can obtain a given nonce.
	Consume(ctx context.Context, identifier string, chainID int64) (string, error)
}

// IdentityStore persists users, wallet address records and account links.
// Lookups return core.ErrNotFound when no record matches.
type IdentityStore interface {
	// FindWallet looks up the record for an exact (address, chainID) pair.
	FindWallet(ctx context.Context, address, chainID string) (*core.WalletAddress, error)

	// FindWalletByAddress looks up any record for the address on any chain.
	FindWalletByAddress(ctx context.Context, address string) (*core.WalletAddress, error)

	// FindUser looks up a user by id.
	FindUser(ctx context.Context, id string) (*core.User, error)

	// ListWallets returns all wallet records owned by a user.
	ListWallets(ctx context.Context, userID string) ([]core.WalletAddress, error)

	// CreateUserWithWallet writes a new user, its primary wallet record and
	// the account link as a single logical unit.
	CreateUserWithWallet(ctx context.Context, user *core.User, wallet *core.WalletAddress, account *core.Account) error

	// AddWallet links an additional chain-scoped wallet record and account
	// link to an existing user. Primacy of earlier records is not altered.
	AddWallet(ctx context.Context, wallet *core.WalletAddress, account *core.Account) error

	// SetPersonVerified updates the stored personhood flag for a user.
	SetPersonVerified(ctx context.Context, userID string, verified bool) error
}

package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/layer-3/minigate/core"
	"github.com/layer-3/minigate/ports"
)

// PostgresStore is a Postgres implementation of the IdentityStore interface.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres identity store.
func NewPostgresStore(db *sql.DB) ports.IdentityStore {
	return &PostgresStore{db: db}
}

const walletColumns = "id, user_id, address, chain_id, is_primary, created_at"

func scanWallet(row *sql.Row) (*core.WalletAddress, error) {
	var w core.WalletAddress
	err := row.Scan(&w.ID, &w.UserID, &w.Address, &w.ChainID, &w.IsPrimary, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return &w, nil
}

// FindWallet looks up the record for an exact (address, chainID) pair.
func (s *PostgresStore) FindWallet(ctx context.Context, address, chainID string) (*core.WalletAddress, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallet_addresses WHERE address = $1 AND chain_id = $2`,
		address, chainID)
	return scanWallet(row)
}

// FindWalletByAddress looks up any record for the address, oldest first so
// the primary record wins when several chains exist.
func (s *PostgresStore) FindWalletByAddress(ctx context.Context, address string) (*core.WalletAddress, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallet_addresses WHERE address = $1 ORDER BY created_at ASC LIMIT 1`,
		address)
	return scanWallet(row)
}

// FindUser looks up a user by id.
func (s *PostgresStore) FindUser(ctx context.Context, id string) (*core.User, error) {
	var u core.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, image, verified_address, person_verified, created_at, updated_at
		 FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.VerifiedAddress, &u.PersonVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

// ListWallets returns all wallet records owned by a user.
func (s *PostgresStore) ListWallets(ctx context.Context, userID string) ([]core.WalletAddress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+walletColumns+` FROM wallet_addresses WHERE user_id = $1 ORDER BY created_at ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("query wallets: %w", err)
	}
	defer rows.Close()

	var wallets []core.WalletAddress
	for rows.Next() {
		var w core.WalletAddress
		if err := rows.Scan(&w.ID, &w.UserID, &w.Address, &w.ChainID, &w.IsPrimary, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// CreateUserWithWallet writes the user, its primary wallet record and the
// account link in a single transaction so a crash cannot leave a user
// without a wallet record.
func (s *PostgresStore) CreateUserWithWallet(ctx context.Context, user *core.User, wallet *core.WalletAddress, account *core.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, name, email, image, verified_address, person_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Name, user.Email, user.Image, user.VerifiedAddress, user.PersonVerified, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", classifyConflict(err))
	}

	if err := insertWallet(ctx, tx, wallet); err != nil {
		return err
	}
	if err := insertAccount(ctx, tx, account); err != nil {
		return err
	}

	return tx.Commit()
}

// AddWallet links an additional wallet record and account link to an
// existing user.
func (s *PostgresStore) AddWallet(ctx context.Context, wallet *core.WalletAddress, account *core.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertWallet(ctx, tx, wallet); err != nil {
		return err
	}
	if err := insertAccount(ctx, tx, account); err != nil {
		return err
	}

	return tx.Commit()
}

// SetPersonVerified updates the stored personhood flag for a user.
func (s *PostgresStore) SetPersonVerified(ctx context.Context, userID string, verified bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET person_verified = $1, updated_at = now() WHERE id = $2`,
		verified, userID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func insertWallet(ctx context.Context, tx *sql.Tx, w *core.WalletAddress) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_addresses (id, user_id, address, chain_id, is_primary, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.UserID, w.Address, w.ChainID, w.IsPrimary, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", classifyConflict(err))
	}
	return nil
}

func insertAccount(ctx context.Context, tx *sql.Tx, a *core.Account) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, provider_id, account_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.UserID, a.ProviderID, a.AccountID, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", classifyConflict(err))
	}
	return nil
}

// classifyConflict maps Postgres unique violations to ErrDuplicate so the
// resolver can re-derive the winner of a concurrent creation race.
func classifyConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("%v: %w", err, core.ErrDuplicate)
	}
	return err
}

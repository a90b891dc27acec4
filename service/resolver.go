package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/layer-3/minigate/core"
)

// resolveIdentity maps a verified wallet address to a durable user identity,
// creating one on first sign-in and merging additional chains into an
// existing identity when the same address reappears. An address found only
// under a different chain is the same human on a new chain, never a
// collision.
func (s *AuthService) resolveIdentity(ctx context.Context, address string, chainID int64, profile core.Profile, email string) (*core.User, bool, error) {
	chainRef := core.ChainRef(chainID)

	personVerified, err := s.oracle.IsVerified(ctx, address)
	if err != nil {
		return nil, false, fmt.Errorf("personhood check for %s: %w", address, err)
	}

	exact, err := s.identities.FindWallet(ctx, address, chainRef)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, false, fmt.Errorf("find wallet: %w", err)
	}

	var user *core.User
	switch {
	case exact != nil:
		// Returning user, same chain.
		user, err = s.identities.FindUser(ctx, exact.UserID)
		if err != nil {
			return nil, false, fmt.Errorf("find user %s: %w", exact.UserID, err)
		}
	default:
		// Same address on another chain means the same human.
		any, err := s.identities.FindWalletByAddress(ctx, address)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return nil, false, fmt.Errorf("find wallet by address: %w", err)
		}
		if any != nil {
			user, err = s.identities.FindUser(ctx, any.UserID)
			if err != nil {
				return nil, false, fmt.Errorf("find user %s: %w", any.UserID, err)
			}
		}
	}

	if user == nil {
		user, err = s.createIdentity(ctx, address, chainRef, profile, email, personVerified)
		if errors.Is(err, core.ErrDuplicate) {
			// A concurrent sign-in won the creation race. The wallet record
			// is authoritative, so re-derive the owning user from it.
			return s.recoverExisting(ctx, address)
		}
		if err != nil {
			return nil, false, err
		}
		return user, true, nil
	}

	// Keep the stored personhood flag current with the oracle's answer,
	// whether or not a new wallet record is created this call.
	if user.PersonVerified != personVerified {
		if err := s.identities.SetPersonVerified(ctx, user.ID, personVerified); err != nil {
			return nil, false, fmt.Errorf("update personhood flag: %w", err)
		}
		user.PersonVerified = personVerified
	}

	if exact == nil {
		if err := s.linkWallet(ctx, user.ID, address, chainRef); err != nil {
			return nil, false, err
		}
	}

	return user, false, nil
}

// recoverExisting resolves the user that a concurrent request linked the
// address to.
func (s *AuthService) recoverExisting(ctx context.Context, address string) (*core.User, bool, error) {
	wallet, err := s.identities.FindWalletByAddress(ctx, address)
	if err != nil {
		return nil, false, fmt.Errorf("recover wallet owner: %w", err)
	}
	user, err := s.identities.FindUser(ctx, wallet.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("recover user %s: %w", wallet.UserID, err)
	}
	return user, false, nil
}

// createIdentity creates a brand-new user with its primary wallet record and
// account link written as one logical unit.
func (s *AuthService) createIdentity(ctx context.Context, address, chainRef string, profile core.Profile, email string, personVerified bool) (*core.User, error) {
	// A caller-supplied email is only honored when anonymous sign-in is
	// disabled; otherwise the address-derived one keeps identities stable.
	userEmail := email
	if s.anonymous {
		userEmail = fmt.Sprintf("%s@%s", address, s.emailDomain)
	}

	ensName, ensAvatar := s.lookupName(ctx, address)

	name := profile.Username
	if name == "" {
		name = ensName
	}
	if name == "" {
		name = address
	}

	avatar := profile.Avatar
	if avatar == "" {
		avatar = ensAvatar
	}

	now := s.now()
	user := &core.User{
		ID:              uuid.New().String(),
		Name:            name,
		Email:           userEmail,
		Image:           avatar,
		VerifiedAddress: address,
		PersonVerified:  personVerified,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	wallet := &core.WalletAddress{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Address:   address,
		ChainID:   chainRef,
		IsPrimary: true,
		CreatedAt: now,
	}
	account := &core.Account{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		ProviderID: core.ProviderID,
		AccountID:  fmt.Sprintf("%s:%s", address, chainRef),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.identities.CreateUserWithWallet(ctx, user, wallet, account); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// linkWallet adds a non-primary wallet record for an existing user gaining
// a new chain.
func (s *AuthService) linkWallet(ctx context.Context, userID, address, chainRef string) error {
	now := s.now()
	wallet := &core.WalletAddress{
		ID:        uuid.New().String(),
		UserID:    userID,
		Address:   address,
		ChainID:   chainRef,
		IsPrimary: false,
		CreatedAt: now,
	}
	account := &core.Account{
		ID:         uuid.New().String(),
		UserID:     userID,
		ProviderID: core.ProviderID,
		AccountID:  fmt.Sprintf("%s:%s", address, chainRef),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.identities.AddWallet(ctx, wallet, account)
	if errors.Is(err, core.ErrDuplicate) {
		// A concurrent request already linked this pair; records are never
		// reassigned, so the existing link is the correct one.
		return nil
	}
	if err != nil {
		return fmt.Errorf("link wallet %s on %s: %w", address, chainRef, err)
	}
	return nil
}

// lookupName performs the optional ENS-style lookup. Failures fall back to
// the address as display name.
func (s *AuthService) lookupName(ctx context.Context, address string) (string, string) {
	if s.names == nil {
		return "", ""
	}
	name, avatar, err := s.names.Lookup(ctx, address)
	if err != nil {
		s.log.Debug("name lookup failed", zap.String("address", address), zap.Error(err))
		return "", ""
	}
	return name, avatar
}

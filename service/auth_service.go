package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/layer-3/minigate/core"
	"github.com/layer-3/minigate/ports"
)

// Options configures an AuthService.
type Options struct {
	// Domain is the challenge domain, audience and issuer.
	Domain string

	// EmailDomain is the domain used when synthesizing emails for anonymous
	// users. Defaults to Domain.
	EmailDomain string

	// Anonymous allows sign-in without a caller-supplied email.
	Anonymous bool

	// NonceTTL is the absolute lifetime of issued nonces.
	NonceTTL time.Duration
}

// AuthService sequences nonce issuance, message verification, identity
// resolution and session creation for wallet sign-in.
type AuthService struct {
	nonces     ports.NonceStore
	identities ports.IdentityStore
	verifier   ports.MessageVerifier
	oracle     ports.PersonhoodOracle
	names      ports.NameResolver
	sessions   ports.SessionIssuer
	events     ports.EventPublisher
	log        *zap.Logger

	domain      string
	emailDomain string
	anonymous   bool
	nonceTTL    time.Duration

	newNonce func() (string, error)
	now      func() time.Time
}

// NewAuthService creates a new authentication service. names and events may
// be nil; the corresponding steps are skipped.
func NewAuthService(
	nonces ports.NonceStore,
	identities ports.IdentityStore,
	verifier ports.MessageVerifier,
	oracle ports.PersonhoodOracle,
	names ports.NameResolver,
	sessions ports.SessionIssuer,
	events ports.EventPublisher,
	log *zap.Logger,
	opts Options,
) *AuthService {
	if opts.EmailDomain == "" {
		opts.EmailDomain = opts.Domain
	}
	if opts.NonceTTL <= 0 {
		opts.NonceTTL = core.DefaultNonceTTL
	}
	return &AuthService{
		nonces:      nonces,
		identities:  identities,
		verifier:    verifier,
		oracle:      oracle,
		names:       names,
		sessions:    sessions,
		events:      events,
		log:         log,
		domain:      opts.Domain,
		emailDomain: opts.EmailDomain,
		anonymous:   opts.Anonymous,
		nonceTTL:    opts.NonceTTL,
		newNonce:    generateNonce,
		now:         time.Now,
	}
}

// RequestNonce issues a fresh challenge nonce for the identifier/chain pair,
// superseding any prior live nonce for the same pair.
func (s *AuthService) RequestNonce(ctx context.Context, identifier string, chainID int64) (*core.Challenge, error) {
	nonce, err := s.newNonce()
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	challenge := &core.Challenge{
		Identifier: identifier,
		ChainID:    chainID,
		Nonce:      nonce,
		ExpiresAt:  s.now().Add(s.nonceTTL),
	}

	if err := s.nonces.Save(ctx, identifier, chainID, nonce, challenge.ExpiresAt); err != nil {
		return nil, fmt.Errorf("store nonce: %w", err)
	}

	return challenge, nil
}

// SignInInput is a sign-in submission for a previously issued nonce.
type SignInInput struct {
	Message    string
	Signature  string
	Identifier string
	Address    string
	ChainID    int64
	Email      string
	Profile    core.Profile
}

// SignInResult is the outcome of a successful sign-in.
type SignInResult struct {
	Session *core.Session
	User    *core.User
	NewUser bool
}

// SignIn verifies a signed challenge, resolves the wallet to a user identity
// and issues a session. Classified failures propagate unchanged; anything
// else is logged and surfaced as a generic unauthorized failure so internal
// detail never reaches the wallet client.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (*SignInResult, error) {
	res, err := s.signIn(ctx, in)
	if err != nil {
		if core.Classified(err) {
			return nil, err
		}
		s.log.Error("sign-in failed",
			zap.String("identifier", in.Identifier),
			zap.Int64("chain_id", in.ChainID),
			zap.Error(err))
		return nil, core.ErrUnauthorized
	}
	return res, nil
}

func (s *AuthService) signIn(ctx context.Context, in SignInInput) (*SignInResult, error) {
	address, err := core.NormalizeAddress(in.Address)
	if err != nil {
		return nil, err
	}

	// Email is validated before the nonce is consumed so a rejected request
	// does not burn the caller's single attempt.
	if !s.anonymous && in.Email == "" {
		return nil, core.ErrEmailRequired
	}

	nonce, err := s.nonces.Consume(ctx, in.Identifier, in.ChainID)
	if err != nil {
		if errors.Is(err, core.ErrNonceExpiredOrMissing) {
			return nil, core.ErrNonceExpiredOrMissing
		}
		return nil, fmt.Errorf("consume nonce: %w", err)
	}

	// The nonce is consumed at this point. A failed verification below does
	// not restore it; the caller must request a fresh nonce.
	verified, err := s.verifier.VerifyMessage(ctx, ports.VerifyArgs{
		Message:   in.Message,
		Signature: in.Signature,
		Address:   address,
		ChainID:   in.ChainID,
		Params:    core.NewChallengeParams(s.domain, nonce),
	})
	if err != nil || !verified {
		if err != nil {
			s.log.Warn("message verification errored",
				zap.String("address", address),
				zap.Error(err))
		}
		return nil, core.ErrInvalidSignature
	}

	user, newUser, err := s.resolveIdentity(ctx, address, in.ChainID, in.Profile, in.Email)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil || session == nil {
		if err != nil {
			s.log.Error("session creation failed", zap.String("user_id", user.ID), zap.Error(err))
		}
		return nil, core.ErrSessionCreation
	}

	if s.events != nil {
		if err := s.events.PublishSignIn(ctx, user.ID, address, core.ChainRef(in.ChainID), newUser); err != nil {
			// Event delivery is best-effort and never fails the sign-in.
			s.log.Warn("publish sign-in event failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return &SignInResult{Session: session, User: user, NewUser: newUser}, nil
}

// generateNonce returns a 32-byte random nonce in hex.
func generateNonce() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

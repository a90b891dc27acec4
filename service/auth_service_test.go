package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/layer-3/minigate/adapters/identity"
	"github.com/layer-3/minigate/adapters/noncestore"
	"github.com/layer-3/minigate/core"
	"github.com/layer-3/minigate/ports"
)

const testAddress = "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"

// checksummed rendering of testAddress
const testAddressChecksummed = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"

type stubVerifier struct {
	ok       bool
	err      error
	lastArgs ports.VerifyArgs
}

func (v *stubVerifier) VerifyMessage(ctx context.Context, args ports.VerifyArgs) (bool, error) {
	v.lastArgs = args
	return v.ok, v.err
}

type stubOracle struct {
	verified bool
	err      error
}

func (o *stubOracle) IsVerified(ctx context.Context, address string) (bool, error) {
	return o.verified, o.err
}

type stubNames struct {
	name   string
	avatar string
	err    error
}

func (n *stubNames) Lookup(ctx context.Context, address string) (string, string, error) {
	return n.name, n.avatar, n.err
}

type stubSessions struct {
	err     error
	created []string
}

func (s *stubSessions) CreateSession(ctx context.Context, userID string) (*core.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, userID)
	now := time.Now()
	return &core.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     "token-" + userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}, nil
}

func (s *stubSessions) VerifySession(ctx context.Context, token string) (*core.Session, error) {
	return nil, core.ErrUnauthorized
}

type fixture struct {
	svc      *AuthService
	nonces   *noncestore.MemoryStore
	ids      *identity.MemoryStore
	verifier *stubVerifier
	oracle   *stubOracle
	names    *stubNames
	sessions *stubSessions
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	f := &fixture{
		nonces:   noncestore.NewMemoryStore(),
		ids:      identity.NewMemoryStore(),
		verifier: &stubVerifier{ok: true},
		oracle:   &stubOracle{},
		names:    &stubNames{},
		sessions: &stubSessions{},
	}
	if opts.Domain == "" {
		opts.Domain = "miniapp.example.com"
	}
	f.svc = NewAuthService(f.nonces, f.ids, f.verifier, f.oracle, f.names, f.sessions, nil, zap.NewNop(), opts)
	return f
}

func (f *fixture) signIn(t *testing.T, identifier string, chainID int64) (*SignInResult, error) {
	t.Helper()

	ctx := context.Background()
	challenge, err := f.svc.RequestNonce(ctx, identifier, chainID)
	require.NoError(t, err)

	return f.svc.SignIn(ctx, SignInInput{
		Message:    "challenge embedding " + challenge.Nonce,
		Signature:  "0xsigned",
		Identifier: identifier,
		Address:    testAddress,
		ChainID:    chainID,
	})
}

func TestRequestNonceSupersedesPrior(t *testing.T) {
	f := newFixture(t, Options{Anonymous: true})
	ctx := context.Background()

	first, err := f.svc.RequestNonce(ctx, "abc", 1)
	require.NoError(t, err)
	second, err := f.svc.RequestNonce(ctx, "abc", 1)
	require.NoError(t, err)
	require.NotEqual(t, first.Nonce, second.Nonce)

	nonce, err := f.nonces.Consume(ctx, "abc", 1)
	require.NoError(t, err)
	assert.Equal(t, second.Nonce, nonce)

	_, err = f.nonces.Consume(ctx, "abc", 1)
	assert.ErrorIs(t, err, core.ErrNonceExpiredOrMissing)
}

func TestSignInCreatesNewUser(t *testing.T) {
	f := newFixture(t, Options{Anonymous: true})
	ctx := context.Background()

	res, err := f.signIn(t, "abc", 1)
	require.NoError(t, err)

	assert.True(t, res.NewUser)
	assert.Equal(t, testAddressChecksummed, res.User.VerifiedAddress)
	assert.Equal(t, testAddressChecksummed, res.User.Name)
	assert.Equal(t, testAddressChecksummed+"@miniapp.example.com", res.User.Email)
	assert.Equal(t, "token-"+res.User.ID, res.Session.Token)

	wallet, err := f.ids.FindWallet(ctx, testAddressChecksummed, "eip155:1")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, wallet.UserID)
	assert.True(t, wallet.IsPrimary)

	accounts := f.ids.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, core.ProviderID, accounts[0].ProviderID)
	assert.Equal(t, testAddressChecksummed+":eip155:1", accounts[0].AccountID)

	// The nonce is consumed by the successful sign-in.
	_, err = f.nonces.Consume(ctx, "abc", 1)
	assert.ErrorIs(t, err, core.ErrNonceExpiredOrMissing)

	// The verifier saw the canonical challenge parameters.
	assert.Equal(t, "miniapp.example.com", f.verifier.lastArgs.Params.Domain)
	assert.Equal(t, "miniapp.example.com", f.verifier.lastArgs.Params.Audience)
	assert.Equal(t, "miniapp.example.com", f.verifier.lastArgs.Params.Issuer)
	assert.Equal(t, "eip191", f.verifier.lastArgs.Params.Scheme)
	assert.Contains(t, f.verifier.lastArgs.Message, f.verifier.lastArgs.Params.Nonce)
}

func TestSignInSameAddressNewChain(t *testing.T) {
	f := newFixture(t, Options{Anonymous: true})
	ctx := context.Background()

	first, err := f.signIn(t, "abc", 1)
	require.NoError(t, err)
	second, err := f.signIn(t, "abc", 137)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.False(t, second.NewUser)

	wallets, err := f.ids.ListWallets(ctx, first.User.ID)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.True(t, wallets[0].IsPrimary)
	assert.Equal(t, "eip155:1", wallets[0].ChainID)
	assert.False(t, wallets[1].IsPrimary)
	assert.Equal(t, "eip155:137", wallets[1].ChainID)
}

func TestSignInRepeatSameChainNoDuplicate(t *testing.T) {
	f := newFixture(t, Options{Anonymous: true})
	ctx := context.Background()

	first, err := f.signIn(t, "abc", 1)
	require.NoError(t, err)
	second, err := f.signIn(t, "abc", 1)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.False(t, second.NewUser)

	wallets, err := f.ids.ListWallets(ctx, first.User.ID)
	require.NoError(t, err)
	assert.Len(t, wallets, 1)
}

func TestSignInEmailRequiredBeforeNonceConsumption(t *testing.T) {
	f := newFixture(t, Options{Anonymous: false})
	ctx := context.Background()

	challenge, err := f.svc.RequestNonce(ctx, "abc", 1)
	require.NoError(t, err)

	_, err = f.svc.SignIn(ctx, SignInInput{
		Message:    "challenge " + challenge.Nonce,
		Signature:  "0xsigned",
		Identifier: "abc",
		Address:    testAddress,
		ChainID:    1,
	})
	assert.ErrorIs(t, err, core.ErrEmailRequired)

	// The rejected request did not burn the nonce.
	nonce, err := f.nonces.Consume(ctx, "abc", 1)
	require.NoError(t, err)
	assert.Equal(t, challenge.Nonce, nonce)
}

func TestSignInEmailHonoredWhenAnonymousDisabled(t *testing.T) {
	f := newFixture(t, Options{Anonymous: false})
	ctx := context.Background()

	challenge, err := f.svc.RequestNonce(ctx, "abc", 1)
	require.NoError(t, err)

	res, err := f.svc.SignIn(ctx, SignInInput{
		Message:    "challenge " + challenge.Nonce,
		Signature:  "0xsigned",
		Identifier: "abc",
		Address:    testAddress,
		ChainID:    1,
		Email:      "human@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "human@example.com", res.User.Email)
}

func TestSignInInvalidSignatureBurnsNonce(t *testing.T) {
	f := newFixture(t, Options{Anonymous: true})
	f.verifier.ok = false
	ctx := context.Background()

	_, err := f.signIn(t, "abc", 1)
	assert.ErrorIs(t, err, core.ErrInvalidSignature)

	// No second attempt with the same nonce.
	_, err = f.nonces.Consume(ctx, "abc", 1)
	assert.ErrorIs(t, err, core.ErrNonceExpiredOrMissing)
}

func TestSignInMissingNonce(t *testing.T) {
	f := newFixture(t, Options{Anonymous: true})

	_, err := f.svc.SignIn(context.Background(), SignInInput{
		Message:    "msg",
		Signature:  "0xsigned",
		Identifier: "never-issued",
		Address:    testAddress,
		ChainID:    1,
	})
	assert.ErrorIs(t, err, core.ErrNonceExpiredOrMissing)
}

func TestSignInExpiredNonce(t *testing.T) {
	f := newFixture(t, Options{Anonymous: true, NonceTTL: 15 * time.Minute})
	ctx := context.Background()

	issued := time.Now()
	f.svc.now = func() time.Time { return issued }

	challenge, err := f.svc.RequestNonce(ctx, "abc", 1)
	require.NoError(t, err)

	// One second past the 15 minute expiry.
	f.nonces.WithClock(func() time.Time { return issued.Add(15*time.Minute + time.Second) })

	_, err = f.svc.SignIn(ctx, SignInInput{
		Message:    "challenge " + challenge.Nonce,
		Signature:  "0xsigned",
		Identifier: "abc",
		Address:    testAddress,
		ChainID:    1,
	})
	assert.ErrorIs(t, err, core.ErrNonceExpiredOrMissing)
}

func TestSignInJustBeforeExpirySucceeds(t *testing.T) {
	f := newFixture(t, Options{Anonymous: true, NonceTTL: 15 * time.Minute})
	ctx := context.Background()

	issued := time.Now()
	f.svc.now = func() time.Time { return issued }

	challenge, err := f.svc.RequestNonce(ctx, "abc", 1)
	require.NoError(t, err)

	f.nonces.WithClock(func() time.Time { return issued.Add(14*time.Minute + 59*time.Second) })

	_, err = f.svc.SignIn(ctx, SignInInput{
		Message:    "challenge " + challenge.Nonce,
		Signature:  "0xsigned",
		Identifier: "abc",
		Address:    testAddress,
		ChainID:    1,
	})
	assert.NoError(t, err)
}

func TestSignInPersonhoodFlagConverges(t *testing.T) {
	f := newFixture(t, Options{Anonymous: true})
	ctx := context.Background()

	f.oracle.verified = false
	first, err := f.signIn(t, "abc", 1)
	require.NoError(t, err)
	assert.False(t, first.User.PersonVerified)

	f.oracle.verified = true
	second, err := f.signIn(t, "abc", 1)
	require.NoError(t, err)
	assert.True(t, second.User.PersonVerified)

	stored, err := f.ids.FindUser(ctx, first.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.PersonVerified)
}

func TestSignInNamePrecedence(t *testing.T) {
	cases := []struct {
		name     string
		username string
		ensName  string
		want     string
	}{
		{"client username wins", "alice", "alice.eth", "alice"},
		{"ens name when no username", "", "alice.eth", "alice.eth"},
		{"address fallback", "", "", testAddressChecksummed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Options{Anonymous: true})
			f.names.name = tc.ensName
			ctx := context.Background()

			challenge, err := f.svc.RequestNonce(ctx, "abc", 1)
			require.NoError(t, err)

			res, err := f.svc.SignIn(ctx, SignInInput{
				Message:    "challenge " + challenge.Nonce,
				Signature:  "0xsigned",
				Identifier: "abc",
				Address:    testAddress,
				ChainID:    1,
				Profile:    core.Profile{Username: tc.username},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.User.Name)
		})
	}
}

func TestSignInNameLookupFailureFallsBack(t *testing.T) {
	f := newFixture(t, Options{Anonymous: true})
	f.names.err = errors.New("resolver down")

	res, err := f.signIn(t, "abc", 1)
	require.NoError(t, err)
	assert.Equal(t, testAddressChecksummed, res.User.Name)
}

func TestSignInInvalidAddress(t *testing.T) {
	f := newFixture(t, Options{Anonymous: true})
	ctx := context.Background()

	_, err := f.svc.RequestNonce(ctx, "abc", 1)
	require.NoError(t, err)

	_, err = f.svc.SignIn(ctx, SignInInput{
		Message:    "msg",
		Signature:  "0xsigned",
		Identifier: "abc",
		Address:    "not-an-address",
		ChainID:    1,
	})
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
}

func TestSignInMasksUnclassifiedErrors(t *testing.T) {
	f := newFixture(t, Options{Anonymous: true})
	f.oracle.err = errors.New("oracle rpc timeout")

	_, err := f.signIn(t, "abc", 1)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	assert.NotErrorIs(t, err, core.ErrInvalidSignature)
}

func TestSignInSessionFailureIsClassified(t *testing.T) {
	f := newFixture(t, Options{Anonymous: true})
	f.sessions.err = errors.New("session backend down")

	_, err := f.signIn(t, "abc", 1)
	assert.ErrorIs(t, err, core.ErrSessionCreation)
}

// raceStore simulates losing a user-creation race: the winner's records hit
// the store first and the loser's insert reports a duplicate.
type raceStore struct {
	*identity.MemoryStore
	winner *core.User
}

func (s *raceStore) CreateUserWithWallet(ctx context.Context, user *core.User, wallet *core.WalletAddress, account *core.Account) error {
	now := time.Now()
	w := &core.WalletAddress{
		ID: uuid.New().String(), UserID: s.winner.ID,
		Address: wallet.Address, ChainID: wallet.ChainID, IsPrimary: true, CreatedAt: now,
	}
	a := &core.Account{
		ID: uuid.New().String(), UserID: s.winner.ID,
		ProviderID: core.ProviderID, AccountID: account.AccountID, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.MemoryStore.CreateUserWithWallet(ctx, s.winner, w, a); err != nil {
		return err
	}
	return core.ErrDuplicate
}

func TestSignInRecoversFromCreationRace(t *testing.T) {
	f := newFixture(t, Options{Anonymous: true})
	winner := &core.User{ID: uuid.New().String(), Name: "winner", Email: "winner@example.com"}
	f.svc.identities = &raceStore{MemoryStore: f.ids, winner: winner}

	res, err := f.signIn(t, "abc", 1)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, res.User.ID)
	assert.False(t, res.NewUser)
}

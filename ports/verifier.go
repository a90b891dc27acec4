package ports

import (
	"context"

	"github.com/layer-3/minigate/core"
)

// VerifyArgs carries a signed message and the canonical challenge
// parameters it must be checked against.
type VerifyArgs struct {
	Message   string
	Signature string
	Address   string // EIP-55 checksummed
	ChainID   int64
	Params    core.ChallengeParams
}

// MessageVerifier checks that a signature is valid for a message and address.
type MessageVerifier interface {
	VerifyMessage(ctx context.Context, args VerifyArgs) (bool, error)
}

// PersonhoodOracle reports whether an address is attested as belonging to
// a unique human.
type PersonhoodOracle interface {
	IsVerified(ctx context.Context, address string) (bool, error)
}

// NameResolver optionally resolves a display name and avatar for an
// address, ENS-style.
type NameResolver interface {
	Lookup(ctx context.Context, address string) (name, avatar string, err error)
}

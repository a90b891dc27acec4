package core

import (
	"fmt"
	"time"
)

// DefaultNonceTTL is how long an issued nonce stays consumable.
const DefaultNonceTTL = 15 * time.Minute

// ChainRef renders a numeric chain id in its namespaced form ("eip155:1").
func ChainRef(chainID int64) string {
	return fmt.Sprintf("eip155:%d", chainID)
}

// Challenge is a single-use nonce bound to a caller identifier and chain.
type Challenge struct {
	Identifier string    // Opaque caller-chosen identifier, typically a client UUID
	ChainID    int64     // Numeric chain id the nonce was requested for
	Nonce      string    // Random value to be embedded in the signed message
	ExpiresAt  time.Time // Absolute expiry; the nonce never verifies after this
}

// ChallengeParams are the canonical parameters the signed message must be
// verified against. Domain, audience and issuer are all the configured
// service domain.
type ChallengeParams struct {
	Domain   string
	Audience string
	Issuer   string
	Nonce    string
	Version  string
	Scheme   string // Signature scheme tag, e.g. "eip191"
}

// NewChallengeParams builds the canonical parameter set for a consumed nonce.
func NewChallengeParams(domain, nonce string) ChallengeParams {
	return ChallengeParams{
		Domain:   domain,
		Audience: domain,
		Issuer:   domain,
		Nonce:    nonce,
		Version:  "1",
		Scheme:   "eip191",
	}
}

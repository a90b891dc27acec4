package ports

import (
	"context"

	"github.com/layer-3/minigate/core"
)

// SessionIssuer creates and verifies authenticated sessions for resolved users.
type SessionIssuer interface {
	// CreateSession issues a new session for the user.
	CreateSession(ctx context.Context, userID string) (*core.Session, error)

	// VerifySession validates a bearer token and returns the session it encodes.
	VerifySession(ctx context.Context, token string) (*core.Session, error)
}

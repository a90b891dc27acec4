package sessions

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/layer-3/minigate/core"
	"github.com/layer-3/minigate/ports"
)

const audienceSession = "minigate:session"

// JWTIssuer implements the SessionIssuer interface using ES256 JWTs.
type JWTIssuer struct {
	signKey *ecdsa.PrivateKey
	ttl     time.Duration
	now     func() time.Time
}

// NewJWTIssuer creates a new JWT session issuer.
func NewJWTIssuer(signKey *ecdsa.PrivateKey, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{
		signKey: signKey,
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (j *JWTIssuer) WithClock(clock func() time.Time) {
	if clock != nil {
		j.now = clock
	}
}

// CreateSession issues a signed session token for the user.
func (j *JWTIssuer) CreateSession(ctx context.Context, userID string) (*core.Session, error) {
	now := j.now()
	session := &core.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(j.ttl),
	}

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			ID:        session.ID,
			Audience:  jwt.ClaimStrings{audienceSession},
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(j.signKey)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	session.Token = signed
	return session, nil
}

// VerifySession validates a bearer token and returns the session it encodes.
func (j *JWTIssuer) VerifySession(ctx context.Context, tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(audienceSession), jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	if !token.Valid {
		return nil, core.ErrUnauthorized
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, core.ErrUnauthorized
	}

	return &core.Session{
		ID:        claims.ID,
		UserID:    claims.Subject,
		Token:     tokenStr,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

var _ ports.SessionIssuer = (*JWTIssuer)(nil)

package sessions

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the standard claims carried by session tokens; the
// subject is the user id and the JWT ID is the session id.
type SessionClaims struct {
	jwt.RegisteredClaims
}

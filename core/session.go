package core

import "time"

// Session represents an authenticated user session
type Session struct {
	ID        string    // Unique session identifier
	UserID    string    // User the session was issued for
	Token     string    // Opaque bearer token handed to the client
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session expires
}

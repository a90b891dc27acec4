package core

import "errors"

var (
	// ErrInvalidAddress is returned when the submitted wallet address is malformed.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrEmailRequired is returned when anonymous sign-in is disabled and no email was supplied.
	ErrEmailRequired = errors.New("email is required when anonymous sign-in is disabled")

	// ErrNonceExpiredOrMissing is returned when no live nonce exists for the identifier/chain pair.
	ErrNonceExpiredOrMissing = errors.New("invalid or expired nonce")

	// ErrInvalidSignature is returned when message verification fails.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrSessionCreation is returned when the session issuer fails for a resolved user.
	ErrSessionCreation = errors.New("session creation failed")

	// ErrUnauthorized masks unclassified failures surfaced to wallet clients.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned by stores when a uniqueness constraint is hit,
	// typically when two concurrent sign-ins race to link the same wallet.
	ErrDuplicate = errors.New("record already exists")
)

// Classified reports whether err is one of the failures that must
// propagate unchanged to the transport boundary.
func Classified(err error) bool {
	for _, c := range []error{
		ErrInvalidAddress,
		ErrEmailRequired,
		ErrNonceExpiredOrMissing,
		ErrInvalidSignature,
		ErrSessionCreation,
	} {
		if errors.Is(err, c) {
			return true
		}
	}
	return false
}

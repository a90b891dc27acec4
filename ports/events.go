package ports

import "context"

// EventPublisher publishes sign-in events to notify other services
type EventPublisher interface {
	PublishSignIn(ctx context.Context, userID, address, chainID string, newUser bool) error
}

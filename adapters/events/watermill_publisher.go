package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/minigate/ports"
)

// SignInEvent notifies downstream services that a wallet completed sign-in.
type SignInEvent struct {
	UserID   string    `json:"user_id"`
	Address  string    `json:"address"`
	ChainID  string    `json:"chain_id"`
	NewUser  bool      `json:"new_user"`
	SignedAt time.Time `json:"signed_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     "minigate.signin",
	}
}

// PublishSignIn publishes a sign-in event
func (p *WatermillPublisher) PublishSignIn(ctx context.Context, userID, address, chainID string, newUser bool) error {
	event := SignInEvent{
		UserID:   userID,
		Address:  address,
		ChainID:  chainID,
		NewUser:  newUser,
		SignedAt: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

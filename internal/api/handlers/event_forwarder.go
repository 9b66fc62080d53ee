package handlers

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"

	"github.com/mimi-overlay/mimi/internal/avatar"
	"github.com/mimi-overlay/mimi/pkg/logger"
)

// EventBroadcaster is the SSE fan-out the forwarder feeds
type EventBroadcaster interface {
	Broadcast(data []byte)
}

// EventForwarder bridges the store's in-process state change events onto
// the SSE feed.
type EventForwarder struct {
	logger      *logger.Logger
	broadcaster EventBroadcaster
}

// NewEventForwarder creates a new event forwarder
func NewEventForwarder(log *logger.Logger, broadcaster EventBroadcaster) *EventForwarder {
	return &EventForwarder{
		logger:      log.WithComponent("event-forwarder"),
		broadcaster: broadcaster,
	}
}

// Run subscribes to state change events and forwards them until the
// context is cancelled.
func (f *EventForwarder) Run(ctx context.Context, subscriber message.Subscriber) error {
	messages, err := subscriber.Subscribe(ctx, avatar.StateChangedTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			f.broadcaster.Broadcast(msg.Payload)
			msg.Ack()
		}
		f.logger.Debug("State change subscription closed")
	}()

	f.logger.Info("Forwarding state change events to SSE feed",
		zap.String("topic", avatar.StateChangedTopic))

	return nil
}

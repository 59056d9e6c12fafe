package service

import (
	"context"
	"encoding/json"
	"log"

	"projecthub-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// RoomInvalidator is implemented by the collaboration hub. Defined here so
// the service layer does not depend on the hub package.
type RoomInvalidator interface {
	Invalidate(room string, reason string)
}

type IInvalidationConsumerService interface {
	Consume(ctx context.Context) error
}

type invalidationConsumerService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	invalidator RoomInvalidator
}

func NewInvalidationConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	invalidator RoomInvalidator,
) IInvalidationConsumerService {
	return &invalidationConsumerService{
		pubSub:      pubSub,
		topicName:   topicName,
		invalidator: invalidator,
	}
}

func (cs *invalidationConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *invalidationConsumerService) processMessage(msg *message.Message) {
	var payload dto.InvalidationMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal invalidation message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Invalidating room %s (reason: %s)", payload.Room, payload.Reason)
	cs.invalidator.Invalidate(payload.Room, payload.Reason)
	msg.Ack()
}

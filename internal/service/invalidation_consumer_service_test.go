package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"projecthub-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	calls []dto.InvalidationMessage
}

func (r *recordingInvalidator) Invalidate(room string, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, dto.InvalidationMessage{Room: room, Reason: reason})
}

func (r *recordingInvalidator) snapshot() []dto.InvalidationMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dto.InvalidationMessage(nil), r.calls...)
}

func TestInvalidationFlowsFromPublisherToHub(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	defer pubSub.Close()

	const topic = "DOCUMENT_CONTENT_INVALIDATED"
	inv := &recordingInvalidator{}

	consumer := NewInvalidationConsumerService(pubSub, topic, inv)
	require.NoError(t, consumer.Consume(context.Background()))

	publisher := NewPublisherService(topic, pubSub)
	payload, err := json.Marshal(dto.InvalidationMessage{Room: "wiki:7e57ed00-0000-4000-8000-000000000001", Reason: "patch"})
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(context.Background(), payload))

	assert.Eventually(t, func() bool {
		calls := inv.snapshot()
		return len(calls) == 1 &&
			calls[0].Room == "wiki:7e57ed00-0000-4000-8000-000000000001" &&
			calls[0].Reason == "patch"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestInvalidationConsumerSkipsMalformedMessages(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	defer pubSub.Close()

	const topic = "DOCUMENT_CONTENT_INVALIDATED"
	inv := &recordingInvalidator{}

	consumer := NewInvalidationConsumerService(pubSub, topic, inv)
	require.NoError(t, consumer.Consume(context.Background()))

	publisher := NewPublisherService(topic, pubSub)
	require.NoError(t, publisher.Publish(context.Background(), []byte("{not json")))

	good, err := json.Marshal(dto.InvalidationMessage{Room: "sprint_plan:7e57ed00-0000-4000-8000-000000000002", Reason: "delete"})
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(context.Background(), good))

	assert.Eventually(t, func() bool {
		calls := inv.snapshot()
		return len(calls) == 1 && calls[0].Reason == "delete"
	}, 5*time.Second, 10*time.Millisecond)
}

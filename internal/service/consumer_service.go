package service

import (
	"context"

	"emotion-diary-be/internal/pkg/logger"
	"emotion-diary-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventForwarder is the outbound sink for domain events, e.g. NATS.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	audit     logger.ILogger
	logger    logger.ILogger
	forwarder EventForwarder
}

// NewConsumerService drains the in-process event topic: every event is
// written to the audit log and forwarded when a forwarder is set.
func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	audit logger.ILogger,
	log logger.ILogger,
	forwarder EventForwarder,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		audit:     audit,
		logger:    log,
		forwarder: forwarder,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	evt, err := events.Unmarshal(msg.Payload)
	if err != nil {
		cs.logger.Error("EVENT", "Failed to unmarshal event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.audit.Info("EVENT", evt.Type, evt.Data)

	if cs.forwarder != nil {
		if err := cs.forwarder.Publish(ctx, evt); err != nil {
			// forwarding is best effort; redelivery would only repeat the failure
			cs.logger.Warn("EVENT", "Failed to forward event", map[string]interface{}{
				"type":  evt.Type,
				"error": err.Error(),
			})
		}
	}
	msg.Ack()
}

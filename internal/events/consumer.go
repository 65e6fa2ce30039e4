package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventConsumer struct {
	client   pulsar.Client
	consumer pulsar.Consumer
}

// NewEventConsumer initializes the Pulsar client and a consumer that sees
// every change event published from now on. Each consumer gets its own
// subscription, so every process following the topic receives all events.
func NewEventConsumer(pulsarURL, topic, subscription string) (*EventConsumer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{URL: pulsarURL})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	consumer, err := client.Subscribe(consumerOptions(topic, subscription))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar consumer: %w", err)
	}

	return &EventConsumer{client: client, consumer: consumer}, nil
}

// consumerOptions builds an exclusive, non-durable subscription named after
// prefix. Change events only matter to live processes, so nothing is kept
// for a follower once it goes away.
func consumerOptions(topic, prefix string) pulsar.ConsumerOptions {
	return pulsar.ConsumerOptions{
		Topic:                       topic,
		SubscriptionName:            prefix + "-" + uuid.NewString(),
		Type:                        pulsar.Exclusive,
		SubscriptionMode:            pulsar.NonDurable,
		SubscriptionInitialPosition: pulsar.SubscriptionPositionLatest,
	}
}

// Next blocks for the next change event. Undecodable messages are acked and
// reported, since redelivery would not make them readable.
func (c *EventConsumer) Next(ctx context.Context) (ChangeEvent, error) {
	msg, err := c.consumer.Receive(ctx)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("failed to receive message: %w", err)
	}

	var event ChangeEvent
	if err := json.Unmarshal(msg.Payload(), &event); err != nil {
		c.consumer.Ack(msg)
		return ChangeEvent{}, fmt.Errorf("failed to decode change event: %w", err)
	}

	c.consumer.Ack(msg)
	return event, nil
}

// Close cleans up the Pulsar consumer and client.
func (c *EventConsumer) Close() {
	c.consumer.Close()
	c.client.Close()
}

// ChangeSource yields change events one at a time.
type ChangeSource interface {
	Next(ctx context.Context) (ChangeEvent, error)
}

// Relay forwards every event from src onto the hub's change channel until ctx
// is done.
func Relay(ctx context.Context, src ChangeSource, hub *Hub, logger *zerolog.Logger) error {
	for {
		event, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			logger.Error().Err(err).Msg("Error receiving change event")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		logger.Debug().Str("entity", event.Entity).Str("action", event.Action).
			Str("id", event.ID.String()).Msg("Relaying change event")
		hub.Notify(event)
	}
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	EntityProfile      = "profile"
	EntityGroup        = "group"
	EntityProfileGroup = "profileGroup"
	EntityInsight      = "insight"

	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ChangeEvent describes a single committed mutation of a directory record.
type ChangeEvent struct {
	Entity string    `json:"entity"`
	Action string    `json:"action"`
	ID     uuid.UUID `json:"id"`
	Owner  string    `json:"owner"`
	At     time.Time `json:"at"`
}

// Notifier is told about every committed mutation.
type Notifier interface {
	Notify(event ChangeEvent) error
	Close()
}

type EventPublisher struct {
	client   pulsar.Client
	producer pulsar.Producer
}

// NewEventPublisher initializes the Pulsar client and a producer on the change topic.
func NewEventPublisher(pulsarURL, topic string) (*EventPublisher, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: pulsarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: topic,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar producer: %w", err)
	}

	log.Info().Str("topic", topic).Msg("Pulsar client and producer initialized successfully")
	return &EventPublisher{client: client, producer: producer}, nil
}

// Notify publishes the change, keyed by owner so one user's changes stay ordered.
func (p *EventPublisher) Notify(event ChangeEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not serialize change event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = p.producer.Send(ctx, &pulsar.ProducerMessage{
		Payload: message,
		Key:     event.Owner,
		Properties: map[string]string{
			"entity": event.Entity,
			"action": event.Action,
		},
	})
	if err != nil {
		return fmt.Errorf("could not send event to Pulsar: %w", err)
	}

	log.Debug().RawJSON("event", message).Msg("Change event sent to Pulsar")
	return nil
}

// Close closes the Pulsar producer and client.
func (p *EventPublisher) Close() {
	p.producer.Close()
	p.client.Close()
	log.Info().Msg("Pulsar client and producer closed successfully")
}

// Discard is a Notifier that drops every event.
type Discard struct{}

func (Discard) Notify(ChangeEvent) error { return nil }
func (Discard) Close()                   {}

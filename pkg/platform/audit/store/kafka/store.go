// Package kafka publishes registration events to a Kafka topic as JSON,
// keyed by registration ID so events for one record stay ordered.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"dsnap/internal/platform/kafka/producer"
	audit "dsnap/pkg/platform/audit"
)

// Producer is the subset of producer.Producer the store needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

type Store struct {
	producer Producer
	topic    string
}

func New(p Producer, topic string) *Store {
	return &Store{producer: p, topic: topic}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode registration event: %w", err)
	}
	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.RegistrationID.String()),
		Value: payload,
		Headers: map[string]string{
			"event_type": string(event.Type),
			"request_id": event.RequestID,
		},
	}
	if err := s.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("publish registration event: %w", err)
	}
	return nil
}

var _ audit.Store = (*Store)(nil)

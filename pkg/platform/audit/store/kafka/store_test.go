package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsnap/internal/platform/kafka/producer"
	id "dsnap/pkg/domain"
	audit "dsnap/pkg/platform/audit"
)

type recordingProducer struct {
	messages []*producer.Message
	err      error
}

func (p *recordingProducer) Produce(_ context.Context, msg *producer.Message) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func TestStore_AppendPublishesKeyedJSON(t *testing.T) {
	prod := &recordingProducer{}
	store := New(prod, "dsnap.registration-events")

	staffID := id.NewStaffID()
	event := audit.Event{
		Type:           audit.EventRegistrationStatusChanged,
		RegistrationID: id.NewRegistrationID(),
		ActorID:        &staffID,
		RequestID:      "req-9",
		DeviceClass:    "desktop",
		Timestamp:      time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Append(context.Background(), event))

	require.Len(t, prod.messages, 1)
	msg := prod.messages[0]
	assert.Equal(t, "dsnap.registration-events", msg.Topic)
	assert.Equal(t, event.RegistrationID.String(), string(msg.Key))
	assert.Equal(t, "registration.status_changed", msg.Headers["event_type"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, event.RegistrationID.String(), body["registration_id"])
	assert.Equal(t, staffID.String(), body["actor_id"])
	assert.Equal(t, "2026-05-01T00:00:00Z", body["timestamp"])
}

func TestStore_AppendWrapsProducerError(t *testing.T) {
	cause := errors.New("broker down")
	store := New(&recordingProducer{err: cause}, "t")
	err := store.Append(context.Background(), audit.Event{Type: audit.EventRegistrationCreated})
	assert.ErrorIs(t, err, cause)
}

package audit

import (
	"context"
	"time"

	id "dsnap/pkg/domain"
)

// EventType names a registration lifecycle change.
type EventType string

const (
	EventRegistrationCreated       EventType = "registration.created"
	EventRegistrationUpdated       EventType = "registration.updated"
	EventRegistrationStatusChanged EventType = "registration.status_changed"
	EventRegistrationDeleted       EventType = "registration.deleted"
)

// Event records who changed which registration. It never carries document
// content, so sinks can be shared with systems outside the PII boundary.
type Event struct {
	Type           EventType         `json:"type"`
	RegistrationID id.RegistrationID `json:"registration_id"`
	ActorID        *id.StaffID       `json:"actor_id"`
	RequestID      string            `json:"request_id,omitempty"`
	DeviceClass    string            `json:"device_class,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Store persists events. Append must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is satisfied by publisher.Publisher.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

package audit

import (
	"context"

	id "dsnap/pkg/domain"
	"dsnap/pkg/requestcontext"
)

// NewEvent builds an event for registrationID enriched from the request context:
// acting staff member, request ID, device class and request time.
func NewEvent(ctx context.Context, eventType EventType, registrationID id.RegistrationID) Event {
	event := Event{
		Type:           eventType,
		RegistrationID: registrationID,
		RequestID:      requestcontext.RequestID(ctx),
		DeviceClass:    requestcontext.DeviceClass(ctx),
		Timestamp:      requestcontext.Now(ctx),
	}
	if actor := requestcontext.Actor(ctx); actor.IsAuthenticated() {
		staffID := actor.StaffID
		event.ActorID = &staffID
	}
	return event
}

// Package domain provides type-safe identifiers and the request actor shared across modules.
package domain

import (
	"github.com/google/uuid"

	dErrors "dsnap/pkg/domain-errors"
)

// Distinct ID types so a StaffID can never be passed where a RegistrationID is expected.
type (
	RegistrationID uuid.UUID
	StaffID        uuid.UUID
)

// NewRegistrationID allocates a random registration identifier.
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }

// NewStaffID allocates a random staff identifier.
func NewStaffID() StaffID { return StaffID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, token claims).

func ParseRegistrationID(s string) (RegistrationID, error) {
	id, err := parseUUID(s, "registration ID")
	return RegistrationID(id), err
}

func ParseStaffID(s string) (StaffID, error) {
	id, err := parseUUID(s, "staff ID")
	return StaffID(id), err
}

func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id StaffID) String() string        { return uuid.UUID(id).String() }

func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id StaffID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders IDs as canonical UUID strings in JSON and logs.
func (id RegistrationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id StaffID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }

func (id *RegistrationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *StaffID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }

// parseUUID is the shared validation logic.
// Nil UUIDs parse successfully; stores answer "not found" for them.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}

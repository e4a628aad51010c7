// Package models holds the staff account aggregate.
package models

import (
	"strings"
	"time"

	id "dsnap/pkg/domain"
)

// Staff is an account that may authenticate to the registration API.
// Every active staff member holds every scope; tokens narrow from there.
type Staff struct {
	ID           id.StaffID
	Username     string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// NewStaff builds an active account. The username is trimmed; lookups are case-insensitive.
func NewStaff(username, passwordHash string, now time.Time) *Staff {
	return &Staff{
		ID:           id.NewStaffID(),
		Username:     strings.TrimSpace(username),
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now.UTC().Truncate(time.Microsecond),
	}
}

// Actor is the request identity for this account.
func (s *Staff) Actor() id.Actor {
	return id.Actor{
		StaffID:  s.ID,
		Username: s.Username,
		Scopes:   id.AllStaffScopes(),
	}
}

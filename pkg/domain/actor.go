package domain

import "slices"

// Scopes granted to staff. Basic-authenticated staff hold all of them;
// bearer tokens carry the subset they were minted with.
const (
	ScopeRegistrationsRead    = "registrations:read"
	ScopeRegistrationsWrite   = "registrations:write"
	ScopeRegistrationsApprove = "registrations:approve"
	ScopeRegistrationsDelete  = "registrations:delete"
)

// AllStaffScopes returns every scope a staff member can hold.
func AllStaffScopes() []string {
	return []string{
		ScopeRegistrationsRead,
		ScopeRegistrationsWrite,
		ScopeRegistrationsApprove,
		ScopeRegistrationsDelete,
	}
}

// IsKnownScope reports whether s names a staff scope.
func IsKnownScope(s string) bool {
	return slices.Contains(AllStaffScopes(), s)
}

// Actor is the caller of a request. The zero value is the anonymous public.
type Actor struct {
	StaffID  StaffID
	Username string
	Scopes   []string
}

// IsAuthenticated reports whether the actor is a known staff member.
func (a Actor) IsAuthenticated() bool {
	return !a.StaffID.IsNil()
}

// HasScope reports whether the actor holds the given scope.
func (a Actor) HasScope(scope string) bool {
	return a.IsAuthenticated() && slices.Contains(a.Scopes, scope)
}

// Package policy decides which registration operations an actor may perform.
//
// Rules are declared as a table from Operation to a Predicate. Predicates compose,
// so "staff holding registrations:write" is All(Authenticated(), HasScope(...)).
package policy

import (
	"fmt"

	id "dsnap/pkg/domain"
	dErrors "dsnap/pkg/domain-errors"
)

// Operation names a protected action.
type Operation string

const (
	OpListRegistrations  Operation = "registration.list"
	OpCreateRegistration Operation = "registration.create"
	OpReadSchema         Operation = "registration.schema"
	OpGetRegistration    Operation = "registration.get"
	OpUpdateRegistration Operation = "registration.update"
	OpUpdateStatus       Operation = "registration.status"
	OpDeleteRegistration Operation = "registration.delete"
)

// Decision is the outcome of evaluating a rule.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyForbidden:
		return "deny_forbidden"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Predicate evaluates an actor.
type Predicate func(actor id.Actor) Decision

// Anyone allows every caller, including the anonymous public.
func Anyone() Predicate {
	return func(id.Actor) Decision { return Allow }
}

// Authenticated allows staff only.
func Authenticated() Predicate {
	return func(actor id.Actor) Decision {
		if !actor.IsAuthenticated() {
			return DenyUnauthenticated
		}
		return Allow
	}
}

// HasScope allows staff holding the scope. Anonymous callers are told to authenticate.
func HasScope(scope string) Predicate {
	return func(actor id.Actor) Decision {
		if !actor.IsAuthenticated() {
			return DenyUnauthenticated
		}
		if !actor.HasScope(scope) {
			return DenyForbidden
		}
		return Allow
	}
}

// All allows only when every predicate allows; the first denial wins.
func All(predicates ...Predicate) Predicate {
	return func(actor id.Actor) Decision {
		for _, p := range predicates {
			if d := p(actor); d != Allow {
				return d
			}
		}
		return Allow
	}
}

// Any allows when at least one predicate allows. With no allowing predicate the
// last denial is returned.
func Any(predicates ...Predicate) Predicate {
	return func(actor id.Actor) Decision {
		decision := DenyForbidden
		for _, p := range predicates {
			if decision = p(actor); decision == Allow {
				return Allow
			}
		}
		return decision
	}
}

// Rules is the registration access table.
var Rules = map[Operation]Predicate{
	OpListRegistrations:  Anyone(),
	OpCreateRegistration: Anyone(),
	OpReadSchema:         Anyone(),
	OpGetRegistration:    All(Authenticated(), HasScope(id.ScopeRegistrationsRead)),
	OpUpdateRegistration: All(Authenticated(), HasScope(id.ScopeRegistrationsWrite)),
	OpUpdateStatus:       All(Authenticated(), HasScope(id.ScopeRegistrationsApprove)),
	OpDeleteRegistration: All(Authenticated(), HasScope(id.ScopeRegistrationsDelete)),
}

// Evaluate returns the decision for op. Unknown operations are forbidden.
func Evaluate(op Operation, actor id.Actor) Decision {
	rule, ok := Rules[op]
	if !ok {
		return DenyForbidden
	}
	return rule(actor)
}

// Authorize converts the decision into a domain error, or nil when allowed.
func Authorize(op Operation, actor id.Actor) error {
	switch Evaluate(op, actor) {
	case Allow:
		return nil
	case DenyUnauthenticated:
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	default:
		return dErrors.New(dErrors.CodeForbidden, "insufficient permissions for "+string(op))
	}
}

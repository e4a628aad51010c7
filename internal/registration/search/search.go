// Package search turns query parameters into predicates over a registration's latest_data.
package search

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"dsnap/internal/registration/models"
)

// Scope says where in latest_data a parameter's field lives.
type Scope string

const (
	// ScopeRegistration fields sit at the top level of the document.
	ScopeRegistration Scope = "registration"
	// ScopeRegistrant fields sit on the first household member.
	ScopeRegistrant Scope = "registrant"
)

// Param is one recognised query parameter.
type Param struct {
	Name            string
	Scope           Scope
	Field           string
	CaseInsensitive bool
}

// Path returns the document path the parameter compares against.
func (p Param) Path() []string {
	if p.Scope == ScopeRegistrant {
		return []string{"household", "0", p.Field}
	}
	return []string{p.Field}
}

// Params is the ordered table of recognised parameters.
var Params = []Param{
	{Name: "state_id", Scope: ScopeRegistration, Field: "state_id", CaseInsensitive: true},
	{Name: "disaster_id", Scope: ScopeRegistration, Field: "disaster_id"},
	{Name: "registrant_ssn", Scope: ScopeRegistrant, Field: "ssn"},
	{Name: "registrant_dob", Scope: ScopeRegistrant, Field: "dob"},
	{Name: "registrant_last_name", Scope: ScopeRegistrant, Field: "last_name", CaseInsensitive: true},
}

// Predicate is an equality test on one document path.
type Predicate struct {
	Param           string
	Path            []string
	Value           string
	CaseInsensitive bool
}

// Match reports whether doc satisfies the predicate. Missing or null fields,
// objects and arrays never match.
func (p Predicate) Match(doc models.Document) bool {
	raw, ok := doc.Lookup(p.Path...)
	if !ok {
		return false
	}
	text, ok := scalarText(raw)
	if !ok {
		return false
	}
	if p.CaseInsensitive {
		return strings.EqualFold(text, p.Value)
	}
	return text == p.Value
}

// Filter is an AND of predicates. The zero Filter matches everything.
type Filter struct {
	Predicates []Predicate
}

// Build maps query parameters onto predicates in table order. Absent and empty
// parameters are skipped, unknown parameters are ignored. Values are matched as
// given, surrounding whitespace included.
func Build(query url.Values) Filter {
	var f Filter
	for _, p := range Params {
		value := query.Get(p.Name)
		if value == "" {
			continue
		}
		f.Predicates = append(f.Predicates, Predicate{
			Param:           p.Name,
			Path:            p.Path(),
			Value:           value,
			CaseInsensitive: p.CaseInsensitive,
		})
	}
	return f
}

// IsEmpty reports whether the filter has no predicates.
func (f Filter) IsEmpty() bool {
	return len(f.Predicates) == 0
}

// Match reports whether doc satisfies every predicate.
func (f Filter) Match(doc models.Document) bool {
	for _, p := range f.Predicates {
		if !p.Match(doc) {
			return false
		}
	}
	return true
}

// ParamNames lists the parameters in use, for logging without values.
func (f Filter) ParamNames() []string {
	names := make([]string, len(f.Predicates))
	for i, p := range f.Predicates {
		names[i] = p.Param
	}
	return names
}

// scalarText renders strings, numbers and booleans as their JSON text, which is
// also what Postgres' #>> operator yields for them.
func scalarText(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/invopop/jsonschema"
)

// Definition is one schema version.
type Definition struct {
	Version      *semver.Version
	Registration *ObjectNode
	Status       *ObjectNode
}

// ValidateRegistration checks a full registration document.
func (d *Definition) ValidateRegistration(doc map[string]any) []string {
	return Validate(d.Registration, doc)
}

// ValidateStatus checks a status transition document.
func (d *Definition) ValidateStatus(doc map[string]any) []string {
	return Validate(d.Status, doc)
}

// Export renders the registration tree as a Draft-07 JSON Schema document.
func (d *Definition) Export() *jsonschema.Schema {
	s := d.Registration.jsonSchema()
	s.Version = "http://json-schema.org/draft-07/schema#"
	s.Title = "DSNAP registration " + d.Version.String()
	return s
}

// Registry holds schema definitions keyed by semantic version.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a version. Versions must parse as semver and be unique.
func (r *Registry) Register(version string, registration, status *ObjectNode) error {
	v, err := semver.StrictNewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid schema version %q: %w", version, err)
	}
	if registration == nil || status == nil {
		return fmt.Errorf("schema version %s: registration and status trees are required", version)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[v.String()]; exists {
		return fmt.Errorf("schema version already registered: %s", v)
	}
	r.defs[v.String()] = &Definition{Version: v, Registration: registration, Status: status}
	return nil
}

// MustRegister is Register for package-level wiring; it panics on error.
func (r *Registry) MustRegister(version string, registration, status *ObjectNode) {
	if err := r.Register(version, registration, status); err != nil {
		panic(err)
	}
}

// Get returns the named version, or the highest registered version when version is empty.
func (r *Registry) Get(version string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if version == "" {
		var latest *Definition
		for _, def := range r.defs {
			if latest == nil || def.Version.GreaterThan(latest.Version) {
				latest = def
			}
		}
		if latest == nil {
			return nil, fmt.Errorf("no schema versions registered")
		}
		return latest, nil
	}

	v, err := semver.StrictNewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("invalid schema version %q: %w", version, err)
	}
	def, ok := r.defs[v.String()]
	if !ok {
		return nil, fmt.Errorf("unknown schema version %s (available: %v)", v, r.versionsLocked())
	}
	return def, nil
}

// Versions lists registered versions in ascending order.
func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.versionsLocked()
}

func (r *Registry) versionsLocked() []string {
	versions := make([]*semver.Version, 0, len(r.defs))
	for _, def := range r.defs {
		versions = append(versions, def.Version)
	}
	sort.Sort(semver.Collection(versions))
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = v.String()
	}
	return out
}

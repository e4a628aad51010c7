package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"dsnap/internal/registration/models"
	id "dsnap/pkg/domain"
)

// TestIDs are fixed identifiers for deterministic assertions.
var TestIDs = struct {
	Staff1        id.StaffID
	Staff2        id.StaffID
	Registration1 id.RegistrationID
	Registration2 id.RegistrationID
}{
	Staff1:        id.StaffID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	Staff2:        id.StaffID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	Registration1: id.RegistrationID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	Registration2: id.RegistrationID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000002")),
}

// FixedTime is a stable request time for tests.
var FixedTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// RegistrationBuilder builds registration documents that pass schema validation.
type RegistrationBuilder struct {
	doc models.Document
}

// NewRegistration starts from a small valid document with one household member.
func NewRegistration() *RegistrationBuilder {
	return &RegistrationBuilder{doc: models.Document{
		"disaster_id":        float64(42),
		"preferred_language": "en",
		"state_id":           "AB1234",
		"county":             "Travis",
		"ebt_card_number":    "5077123412341234",
		"household": []any{
			map[string]any{
				"first_name": "Ana",
				"last_name":  "Rivera",
				"dob":        "1980-01-02",
				"ssn":        "123456789",
			},
		},
	}}
}

func (b *RegistrationBuilder) WithDisaster(disasterID int) *RegistrationBuilder {
	b.doc["disaster_id"] = float64(disasterID)
	return b
}

func (b *RegistrationBuilder) WithStateID(stateID string) *RegistrationBuilder {
	b.doc["state_id"] = stateID
	return b
}

func (b *RegistrationBuilder) WithEBTCard(number any) *RegistrationBuilder {
	b.doc[models.FieldEBTCardNumber] = number
	return b
}

func (b *RegistrationBuilder) WithoutEBTCard() *RegistrationBuilder {
	delete(b.doc, models.FieldEBTCardNumber)
	return b
}

// WithRegistrant replaces the first household member's identity fields.
func (b *RegistrationBuilder) WithRegistrant(first, last, dob, ssn string) *RegistrationBuilder {
	household := b.household()
	household[0] = map[string]any{"first_name": first, "last_name": last, "dob": dob, "ssn": ssn}
	b.doc["household"] = household
	return b
}

// WithMember appends a non-registrant household member.
func (b *RegistrationBuilder) WithMember(first, last, dob, ssn string) *RegistrationBuilder {
	b.doc["household"] = append(b.household(), map[string]any{
		"first_name": first, "last_name": last, "dob": dob, "ssn": ssn,
	})
	return b
}

func (b *RegistrationBuilder) With(field string, value any) *RegistrationBuilder {
	b.doc[field] = value
	return b
}

func (b *RegistrationBuilder) Build() models.Document {
	return b.doc.Clone()
}

// JSON renders the document as a request body.
func (b *RegistrationBuilder) JSON() string {
	return MustJSON(b.doc)
}

func (b *RegistrationBuilder) household() []any {
	if h, ok := b.doc["household"].([]any); ok && len(h) > 0 {
		return h
	}
	return []any{map[string]any{}}
}

// NewRecord builds a stored record created at the given time.
func NewRecord(doc models.Document, createdAt time.Time) *models.Record {
	record, err := models.NewRecord(id.NewRegistrationID(), doc, createdAt)
	if err != nil {
		panic(fmt.Sprintf("testutil.NewRecord: %v", err))
	}
	return record
}

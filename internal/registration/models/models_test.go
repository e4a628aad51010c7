package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "dsnap/pkg/domain"
	dErrors "dsnap/pkg/domain-errors"
)

func decode(t *testing.T, raw string) Document {
	t.Helper()
	doc, err := DecodeDocument(strings.NewReader(raw))
	require.NoError(t, err)
	return doc
}

func TestDecodeDocument(t *testing.T) {
	t.Run("keeps numbers exact", func(t *testing.T) {
		doc := decode(t, `{"disaster_id": 12345678901234567890, "money_on_hand": 10.10}`)
		assert.Equal(t, json.Number("12345678901234567890"), doc["disaster_id"])
		assert.Equal(t, json.Number("10.10"), doc["money_on_hand"])
	})

	for name, raw := range map[string]string{
		"empty":    ``,
		"array":    `[1, 2]`,
		"scalar":   `"hello"`,
		"trailing": `{"a": 1} {"b": 2}`,
		"broken":   `{"a": `,
	} {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := DecodeDocument(strings.NewReader(raw))
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		})
	}
}

func TestDocumentClone_IsDeep(t *testing.T) {
	doc := decode(t, `{"household": [{"ssn": "123456789"}], "residential_address": {"city": "Y"}}`)
	clone := doc.Clone()

	clone["household"].([]any)[0].(map[string]any)["ssn"] = "000000000"
	clone["residential_address"].(map[string]any)["city"] = "Z"

	ssn, _ := doc.Lookup("household", "0", "ssn")
	city, _ := doc.Lookup("residential_address", "city")
	assert.Equal(t, "123456789", ssn)
	assert.Equal(t, "Y", city)
	assert.Nil(t, Document(nil).Clone())
}

func TestDocumentLookup(t *testing.T) {
	doc := decode(t, `{"household": [{"last_name": "Doe", "ssn": null}], "state_id": "X"}`)

	v, ok := doc.Lookup("household", "0", "last_name")
	assert.True(t, ok)
	assert.Equal(t, "Doe", v)

	v, ok = doc.Lookup("household", "0", "ssn")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = doc.Lookup("household", "1", "last_name")
	assert.False(t, ok)
	_, ok = doc.Lookup("household", "x")
	assert.False(t, ok)
	_, ok = doc.Lookup("state_id", "nested")
	assert.False(t, ok)
	_, ok = doc.Lookup("missing")
	assert.False(t, ok)
}

func TestNewRecord(t *testing.T) {
	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	submission := decode(t, `{"disaster_id": 34, "ebt_card_number": "1234", "household": [{"ssn": "123456789"}]}`)

	rec, err := NewRecord(id.NewRegistrationID(), submission, now)
	require.NoError(t, err)

	assert.Nil(t, rec.OriginalData[FieldEBTCardNumber])
	assert.Contains(t, rec.OriginalData, FieldEBTCardNumber)
	assert.Equal(t, "1234", rec.LatestData[FieldEBTCardNumber])
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, now, rec.ModifiedAt)
	assert.Nil(t, rec.ModifiedBy)
	assert.Nil(t, rec.ApprovedBy)
	assert.Nil(t, rec.RulesServiceApproved)

	// The submission itself is not aliased.
	submission["disaster_id"] = json.Number("99")
	assert.Equal(t, json.Number("34"), rec.LatestData["disaster_id"])
	assert.Equal(t, json.Number("34"), rec.OriginalData["disaster_id"])
	assert.Equal(t, "1234", submission[FieldEBTCardNumber])
}

func TestNewRecord_AddsNullCardNumberWhenAbsent(t *testing.T) {
	rec, err := NewRecord(id.NewRegistrationID(), Document{"disaster_id": json.Number("1")}, time.Now())
	require.NoError(t, err)
	v, ok := rec.OriginalData[FieldEBTCardNumber]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.NotContains(t, rec.LatestData, FieldEBTCardNumber)
}

func TestNewRecord_Invariants(t *testing.T) {
	_, err := NewRecord(id.RegistrationID{}, Document{}, time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = NewRecord(id.NewRegistrationID(), nil, time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	_, err = NewRecord(id.NewRegistrationID(), Document{}, time.Time{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestRecordMutations(t *testing.T) {
	created := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	rec, err := NewRecord(id.NewRegistrationID(), Document{"disaster_id": json.Number("1")}, created)
	require.NoError(t, err)
	original := rec.OriginalData.Clone()
	staff := id.NewStaffID()

	updated := created.Add(time.Hour)
	rec.ReplaceLatest(Document{"disaster_id": json.Number("2")}, staff, updated)
	assert.Equal(t, json.Number("2"), rec.LatestData["disaster_id"])
	assert.Equal(t, original, rec.OriginalData)
	assert.Equal(t, updated, rec.ModifiedAt)
	assert.Equal(t, created, rec.CreatedAt)
	require.NotNil(t, rec.ModifiedBy)
	assert.Equal(t, staff, *rec.ModifiedBy)

	approver := id.NewStaffID()
	approved := updated.Add(time.Hour)
	rec.ApplyStatus(StatusUpdate{RulesServiceApproved: true, UserApproved: false}, approver, approved)
	require.NotNil(t, rec.RulesServiceApproved)
	assert.True(t, *rec.RulesServiceApproved)
	assert.False(t, *rec.UserApproved)
	assert.Equal(t, approver, *rec.ApprovedBy)
	assert.Equal(t, approved, *rec.ApprovedAt)
	assert.Equal(t, approved, rec.ModifiedAt)
	assert.Equal(t, json.Number("2"), rec.LatestData["disaster_id"])
	assert.ElementsMatch(t, []id.StaffID{staff, approver}, rec.StaffIDs())
}

func TestRecordClone_DoesNotShare(t *testing.T) {
	rec, err := NewRecord(id.NewRegistrationID(), Document{"household": []any{map[string]any{"ssn": "1"}}}, time.Now())
	require.NoError(t, err)
	rec.ApplyStatus(StatusUpdate{RulesServiceApproved: true, UserApproved: true}, id.NewStaffID(), time.Now())

	clone := rec.Clone()
	*clone.RulesServiceApproved = false
	clone.LatestData["household"].([]any)[0].(map[string]any)["ssn"] = "2"

	assert.True(t, *rec.RulesServiceApproved)
	ssn, _ := rec.LatestData.Lookup("household", "0", "ssn")
	assert.Equal(t, "1", ssn)
}

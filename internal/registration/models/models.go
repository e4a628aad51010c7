package models

import (
	"time"

	id "dsnap/pkg/domain"
	dErrors "dsnap/pkg/domain-errors"
)

// FieldEBTCardNumber is never retained in original_data.
const FieldEBTCardNumber = "ebt_card_number"

// Record is a DSNAP registration.
//
// OriginalData is written once at creation and never changes afterwards. It equals
// the submission except that ebt_card_number is always present and null.
// LatestData starts as the submission and is replaced wholesale on update.
type Record struct {
	ID           id.RegistrationID
	OriginalData Document
	LatestData   Document
	CreatedAt    time.Time
	ModifiedAt   time.Time
	ModifiedBy   *id.StaffID

	RulesServiceApproved *bool
	UserApproved         *bool
	ApprovedBy           *id.StaffID
	ApprovedAt           *time.Time
}

// NewRecord builds a record from an already validated submission.
func NewRecord(recordID id.RegistrationID, submission Document, now time.Time) (*Record, error) {
	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration ID required")
	}
	if submission == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration document required")
	}
	if now.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "creation time required")
	}

	original := submission.Clone()
	original[FieldEBTCardNumber] = nil

	return &Record{
		ID:           recordID,
		OriginalData: original,
		LatestData:   submission.Clone(),
		CreatedAt:    now,
		ModifiedAt:   now,
	}, nil
}

// ReplaceLatest swaps in a new latest document on behalf of a staff member.
func (r *Record) ReplaceLatest(doc Document, by id.StaffID, now time.Time) {
	r.LatestData = doc.Clone()
	r.ModifiedAt = now
	r.ModifiedBy = staffRef(by)
}

// StatusUpdate carries the two approval decisions.
type StatusUpdate struct {
	RulesServiceApproved bool
	UserApproved         bool
}

// ApplyStatus records an approval decision. Documents are untouched.
func (r *Record) ApplyStatus(update StatusUpdate, by id.StaffID, now time.Time) {
	rules, user := update.RulesServiceApproved, update.UserApproved
	approvedAt := now
	r.RulesServiceApproved = &rules
	r.UserApproved = &user
	r.ApprovedBy = staffRef(by)
	r.ApprovedAt = &approvedAt
	r.ModifiedAt = now
}

// Clone returns a deep copy so callers never share documents with a store.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.OriginalData = r.OriginalData.Clone()
	out.LatestData = r.LatestData.Clone()
	out.ModifiedBy = clonePtr(r.ModifiedBy)
	out.RulesServiceApproved = clonePtr(r.RulesServiceApproved)
	out.UserApproved = clonePtr(r.UserApproved)
	out.ApprovedBy = clonePtr(r.ApprovedBy)
	out.ApprovedAt = clonePtr(r.ApprovedAt)
	return &out
}

// StaffIDs lists the staff referenced by the record, for label resolution.
func (r *Record) StaffIDs() []id.StaffID {
	var ids []id.StaffID
	if r.ModifiedBy != nil {
		ids = append(ids, *r.ModifiedBy)
	}
	if r.ApprovedBy != nil && (r.ModifiedBy == nil || *r.ApprovedBy != *r.ModifiedBy) {
		ids = append(ids, *r.ApprovedBy)
	}
	return ids
}

func staffRef(staffID id.StaffID) *id.StaffID {
	if staffID.IsNil() {
		return nil
	}
	return &staffID
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

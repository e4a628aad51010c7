package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"dsnap/internal/registration/models"
	"dsnap/internal/registration/search"
	"dsnap/internal/sentinel"
	id "dsnap/pkg/domain"
)

// PostgresStore persists registrations in PostgreSQL with both documents as JSONB.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed registration store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a store bound to an existing transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const registrationColumns = `id, original_data, latest_data, created_at, modified_at, modified_by,
	rules_service_approved, user_approved, approved_by, approved_at`

func (s *PostgresStore) Create(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("registration record is required")
	}
	original, latest, err := marshalDocuments(record)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO registrations (` + registrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.execer().ExecContext(ctx, query,
		uuid.UUID(record.ID),
		original,
		latest,
		record.CreatedAt,
		record.ModifiedAt,
		nullableStaff(record.ModifiedBy),
		record.RulesServiceApproved,
		record.UserApproved,
		nullableStaff(record.ApprovedBy),
		record.ApprovedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.RegistrationID) (*models.Record, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	record, err := scanRegistration(s.execer().QueryRowContext(ctx, query, uuid.UUID(recordID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) List(ctx context.Context, filter search.Filter) ([]*models.Record, error) {
	where, args := filterClause(filter)
	query := `SELECT ` + registrationColumns + ` FROM registrations` + where + ` ORDER BY created_at, id`

	rows, err := s.execer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	records := make([]*models.Record, 0)
	for rows.Next() {
		record, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return records, nil
}

// filterClause renders predicates as comparisons on latest_data. The path is
// bound as a text[] parameter, so nothing from the filter is interpolated.
func filterClause(filter search.Filter) (string, []any) {
	if filter.IsEmpty() {
		return "", nil
	}
	conds := make([]string, 0, len(filter.Predicates))
	args := make([]any, 0, 2*len(filter.Predicates))
	for _, p := range filter.Predicates {
		pathArg := "$" + strconv.Itoa(len(args)+1)
		valueArg := "$" + strconv.Itoa(len(args)+2)
		args = append(args, p.Path, p.Value)
		field := "(latest_data #>> " + pathArg + "::text[])"
		if p.CaseInsensitive {
			conds = append(conds, "lower"+field+" = lower("+valueArg+")")
		} else {
			conds = append(conds, field+" = "+valueArg)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Update locks the row, applies mutate and writes it back in one transaction.
func (s *PostgresStore) Update(ctx context.Context, recordID id.RegistrationID, mutate func(*models.Record) error) (*models.Record, error) {
	if s.tx != nil {
		return s.updateWithTx(ctx, s.tx, recordID, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin registration update tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	record, err := s.updateWithTx(ctx, tx, recordID, mutate)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registration update: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) updateWithTx(ctx context.Context, tx *sql.Tx, recordID id.RegistrationID, mutate func(*models.Record) error) (*models.Record, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1 FOR UPDATE`
	record, err := scanRegistration(tx.QueryRowContext(ctx, query, uuid.UUID(recordID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find registration for update: %w", err)
	}

	if err := mutate(record); err != nil {
		return nil, err
	}

	_, latest, err := marshalDocuments(record)
	if err != nil {
		return nil, err
	}
	update := `
		UPDATE registrations
		SET latest_data = $2, modified_at = $3, modified_by = $4,
			rules_service_approved = $5, user_approved = $6, approved_by = $7, approved_at = $8
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, update,
		uuid.UUID(record.ID),
		latest,
		record.ModifiedAt,
		nullableStaff(record.ModifiedBy),
		record.RulesServiceApproved,
		record.UserApproved,
		nullableStaff(record.ApprovedBy),
		record.ApprovedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update registration rows: %w", err)
	}
	if rows == 0 {
		return nil, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *PostgresStore) Delete(ctx context.Context, recordID id.RegistrationID) error {
	res, err := s.execer().ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, uuid.UUID(recordID))
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete registration rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type registrationRow interface {
	Scan(dest ...any) error
}

func scanRegistration(row registrationRow) (*models.Record, error) {
	var (
		recordID            uuid.UUID
		original, latest    []byte
		createdAt, modified time.Time
		modifiedBy          uuid.NullUUID
		rulesApproved       sql.NullBool
		userApproved        sql.NullBool
		approvedBy          uuid.NullUUID
		approvedAt          sql.NullTime
	)
	if err := row.Scan(&recordID, &original, &latest, &createdAt, &modified, &modifiedBy,
		&rulesApproved, &userApproved, &approvedBy, &approvedAt); err != nil {
		return nil, err
	}

	originalDoc, err := models.ParseDocument(original)
	if err != nil {
		return nil, fmt.Errorf("decode original_data: %w", err)
	}
	latestDoc, err := models.ParseDocument(latest)
	if err != nil {
		return nil, fmt.Errorf("decode latest_data: %w", err)
	}

	record := &models.Record{
		ID:           id.RegistrationID(recordID),
		OriginalData: originalDoc,
		LatestData:   latestDoc,
		CreatedAt:    createdAt.UTC(),
		ModifiedAt:   modified.UTC(),
	}
	if modifiedBy.Valid {
		staffID := id.StaffID(modifiedBy.UUID)
		record.ModifiedBy = &staffID
	}
	if rulesApproved.Valid {
		record.RulesServiceApproved = &rulesApproved.Bool
	}
	if userApproved.Valid {
		record.UserApproved = &userApproved.Bool
	}
	if approvedBy.Valid {
		staffID := id.StaffID(approvedBy.UUID)
		record.ApprovedBy = &staffID
	}
	if approvedAt.Valid {
		at := approvedAt.Time.UTC()
		record.ApprovedAt = &at
	}
	return record, nil
}

func marshalDocuments(record *models.Record) (string, string, error) {
	original, err := json.Marshal(record.OriginalData)
	if err != nil {
		return "", "", fmt.Errorf("encode original_data: %w", err)
	}
	latest, err := json.Marshal(record.LatestData)
	if err != nil {
		return "", "", fmt.Errorf("encode latest_data: %w", err)
	}
	return string(original), string(latest), nil
}

func nullableStaff(staffID *id.StaffID) uuid.NullUUID {
	if staffID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*staffID), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

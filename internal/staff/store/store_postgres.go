package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"dsnap/internal/sentinel"
	"dsnap/internal/staff/models"
	id "dsnap/pkg/domain"
)

// PostgresStore persists staff accounts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed staff store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const staffColumns = `id, username, password_hash, active, created_at`

func (s *PostgresStore) Create(ctx context.Context, staff *models.Staff) error {
	if staff == nil {
		return fmt.Errorf("staff is required")
	}
	query := `
		INSERT INTO staff (` + staffColumns + `)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(staff.ID),
		staff.Username,
		staff.PasswordHash,
		staff.Active,
		staff.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert staff: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, staffID id.StaffID) (*models.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE id = $1`
	return s.findOne(ctx, query, uuid.UUID(staffID))
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE lower(username) = lower(trim($1))`
	return s.findOne(ctx, query, username)
}

func (s *PostgresStore) FindByIDs(ctx context.Context, ids []id.StaffID) ([]*models.Staff, error) {
	if len(ids) == 0 {
		return []*models.Staff{}, nil
	}
	raw := make([]string, len(ids))
	for i, staffID := range ids {
		raw[i] = staffID.String()
	}
	query := `SELECT ` + staffColumns + ` FROM staff WHERE id = ANY($1::uuid[])`
	rows, err := s.db.QueryContext(ctx, query, raw)
	if err != nil {
		return nil, fmt.Errorf("find staff by ids: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Staff, 0, len(ids))
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, staff)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staff: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) SetActive(ctx context.Context, staffID id.StaffID, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE staff SET active = $2 WHERE id = $1`, uuid.UUID(staffID), active)
	if err != nil {
		return fmt.Errorf("update staff: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update staff rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("staff not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Staff, error) {
	staff, err := scanStaff(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("staff not found: %w", sentinel.ErrNotFound)
		}
		return nil, err
	}
	return staff, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStaff(row rowScanner) (*models.Staff, error) {
	var (
		staffID uuid.UUID
		staff   models.Staff
	)
	if err := row.Scan(&staffID, &staff.Username, &staff.PasswordHash, &staff.Active, &staff.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan staff: %w", err)
	}
	staff.ID = id.StaffID(staffID)
	staff.CreatedAt = staff.CreatedAt.UTC()
	return &staff, nil
}

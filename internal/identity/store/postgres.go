package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"botica/internal/identity/models"
	"botica/pkg/domain"
	"botica/pkg/platform/sentinel"
)

// PostgresSeniorStore reads senior records from PostgreSQL.
type PostgresSeniorStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed senior store.
func NewPostgres(db *sql.DB) *PostgresSeniorStore {
	return &PostgresSeniorStore{db: db}
}

// GetByID returns the senior record or sentinel.ErrNotFound.
func (s *PostgresSeniorStore) GetByID(ctx context.Context, id domain.SeniorID) (*models.Senior, error) {
	const query = `
		SELECT id, first_name, last_name, birthdate, address, health_status
		FROM seniors
		WHERE id = $1`

	var (
		senior       models.Senior
		rowID        uuid.UUID
		birthdate    sql.NullTime
		address      sql.NullString
		healthStatus sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(id)).Scan(
		&rowID,
		&senior.FirstName,
		&senior.LastName,
		&birthdate,
		&address,
		&healthStatus,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get senior %s: %w", id, err)
	}

	senior.ID = domain.SeniorID(rowID)
	if birthdate.Valid {
		t := birthdate.Time
		senior.Birthdate = &t
	}
	senior.Address = address.String
	senior.HealthStatus = healthStatus.String
	return &senior, nil
}

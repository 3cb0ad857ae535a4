package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
)

// RegistrationRepository persists the singleton signup toggle. The table
// holds exactly one row; a missing row reads as open registration.
type RegistrationRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRegistrationRepository wires a PostgreSQL-backed registration repository.
func NewRegistrationRepository(pool *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get reads the registration toggle.
func (r *RegistrationRepository) Get(ctx context.Context) (*domain.RegistrationSettings, error) {
	stmt, args, err := r.builder.
		Select("is_open").
		From("biblio.registration_settings").
		Where(squirrel.Eq{"id": 1}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select registration sql: %w", err)
	}

	var settings domain.RegistrationSettings
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&settings.IsOpen); err != nil {
		if err == pgx.ErrNoRows {
			return &domain.RegistrationSettings{IsOpen: true}, nil
		}
		return nil, fmt.Errorf("scan registration settings: %w", err)
	}
	return &settings, nil
}

// Set stores the registration toggle.
func (r *RegistrationRepository) Set(ctx context.Context, isOpen bool) error {
	const stmt = `INSERT INTO biblio.registration_settings (id, is_open)
VALUES (1, $1)
ON CONFLICT (id) DO UPDATE SET is_open = EXCLUDED.is_open`

	if _, err := r.exec.Exec(ctx, stmt, isOpen); err != nil {
		return fmt.Errorf("store registration settings: %w", err)
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/repository"
)

var userColumns = []string{
	"id",
	"username",
	"email",
	"password_hash",
	"password_algo",
	"profile_image_url",
	"role",
	"verified",
	"verification_token_hash",
	"verification_token_expires",
	"reset_token_hash",
	"reset_token_expires",
	"pending_email",
	"email_change_token_hash",
	"email_change_token_expires",
	"created_at",
	"updated_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Insert("biblio.users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.Username,
			user.Email,
			user.PasswordHash,
			user.PasswordAlgo,
			user.ProfileImageURL,
			user.Role,
			user.Verified,
			user.VerificationTokenHash,
			user.VerificationTokenExpires,
			user.ResetTokenHash,
			user.ResetTokenExpires,
			user.PendingEmail,
			user.EmailChangeTokenHash,
			user.EmailChangeTokenExpires,
			user.CreatedAt,
			user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert user: %w", translateError(err))
	}
	return nil
}

func (r *UserRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("biblio.users").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	user, err := scanUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.PasswordAlgo,
		&user.ProfileImageURL,
		&user.Role,
		&user.Verified,
		&user.VerificationTokenHash,
		&user.VerificationTokenExpires,
		&user.ResetTokenHash,
		&user.ResetTokenExpires,
		&user.PendingEmail,
		&user.EmailChangeTokenHash,
		&user.EmailChangeTokenExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"username": username})
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

// GetByVerificationTokenHash retrieves a user by a pending verification token.
func (r *UserRepository) GetByVerificationTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"verification_token_hash": hash})
}

// GetByResetTokenHash retrieves a user by a pending password reset token.
func (r *UserRepository) GetByResetTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"reset_token_hash": hash})
}

// GetByEmailChangeTokenHash retrieves a user by a pending email change token.
func (r *UserRepository) GetByEmailChangeTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email_change_token_hash": hash})
}

// List returns one page of users ordered by username.
func (r *UserRepository) List(ctx context.Context, page port.Page) ([]domain.User, int, error) {
	page = page.Normalize()

	countStmt, countArgs, err := r.builder.
		Select("COUNT(*)").
		From("biblio.users").
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count users sql: %w", err)
	}

	var total int
	if err := r.exec.QueryRow(ctx, countStmt, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	stmt, args, err := r.builder.
		Select(userColumns...).
		From("biblio.users").
		OrderBy("username ASC").
		Limit(uint64(page.Size)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0, page.Size)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}
	return users, total, nil
}

// Update rewrites a user row.
func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Update("biblio.users").
		Set("username", user.Username).
		Set("email", user.Email).
		Set("password_hash", user.PasswordHash).
		Set("password_algo", user.PasswordAlgo).
		Set("profile_image_url", user.ProfileImageURL).
		Set("role", user.Role).
		Set("verified", user.Verified).
		Set("verification_token_hash", user.VerificationTokenHash).
		Set("verification_token_expires", user.VerificationTokenExpires).
		Set("reset_token_hash", user.ResetTokenHash).
		Set("reset_token_expires", user.ResetTokenExpires).
		Set("pending_email", user.PendingEmail).
		Set("email_change_token_hash", user.EmailChangeTokenHash).
		Set("email_change_token_expires", user.EmailChangeTokenExpires).
		Set("updated_at", user.UpdatedAt).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a user row.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("biblio.users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// PurgeExpiredTokens clears verification, reset, and email-change tokens
// whose expiry precedes now.
func (r *UserRepository) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	stmt, args, err := r.builder.Update("biblio.users").
		Set("verification_token_hash", squirrel.Expr("CASE WHEN verification_token_expires < ? THEN NULL ELSE verification_token_hash END", now)).
		Set("verification_token_expires", squirrel.Expr("CASE WHEN verification_token_expires < ? THEN NULL ELSE verification_token_expires END", now)).
		Set("reset_token_hash", squirrel.Expr("CASE WHEN reset_token_expires < ? THEN NULL ELSE reset_token_hash END", now)).
		Set("reset_token_expires", squirrel.Expr("CASE WHEN reset_token_expires < ? THEN NULL ELSE reset_token_expires END", now)).
		Set("pending_email", squirrel.Expr("CASE WHEN email_change_token_expires < ? THEN NULL ELSE pending_email END", now)).
		Set("email_change_token_hash", squirrel.Expr("CASE WHEN email_change_token_expires < ? THEN NULL ELSE email_change_token_hash END", now)).
		Set("email_change_token_expires", squirrel.Expr("CASE WHEN email_change_token_expires < ? THEN NULL ELSE email_change_token_expires END", now)).
		Where(squirrel.Or{
			squirrel.Lt{"verification_token_expires": now},
			squirrel.Lt{"reset_token_expires": now},
			squirrel.Lt{"email_change_token_expires": now},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge tokens sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeStaleUnverified removes accounts that never verified before cutoff.
func (r *UserRepository) PurgeStaleUnverified(ctx context.Context, cutoff time.Time) (int64, error) {
	stmt, args, err := r.builder.Delete("biblio.users").
		Where(squirrel.Eq{"verified": false}).
		Where(squirrel.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge unverified sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("purge unverified users: %w", err)
	}
	return tag.RowsAffected(), nil
}

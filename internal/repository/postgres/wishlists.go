package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/repository"
)

var wishlistColumns = []string{
	"id",
	"user_id",
	"title",
	"author",
	"status",
	"priority",
	"created_at",
	"updated_at",
}

// WishlistRepository implements port.WishlistRepository using PostgreSQL.
type WishlistRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewWishlistRepository wires a PostgreSQL-backed wishlist repository.
func NewWishlistRepository(pool *pgxpool.Pool) *WishlistRepository {
	return &WishlistRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *WishlistRepository) WithTx(tx pgx.Tx) *WishlistRepository {
	if tx == nil {
		return r
	}
	return &WishlistRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new wishlist entry.
func (r *WishlistRepository) Create(ctx context.Context, entry domain.WishlistEntry) error {
	stmt, args, err := r.builder.Insert("biblio.wishlist_entries").
		Columns(wishlistColumns...).
		Values(
			entry.ID,
			entry.UserID,
			entry.Title,
			entry.Author,
			entry.Status,
			entry.Priority,
			entry.CreatedAt,
			entry.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert wishlist entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert wishlist entry: %w", translateError(err))
	}
	return nil
}

func scanWishlistEntry(row pgx.Row) (*domain.WishlistEntry, error) {
	var entry domain.WishlistEntry
	if err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Title,
		&entry.Author,
		&entry.Status,
		&entry.Priority,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetByID retrieves a wishlist entry.
func (r *WishlistRepository) GetByID(ctx context.Context, id string) (*domain.WishlistEntry, error) {
	stmt, args, err := r.builder.
		Select(wishlistColumns...).
		From("biblio.wishlist_entries").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select wishlist entry sql: %w", err)
	}

	entry, err := scanWishlistEntry(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan wishlist entry: %w", err)
	}
	return entry, nil
}

func (r *WishlistRepository) queryEntries(ctx context.Context, stmt string, args []any) ([]domain.WishlistEntry, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query wishlist entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.WishlistEntry
	for rows.Next() {
		entry, err := scanWishlistEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wishlist entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wishlist entries: %w", err)
	}
	return entries, nil
}

// ListByUser returns one page of the user's wishlist, high priority and
// newest first.
func (r *WishlistRepository) ListByUser(ctx context.Context, userID string, page port.Page) ([]domain.WishlistEntry, int, error) {
	page = page.Normalize()

	countStmt, countArgs, err := r.builder.
		Select("COUNT(*)").
		From("biblio.wishlist_entries").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count wishlist sql: %w", err)
	}

	var total int
	if err := r.exec.QueryRow(ctx, countStmt, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wishlist: %w", err)
	}

	stmt, args, err := r.builder.
		Select(wishlistColumns...).
		From("biblio.wishlist_entries").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy(
			"CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END",
			"created_at DESC",
		).
		Limit(uint64(page.Size)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list wishlist sql: %w", err)
	}

	entries, err := r.queryEntries(ctx, stmt, args)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListAllByUser returns the user's complete wishlist for export.
func (r *WishlistRepository) ListAllByUser(ctx context.Context, userID string) ([]domain.WishlistEntry, error) {
	stmt, args, err := r.builder.
		Select(wishlistColumns...).
		From("biblio.wishlist_entries").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy(
			"CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END",
			"title ASC",
		).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build export wishlist sql: %w", err)
	}
	return r.queryEntries(ctx, stmt, args)
}

// Update rewrites a wishlist entry.
func (r *WishlistRepository) Update(ctx context.Context, entry domain.WishlistEntry) error {
	stmt, args, err := r.builder.Update("biblio.wishlist_entries").
		Set("title", entry.Title).
		Set("author", entry.Author).
		Set("status", entry.Status).
		Set("priority", entry.Priority).
		Set("updated_at", entry.UpdatedAt).
		Where(squirrel.Eq{"id": entry.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update wishlist entry sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update wishlist entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a wishlist entry.
func (r *WishlistRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("biblio.wishlist_entries").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete wishlist entry sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete wishlist entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByUser removes the user's entire wishlist.
func (r *WishlistRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	stmt, args, err := r.builder.Delete("biblio.wishlist_entries").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete wishlist sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete wishlist: %w", err)
	}
	return tag.RowsAffected(), nil
}

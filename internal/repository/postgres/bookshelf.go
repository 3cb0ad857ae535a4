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

var shelfColumns = []string{
	"id",
	"user_id",
	"book_id",
	"rating",
	"read_status",
	"start_read_date",
	"end_read_date",
	"is_favorite",
	"due_date",
	"created_at",
	"updated_at",
}

// BookshelfRepository implements port.BookshelfRepository using PostgreSQL.
type BookshelfRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewBookshelfRepository wires a PostgreSQL-backed bookshelf repository.
func NewBookshelfRepository(pool *pgxpool.Pool) *BookshelfRepository {
	return &BookshelfRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *BookshelfRepository) WithTx(tx pgx.Tx) *BookshelfRepository {
	if tx == nil {
		return r
	}
	return &BookshelfRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new bookshelf item.
func (r *BookshelfRepository) Create(ctx context.Context, item domain.BookshelfItem) error {
	stmt, args, err := r.builder.Insert("biblio.bookshelf_items").
		Columns(shelfColumns...).
		Values(
			item.ID,
			item.UserID,
			item.BookID,
			item.Rating,
			item.ReadStatus,
			item.StartReadDate,
			item.EndReadDate,
			item.IsFavorite,
			item.DueDate,
			item.CreatedAt,
			item.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert shelf item sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert shelf item: %w", translateError(err))
	}
	return nil
}

func scanShelfItem(row pgx.Row) (*domain.BookshelfItem, error) {
	var item domain.BookshelfItem
	if err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.BookID,
		&item.Rating,
		&item.ReadStatus,
		&item.StartReadDate,
		&item.EndReadDate,
		&item.IsFavorite,
		&item.DueDate,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *BookshelfRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.BookshelfItem, error) {
	stmt, args, err := r.builder.
		Select(shelfColumns...).
		From("biblio.bookshelf_items").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select shelf item sql: %w", err)
	}

	item, err := scanShelfItem(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan shelf item: %w", err)
	}
	return item, nil
}

// GetByID retrieves a bookshelf item.
func (r *BookshelfRepository) GetByID(ctx context.Context, id string) (*domain.BookshelfItem, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByUserAndBook retrieves the item for a (user, book) pair.
func (r *BookshelfRepository) GetByUserAndBook(ctx context.Context, userID, bookID string) (*domain.BookshelfItem, error) {
	return r.getBy(ctx, squirrel.Eq{"user_id": userID, "book_id": bookID})
}

// ListByUser returns one page of the user's shelf, newest first, with the
// book and author refs joined in.
func (r *BookshelfRepository) ListByUser(ctx context.Context, userID string, page port.Page) ([]domain.BookshelfItem, int, error) {
	page = page.Normalize()

	countStmt, countArgs, err := r.builder.
		Select("COUNT(*)").
		From("biblio.bookshelf_items").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count shelf sql: %w", err)
	}

	var total int
	if err := r.exec.QueryRow(ctx, countStmt, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shelf: %w", err)
	}

	stmt, args, err := r.builder.
		Select(prefixColumns("s", shelfColumns)...).
		From("biblio.bookshelf_items s").
		Where(squirrel.Eq{"s.user_id": userID}).
		OrderBy("s.created_at DESC").
		Limit(uint64(page.Size)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list shelf sql: %w", err)
	}

	items, err := r.queryItems(ctx, stmt, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachBooks(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update rewrites a bookshelf item.
func (r *BookshelfRepository) Update(ctx context.Context, item domain.BookshelfItem) error {
	stmt, args, err := r.builder.Update("biblio.bookshelf_items").
		Set("rating", item.Rating).
		Set("read_status", item.ReadStatus).
		Set("start_read_date", item.StartReadDate).
		Set("end_read_date", item.EndReadDate).
		Set("is_favorite", item.IsFavorite).
		Set("due_date", item.DueDate).
		Set("updated_at", item.UpdatedAt).
		Where(squirrel.Eq{"id": item.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update shelf item sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update shelf item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a bookshelf item.
func (r *BookshelfRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("biblio.bookshelf_items").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete shelf item sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete shelf item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *BookshelfRepository) deleteWhere(ctx context.Context, pred squirrel.Eq) (int64, error) {
	stmt, args, err := r.builder.Delete("biblio.bookshelf_items").
		Where(pred).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete shelf items sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete shelf items: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByUser removes every item on the user's shelf.
func (r *BookshelfRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return r.deleteWhere(ctx, squirrel.Eq{"user_id": userID})
}

// DeleteByBook removes the book from every shelf.
func (r *BookshelfRepository) DeleteByBook(ctx context.Context, bookID string) (int64, error) {
	return r.deleteWhere(ctx, squirrel.Eq{"book_id": bookID})
}

// ListDueSoon returns the user's items with a due date before the cutoff,
// soonest first.
func (r *BookshelfRepository) ListDueSoon(ctx context.Context, userID string, before time.Time, limit int) ([]domain.BookshelfItem, error) {
	stmt, args, err := r.builder.
		Select(prefixColumns("s", shelfColumns)...).
		From("biblio.bookshelf_items s").
		Where(squirrel.Eq{"s.user_id": userID}).
		Where(squirrel.NotEq{"s.due_date": nil}).
		Where(squirrel.Lt{"s.due_date": before}).
		OrderBy("s.due_date ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build due items sql: %w", err)
	}

	items, err := r.queryItems(ctx, stmt, args)
	if err != nil {
		return nil, err
	}
	if err := r.attachBooks(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Stats computes the reading dashboard counters in one aggregate query.
// Catalogue-wide totals are filled in by the caller.
func (r *BookshelfRepository) Stats(ctx context.Context, userID string, since time.Time) (*domain.ReadingStats, error) {
	const stmt = `SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE s.created_at >= $2),
  COUNT(*) FILTER (WHERE s.read_status = 'read'),
  COUNT(*) FILTER (WHERE s.read_status = 'read' AND s.end_read_date >= $2),
  COUNT(*) FILTER (WHERE s.read_status <> 'read'),
  COUNT(*) FILTER (WHERE s.is_favorite),
  COUNT(*) FILTER (WHERE s.rating >= 4),
  COALESCE(SUM(b.page_count) FILTER (WHERE s.read_status = 'read'), 0),
  COALESCE(SUM(b.page_count) FILTER (WHERE s.read_status = 'read' AND s.end_read_date >= $2), 0)
FROM biblio.bookshelf_items s
JOIN biblio.books b ON b.id = s.book_id
WHERE s.user_id = $1`

	var stats domain.ReadingStats
	if err := r.exec.QueryRow(ctx, stmt, userID, since).Scan(
		&stats.TotalShelfItems,
		&stats.LastMonthNewItems,
		&stats.ReadItems,
		&stats.LastMonthReadItems,
		&stats.UnreadItems,
		&stats.FavoriteItems,
		&stats.HighRatedItems,
		&stats.TotalPagesRead,
		&stats.LastMonthPagesRead,
	); err != nil {
		return nil, fmt.Errorf("compute shelf stats: %w", err)
	}
	return &stats, nil
}

func (r *BookshelfRepository) queryItems(ctx context.Context, stmt string, args []any) ([]domain.BookshelfItem, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query shelf items: %w", err)
	}
	defer rows.Close()

	var items []domain.BookshelfItem
	for rows.Next() {
		item, err := scanShelfItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shelf item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shelf items: %w", err)
	}
	return items, nil
}

// attachBooks joins each item's book and its author refs.
func (r *BookshelfRepository) attachBooks(ctx context.Context, items []domain.BookshelfItem) error {
	if len(items) == 0 {
		return nil
	}

	bookIDs := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.BookID] {
			seen[item.BookID] = true
			bookIDs = append(bookIDs, item.BookID)
		}
	}

	stmt, args, err := r.builder.
		Select(bookColumns...).
		From("biblio.books").
		Where(squirrel.Eq{"id": bookIDs}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build shelf books sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("query shelf books: %w", err)
	}
	defer rows.Close()

	books := make(map[string]*domain.Book, len(bookIDs))
	bookList := make([]domain.Book, 0, len(bookIDs))
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return fmt.Errorf("scan shelf book: %w", err)
		}
		bookList = append(bookList, *book)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate shelf books: %w", err)
	}

	bookRepo := &BookRepository{pool: r.pool, exec: r.exec, builder: r.builder}
	if err := bookRepo.attachAuthors(ctx, bookList); err != nil {
		return err
	}
	for i := range bookList {
		books[bookList[i].ID] = &bookList[i]
	}

	for i := range items {
		if book, ok := books[items[i].BookID]; ok {
			items[i].Book = book
			items[i].Authors = book.Authors
		}
	}
	return nil
}

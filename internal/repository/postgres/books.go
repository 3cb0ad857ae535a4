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

var bookColumns = []string{
	"id",
	"title",
	"slug",
	"summary",
	"publish_year",
	"cover_image_url",
	"tags",
	"format",
	"availability",
	"genres",
	"page_count",
	"language",
	"created_at",
	"updated_at",
}

// BookRepository implements port.BookRepository using PostgreSQL.
type BookRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewBookRepository wires a PostgreSQL-backed book repository.
func NewBookRepository(pool *pgxpool.Pool) *BookRepository {
	return &BookRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *BookRepository) WithTx(tx pgx.Tx) *BookRepository {
	if tx == nil {
		return r
	}
	return &BookRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new book row. Author links are inserted separately via
// LinkAuthors.
func (r *BookRepository) Create(ctx context.Context, book domain.Book) error {
	stmt, args, err := r.builder.Insert("biblio.books").
		Columns(bookColumns...).
		Values(
			book.ID,
			book.Title,
			book.Slug,
			book.Summary,
			book.PublishYear,
			book.CoverImageURL,
			book.Tags,
			book.Format,
			book.Availability,
			book.Genres,
			book.PageCount,
			book.Language,
			book.CreatedAt,
			book.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert book sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert book: %w", translateError(err))
	}
	return nil
}

func scanBook(row pgx.Row) (*domain.Book, error) {
	var book domain.Book
	if err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Slug,
		&book.Summary,
		&book.PublishYear,
		&book.CoverImageURL,
		&book.Tags,
		&book.Format,
		&book.Availability,
		&book.Genres,
		&book.PageCount,
		&book.Language,
		&book.CreatedAt,
		&book.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *BookRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.Book, error) {
	stmt, args, err := r.builder.
		Select(bookColumns...).
		From("biblio.books").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select book sql: %w", err)
	}

	book, err := scanBook(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}

	books := []domain.Book{*book}
	if err := r.attachAuthors(ctx, books); err != nil {
		return nil, err
	}
	return &books[0], nil
}

// GetByID retrieves a book with its author refs.
func (r *BookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetBySlug retrieves a book by its URL slug with its author refs.
func (r *BookRepository) GetBySlug(ctx context.Context, slug string) (*domain.Book, error) {
	return r.getBy(ctx, squirrel.Eq{"slug": slug})
}

// List returns one page of books ordered by title.
func (r *BookRepository) List(ctx context.Context, page port.Page) ([]domain.Book, int, error) {
	page = page.Normalize()

	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	stmt, args, err := r.builder.
		Select(bookColumns...).
		From("biblio.books").
		OrderBy("title ASC").
		Limit(uint64(page.Size)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list books sql: %w", err)
	}

	books, err := r.queryBooks(ctx, stmt, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachAuthors(ctx, books); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// ListByAuthor returns one page of an author's books ordered by title.
func (r *BookRepository) ListByAuthor(ctx context.Context, authorID string, page port.Page) ([]domain.Book, int, error) {
	page = page.Normalize()

	countStmt, countArgs, err := r.builder.
		Select("COUNT(*)").
		From("biblio.book_authors").
		Where(squirrel.Eq{"author_id": authorID}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count author books sql: %w", err)
	}

	var total int
	if err := r.exec.QueryRow(ctx, countStmt, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count author books: %w", err)
	}

	stmt, args, err := r.builder.
		Select(prefixColumns("b", bookColumns)...).
		From("biblio.books b").
		Join("biblio.book_authors ba ON ba.book_id = b.id").
		Where(squirrel.Eq{"ba.author_id": authorID}).
		OrderBy("b.title ASC").
		Limit(uint64(page.Size)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list author books sql: %w", err)
	}

	books, err := r.queryBooks(ctx, stmt, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachAuthors(ctx, books); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// Update rewrites a book row. Author links are rewritten separately.
func (r *BookRepository) Update(ctx context.Context, book domain.Book) error {
	stmt, args, err := r.builder.Update("biblio.books").
		Set("title", book.Title).
		Set("slug", book.Slug).
		Set("summary", book.Summary).
		Set("publish_year", book.PublishYear).
		Set("cover_image_url", book.CoverImageURL).
		Set("tags", book.Tags).
		Set("format", book.Format).
		Set("availability", book.Availability).
		Set("genres", book.Genres).
		Set("page_count", book.PageCount).
		Set("language", book.Language).
		Set("updated_at", book.UpdatedAt).
		Where(squirrel.Eq{"id": book.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update book sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update book: %w", translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a book row. Link rows are removed via UnlinkAllAuthors.
func (r *BookRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("biblio.books").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete book sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Count returns the catalogue size.
func (r *BookRepository) Count(ctx context.Context) (int, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("biblio.books").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count books sql: %w", err)
	}

	var total int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return total, nil
}

// LinkAuthors inserts book_authors rows, ignoring duplicates.
func (r *BookRepository) LinkAuthors(ctx context.Context, bookID string, authorIDs []string) error {
	if len(authorIDs) == 0 {
		return nil
	}

	insert := r.builder.Insert("biblio.book_authors").Columns("book_id", "author_id")
	for _, authorID := range authorIDs {
		insert = insert.Values(bookID, authorID)
	}
	stmt, args, err := insert.Suffix("ON CONFLICT (book_id, author_id) DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build link authors sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("link authors: %w", err)
	}
	return nil
}

// UnlinkAllAuthors removes every author link for the book.
func (r *BookRepository) UnlinkAllAuthors(ctx context.Context, bookID string) error {
	stmt, args, err := r.builder.Delete("biblio.book_authors").
		Where(squirrel.Eq{"book_id": bookID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build unlink authors sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("unlink authors: %w", err)
	}
	return nil
}

// ReplaceAuthor rewrites links pointing at authorID to fallbackAuthorID
// across all books, dropping the link when fallbackAuthorID is empty. A book
// already linked to the fallback just loses the old link.
func (r *BookRepository) ReplaceAuthor(ctx context.Context, authorID, fallbackAuthorID string) (int, error) {
	if fallbackAuthorID != "" {
		const insertFallback = `INSERT INTO biblio.book_authors (book_id, author_id)
SELECT book_id, $1 FROM biblio.book_authors WHERE author_id = $2
ON CONFLICT (book_id, author_id) DO NOTHING`
		if _, err := r.exec.Exec(ctx, insertFallback, fallbackAuthorID, authorID); err != nil {
			return 0, fmt.Errorf("insert fallback links: %w", err)
		}
	}

	stmt, args, err := r.builder.Delete("biblio.book_authors").
		Where(squirrel.Eq{"author_id": authorID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete author links sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete author links: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *BookRepository) queryBooks(ctx context.Context, stmt string, args []any) ([]domain.Book, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

// attachAuthors populates AuthorIDs and Authors for the given books in one
// round trip.
func (r *BookRepository) attachAuthors(ctx context.Context, books []domain.Book) error {
	if len(books) == 0 {
		return nil
	}

	ids := make([]string, len(books))
	index := make(map[string]int, len(books))
	for i := range books {
		ids[i] = books[i].ID
		index[books[i].ID] = i
	}

	stmt, args, err := r.builder.
		Select("ba.book_id", "a.id", "a.first_name", "a.last_name", "a.slug").
		From("biblio.book_authors ba").
		Join("biblio.authors a ON a.id = ba.author_id").
		Where(squirrel.Eq{"ba.book_id": ids}).
		OrderBy("a.last_name ASC", "a.first_name ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build book authors sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("query book authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookID string
		var ref domain.AuthorRef
		if err := rows.Scan(&bookID, &ref.ID, &ref.FirstName, &ref.LastName, &ref.Slug); err != nil {
			return fmt.Errorf("scan book author: %w", err)
		}
		if i, ok := index[bookID]; ok {
			books[i].AuthorIDs = append(books[i].AuthorIDs, ref.ID)
			books[i].Authors = append(books[i].Authors, ref)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate book authors: %w", err)
	}
	return nil
}

func prefixColumns(prefix string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + "." + c
	}
	return out
}

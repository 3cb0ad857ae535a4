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

var authorColumns = []string{
	"id",
	"first_name",
	"last_name",
	"slug",
	"bio",
	"birth_date",
	"death_date",
	"created_at",
	"updated_at",
}

// AuthorRepository implements port.AuthorRepository using PostgreSQL.
type AuthorRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuthorRepository wires a PostgreSQL-backed author repository.
func NewAuthorRepository(pool *pgxpool.Pool) *AuthorRepository {
	return &AuthorRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AuthorRepository) WithTx(tx pgx.Tx) *AuthorRepository {
	if tx == nil {
		return r
	}
	return &AuthorRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new author row.
func (r *AuthorRepository) Create(ctx context.Context, author domain.Author) error {
	stmt, args, err := r.builder.Insert("biblio.authors").
		Columns(authorColumns...).
		Values(
			author.ID,
			author.FirstName,
			author.LastName,
			author.Slug,
			author.Bio,
			author.BirthDate,
			author.DeathDate,
			author.CreatedAt,
			author.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert author sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert author: %w", translateError(err))
	}
	return nil
}

func scanAuthor(row pgx.Row) (*domain.Author, error) {
	var author domain.Author
	if err := row.Scan(
		&author.ID,
		&author.FirstName,
		&author.LastName,
		&author.Slug,
		&author.Bio,
		&author.BirthDate,
		&author.DeathDate,
		&author.CreatedAt,
		&author.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *AuthorRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.Author, error) {
	stmt, args, err := r.builder.
		Select(authorColumns...).
		From("biblio.authors").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select author sql: %w", err)
	}

	author, err := scanAuthor(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan author: %w", err)
	}

	if err := r.attachBooks(ctx, author); err != nil {
		return nil, err
	}
	return author, nil
}

// GetByID retrieves an author with their book refs.
func (r *AuthorRepository) GetByID(ctx context.Context, id string) (*domain.Author, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetBySlug retrieves an author by URL slug with their book refs.
func (r *AuthorRepository) GetBySlug(ctx context.Context, slug string) (*domain.Author, error) {
	return r.getBy(ctx, squirrel.Eq{"slug": slug})
}

// List returns one page of authors ordered by last then first name.
func (r *AuthorRepository) List(ctx context.Context, page port.Page) ([]domain.Author, int, error) {
	page = page.Normalize()

	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	stmt, args, err := r.builder.
		Select(authorColumns...).
		From("biblio.authors").
		OrderBy("last_name ASC", "first_name ASC").
		Limit(uint64(page.Size)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list authors sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()

	authors := make([]domain.Author, 0, page.Size)
	for rows.Next() {
		author, err := scanAuthor(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, *author)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate authors: %w", err)
	}
	return authors, total, nil
}

// ListByBook returns the authors linked to a book, ordered by last name.
func (r *AuthorRepository) ListByBook(ctx context.Context, bookID string) ([]domain.Author, error) {
	stmt, args, err := r.builder.
		Select(prefixColumns("a", authorColumns)...).
		From("biblio.authors a").
		Join("biblio.book_authors ba ON ba.author_id = a.id").
		Where(squirrel.Eq{"ba.book_id": bookID}).
		OrderBy("a.last_name ASC", "a.first_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list book authors sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list book authors: %w", err)
	}
	defer rows.Close()

	var authors []domain.Author
	for rows.Next() {
		author, err := scanAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, *author)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authors: %w", err)
	}
	return authors, nil
}

// Update rewrites an author row.
func (r *AuthorRepository) Update(ctx context.Context, author domain.Author) error {
	stmt, args, err := r.builder.Update("biblio.authors").
		Set("first_name", author.FirstName).
		Set("last_name", author.LastName).
		Set("slug", author.Slug).
		Set("bio", author.Bio).
		Set("birth_date", author.BirthDate).
		Set("death_date", author.DeathDate).
		Set("updated_at", author.UpdatedAt).
		Where(squirrel.Eq{"id": author.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update author sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update author: %w", translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes an author row.
func (r *AuthorRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("biblio.authors").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete author sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete author: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Count returns the number of authors.
func (r *AuthorRepository) Count(ctx context.Context) (int, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("biblio.authors").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count authors sql: %w", err)
	}

	var total int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count authors: %w", err)
	}
	return total, nil
}

// attachBooks populates BookIDs and Books for one author.
func (r *AuthorRepository) attachBooks(ctx context.Context, author *domain.Author) error {
	stmt, args, err := r.builder.
		Select("b.id", "b.title", "b.slug").
		From("biblio.book_authors ba").
		Join("biblio.books b ON b.id = ba.book_id").
		Where(squirrel.Eq{"ba.author_id": author.ID}).
		OrderBy("b.title ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build author books sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("query author books: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref domain.BookRef
		if err := rows.Scan(&ref.ID, &ref.Title, &ref.Slug); err != nil {
			return fmt.Errorf("scan author book: %w", err)
		}
		author.BookIDs = append(author.BookIDs, ref.ID)
		author.Books = append(author.Books, ref)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate author books: %w", err)
	}
	return nil
}

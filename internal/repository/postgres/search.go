package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
)

// bookAuthorMatch matches any linked author name against the search pattern.
const bookAuthorMatch = `EXISTS (
SELECT 1 FROM biblio.book_authors ba
JOIN biblio.authors a ON a.id = ba.author_id
WHERE ba.book_id = b.id AND (a.first_name ILIKE ? OR a.last_name ILIKE ?))`

// SearchRepository implements port.SearchRepository. All pipelines are
// read-only; out-of-range pages simply select zero rows.
type SearchRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSearchRepository wires the PostgreSQL search pipelines.
func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func likePattern(term string) string {
	return "%" + term + "%"
}

func direction(q port.SearchQuery) string {
	if q.Descending() {
		return "DESC"
	}
	return "ASC"
}

func (r *SearchRepository) count(ctx context.Context, from string, conds []squirrel.Sqlizer) (int, error) {
	query := r.builder.Select("COUNT(*)").From(from)
	for _, cond := range conds {
		query = query.Where(cond)
	}
	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build search count sql: %w", err)
	}

	var total int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count search results: %w", err)
	}
	return total, nil
}

// SearchBooks matches book titles and linked author names.
func (r *SearchRepository) SearchBooks(ctx context.Context, q port.SearchQuery) ([]domain.Book, port.PageInfo, error) {
	var conds []squirrel.Sqlizer
	if q.Term != "" {
		pat := likePattern(q.Term)
		conds = append(conds, squirrel.Or{
			squirrel.ILike{"b.title": pat},
			squirrel.Expr(bookAuthorMatch, pat, pat),
		})
	}
	if q.Filters.Format != "" {
		conds = append(conds, squirrel.Eq{"b.format": q.Filters.Format})
	}
	if q.Filters.AvailabilityStatus != "" {
		conds = append(conds, squirrel.Eq{"b.availability": q.Filters.AvailabilityStatus})
	}

	total, err := r.count(ctx, "biblio.books b", conds)
	if err != nil {
		return nil, port.PageInfo{}, err
	}

	orderBy := "b.title ASC"
	switch q.SortBy {
	case "publish_year", "page_count", "created_at", "updated_at", "title":
		orderBy = fmt.Sprintf("b.%s %s", q.SortBy, direction(q))
	}

	query := r.builder.
		Select(prefixColumns("b", bookColumns)...).
		From("biblio.books b").
		OrderBy(orderBy, "b.id ASC").
		Limit(uint64(q.Page.Size)).
		Offset(uint64(q.Page.Offset()))
	for _, cond := range conds {
		query = query.Where(cond)
	}
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, port.PageInfo{}, fmt.Errorf("build search books sql: %w", err)
	}

	books := &BookRepository{pool: r.pool, exec: r.exec, builder: r.builder}
	results, err := books.queryBooks(ctx, stmt, args)
	if err != nil {
		return nil, port.PageInfo{}, err
	}
	if err := books.attachAuthors(ctx, results); err != nil {
		return nil, port.PageInfo{}, err
	}
	return results, port.NewPageInfo(q.Page, total), nil
}

// SearchAuthors matches author names.
func (r *SearchRepository) SearchAuthors(ctx context.Context, q port.SearchQuery) ([]domain.Author, port.PageInfo, error) {
	var conds []squirrel.Sqlizer
	if q.Term != "" {
		pat := likePattern(q.Term)
		conds = append(conds, squirrel.Or{
			squirrel.ILike{"first_name": pat},
			squirrel.ILike{"last_name": pat},
		})
	}

	total, err := r.count(ctx, "biblio.authors", conds)
	if err != nil {
		return nil, port.PageInfo{}, err
	}

	orderBy := []string{"last_name ASC", "first_name ASC"}
	switch q.SortBy {
	case "last_name", "first_name", "birth_date", "created_at":
		orderBy = []string{fmt.Sprintf("%s %s", q.SortBy, direction(q)), "id ASC"}
	}

	query := r.builder.
		Select(authorColumns...).
		From("biblio.authors").
		OrderBy(orderBy...).
		Limit(uint64(q.Page.Size)).
		Offset(uint64(q.Page.Offset()))
	for _, cond := range conds {
		query = query.Where(cond)
	}
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, port.PageInfo{}, fmt.Errorf("build search authors sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, port.PageInfo{}, fmt.Errorf("search authors: %w", err)
	}
	defer rows.Close()

	var authors []domain.Author
	for rows.Next() {
		author, err := scanAuthor(rows)
		if err != nil {
			return nil, port.PageInfo{}, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, *author)
	}
	if err := rows.Err(); err != nil {
		return nil, port.PageInfo{}, fmt.Errorf("iterate authors: %w", err)
	}
	return authors, port.NewPageInfo(q.Page, total), nil
}

// SearchUsers matches usernames and email addresses.
func (r *SearchRepository) SearchUsers(ctx context.Context, q port.SearchQuery) ([]domain.User, port.PageInfo, error) {
	var conds []squirrel.Sqlizer
	if q.Term != "" {
		pat := likePattern(q.Term)
		conds = append(conds, squirrel.Or{
			squirrel.ILike{"username": pat},
			squirrel.ILike{"email": pat},
		})
	}

	total, err := r.count(ctx, "biblio.users", conds)
	if err != nil {
		return nil, port.PageInfo{}, err
	}

	orderBy := "username ASC"
	switch q.SortBy {
	case "username", "email", "created_at":
		orderBy = fmt.Sprintf("%s %s", q.SortBy, direction(q))
	}

	query := r.builder.
		Select(userColumns...).
		From("biblio.users").
		OrderBy(orderBy, "id ASC").
		Limit(uint64(q.Page.Size)).
		Offset(uint64(q.Page.Offset()))
	for _, cond := range conds {
		query = query.Where(cond)
	}
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, port.PageInfo{}, fmt.Errorf("build search users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, port.PageInfo{}, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, port.PageInfo{}, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, port.PageInfo{}, fmt.Errorf("iterate users: %w", err)
	}
	return users, port.NewPageInfo(q.Page, total), nil
}

// SearchBookshelf matches one user's shelf against book titles and author
// names, with the reading-progress facets applied after the book join.
func (r *SearchRepository) SearchBookshelf(ctx context.Context, q port.SearchQuery) ([]domain.BookshelfItem, port.PageInfo, error) {
	conds := []squirrel.Sqlizer{squirrel.Eq{"s.user_id": q.UserID}}
	if q.Term != "" {
		pat := likePattern(q.Term)
		conds = append(conds, squirrel.Or{
			squirrel.ILike{"b.title": pat},
			squirrel.Expr(bookAuthorMatch, pat, pat),
		})
	}
	if q.Filters.Format != "" {
		conds = append(conds, squirrel.Eq{"b.format": q.Filters.Format})
	}
	if q.Filters.AvailabilityStatus != "" {
		conds = append(conds, squirrel.Eq{"b.availability": q.Filters.AvailabilityStatus})
	}
	if q.Filters.MinRating > 0 {
		conds = append(conds, squirrel.GtOrEq{"s.rating": q.Filters.MinRating})
	}
	if q.Filters.ReadStatus != "" {
		conds = append(conds, squirrel.Eq{"s.read_status": q.Filters.ReadStatus})
	}
	if q.Filters.IsFavorite != "" {
		conds = append(conds, squirrel.Eq{"s.is_favorite": q.Filters.IsFavorite == "true"})
	}
	if q.Filters.StartDate != nil {
		conds = append(conds, squirrel.GtOrEq{"s.start_read_date": *q.Filters.StartDate})
	}
	if q.Filters.EndDate != nil {
		conds = append(conds, squirrel.LtOrEq{"s.end_read_date": *q.Filters.EndDate})
	}

	const from = "biblio.bookshelf_items s JOIN biblio.books b ON b.id = s.book_id"
	total, err := r.count(ctx, from, conds)
	if err != nil {
		return nil, port.PageInfo{}, err
	}

	orderBy := "b.title ASC"
	switch q.SortBy {
	case "title":
		orderBy = fmt.Sprintf("b.title %s", direction(q))
	case "rating", "read_status", "start_read_date", "end_read_date", "due_date", "created_at", "updated_at":
		orderBy = fmt.Sprintf("s.%s %s", q.SortBy, direction(q))
	}

	query := r.builder.
		Select(prefixColumns("s", shelfColumns)...).
		From(from).
		OrderBy(orderBy, "s.id ASC").
		Limit(uint64(q.Page.Size)).
		Offset(uint64(q.Page.Offset()))
	for _, cond := range conds {
		query = query.Where(cond)
	}
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, port.PageInfo{}, fmt.Errorf("build search bookshelf sql: %w", err)
	}

	shelf := &BookshelfRepository{pool: r.pool, exec: r.exec, builder: r.builder}
	items, err := shelf.queryItems(ctx, stmt, args)
	if err != nil {
		return nil, port.PageInfo{}, err
	}
	if err := shelf.attachBooks(ctx, items); err != nil {
		return nil, port.PageInfo{}, err
	}
	return items, port.NewPageInfo(q.Page, total), nil
}

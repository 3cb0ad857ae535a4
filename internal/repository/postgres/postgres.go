package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/repository"
)

// pgExecutor abstracts over a pool and an open transaction.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

// translateError maps driver errors onto the repository sentinels.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrConflict
	}
	return err
}

// Store wraps the configured pgx pool and owns its lifecycle. Repositories
// and the transaction manager are built from it, and it doubles as the
// readiness probe for the HTTP health endpoint.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an already configured pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying pool.
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("store not initialized")
	}
	return s.pool.Ping(ctx)
}

// Close releases resources associated with the store.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TxManager implements port.TransactionManager on top of the pool. Each
// WithinTransaction call opens one transaction and binds fresh repository
// instances to it.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager constructs a transaction manager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// WithinTransaction runs fn inside a single transaction. fn's error aborts
// the transaction; otherwise it commits.
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context, stores port.TxStores) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	stores := port.TxStores{
		Users:     NewUserRepository(m.pool).WithTx(tx),
		Books:     NewBookRepository(m.pool).WithTx(tx),
		Authors:   NewAuthorRepository(m.pool).WithTx(tx),
		Bookshelf: NewBookshelfRepository(m.pool).WithTx(tx),
		Wishlists: NewWishlistRepository(m.pool).WithTx(tx),
	}

	if err := fn(ctx, stores); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

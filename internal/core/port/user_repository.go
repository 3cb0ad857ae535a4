package port

import (
	"context"
	"time"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByVerificationTokenHash(ctx context.Context, hash string) (*domain.User, error)
	GetByResetTokenHash(ctx context.Context, hash string) (*domain.User, error)
	GetByEmailChangeTokenHash(ctx context.Context, hash string) (*domain.User, error)
	List(ctx context.Context, page Page) ([]domain.User, int, error)
	Update(ctx context.Context, user domain.User) error
	Delete(ctx context.Context, id string) error

	// PurgeExpiredTokens clears verification, reset, and email-change tokens
	// whose expiry precedes now. Returns the number of rows touched.
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)
	// PurgeStaleUnverified removes accounts that never verified before cutoff.
	PurgeStaleUnverified(ctx context.Context, cutoff time.Time) (int64, error)
}

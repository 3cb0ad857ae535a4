package port

import (
	"context"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
)

// WishlistRepository persists wishlist entries.
type WishlistRepository interface {
	Create(ctx context.Context, entry domain.WishlistEntry) error
	GetByID(ctx context.Context, id string) (*domain.WishlistEntry, error)
	ListByUser(ctx context.Context, userID string, page Page) ([]domain.WishlistEntry, int, error)
	ListAllByUser(ctx context.Context, userID string) ([]domain.WishlistEntry, error)
	Update(ctx context.Context, entry domain.WishlistEntry) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// RegistrationRepository persists the singleton signup toggle.
type RegistrationRepository interface {
	Get(ctx context.Context) (*domain.RegistrationSettings, error)
	Set(ctx context.Context, isOpen bool) error
}

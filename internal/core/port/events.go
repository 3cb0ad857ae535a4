package port

import (
	"context"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishUserVerified(ctx context.Context, event domain.UserVerifiedEvent) error
	PublishBookCreated(ctx context.Context, event domain.BookCreatedEvent) error
	PublishBookDeleted(ctx context.Context, event domain.BookDeletedEvent) error
	PublishAuthorDeleted(ctx context.Context, event domain.AuthorDeletedEvent) error
	PublishWishlistMailed(ctx context.Context, event domain.WishlistMailedEvent) error
}

package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs biblio.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent("biblio.user.registered", event.RegisteredAt, map[string]any{
		"user_id":       event.UserID,
		"username":      event.Username,
		"email":         event.Email,
		"registered_at": event.RegisteredAt,
	})
	return nil
}

// PublishUserVerified logs biblio.user.verified events.
func (p *StubPublisher) PublishUserVerified(_ context.Context, event domain.UserVerifiedEvent) error {
	p.logEvent("biblio.user.verified", event.VerifiedAt, map[string]any{
		"user_id":     event.UserID,
		"verified_at": event.VerifiedAt,
	})
	return nil
}

// PublishBookCreated logs biblio.book.created events.
func (p *StubPublisher) PublishBookCreated(_ context.Context, event domain.BookCreatedEvent) error {
	p.logEvent("biblio.book.created", event.CreatedAt, map[string]any{
		"book_id":    event.BookID,
		"title":      event.Title,
		"slug":       event.Slug,
		"author_ids": event.AuthorIDs,
		"created_by": event.CreatedBy,
	})
	return nil
}

// PublishBookDeleted logs biblio.book.deleted events.
func (p *StubPublisher) PublishBookDeleted(_ context.Context, event domain.BookDeletedEvent) error {
	p.logEvent("biblio.book.deleted", event.DeletedAt, map[string]any{
		"book_id":             event.BookID,
		"deleted_by":          event.DeletedBy,
		"shelf_items_removed": event.ShelfItemsRemoved,
	})
	return nil
}

// PublishAuthorDeleted logs biblio.author.deleted events.
func (p *StubPublisher) PublishAuthorDeleted(_ context.Context, event domain.AuthorDeletedEvent) error {
	p.logEvent("biblio.author.deleted", event.DeletedAt, map[string]any{
		"author_id":          event.AuthorID,
		"fallback_author_id": event.FallbackAuthorID,
		"books_rewritten":    event.BooksRewritten,
		"deleted_by":         event.DeletedBy,
	})
	return nil
}

// PublishWishlistMailed logs biblio.wishlist.mailed events.
func (p *StubPublisher) PublishWishlistMailed(_ context.Context, event domain.WishlistMailedEvent) error {
	p.logEvent("biblio.wishlist.mailed", event.MailedAt, map[string]any{
		"user_id":     event.UserID,
		"entry_count": event.EntryCount,
	})
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventType string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes biblio.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string    `json:"user_id"`
		Username     string    `json:"username"`
		Email        string    `json:"email"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		UserID:       event.UserID,
		Username:     event.Username,
		Email:        event.Email,
		RegisteredAt: event.RegisteredAt.UTC(),
	}
	return p.publish(ctx, "biblio.user.registered", event.RegisteredAt, payload)
}

// PublishUserVerified publishes biblio.user.verified events.
func (p *EventPublisher) PublishUserVerified(ctx context.Context, event domain.UserVerifiedEvent) error {
	payload := struct {
		UserID     string    `json:"user_id"`
		VerifiedAt time.Time `json:"verified_at"`
	}{
		UserID:     event.UserID,
		VerifiedAt: event.VerifiedAt.UTC(),
	}
	return p.publish(ctx, "biblio.user.verified", event.VerifiedAt, payload)
}

// PublishBookCreated publishes biblio.book.created events.
func (p *EventPublisher) PublishBookCreated(ctx context.Context, event domain.BookCreatedEvent) error {
	payload := struct {
		BookID    string    `json:"book_id"`
		Title     string    `json:"title"`
		Slug      string    `json:"slug"`
		AuthorIDs []string  `json:"author_ids,omitempty"`
		CreatedBy string    `json:"created_by"`
		CreatedAt time.Time `json:"created_at"`
	}{
		BookID:    event.BookID,
		Title:     event.Title,
		Slug:      event.Slug,
		AuthorIDs: event.AuthorIDs,
		CreatedBy: event.CreatedBy,
		CreatedAt: event.CreatedAt.UTC(),
	}
	return p.publish(ctx, "biblio.book.created", event.CreatedAt, payload)
}

// PublishBookDeleted publishes biblio.book.deleted events.
func (p *EventPublisher) PublishBookDeleted(ctx context.Context, event domain.BookDeletedEvent) error {
	payload := struct {
		BookID            string    `json:"book_id"`
		DeletedBy         string    `json:"deleted_by"`
		DeletedAt         time.Time `json:"deleted_at"`
		ShelfItemsRemoved int       `json:"shelf_items_removed"`
	}{
		BookID:            event.BookID,
		DeletedBy:         event.DeletedBy,
		DeletedAt:         event.DeletedAt.UTC(),
		ShelfItemsRemoved: event.ShelfItemsRemoved,
	}
	return p.publish(ctx, "biblio.book.deleted", event.DeletedAt, payload)
}

// PublishAuthorDeleted publishes biblio.author.deleted events.
func (p *EventPublisher) PublishAuthorDeleted(ctx context.Context, event domain.AuthorDeletedEvent) error {
	payload := struct {
		AuthorID         string    `json:"author_id"`
		FallbackAuthorID string    `json:"fallback_author_id,omitempty"`
		BooksRewritten   int       `json:"books_rewritten"`
		DeletedBy        string    `json:"deleted_by"`
		DeletedAt        time.Time `json:"deleted_at"`
	}{
		AuthorID:         event.AuthorID,
		FallbackAuthorID: event.FallbackAuthorID,
		BooksRewritten:   event.BooksRewritten,
		DeletedBy:        event.DeletedBy,
		DeletedAt:        event.DeletedAt.UTC(),
	}
	return p.publish(ctx, "biblio.author.deleted", event.DeletedAt, payload)
}

// PublishWishlistMailed publishes biblio.wishlist.mailed events.
func (p *EventPublisher) PublishWishlistMailed(ctx context.Context, event domain.WishlistMailedEvent) error {
	payload := struct {
		UserID     string    `json:"user_id"`
		EntryCount int       `json:"entry_count"`
		MailedAt   time.Time `json:"mailed_at"`
	}{
		UserID:     event.UserID,
		EntryCount: event.EntryCount,
		MailedAt:   event.MailedAt.UTC(),
	}
	return p.publish(ctx, "biblio.wishlist.mailed", event.MailedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)

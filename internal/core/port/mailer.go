package port

import (
	"context"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
)

// Mailer delivers transactional email through the configured relay.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, link string) error
	SendPasswordResetEmail(ctx context.Context, to, link string) error
	SendPasswordChangedNotice(ctx context.Context, to string) error
	SendEmailChangeConfirmation(ctx context.Context, to, link string) error
	SendWishlistExport(ctx context.Context, to string, entries []domain.WishlistEntry) error
}

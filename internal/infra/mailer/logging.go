package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/infra/logger"
)

// LoggingMailer logs mail instead of sending it. Used when no SMTP relay is
// configured; the links still land in the logs for manual flows.
type LoggingMailer struct {
	logger *zap.Logger
}

// NewLoggingMailer constructs a development-friendly mailer.
func NewLoggingMailer(log *zap.Logger) *LoggingMailer {
	return &LoggingMailer{logger: log}
}

func (m *LoggingMailer) log(kind, to string, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("mail", kind),
		zap.String("to", logger.MaskEmail(to)),
	}, fields...)
	m.logger.Info("mail not sent, no relay configured", fields...)
}

func (m *LoggingMailer) SendVerificationEmail(_ context.Context, to, link string) error {
	m.log("verification", to, zap.String("link", link))
	return nil
}

func (m *LoggingMailer) SendPasswordResetEmail(_ context.Context, to, link string) error {
	m.log("password_reset", to, zap.String("link", link))
	return nil
}

func (m *LoggingMailer) SendPasswordChangedNotice(_ context.Context, to string) error {
	m.log("password_changed", to)
	return nil
}

func (m *LoggingMailer) SendEmailChangeConfirmation(_ context.Context, to, link string) error {
	m.log("email_change", to, zap.String("link", link))
	return nil
}

func (m *LoggingMailer) SendWishlistExport(_ context.Context, to string, entries []domain.WishlistEntry) error {
	m.log("wishlist_export", to, zap.Int("entries", len(entries)))
	return nil
}

var _ port.Mailer = (*LoggingMailer)(nil)

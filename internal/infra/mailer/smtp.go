// Package mailer delivers transactional email over SMTP, with a logging
// fallback for environments without a relay.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/infra/config"
)

// SMTPMailer implements port.Mailer against a plain SMTP relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPMailer constructs the mailer. Auth is skipped when no username is
// configured (local relays).
func NewSMTPMailer(cfg config.SMTPSettings) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		from: cfg.From,
	}, nil
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// SendVerificationEmail mails the account activation link.
func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, to, link string) error {
	body := fmt.Sprintf("Welcome!\n\nPlease confirm your email address by following this link:\n\n%s\n\nThe link expires in one hour.\n", link)
	return m.send(ctx, to, "Confirm your email address", body)
}

// SendPasswordResetEmail mails the password reset link.
func (m *SMTPMailer) SendPasswordResetEmail(ctx context.Context, to, link string) error {
	body := fmt.Sprintf("A password reset was requested for your account.\n\nFollow this link to choose a new password:\n\n%s\n\nThe link expires in one hour. If you did not request this, ignore this message.\n", link)
	return m.send(ctx, to, "Reset your password", body)
}

// SendPasswordChangedNotice informs the user their password changed.
func (m *SMTPMailer) SendPasswordChangedNotice(ctx context.Context, to string) error {
	body := "Your password was changed.\n\nIf this was not you, reset your password immediately.\n"
	return m.send(ctx, to, "Your password was changed", body)
}

// SendEmailChangeConfirmation mails the confirmation link to the new address.
func (m *SMTPMailer) SendEmailChangeConfirmation(ctx context.Context, to, link string) error {
	body := fmt.Sprintf("An email change was requested for your account.\n\nConfirm the new address by following this link:\n\n%s\n\nThe link expires in 24 hours.\n", link)
	return m.send(ctx, to, "Confirm your new email address", body)
}

// SendWishlistExport mails the user their wishlist as plain text.
func (m *SMTPMailer) SendWishlistExport(ctx context.Context, to string, entries []domain.WishlistEntry) error {
	var body strings.Builder
	body.WriteString("Your wishlist:\n\n")
	for _, entry := range entries {
		author := entry.Author
		if author == "" {
			author = "unknown author"
		}
		fmt.Fprintf(&body, "- %s (%s) [%s, %s priority]\n", entry.Title, author, entry.Status, entry.Priority)
	}
	fmt.Fprintf(&body, "\n%d wished books in total.\n", len(entries))
	return m.send(ctx, to, "Your wishlist export", body.String())
}

var _ port.Mailer = (*SMTPMailer)(nil)

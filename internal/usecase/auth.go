package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/infra/security"
	"github.com/Frederic-K/bibliophile-server/internal/repository"
)

const (
	verificationTokenTTL = time.Hour
	resetTokenTTL        = time.Hour
)

var (
	// ErrInvalidCredentials covers both unknown identifier and wrong password
	// so responses never reveal which half failed.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrRegistrationClosed indicates public signups are currently disabled.
	ErrRegistrationClosed = errors.New("registration is closed")
	// ErrUsernameTaken indicates the requested username already exists.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken indicates the requested email already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrAccountNotVerified indicates the account exists but the email was never confirmed.
	ErrAccountNotVerified = errors.New("account email not verified")
	// ErrTokenInvalid indicates the presented verification or reset token is unknown or already used.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates the token exists but its validity window passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
)

// AuthService handles signup, signin, and the email-token flows.
type AuthService struct {
	users             port.UserRepository
	registration      port.RegistrationRepository
	hasher            port.PasswordHasher
	sessions          port.SessionTokens
	passwordValidator *security.PasswordValidator
	mailer            port.Mailer
	events            port.EventPublisher
	frontendURL       string
	now               func() time.Time
}

// NewAuthService constructs an auth service.
func NewAuthService(
	users port.UserRepository,
	registration port.RegistrationRepository,
	hasher port.PasswordHasher,
	sessions port.SessionTokens,
	validator *security.PasswordValidator,
	mailer port.Mailer,
	events port.EventPublisher,
	frontendURL string,
) *AuthService {
	return &AuthService{
		users:             users,
		registration:      registration,
		hasher:            hasher,
		sessions:          sessions,
		passwordValidator: validator,
		mailer:            mailer,
		events:            events,
		frontendURL:       strings.TrimRight(frontendURL, "/"),
		now:               time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// SignupInput captures a registration request.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Signup creates a pending account and mails its verification link. The
// account cannot sign in until the link is followed.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	password := input.Password

	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	settings, err := s.registration.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registration settings: %w", err)
	}
	if !settings.IsOpen {
		return nil, ErrRegistrationClosed
	}

	if s.passwordValidator != nil {
		if err := s.passwordValidator.Validate(password); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
		}
	}

	if existing, err := s.users.GetByUsername(ctx, username); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}
	if existing, err := s.users.GetByEmail(ctx, email); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	} else if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	rawToken, err := security.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}
	tokenHash := security.HashToken(rawToken)

	now := s.now().UTC()
	expires := now.Add(verificationTokenTTL)
	user := domain.User{
		ID:                       uuid.NewString(),
		Username:                 username,
		Email:                    email,
		PasswordHash:             passwordHash,
		PasswordAlgo:             s.hasher.Algorithm(),
		Role:                     domain.RoleUser,
		Verified:                 false,
		VerificationTokenHash:    &tokenHash,
		VerificationTokenExpires: &expires,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.mailer.SendVerificationEmail(ctx, email, s.verificationLink(rawToken)); err != nil {
		return nil, fmt.Errorf("send verification email: %w", err)
	}

	if s.events != nil {
		_ = s.events.PublishUserRegistered(ctx, domain.UserRegisteredEvent{
			UserID:       user.ID,
			Username:     user.Username,
			Email:        user.Email,
			RegisteredAt: now,
		})
	}

	return &user, nil
}

// Signin checks the credentials and issues a session token. The identifier
// may be a username or an email address.
func (s *AuthService) Signin(ctx context.Context, identifier, password string) (*domain.User, string, time.Duration, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, "", 0, ErrInvalidCredentials
	}

	user, err := s.lookupByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", 0, ErrInvalidCredentials
		}
		return nil, "", 0, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, "", 0, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, "", 0, ErrInvalidCredentials
	}

	if !user.Verified {
		return nil, "", 0, ErrAccountNotVerified
	}

	token, ttl, err := s.sessions.Issue(domain.Principal{UserID: user.ID, Role: user.Role})
	if err != nil {
		return nil, "", 0, fmt.Errorf("issue session token: %w", err)
	}

	return user, token, ttl, nil
}

// VerifyEmail redeems a verification token and activates the account.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) (*domain.User, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ErrTokenInvalid
	}

	user, err := s.users.GetByVerificationTokenHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("lookup verification token: %w", err)
	}

	now := s.now().UTC()
	if user.VerificationTokenExpires != nil && user.VerificationTokenExpires.Before(now) {
		return nil, ErrTokenExpired
	}

	user.Verified = true
	user.VerificationTokenHash = nil
	user.VerificationTokenExpires = nil
	user.UpdatedAt = now

	if err := s.users.Update(ctx, *user); err != nil {
		return nil, fmt.Errorf("activate user: %w", err)
	}

	if s.events != nil {
		_ = s.events.PublishUserVerified(ctx, domain.UserVerifiedEvent{
			UserID:     user.ID,
			VerifiedAt: now,
		})
	}

	return user, nil
}

// ResendVerification issues a fresh verification link for a pending account.
// Unknown addresses and already-verified accounts succeed silently so the
// endpoint cannot be used to probe for accounts.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if user.Verified {
		return nil
	}

	rawToken, err := security.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}
	tokenHash := security.HashToken(rawToken)

	now := s.now().UTC()
	expires := now.Add(verificationTokenTTL)
	user.VerificationTokenHash = &tokenHash
	user.VerificationTokenExpires = &expires
	user.UpdatedAt = now

	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	return s.mailer.SendVerificationEmail(ctx, email, s.verificationLink(rawToken))
}

// ForgotPassword mails a reset link when the address is known. Unknown
// addresses succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	rawToken, err := security.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	tokenHash := security.HashToken(rawToken)

	now := s.now().UTC()
	expires := now.Add(resetTokenTTL)
	user.ResetTokenHash = &tokenHash
	user.ResetTokenExpires = &expires
	user.UpdatedAt = now

	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := fmt.Sprintf("%s/reset-password/%s", s.frontendURL, rawToken)
	return s.mailer.SendPasswordResetEmail(ctx, user.Email, link)
}

// ResetPassword redeems a reset token and replaces the password.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return ErrTokenInvalid
	}
	if newPassword == "" {
		return fmt.Errorf("new password is required")
	}
	if s.passwordValidator != nil {
		if err := s.passwordValidator.Validate(newPassword); err != nil {
			return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
		}
	}

	user, err := s.users.GetByResetTokenHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	now := s.now().UTC()
	if user.ResetTokenExpires != nil && user.ResetTokenExpires.Before(now) {
		return ErrTokenExpired
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = passwordHash
	user.PasswordAlgo = s.hasher.Algorithm()
	user.ResetTokenHash = nil
	user.ResetTokenExpires = nil
	user.UpdatedAt = now

	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return s.mailer.SendPasswordChangedNotice(ctx, user.Email)
}

func (s *AuthService) lookupByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	if strings.Contains(identifier, "@") {
		return s.users.GetByEmail(ctx, strings.ToLower(identifier))
	}
	return s.users.GetByUsername(ctx, identifier)
}

func (s *AuthService) verificationLink(rawToken string) string {
	return fmt.Sprintf("%s/verify-email/%s", s.frontendURL, rawToken)
}

package port

import (
	"time"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
)

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	Algorithm() string
}

// SessionTokens issues and parses the signed tokens carried in the session
// cookie.
type SessionTokens interface {
	Issue(principal domain.Principal) (token string, ttl time.Duration, err error)
	Parse(token string) (*domain.Principal, error)
}

package domain

import "time"

// Role tags a user with one of the closed set of permission profiles.
type Role string

const (
	RoleUser       Role = "user"
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superAdmin"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User mirrors the persisted representation in the users table.
type User struct {
	ID              string
	Username        string
	Email           string
	PasswordHash    string
	PasswordAlgo    string
	ProfileImageURL string
	Role            Role
	Verified        bool

	// Hashed single-use tokens for verification flows. Cleared once used.
	VerificationTokenHash    *string
	VerificationTokenExpires *time.Time
	ResetTokenHash           *string
	ResetTokenExpires        *time.Time
	PendingEmail             *string
	EmailChangeTokenHash     *string
	EmailChangeTokenExpires  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID string
	Role   Role
}

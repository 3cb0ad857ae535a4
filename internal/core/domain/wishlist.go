package domain

import "time"

// WishlistStatus enumerates acquisition progress for a wished book.
type WishlistStatus string

const (
	WishlistPending    WishlistStatus = "pending"
	WishlistInProgress WishlistStatus = "in progress"
	WishlistCompleted  WishlistStatus = "completed"
)

// WishlistPriority orders wished books by urgency.
type WishlistPriority string

const (
	PriorityHigh   WishlistPriority = "high"
	PriorityMedium WishlistPriority = "medium"
	PriorityLow    WishlistPriority = "low"
)

// WishlistEntry is a book a user wants, identified by free-text title and
// author rather than catalogue references.
type WishlistEntry struct {
	ID        string
	UserID    string
	Title     string
	Author    string
	Status    WishlistStatus
	Priority  WishlistPriority
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegistrationSettings is the singleton toggle gating public signups.
type RegistrationSettings struct {
	IsOpen bool
}

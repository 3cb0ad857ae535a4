package domain

import "time"

// UserRegisteredEvent is emitted after a successful signup.
type UserRegisteredEvent struct {
	UserID       string
	Username     string
	Email        string
	RegisteredAt time.Time
}

// UserVerifiedEvent is emitted once a user confirms their email address.
type UserVerifiedEvent struct {
	UserID     string
	VerifiedAt time.Time
}

// BookCreatedEvent is emitted when a catalogue book is created.
type BookCreatedEvent struct {
	BookID    string
	Title     string
	Slug      string
	AuthorIDs []string
	CreatedBy string
	CreatedAt time.Time
}

// BookDeletedEvent is emitted when a catalogue book is removed, after the
// cascade over author links and bookshelf items committed.
type BookDeletedEvent struct {
	BookID            string
	DeletedBy         string
	DeletedAt         time.Time
	ShelfItemsRemoved int
}

// AuthorDeletedEvent is emitted when an author is removed. FallbackAuthorID
// is empty when the author was stripped without replacement.
type AuthorDeletedEvent struct {
	AuthorID         string
	FallbackAuthorID string
	BooksRewritten   int
	DeletedBy        string
	DeletedAt        time.Time
}

// WishlistMailedEvent is emitted after a user's wishlist export was handed
// to the mail relay.
type WishlistMailedEvent struct {
	UserID     string
	EntryCount int
	MailedAt   time.Time
}

package domain

import "time"

// Author mirrors the persisted representation in the authors table.
type Author struct {
	ID        string
	FirstName string
	LastName  string
	Slug      string
	Bio       *string
	BirthDate *time.Time
	DeathDate *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	// BookIDs holds the linked book identifiers when loaded.
	BookIDs []string
	// Books is populated by joined reads.
	Books []BookRef
}

// BookRef is the compact book view embedded in author responses.
type BookRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug,omitempty"`
}

package domain

import "time"

// BookFormat enumerates supported book formats.
type BookFormat string

const (
	FormatPhysical BookFormat = "physical"
	FormatDigital  BookFormat = "digital"
)

// Availability enumerates a book's lending state.
type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityUnavailable Availability = "unavailable"
	AvailabilityReserved    Availability = "reserved"
)

// Book mirrors the persisted representation in the books table.
type Book struct {
	ID            string
	Title         string
	Slug          string
	Summary       *string
	PublishYear   *int
	CoverImageURL string
	Tags          []string
	Format        BookFormat
	Availability  Availability
	Genres        []string
	PageCount     int
	Language      *string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// AuthorIDs holds the linked author identifiers when loaded.
	AuthorIDs []string
	// Authors is populated by joined reads.
	Authors []AuthorRef
}

// AuthorRef is the compact author view embedded in book responses.
type AuthorRef struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Slug      string `json:"slug,omitempty"`
}

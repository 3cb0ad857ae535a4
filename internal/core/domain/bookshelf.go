package domain

import "time"

// ReadStatus enumerates reading progress states for a bookshelf item.
type ReadStatus string

const (
	ReadStatusToRead  ReadStatus = "to-read"
	ReadStatusReading ReadStatus = "reading"
	ReadStatusRead    ReadStatus = "read"
)

// BookshelfItem links a user to a book with reading-progress metadata.
// The (user, book) pair is unique.
type BookshelfItem struct {
	ID            string
	UserID        string
	BookID        string
	Rating        int
	ReadStatus    ReadStatus
	StartReadDate *time.Time
	EndReadDate   *time.Time
	IsFavorite    bool
	DueDate       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Book and Authors are populated by joined reads.
	Book    *Book
	Authors []AuthorRef
}

// ReadingStats aggregates a user's reading dashboard counters.
type ReadingStats struct {
	TotalBooks         int   `json:"total_books"`
	TotalAuthors       int   `json:"total_authors"`
	TotalShelfItems    int   `json:"total_shelf_items"`
	LastMonthNewItems  int   `json:"last_month_new_items"`
	ReadItems          int   `json:"read_items"`
	LastMonthReadItems int   `json:"last_month_read_items"`
	UnreadItems        int   `json:"unread_items"`
	FavoriteItems      int   `json:"favorite_items"`
	HighRatedItems     int   `json:"high_rated_items"`
	TotalPagesRead     int64 `json:"total_pages_read"`
	LastMonthPagesRead int64 `json:"last_month_pages_read"`
}

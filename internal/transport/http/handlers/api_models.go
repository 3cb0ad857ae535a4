package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// SignupRequest defines the account registration payload.
type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SigninRequest defines the login payload. Identifier accepts a username or
// an email address.
type SigninRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// TokenRequest carries a single-use token delivered by email.
type TokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// EmailRequest carries a bare email address.
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest confirms a password reset.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateUserRequest defines the administrative account creation payload.
type CreateUserRequest struct {
	Username string  `json:"username" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required"`
	Role     *string `json:"role,omitempty"`
}

// UpdateUserRequest carries profile changes. Absent fields are left untouched.
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// UpdatePasswordRequest changes a password. CurrentPassword is required for
// self-service changes.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// BookRequest defines the writable catalogue book fields.
type BookRequest struct {
	Title        string   `json:"title" binding:"required"`
	Summary      *string  `json:"summary,omitempty"`
	PublishYear  *int     `json:"publish_year,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Format       string   `json:"format,omitempty"`
	Availability string   `json:"availability,omitempty"`
	Genres       []string `json:"genres,omitempty"`
	PageCount    int      `json:"page_count,omitempty"`
	Language     *string  `json:"language,omitempty"`
	AuthorIDs    []string `json:"author_ids,omitempty"`
}

// AuthorRequest defines the writable author fields.
type AuthorRequest struct {
	FirstName string     `json:"first_name" binding:"required"`
	LastName  string     `json:"last_name" binding:"required"`
	Bio       *string    `json:"bio,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	DeathDate *time.Time `json:"death_date,omitempty"`
}

// ShelfItemRequest defines the writable bookshelf item fields. BookID is only
// read on creation.
type ShelfItemRequest struct {
	BookID        string     `json:"book_id,omitempty"`
	Rating        int        `json:"rating"`
	ReadStatus    string     `json:"read_status,omitempty"`
	StartReadDate *time.Time `json:"start_read_date,omitempty"`
	EndReadDate   *time.Time `json:"end_read_date,omitempty"`
	IsFavorite    bool       `json:"is_favorite"`
	DueDate       *time.Time `json:"due_date,omitempty"`
}

// WishlistRequest defines the writable wishlist entry fields.
type WishlistRequest struct {
	Title    string `json:"title" binding:"required"`
	Author   string `json:"author,omitempty"`
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// RegistrationToggleRequest switches public signups on or off.
type RegistrationToggleRequest struct {
	IsOpen *bool `json:"is_open" binding:"required"`
}

// UserResponse is the API view of a user account.
type UserResponse struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	Verified        bool      `json:"verified"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	PendingEmail    *string   `json:"pending_email,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewUserResponse maps a domain user to its API view.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		Role:            string(u.Role),
		Verified:        u.Verified,
		ProfileImageURL: u.ProfileImageURL,
		PendingEmail:    u.PendingEmail,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// UserListResponse is one page of users.
type UserListResponse struct {
	Users      []UserResponse `json:"users"`
	Pagination port.PageInfo  `json:"pagination"`
}

// SessionResponse is returned after a successful signin. The session token
// itself travels in an HTTP-only cookie.
type SessionResponse struct {
	User      UserResponse `json:"user"`
	ExpiresIn int          `json:"expires_in"`
}

// BookResponse is the API view of a catalogue book.
type BookResponse struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Slug          string             `json:"slug"`
	Summary       *string            `json:"summary,omitempty"`
	PublishYear   *int               `json:"publish_year,omitempty"`
	CoverImageURL string             `json:"cover_image_url,omitempty"`
	Tags          []string           `json:"tags,omitempty"`
	Format        string             `json:"format"`
	Availability  string             `json:"availability"`
	Genres        []string           `json:"genres,omitempty"`
	PageCount     int                `json:"page_count"`
	Language      *string            `json:"language,omitempty"`
	Authors       []domain.AuthorRef `json:"authors"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// NewBookResponse maps a domain book to its API view.
func NewBookResponse(b *domain.Book) BookResponse {
	authors := b.Authors
	if authors == nil {
		authors = []domain.AuthorRef{}
	}
	return BookResponse{
		ID:            b.ID,
		Title:         b.Title,
		Slug:          b.Slug,
		Summary:       b.Summary,
		PublishYear:   b.PublishYear,
		CoverImageURL: b.CoverImageURL,
		Tags:          b.Tags,
		Format:        string(b.Format),
		Availability:  string(b.Availability),
		Genres:        b.Genres,
		PageCount:     b.PageCount,
		Language:      b.Language,
		Authors:       authors,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// BookListResponse is one page of books.
type BookListResponse struct {
	Books      []BookResponse `json:"books"`
	Pagination port.PageInfo  `json:"pagination"`
}

// NewBookListResponse maps a page of domain books.
func NewBookListResponse(books []domain.Book, page port.PageInfo) BookListResponse {
	out := make([]BookResponse, 0, len(books))
	for i := range books {
		out = append(out, NewBookResponse(&books[i]))
	}
	return BookListResponse{Books: out, Pagination: page}
}

// AuthorResponse is the API view of an author.
type AuthorResponse struct {
	ID        string           `json:"id"`
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	Slug      string           `json:"slug"`
	Bio       *string          `json:"bio,omitempty"`
	BirthDate *time.Time       `json:"birth_date,omitempty"`
	DeathDate *time.Time       `json:"death_date,omitempty"`
	Books     []domain.BookRef `json:"books"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewAuthorResponse maps a domain author to its API view.
func NewAuthorResponse(a *domain.Author) AuthorResponse {
	books := a.Books
	if books == nil {
		books = []domain.BookRef{}
	}
	return AuthorResponse{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Slug:      a.Slug,
		Bio:       a.Bio,
		BirthDate: a.BirthDate,
		DeathDate: a.DeathDate,
		Books:     books,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AuthorListResponse is one page of authors.
type AuthorListResponse struct {
	Authors    []AuthorResponse `json:"authors"`
	Pagination port.PageInfo    `json:"pagination"`
}

// NewAuthorListResponse maps a page of domain authors.
func NewAuthorListResponse(authors []domain.Author, page port.PageInfo) AuthorListResponse {
	out := make([]AuthorResponse, 0, len(authors))
	for i := range authors {
		out = append(out, NewAuthorResponse(&authors[i]))
	}
	return AuthorListResponse{Authors: out, Pagination: page}
}

// ShelfItemResponse is the API view of a bookshelf item.
type ShelfItemResponse struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user_id"`
	BookID        string             `json:"book_id"`
	Rating        int                `json:"rating"`
	ReadStatus    string             `json:"read_status"`
	StartReadDate *time.Time         `json:"start_read_date,omitempty"`
	EndReadDate   *time.Time         `json:"end_read_date,omitempty"`
	IsFavorite    bool               `json:"is_favorite"`
	DueDate       *time.Time         `json:"due_date,omitempty"`
	Book          *BookResponse      `json:"book,omitempty"`
	Authors       []domain.AuthorRef `json:"authors,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// NewShelfItemResponse maps a domain bookshelf item to its API view.
func NewShelfItemResponse(item *domain.BookshelfItem) ShelfItemResponse {
	resp := ShelfItemResponse{
		ID:            item.ID,
		UserID:        item.UserID,
		BookID:        item.BookID,
		Rating:        item.Rating,
		ReadStatus:    string(item.ReadStatus),
		StartReadDate: item.StartReadDate,
		EndReadDate:   item.EndReadDate,
		IsFavorite:    item.IsFavorite,
		DueDate:       item.DueDate,
		Authors:       item.Authors,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
	if item.Book != nil {
		book := NewBookResponse(item.Book)
		resp.Book = &book
	}
	return resp
}

// ShelfListResponse is one page of bookshelf items.
type ShelfListResponse struct {
	Items      []ShelfItemResponse `json:"items"`
	Pagination port.PageInfo       `json:"pagination"`
}

// NewShelfListResponse maps a page of domain bookshelf items.
func NewShelfListResponse(items []domain.BookshelfItem, page port.PageInfo) ShelfListResponse {
	out := make([]ShelfItemResponse, 0, len(items))
	for i := range items {
		out = append(out, NewShelfItemResponse(&items[i]))
	}
	return ShelfListResponse{Items: out, Pagination: page}
}

// WishlistEntryResponse is the API view of a wishlist entry.
type WishlistEntryResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Author    string    `json:"author,omitempty"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWishlistEntryResponse maps a domain wishlist entry to its API view.
func NewWishlistEntryResponse(e *domain.WishlistEntry) WishlistEntryResponse {
	return WishlistEntryResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		Title:     e.Title,
		Author:    e.Author,
		Status:    string(e.Status),
		Priority:  string(e.Priority),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// WishlistListResponse is one page of wishlist entries.
type WishlistListResponse struct {
	Entries    []WishlistEntryResponse `json:"entries"`
	Pagination port.PageInfo           `json:"pagination"`
}

// RegistrationStatusResponse reports the public signup toggle.
type RegistrationStatusResponse struct {
	IsOpen bool `json:"is_open"`
}

// UploadResponse reports the public URL of an uploaded image.
type UploadResponse struct {
	URL string `json:"url"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports readiness per dependency.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

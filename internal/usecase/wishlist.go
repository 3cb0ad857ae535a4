package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/repository"
)

var (
	// ErrWishlistEntryNotFound indicates the referenced wishlist entry does not exist.
	ErrWishlistEntryNotFound = errors.New("wishlist entry not found")
	// ErrWishlistEmpty indicates an export was requested for an empty wishlist.
	ErrWishlistEmpty = errors.New("wishlist is empty")
)

// WishlistService handles per-user wishlist operations.
type WishlistService struct {
	wishlists port.WishlistRepository
	users     port.UserRepository
	mailer    port.Mailer
	events    port.EventPublisher
	now       func() time.Time
}

// NewWishlistService constructs WishlistService.
func NewWishlistService(
	wishlists port.WishlistRepository,
	users port.UserRepository,
	mailer port.Mailer,
	events port.EventPublisher,
) *WishlistService {
	return &WishlistService{
		wishlists: wishlists,
		users:     users,
		mailer:    mailer,
		events:    events,
		now:       time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *WishlistService) WithClock(now func() time.Time) *WishlistService {
	if now != nil {
		s.now = now
	}
	return s
}

// WishlistInput carries the writable wishlist entry fields.
type WishlistInput struct {
	Title    string
	Author   string
	Status   domain.WishlistStatus
	Priority domain.WishlistPriority
}

func (in WishlistInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("title is required")
	}
	switch in.Status {
	case "", domain.WishlistPending, domain.WishlistInProgress, domain.WishlistCompleted:
	default:
		return fmt.Errorf("unknown status %q", in.Status)
	}
	switch in.Priority {
	case "", domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
	default:
		return fmt.Errorf("unknown priority %q", in.Priority)
	}
	return nil
}

// CreateEntry adds a wished book to the user's list.
func (s *WishlistService) CreateEntry(ctx context.Context, actor *ability.Ability, userID string, input WishlistInput) (*domain.WishlistEntry, error) {
	if userID == "" {
		userID = actor.Principal().UserID
	}
	if !actor.CanOwn(ability.ActionCreate, ability.SubjectWishlist, userID) {
		return nil, ErrPermissionDenied
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := domain.WishlistEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     strings.TrimSpace(input.Title),
		Author:    strings.TrimSpace(input.Author),
		Status:    input.Status,
		Priority:  input.Priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if entry.Status == "" {
		entry.Status = domain.WishlistPending
	}
	if entry.Priority == "" {
		entry.Priority = domain.PriorityMedium
	}

	if err := s.wishlists.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create wishlist entry: %w", err)
	}
	return &entry, nil
}

// GetEntry loads one wishlist entry, enforcing ownership.
func (s *WishlistService) GetEntry(ctx context.Context, actor *ability.Ability, id string) (*domain.WishlistEntry, error) {
	entry, err := s.wishlists.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWishlistEntryNotFound
		}
		return nil, fmt.Errorf("lookup wishlist entry: %w", err)
	}
	if !actor.CanOwn(ability.ActionRead, ability.SubjectWishlist, entry.UserID) {
		return nil, ErrPermissionDenied
	}
	return entry, nil
}

// ListEntries returns a page of the user's wishlist, enforcing ownership.
func (s *WishlistService) ListEntries(ctx context.Context, actor *ability.Ability, userID string, page port.Page) ([]domain.WishlistEntry, port.PageInfo, error) {
	if userID == "" {
		userID = actor.Principal().UserID
	}
	if !actor.CanOwn(ability.ActionRead, ability.SubjectWishlist, userID) {
		return nil, port.PageInfo{}, ErrPermissionDenied
	}

	page = page.Normalize()
	entries, total, err := s.wishlists.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, port.PageInfo{}, fmt.Errorf("list wishlist: %w", err)
	}
	return entries, port.NewPageInfo(page, total), nil
}

// UpdateEntry applies changes to a wishlist entry, enforcing ownership.
func (s *WishlistService) UpdateEntry(ctx context.Context, actor *ability.Ability, id string, input WishlistInput) (*domain.WishlistEntry, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	entry, err := s.wishlists.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWishlistEntryNotFound
		}
		return nil, fmt.Errorf("lookup wishlist entry: %w", err)
	}
	if !actor.CanOwn(ability.ActionUpdate, ability.SubjectWishlist, entry.UserID) {
		return nil, ErrPermissionDenied
	}

	entry.Title = strings.TrimSpace(input.Title)
	entry.Author = strings.TrimSpace(input.Author)
	if input.Status != "" {
		entry.Status = input.Status
	}
	if input.Priority != "" {
		entry.Priority = input.Priority
	}
	entry.UpdatedAt = s.now().UTC()

	if err := s.wishlists.Update(ctx, *entry); err != nil {
		return nil, fmt.Errorf("update wishlist entry: %w", err)
	}
	return entry, nil
}

// DeleteEntry removes a wishlist entry, enforcing ownership.
func (s *WishlistService) DeleteEntry(ctx context.Context, actor *ability.Ability, id string) error {
	entry, err := s.wishlists.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrWishlistEntryNotFound
		}
		return fmt.Errorf("lookup wishlist entry: %w", err)
	}
	if !actor.CanOwn(ability.ActionDelete, ability.SubjectWishlist, entry.UserID) {
		return ErrPermissionDenied
	}

	if err := s.wishlists.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete wishlist entry: %w", err)
	}
	return nil
}

// SendExport mails the user their full wishlist, enforcing ownership.
func (s *WishlistService) SendExport(ctx context.Context, actor *ability.Ability, userID string) (int, error) {
	if userID == "" {
		userID = actor.Principal().UserID
	}
	if !actor.CanOwn(ability.ActionRead, ability.SubjectWishlist, userID) {
		return 0, ErrPermissionDenied
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("lookup user: %w", err)
	}

	entries, err := s.wishlists.ListAllByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load wishlist: %w", err)
	}
	if len(entries) == 0 {
		return 0, ErrWishlistEmpty
	}

	if err := s.mailer.SendWishlistExport(ctx, user.Email, entries); err != nil {
		return 0, fmt.Errorf("send wishlist export: %w", err)
	}

	if s.events != nil {
		_ = s.events.PublishWishlistMailed(ctx, domain.WishlistMailedEvent{
			UserID:     userID,
			EntryCount: len(entries),
			MailedAt:   s.now().UTC(),
		})
	}
	return len(entries), nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
)

// The fakes below implement the repository ports with per-method function
// fields. A method whose field is left nil fails the call loudly, so tests
// only wire the calls they expect.

func errUnexpected(method string) error {
	return fmt.Errorf("unexpected call: %s", method)
}

type fakeUserRepo struct {
	CreateFn                     func(ctx context.Context, user domain.User) error
	GetByIDFn                    func(ctx context.Context, id string) (*domain.User, error)
	GetByUsernameFn              func(ctx context.Context, username string) (*domain.User, error)
	GetByEmailFn                 func(ctx context.Context, email string) (*domain.User, error)
	GetByVerificationTokenHashFn func(ctx context.Context, hash string) (*domain.User, error)
	GetByResetTokenHashFn        func(ctx context.Context, hash string) (*domain.User, error)
	GetByEmailChangeTokenHashFn  func(ctx context.Context, hash string) (*domain.User, error)
	ListFn                       func(ctx context.Context, page port.Page) ([]domain.User, int, error)
	UpdateFn                     func(ctx context.Context, user domain.User) error
	DeleteFn                     func(ctx context.Context, id string) error
	PurgeExpiredTokensFn         func(ctx context.Context, now time.Time) (int64, error)
	PurgeStaleUnverifiedFn       func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (f *fakeUserRepo) Create(ctx context.Context, user domain.User) error {
	if f.CreateFn == nil {
		return errUnexpected("UserRepository.Create")
	}
	return f.CreateFn(ctx, user)
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if f.GetByIDFn == nil {
		return nil, errUnexpected("UserRepository.GetByID")
	}
	return f.GetByIDFn(ctx, id)
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if f.GetByUsernameFn == nil {
		return nil, errUnexpected("UserRepository.GetByUsername")
	}
	return f.GetByUsernameFn(ctx, username)
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if f.GetByEmailFn == nil {
		return nil, errUnexpected("UserRepository.GetByEmail")
	}
	return f.GetByEmailFn(ctx, email)
}

func (f *fakeUserRepo) GetByVerificationTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	if f.GetByVerificationTokenHashFn == nil {
		return nil, errUnexpected("UserRepository.GetByVerificationTokenHash")
	}
	return f.GetByVerificationTokenHashFn(ctx, hash)
}

func (f *fakeUserRepo) GetByResetTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	if f.GetByResetTokenHashFn == nil {
		return nil, errUnexpected("UserRepository.GetByResetTokenHash")
	}
	return f.GetByResetTokenHashFn(ctx, hash)
}

func (f *fakeUserRepo) GetByEmailChangeTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	if f.GetByEmailChangeTokenHashFn == nil {
		return nil, errUnexpected("UserRepository.GetByEmailChangeTokenHash")
	}
	return f.GetByEmailChangeTokenHashFn(ctx, hash)
}

func (f *fakeUserRepo) List(ctx context.Context, page port.Page) ([]domain.User, int, error) {
	if f.ListFn == nil {
		return nil, 0, errUnexpected("UserRepository.List")
	}
	return f.ListFn(ctx, page)
}

func (f *fakeUserRepo) Update(ctx context.Context, user domain.User) error {
	if f.UpdateFn == nil {
		return errUnexpected("UserRepository.Update")
	}
	return f.UpdateFn(ctx, user)
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	if f.DeleteFn == nil {
		return errUnexpected("UserRepository.Delete")
	}
	return f.DeleteFn(ctx, id)
}

func (f *fakeUserRepo) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	if f.PurgeExpiredTokensFn == nil {
		return 0, errUnexpected("UserRepository.PurgeExpiredTokens")
	}
	return f.PurgeExpiredTokensFn(ctx, now)
}

func (f *fakeUserRepo) PurgeStaleUnverified(ctx context.Context, cutoff time.Time) (int64, error) {
	if f.PurgeStaleUnverifiedFn == nil {
		return 0, errUnexpected("UserRepository.PurgeStaleUnverified")
	}
	return f.PurgeStaleUnverifiedFn(ctx, cutoff)
}

type fakeBookRepo struct {
	CreateFn           func(ctx context.Context, book domain.Book) error
	GetByIDFn          func(ctx context.Context, id string) (*domain.Book, error)
	GetBySlugFn        func(ctx context.Context, slug string) (*domain.Book, error)
	ListFn             func(ctx context.Context, page port.Page) ([]domain.Book, int, error)
	ListByAuthorFn     func(ctx context.Context, authorID string, page port.Page) ([]domain.Book, int, error)
	UpdateFn           func(ctx context.Context, book domain.Book) error
	DeleteFn           func(ctx context.Context, id string) error
	CountFn            func(ctx context.Context) (int, error)
	LinkAuthorsFn      func(ctx context.Context, bookID string, authorIDs []string) error
	UnlinkAllAuthorsFn func(ctx context.Context, bookID string) error
	ReplaceAuthorFn    func(ctx context.Context, authorID, fallbackAuthorID string) (int, error)
}

func (f *fakeBookRepo) Create(ctx context.Context, book domain.Book) error {
	if f.CreateFn == nil {
		return errUnexpected("BookRepository.Create")
	}
	return f.CreateFn(ctx, book)
}

func (f *fakeBookRepo) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	if f.GetByIDFn == nil {
		return nil, errUnexpected("BookRepository.GetByID")
	}
	return f.GetByIDFn(ctx, id)
}

func (f *fakeBookRepo) GetBySlug(ctx context.Context, slug string) (*domain.Book, error) {
	if f.GetBySlugFn == nil {
		return nil, errUnexpected("BookRepository.GetBySlug")
	}
	return f.GetBySlugFn(ctx, slug)
}

func (f *fakeBookRepo) List(ctx context.Context, page port.Page) ([]domain.Book, int, error) {
	if f.ListFn == nil {
		return nil, 0, errUnexpected("BookRepository.List")
	}
	return f.ListFn(ctx, page)
}

func (f *fakeBookRepo) ListByAuthor(ctx context.Context, authorID string, page port.Page) ([]domain.Book, int, error) {
	if f.ListByAuthorFn == nil {
		return nil, 0, errUnexpected("BookRepository.ListByAuthor")
	}
	return f.ListByAuthorFn(ctx, authorID, page)
}

func (f *fakeBookRepo) Update(ctx context.Context, book domain.Book) error {
	if f.UpdateFn == nil {
		return errUnexpected("BookRepository.Update")
	}
	return f.UpdateFn(ctx, book)
}

func (f *fakeBookRepo) Delete(ctx context.Context, id string) error {
	if f.DeleteFn == nil {
		return errUnexpected("BookRepository.Delete")
	}
	return f.DeleteFn(ctx, id)
}

func (f *fakeBookRepo) Count(ctx context.Context) (int, error) {
	if f.CountFn == nil {
		return 0, errUnexpected("BookRepository.Count")
	}
	return f.CountFn(ctx)
}

func (f *fakeBookRepo) LinkAuthors(ctx context.Context, bookID string, authorIDs []string) error {
	if f.LinkAuthorsFn == nil {
		return errUnexpected("BookRepository.LinkAuthors")
	}
	return f.LinkAuthorsFn(ctx, bookID, authorIDs)
}

func (f *fakeBookRepo) UnlinkAllAuthors(ctx context.Context, bookID string) error {
	if f.UnlinkAllAuthorsFn == nil {
		return errUnexpected("BookRepository.UnlinkAllAuthors")
	}
	return f.UnlinkAllAuthorsFn(ctx, bookID)
}

func (f *fakeBookRepo) ReplaceAuthor(ctx context.Context, authorID, fallbackAuthorID string) (int, error) {
	if f.ReplaceAuthorFn == nil {
		return 0, errUnexpected("BookRepository.ReplaceAuthor")
	}
	return f.ReplaceAuthorFn(ctx, authorID, fallbackAuthorID)
}

type fakeAuthorRepo struct {
	CreateFn     func(ctx context.Context, author domain.Author) error
	GetByIDFn    func(ctx context.Context, id string) (*domain.Author, error)
	GetBySlugFn  func(ctx context.Context, slug string) (*domain.Author, error)
	ListFn       func(ctx context.Context, page port.Page) ([]domain.Author, int, error)
	ListByBookFn func(ctx context.Context, bookID string) ([]domain.Author, error)
	UpdateFn     func(ctx context.Context, author domain.Author) error
	DeleteFn     func(ctx context.Context, id string) error
	CountFn      func(ctx context.Context) (int, error)
}

func (f *fakeAuthorRepo) Create(ctx context.Context, author domain.Author) error {
	if f.CreateFn == nil {
		return errUnexpected("AuthorRepository.Create")
	}
	return f.CreateFn(ctx, author)
}

func (f *fakeAuthorRepo) GetByID(ctx context.Context, id string) (*domain.Author, error) {
	if f.GetByIDFn == nil {
		return nil, errUnexpected("AuthorRepository.GetByID")
	}
	return f.GetByIDFn(ctx, id)
}

func (f *fakeAuthorRepo) GetBySlug(ctx context.Context, slug string) (*domain.Author, error) {
	if f.GetBySlugFn == nil {
		return nil, errUnexpected("AuthorRepository.GetBySlug")
	}
	return f.GetBySlugFn(ctx, slug)
}

func (f *fakeAuthorRepo) List(ctx context.Context, page port.Page) ([]domain.Author, int, error) {
	if f.ListFn == nil {
		return nil, 0, errUnexpected("AuthorRepository.List")
	}
	return f.ListFn(ctx, page)
}

func (f *fakeAuthorRepo) ListByBook(ctx context.Context, bookID string) ([]domain.Author, error) {
	if f.ListByBookFn == nil {
		return nil, errUnexpected("AuthorRepository.ListByBook")
	}
	return f.ListByBookFn(ctx, bookID)
}

func (f *fakeAuthorRepo) Update(ctx context.Context, author domain.Author) error {
	if f.UpdateFn == nil {
		return errUnexpected("AuthorRepository.Update")
	}
	return f.UpdateFn(ctx, author)
}

func (f *fakeAuthorRepo) Delete(ctx context.Context, id string) error {
	if f.DeleteFn == nil {
		return errUnexpected("AuthorRepository.Delete")
	}
	return f.DeleteFn(ctx, id)
}

func (f *fakeAuthorRepo) Count(ctx context.Context) (int, error) {
	if f.CountFn == nil {
		return 0, errUnexpected("AuthorRepository.Count")
	}
	return f.CountFn(ctx)
}

type fakeShelfRepo struct {
	CreateFn           func(ctx context.Context, item domain.BookshelfItem) error
	GetByIDFn          func(ctx context.Context, id string) (*domain.BookshelfItem, error)
	GetByUserAndBookFn func(ctx context.Context, userID, bookID string) (*domain.BookshelfItem, error)
	ListByUserFn       func(ctx context.Context, userID string, page port.Page) ([]domain.BookshelfItem, int, error)
	UpdateFn           func(ctx context.Context, item domain.BookshelfItem) error
	DeleteFn           func(ctx context.Context, id string) error
	DeleteByUserFn     func(ctx context.Context, userID string) (int64, error)
	DeleteByBookFn     func(ctx context.Context, bookID string) (int64, error)
	ListDueSoonFn      func(ctx context.Context, userID string, before time.Time, limit int) ([]domain.BookshelfItem, error)
	StatsFn            func(ctx context.Context, userID string, since time.Time) (*domain.ReadingStats, error)
}

func (f *fakeShelfRepo) Create(ctx context.Context, item domain.BookshelfItem) error {
	if f.CreateFn == nil {
		return errUnexpected("BookshelfRepository.Create")
	}
	return f.CreateFn(ctx, item)
}

func (f *fakeShelfRepo) GetByID(ctx context.Context, id string) (*domain.BookshelfItem, error) {
	if f.GetByIDFn == nil {
		return nil, errUnexpected("BookshelfRepository.GetByID")
	}
	return f.GetByIDFn(ctx, id)
}

func (f *fakeShelfRepo) GetByUserAndBook(ctx context.Context, userID, bookID string) (*domain.BookshelfItem, error) {
	if f.GetByUserAndBookFn == nil {
		return nil, errUnexpected("BookshelfRepository.GetByUserAndBook")
	}
	return f.GetByUserAndBookFn(ctx, userID, bookID)
}

func (f *fakeShelfRepo) ListByUser(ctx context.Context, userID string, page port.Page) ([]domain.BookshelfItem, int, error) {
	if f.ListByUserFn == nil {
		return nil, 0, errUnexpected("BookshelfRepository.ListByUser")
	}
	return f.ListByUserFn(ctx, userID, page)
}

func (f *fakeShelfRepo) Update(ctx context.Context, item domain.BookshelfItem) error {
	if f.UpdateFn == nil {
		return errUnexpected("BookshelfRepository.Update")
	}
	return f.UpdateFn(ctx, item)
}

func (f *fakeShelfRepo) Delete(ctx context.Context, id string) error {
	if f.DeleteFn == nil {
		return errUnexpected("BookshelfRepository.Delete")
	}
	return f.DeleteFn(ctx, id)
}

func (f *fakeShelfRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if f.DeleteByUserFn == nil {
		return 0, errUnexpected("BookshelfRepository.DeleteByUser")
	}
	return f.DeleteByUserFn(ctx, userID)
}

func (f *fakeShelfRepo) DeleteByBook(ctx context.Context, bookID string) (int64, error) {
	if f.DeleteByBookFn == nil {
		return 0, errUnexpected("BookshelfRepository.DeleteByBook")
	}
	return f.DeleteByBookFn(ctx, bookID)
}

func (f *fakeShelfRepo) ListDueSoon(ctx context.Context, userID string, before time.Time, limit int) ([]domain.BookshelfItem, error) {
	if f.ListDueSoonFn == nil {
		return nil, errUnexpected("BookshelfRepository.ListDueSoon")
	}
	return f.ListDueSoonFn(ctx, userID, before, limit)
}

func (f *fakeShelfRepo) Stats(ctx context.Context, userID string, since time.Time) (*domain.ReadingStats, error) {
	if f.StatsFn == nil {
		return nil, errUnexpected("BookshelfRepository.Stats")
	}
	return f.StatsFn(ctx, userID, since)
}

type fakeWishlistRepo struct {
	CreateFn        func(ctx context.Context, entry domain.WishlistEntry) error
	GetByIDFn       func(ctx context.Context, id string) (*domain.WishlistEntry, error)
	ListByUserFn    func(ctx context.Context, userID string, page port.Page) ([]domain.WishlistEntry, int, error)
	ListAllByUserFn func(ctx context.Context, userID string) ([]domain.WishlistEntry, error)
	UpdateFn        func(ctx context.Context, entry domain.WishlistEntry) error
	DeleteFn        func(ctx context.Context, id string) error
	DeleteByUserFn  func(ctx context.Context, userID string) (int64, error)
}

func (f *fakeWishlistRepo) Create(ctx context.Context, entry domain.WishlistEntry) error {
	if f.CreateFn == nil {
		return errUnexpected("WishlistRepository.Create")
	}
	return f.CreateFn(ctx, entry)
}

func (f *fakeWishlistRepo) GetByID(ctx context.Context, id string) (*domain.WishlistEntry, error) {
	if f.GetByIDFn == nil {
		return nil, errUnexpected("WishlistRepository.GetByID")
	}
	return f.GetByIDFn(ctx, id)
}

func (f *fakeWishlistRepo) ListByUser(ctx context.Context, userID string, page port.Page) ([]domain.WishlistEntry, int, error) {
	if f.ListByUserFn == nil {
		return nil, 0, errUnexpected("WishlistRepository.ListByUser")
	}
	return f.ListByUserFn(ctx, userID, page)
}

func (f *fakeWishlistRepo) ListAllByUser(ctx context.Context, userID string) ([]domain.WishlistEntry, error) {
	if f.ListAllByUserFn == nil {
		return nil, errUnexpected("WishlistRepository.ListAllByUser")
	}
	return f.ListAllByUserFn(ctx, userID)
}

func (f *fakeWishlistRepo) Update(ctx context.Context, entry domain.WishlistEntry) error {
	if f.UpdateFn == nil {
		return errUnexpected("WishlistRepository.Update")
	}
	return f.UpdateFn(ctx, entry)
}

func (f *fakeWishlistRepo) Delete(ctx context.Context, id string) error {
	if f.DeleteFn == nil {
		return errUnexpected("WishlistRepository.Delete")
	}
	return f.DeleteFn(ctx, id)
}

func (f *fakeWishlistRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if f.DeleteByUserFn == nil {
		return 0, errUnexpected("WishlistRepository.DeleteByUser")
	}
	return f.DeleteByUserFn(ctx, userID)
}

type fakeRegistrationRepo struct {
	GetFn func(ctx context.Context) (*domain.RegistrationSettings, error)
	SetFn func(ctx context.Context, isOpen bool) error
}

func (f *fakeRegistrationRepo) Get(ctx context.Context) (*domain.RegistrationSettings, error) {
	if f.GetFn == nil {
		return nil, errUnexpected("RegistrationRepository.Get")
	}
	return f.GetFn(ctx)
}

func (f *fakeRegistrationRepo) Set(ctx context.Context, isOpen bool) error {
	if f.SetFn == nil {
		return errUnexpected("RegistrationRepository.Set")
	}
	return f.SetFn(ctx, isOpen)
}

type fakeSearchRepo struct {
	SearchBooksFn     func(ctx context.Context, q port.SearchQuery) ([]domain.Book, port.PageInfo, error)
	SearchAuthorsFn   func(ctx context.Context, q port.SearchQuery) ([]domain.Author, port.PageInfo, error)
	SearchUsersFn     func(ctx context.Context, q port.SearchQuery) ([]domain.User, port.PageInfo, error)
	SearchBookshelfFn func(ctx context.Context, q port.SearchQuery) ([]domain.BookshelfItem, port.PageInfo, error)
}

func (f *fakeSearchRepo) SearchBooks(ctx context.Context, q port.SearchQuery) ([]domain.Book, port.PageInfo, error) {
	if f.SearchBooksFn == nil {
		return nil, port.PageInfo{}, errUnexpected("SearchRepository.SearchBooks")
	}
	return f.SearchBooksFn(ctx, q)
}

func (f *fakeSearchRepo) SearchAuthors(ctx context.Context, q port.SearchQuery) ([]domain.Author, port.PageInfo, error) {
	if f.SearchAuthorsFn == nil {
		return nil, port.PageInfo{}, errUnexpected("SearchRepository.SearchAuthors")
	}
	return f.SearchAuthorsFn(ctx, q)
}

func (f *fakeSearchRepo) SearchUsers(ctx context.Context, q port.SearchQuery) ([]domain.User, port.PageInfo, error) {
	if f.SearchUsersFn == nil {
		return nil, port.PageInfo{}, errUnexpected("SearchRepository.SearchUsers")
	}
	return f.SearchUsersFn(ctx, q)
}

func (f *fakeSearchRepo) SearchBookshelf(ctx context.Context, q port.SearchQuery) ([]domain.BookshelfItem, port.PageInfo, error) {
	if f.SearchBookshelfFn == nil {
		return nil, port.PageInfo{}, errUnexpected("SearchRepository.SearchBookshelf")
	}
	return f.SearchBookshelfFn(ctx, q)
}

// fakeTx runs the transaction body immediately against the supplied stores.
type fakeTx struct {
	stores port.TxStores
}

func (f *fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context, stores port.TxStores) error) error {
	return fn(ctx, f.stores)
}

// plainHasher hashes by prefixing, so tests can assert against readable
// values.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (plainHasher) Verify(password, encodedHash string) (bool, error) {
	return encodedHash == "hashed:"+password, nil
}

func (plainHasher) Algorithm() string { return "plain" }

type sentMail struct {
	kind string
	to   string
	link string
}

// recordingMailer records every delivery instead of sending it.
type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendVerificationEmail(_ context.Context, to, link string) error {
	m.sent = append(m.sent, sentMail{kind: "verification", to: to, link: link})
	return m.err
}

func (m *recordingMailer) SendPasswordResetEmail(_ context.Context, to, link string) error {
	m.sent = append(m.sent, sentMail{kind: "password-reset", to: to, link: link})
	return m.err
}

func (m *recordingMailer) SendPasswordChangedNotice(_ context.Context, to string) error {
	m.sent = append(m.sent, sentMail{kind: "password-changed", to: to})
	return m.err
}

func (m *recordingMailer) SendEmailChangeConfirmation(_ context.Context, to, link string) error {
	m.sent = append(m.sent, sentMail{kind: "email-change", to: to, link: link})
	return m.err
}

func (m *recordingMailer) SendWishlistExport(_ context.Context, to string, entries []domain.WishlistEntry) error {
	m.sent = append(m.sent, sentMail{kind: "wishlist-export", to: to})
	return m.err
}

// recordingEvents records published events instead of producing them.
type recordingEvents struct {
	published []any
}

func (e *recordingEvents) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	e.published = append(e.published, event)
	return nil
}

func (e *recordingEvents) PublishUserVerified(_ context.Context, event domain.UserVerifiedEvent) error {
	e.published = append(e.published, event)
	return nil
}

func (e *recordingEvents) PublishBookCreated(_ context.Context, event domain.BookCreatedEvent) error {
	e.published = append(e.published, event)
	return nil
}

func (e *recordingEvents) PublishBookDeleted(_ context.Context, event domain.BookDeletedEvent) error {
	e.published = append(e.published, event)
	return nil
}

func (e *recordingEvents) PublishAuthorDeleted(_ context.Context, event domain.AuthorDeletedEvent) error {
	e.published = append(e.published, event)
	return nil
}

func (e *recordingEvents) PublishWishlistMailed(_ context.Context, event domain.WishlistMailedEvent) error {
	e.published = append(e.published, event)
	return nil
}

// recordingObjects is an in-memory object store returning predictable URLs.
type recordingObjects struct {
	put     []string
	deleted []string
}

const objectURLPrefix = "https://objects.test/"

func (o *recordingObjects) Put(_ context.Context, key string, content io.Reader, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, content); err != nil {
		return "", err
	}
	o.put = append(o.put, key)
	return objectURLPrefix + key, nil
}

func (o *recordingObjects) Delete(_ context.Context, key string) error {
	o.deleted = append(o.deleted, key)
	return nil
}

func (o *recordingObjects) KeyFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, objectURLPrefix) {
		return "", false
	}
	return strings.TrimPrefix(url, objectURLPrefix), true
}

// fakeTokens issues predictable session tokens.
type fakeTokens struct{}

func (fakeTokens) Issue(principal domain.Principal) (string, time.Duration, error) {
	return "session-" + principal.UserID, time.Hour, nil
}

func (fakeTokens) Parse(token string) (*domain.Principal, error) {
	return nil, errors.New("unexpected call: SessionTokens.Parse")
}

// testPolicy mirrors the shipped policy file closely enough for the
// permission paths under test.
const testPolicy = `{
  "superAdmin": [
    { "action": "manage", "subject": "all" }
  ],
  "admin": [
    { "action": "create", "subject": "User" },
    { "action": "read", "subject": "User" },
    { "action": "update", "subject": "User" },
    { "action": "delete", "subject": "User" },
    { "action": "updatePassword", "subject": "User" },
    { "action": "create", "subject": "Book" },
    { "action": "read", "subject": "Book" },
    { "action": "update", "subject": "Book" },
    { "action": "delete", "subject": "Book" },
    { "action": "read", "subject": "Bookshelf" },
    { "action": "read", "subject": "Wishlist" },
    { "action": "read", "subject": "Stats" }
  ],
  "user": [
    { "action": "read", "subject": "Book" },
    { "action": "read", "subject": "Author" },
    { "action": "read", "subject": "Search" },
    { "action": "read", "subject": "User", "conditions": { "_id": "{userId}" } },
    { "action": "update", "subject": "User", "conditions": { "_id": "{userId}" } },
    { "action": "delete", "subject": "User", "conditions": { "_id": "{userId}" } },
    { "action": "updatePassword", "subject": "User", "conditions": { "_id": "{userId}" } },
    { "action": "updateEmail", "subject": "User", "conditions": { "_id": "{userId}" } },
    { "action": "uploadProfileImage", "subject": "User", "conditions": { "_id": "{userId}" } },
    { "action": "create", "subject": "Bookshelf", "conditions": { "_id": "{userId}" } },
    { "action": "read", "subject": "Bookshelf", "conditions": { "_id": "{userId}" } },
    { "action": "update", "subject": "Bookshelf", "conditions": { "_id": "{userId}" } },
    { "action": "delete", "subject": "Bookshelf", "conditions": { "_id": "{userId}" } },
    { "action": "create", "subject": "Wishlist", "conditions": { "_id": "{userId}" } },
    { "action": "read", "subject": "Wishlist", "conditions": { "_id": "{userId}" } },
    { "action": "update", "subject": "Wishlist", "conditions": { "_id": "{userId}" } },
    { "action": "delete", "subject": "Wishlist", "conditions": { "_id": "{userId}" } },
    { "action": "read", "subject": "Stats", "conditions": { "_id": "{userId}" } }
  ]
}`

func abilityFor(t *testing.T, role domain.Role, userID string) *ability.Ability {
	t.Helper()
	policy, err := ability.Parse([]byte(testPolicy))
	if err != nil {
		t.Fatalf("parse test policy: %v", err)
	}
	ab, err := policy.AbilityFor(domain.Principal{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("build ability: %v", err)
	}
	return ab
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr[T any](v T) *T { return &v }

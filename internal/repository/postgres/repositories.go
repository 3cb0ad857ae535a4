package postgres

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users        *UserRepository
	Books        *BookRepository
	Authors      *AuthorRepository
	Bookshelf    *BookshelfRepository
	Wishlists    *WishlistRepository
	Registration *RegistrationRepository
	Search       *SearchRepository
	Tx           *TxManager
}

// NewRepositories wires all repositories backed by the store's pool.
func NewRepositories(store *Store) *Repositories {
	pool := store.Pool()
	return &Repositories{
		Users:        NewUserRepository(pool),
		Books:        NewBookRepository(pool),
		Authors:      NewAuthorRepository(pool),
		Bookshelf:    NewBookshelfRepository(pool),
		Wishlists:    NewWishlistRepository(pool),
		Registration: NewRegistrationRepository(pool),
		Search:       NewSearchRepository(pool),
		Tx:           NewTxManager(pool),
	}
}

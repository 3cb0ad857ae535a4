package port

import "context"

// TxStores groups the repositories bound to one open transaction.
type TxStores struct {
	Users     UserRepository
	Books     BookRepository
	Authors   AuthorRepository
	Bookshelf BookshelfRepository
	Wishlists WishlistRepository
}

// TransactionManager runs a function inside a single database transaction.
// All writes made through the supplied stores commit together or not at all;
// an error from fn aborts the transaction.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error
}

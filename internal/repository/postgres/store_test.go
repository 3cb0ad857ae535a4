package postgres

import (
	"context"
	"testing"
)

func TestStoreNilSafety(t *testing.T) {
	var store *Store

	if store.Pool() != nil {
		t.Error("nil store should expose a nil pool")
	}
	if err := store.Ping(context.Background()); err == nil {
		t.Error("nil store should fail the readiness probe")
	}
	store.Close()
}

func TestStoreWithoutPoolFailsPing(t *testing.T) {
	store := NewStore(nil)

	if err := store.Ping(context.Background()); err == nil {
		t.Error("store without a pool should fail the readiness probe")
	}
	if store.Pool() != nil {
		t.Error("expected nil pool")
	}
	store.Close()
}

func TestRepositoriesWiredFromStore(t *testing.T) {
	repos := NewRepositories(NewStore(nil))

	if repos.Users == nil || repos.Books == nil || repos.Authors == nil ||
		repos.Bookshelf == nil || repos.Wishlists == nil ||
		repos.Registration == nil || repos.Search == nil || repos.Tx == nil {
		t.Errorf("incomplete wiring: %+v", repos)
	}
}

package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"poolMinter/internal/state"
	"poolMinter/internal/storage"
)

var (
	admin      = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	collection = common.HexToAddress("0x0000000000000000000000000000000000000c01")
)

func openTestStore(t *testing.T, path, instance string) *Store {
	t.Helper()
	store, err := Open(path, instance, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return store
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "minter.db")
	store := openTestStore(t, path, "main")

	if err := store.Update(ctx, func(*state.State) error { return nil }); !errors.Is(err, storage.ErrNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := store.Init(ctx, state.New(admin, collection)); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.Init(ctx, state.New(admin, collection)); !errors.Is(err, storage.ErrAlreadyInitialized) {
		t.Fatalf("expected already initialized, got %v", err)
	}

	if err := store.Update(ctx, func(s *state.State) error {
		return s.Pool.Register([]uint64{4, 5})
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	abort := errors.New("abort")
	if err := store.Update(ctx, func(s *state.State) error {
		_, _ = s.Pool.Allocate(2, nil)
		return abort
	}); !errors.Is(err, abort) {
		t.Fatalf("expected abort, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, path, "main")
	defer reopened.Close()
	err := reopened.View(ctx, func(s *state.State) error {
		if s.Pool.Remaining() != 2 || s.Version != 1 {
			t.Fatalf("state mismatch: remaining=%d version=%d", s.Pool.Remaining(), s.Version)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestInstancesAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "minter.db")
	store := openTestStore(t, path, "a")
	if err := store.Init(ctx, state.New(admin, collection)); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	other := openTestStore(t, path, "b")
	defer other.Close()
	if err := other.View(ctx, func(*state.State) error { return nil }); !errors.Is(err, storage.ErrNotInitialized) {
		t.Fatalf("expected not initialized for other instance, got %v", err)
	}
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"poolMinter/internal/state"
	"poolMinter/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("MINTER_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("MINTER_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	name := fmt.Sprintf("test-%d", time.Now().UnixNano())
	store, err := NewStore(ctx, dsn, name)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_, _ = store.pool.Exec(context.Background(), `DELETE FROM minter_state WHERE name=$1`, name)
		_ = store.Close()
	})
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return store
}

func TestStoreConcurrentUpdates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	admin := common.HexToAddress("0x0000000000000000000000000000000000000a01")
	if err := store.Init(ctx, state.New(admin, common.Address{})); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.Init(ctx, state.New(admin, common.Address{})); !errors.Is(err, storage.ErrAlreadyInitialized) {
		t.Fatalf("expected already initialized, got %v", err)
	}

	var (
		wg    sync.WaitGroup
		calls atomic.Int32
	)
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Update(ctx, func(s *state.State) error {
				calls.Add(1)
				s.MintNonce++
				return nil
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	if got := calls.Load(); got != 8 {
		t.Fatalf("update callbacks ran %d times, want one per writer", got)
	}

	err := store.View(ctx, func(s *state.State) error {
		if s.MintNonce != 8 || s.Version != 8 {
			t.Fatalf("lost update: nonce=%d version=%d", s.MintNonce, s.Version)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

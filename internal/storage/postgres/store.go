package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolMinter/internal/state"
	"poolMinter/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS minter_state (
	name       TEXT PRIMARY KEY,
	snapshot   JSONB NOT NULL,
	version    BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store provides Postgres persistence for minter state. Each instance name
// owns one row holding the whole snapshot.
type Store struct {
	pool *pgxpool.Pool
	name string
}

func NewStore(ctx context.Context, dsn, name string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if name == "" {
		return nil, fmt.Errorf("state name required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, name: name}, nil
}

// EnsureSchema creates the state table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Init(ctx context.Context, initial *state.State) error {
	data, err := state.Encode(initial)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO minter_state (name, snapshot, version, updated_at)
		VALUES ($1, $2::jsonb, $3, now())
		ON CONFLICT (name) DO NOTHING
	`, s.name, string(data), int64(initial.Version))
	if err != nil {
		return fmt.Errorf("insert state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrAlreadyInitialized
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(*state.State) error) error {
	var raw []byte
	row := s.pool.QueryRow(ctx, `SELECT snapshot FROM minter_state WHERE name=$1`, s.name)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotInitialized
		}
		return fmt.Errorf("load state: %w", err)
	}
	snapshot, err := state.Decode(raw)
	if err != nil {
		return err
	}
	return fn(snapshot)
}

// Update runs fn once in a transaction holding the state row lock. Writers
// queue on the lock and each reads the snapshot the previous one committed.
// Every error, from fn or from the database, is returned without retry.
func (s *Store) Update(ctx context.Context, fn func(*state.State) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var raw []byte
	row := tx.QueryRow(ctx, `SELECT snapshot FROM minter_state WHERE name=$1 FOR UPDATE`, s.name)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotInitialized
		}
		return fmt.Errorf("lock state: %w", err)
	}
	current, err := state.Decode(raw)
	if err != nil {
		return err
	}
	version := current.Version
	if err := fn(current); err != nil {
		return err
	}
	current.Version = version + 1

	data, err := state.Encode(current)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE minter_state
		SET snapshot = $2::jsonb, version = $3, updated_at = now()
		WHERE name = $1
	`, s.name, string(data), int64(current.Version)); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

package bolt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"poolMinter/internal/state"
	"poolMinter/internal/storage"
)

var bucketState = []byte("minter_state")

// Store keeps state snapshots in a BoltDB file, one key per minter instance.
type Store struct {
	db       *bolt.DB
	instance []byte
}

// Open creates or opens the database at path.
func Open(path, instance string, options *bolt.Options) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt path is required")
	}
	if instance == "" {
		return nil, fmt.Errorf("instance name is required")
	}
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create bolt dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketState)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Store{db: db, instance: []byte(instance)}, nil
}

func (s *Store) Init(ctx context.Context, initial *state.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := state.Encode(initial)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketState)
		if bucket.Get(s.instance) != nil {
			return storage.ErrAlreadyInitialized
		}
		return bucket.Put(s.instance, data)
	})
}

func (s *Store) View(ctx context.Context, fn func(*state.State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var snapshot *state.State
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketState).Get(s.instance)
		if raw == nil {
			return storage.ErrNotInitialized
		}
		decoded, err := state.Decode(raw)
		if err != nil {
			return err
		}
		snapshot = decoded
		return nil
	})
	if err != nil {
		return err
	}
	return fn(snapshot)
}

// Update runs fn inside a single Bolt read-write transaction; Bolt admits one
// writer at a time.
func (s *Store) Update(ctx context.Context, fn func(*state.State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketState)
		raw := bucket.Get(s.instance)
		if raw == nil {
			return storage.ErrNotInitialized
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
		encoded, err := state.Encode(current)
		if err != nil {
			return err
		}
		return bucket.Put(s.instance, encoded)
	})
}

// Close releases the underlying Bolt database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

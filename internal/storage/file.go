package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"poolMinter/internal/state"
)

// FileStore is a MemoryStore that writes every committed snapshot to a JSON
// file and reloads it on open.
type FileStore struct {
	*MemoryStore
	path string
}

// OpenFileStore loads the snapshot at path if one exists.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	fs := &FileStore{MemoryStore: NewMemoryStore(), path: path}

	loaded, ok, err := fs.load()
	if err != nil {
		return nil, err
	}
	if ok {
		fs.current.Store(loaded)
	}
	fs.persist = fs.save
	return fs, nil
}

func (f *FileStore) load() (*state.State, bool, error) {
	stat, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat state file: %w", err)
	}
	if stat.IsDir() {
		return nil, false, fmt.Errorf("state file path is a directory")
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, false, fmt.Errorf("read state file: %w", err)
	}
	s, err := state.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("parse state file: %w", err)
	}
	return s, true, nil
}

func (f *FileStore) save(s *state.State) error {
	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	data, err := state.Encode(s)
	if err != nil {
		return err
	}
	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

// Path returns the snapshot file location.
func (f *FileStore) Path() string {
	return f.path
}

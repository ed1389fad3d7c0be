package storage

import (
	"context"
	"errors"

	"poolMinter/internal/model"
	"poolMinter/internal/state"
)

var (
	ErrNotInitialized     = errors.New("storage: state not initialized")
	ErrAlreadyInitialized = errors.New("storage: state already initialized")
)

// Store persists minter state. Update runs fn on a private copy of the state
// and commits it only when fn returns nil; concurrent writers are serialized.
// View runs fn on a committed snapshot that fn must not modify.
type Store interface {
	Init(ctx context.Context, initial *state.State) error
	View(ctx context.Context, fn func(*state.State) error) error
	Update(ctx context.Context, fn func(*state.State) error) error
	Close() error
}

// LogSink defines a sink for encoded event records.
type LogSink interface {
	PutLogBatch(logs []model.LogRecord) error
}

package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolMinter/internal/events"
	"poolMinter/internal/pricing"
	"poolMinter/internal/state"
)

// Store is the transactional state backend the engine runs on.
type Store interface {
	View(ctx context.Context, fn func(*state.State) error) error
	Update(ctx context.Context, fn func(*state.State) error) error
}

// OwnershipVerifier resolves the current owner of a serial of an external
// asset. An unknown serial resolves to the zero address.
type OwnershipVerifier interface {
	OwnerOf(ctx context.Context, asset common.Address, serial uint64) (common.Address, error)
}

// Allocation selects how serials are picked from the pool.
type Allocation string

const (
	AllocationSequential Allocation = "sequential"
	AllocationHashed     Allocation = "hashed"
)

// ParseAllocation parses an allocation mode; empty selects AllocationSequential.
func ParseAllocation(input string) (Allocation, error) {
	switch Allocation(strings.ToLower(strings.TrimSpace(input))) {
	case "", AllocationSequential:
		return AllocationSequential, nil
	case AllocationHashed:
		return AllocationHashed, nil
	default:
		return "", fmt.Errorf("unknown allocation mode: %q", input)
	}
}

// Options holds policy choices that are fixed for the life of an engine.
type Options struct {
	HolderOrder pricing.HolderOrder
	Allocation  Allocation
}

// Engine executes minter operations. Every mutating call runs inside one
// Store.Update transaction and publishes its events only after commit.
// Events reach the emitter in commit order.
type Engine struct {
	commitMu sync.Mutex
	store    Store
	opts     Options
	logger   *zap.Logger
	emitter  events.Emitter
	verifier OwnershipVerifier
	nowFn    func() time.Time
}

func New(store Store, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HolderOrder == "" {
		opts.HolderOrder = pricing.OrderTierIndex
	}
	if opts.Allocation == "" {
		opts.Allocation = AllocationSequential
	}
	return &Engine{
		store:   store,
		opts:    opts,
		logger:  logger,
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetVerifier configures external ownership checks. Without one, any holding
// of an asset other than the pool collection fails verification.
func (e *Engine) SetVerifier(verifier OwnershipVerifier) {
	e.verifier = verifier
}

// SetNowFunc overrides the clock. Nil restores the default UTC clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	return e.nowFn().Unix()
}

func (e *Engine) view(ctx context.Context, fn func(*state.State) error) error {
	return e.store.View(ctx, fn)
}

// update runs fn in a store transaction and emits the events it returns once
// the transaction has committed. commitMu spans commit and emit so that no
// other writer of this engine can commit in between.
func (e *Engine) update(ctx context.Context, op string, fn func(*state.State) ([]events.Event, error)) error {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	var pending []events.Event
	err := e.store.Update(ctx, func(s *state.State) error {
		evs, err := fn(s)
		if err != nil {
			return err
		}
		pending = evs
		return nil
	})
	if err != nil {
		e.logger.Debug("operation rejected",
			zap.String("op", op),
			zap.String("kind", Kind(err)),
			zap.Error(err),
		)
		return err
	}
	for _, ev := range pending {
		e.emitter.Emit(ev)
	}
	return nil
}

// updateAdmin is update for admin-gated operations.
func (e *Engine) updateAdmin(ctx context.Context, op string, caller common.Address, fn func(*state.State) ([]events.Event, error)) error {
	return e.update(ctx, op, func(s *state.State) ([]events.Event, error) {
		if !s.Admins[caller] {
			return nil, fmt.Errorf("%w: %s", ErrNotAdmin, caller.Hex())
		}
		return fn(s)
	})
}

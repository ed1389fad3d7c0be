package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolMinter/internal/events"
	"poolMinter/internal/state"
)

func (e *Engine) GetRemainingSupply(ctx context.Context) (int, error) {
	var n int
	err := e.view(ctx, func(s *state.State) error {
		n = s.Pool.Remaining()
		return nil
	})
	return n, err
}

// GetAvailableSerials pages through the available serials in ascending order.
func (e *Engine) GetAvailableSerials(ctx context.Context, offset, limit int) ([]uint64, error) {
	var out []uint64
	err := e.view(ctx, func(s *state.State) error {
		page, err := s.Pool.List(offset, limit)
		if err != nil {
			return err
		}
		out = page
		return nil
	})
	return out, err
}

// RegisterPoolNFTs adds serials to the pool. The batch is all-or-nothing.
func (e *Engine) RegisterPoolNFTs(ctx context.Context, caller common.Address, serials []uint64) error {
	if len(serials) == 0 {
		return nil
	}
	batch := append([]uint64(nil), serials...)
	err := e.updateAdmin(ctx, "register_pool", caller, func(s *state.State) ([]events.Event, error) {
		if err := s.Pool.Register(batch); err != nil {
			return nil, err
		}
		return []events.Event{events.PoolRegistered{Admin: caller, Serials: batch}}, nil
	})
	if err == nil {
		e.logger.Info("pool serials registered", zap.String("by", caller.Hex()), zap.Int("count", len(batch)))
	}
	return err
}

// AddNFTsToPool is an alias of RegisterPoolNFTs.
func (e *Engine) AddNFTsToPool(ctx context.Context, caller common.Address, serials []uint64) error {
	return e.RegisterPoolNFTs(ctx, caller, serials)
}

// EmergencyWithdrawNFTs takes available serials out of the pool for good and
// hands them to recipient.
func (e *Engine) EmergencyWithdrawNFTs(ctx context.Context, caller, recipient common.Address, serials []uint64) error {
	if len(serials) == 0 {
		return nil
	}
	batch := append([]uint64(nil), serials...)
	err := e.updateAdmin(ctx, "emergency_withdraw", caller, func(s *state.State) ([]events.Event, error) {
		if err := s.Pool.Withdraw(batch); err != nil {
			return nil, err
		}
		return []events.Event{events.PoolWithdrawn{Admin: caller, Recipient: recipient, Serials: batch}}, nil
	})
	if err == nil {
		e.logger.Warn("pool serials withdrawn",
			zap.String("by", caller.Hex()),
			zap.String("recipient", recipient.Hex()),
			zap.Int("count", len(batch)),
		)
	}
	return err
}

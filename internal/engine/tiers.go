package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolMinter/internal/events"
	"poolMinter/internal/model"
	"poolMinter/internal/state"
)

func (e *Engine) GetDiscountTierCount(ctx context.Context) (int, error) {
	var n int
	err := e.view(ctx, func(s *state.State) error {
		n = s.Tiers.Count()
		return nil
	})
	return n, err
}

func (e *Engine) GetDiscountTier(ctx context.Context, index int) (model.DiscountTier, error) {
	var out model.DiscountTier
	err := e.view(ctx, func(s *state.State) error {
		tier, err := s.Tiers.Get(index)
		if err != nil {
			return err
		}
		out = tier
		return nil
	})
	return out, err
}

// ListDiscountTiers returns every tier in index order.
func (e *Engine) ListDiscountTiers(ctx context.Context) ([]model.DiscountTier, error) {
	var out []model.DiscountTier
	err := e.view(ctx, func(s *state.State) error {
		out = s.Tiers.List()
		return nil
	})
	return out, err
}

// AddDiscountTier appends a tier and returns its index.
func (e *Engine) AddDiscountTier(ctx context.Context, caller common.Address, tier model.DiscountTier) (int, error) {
	var index int
	err := e.updateAdmin(ctx, "add_tier", caller, func(s *state.State) ([]events.Event, error) {
		idx, err := s.Tiers.Add(tier)
		if err != nil {
			return nil, err
		}
		index = idx
		return []events.Event{tierEvent(caller, events.TierAdded, idx, tier)}, nil
	})
	if err != nil {
		return 0, err
	}
	e.logger.Info("discount tier added",
		zap.Int("index", index),
		zap.String("asset", tier.Asset.Hex()),
		zap.Uint32("discount", tier.DiscountPercent),
	)
	return index, nil
}

func (e *Engine) UpdateDiscountTier(ctx context.Context, caller common.Address, index int, tier model.DiscountTier) error {
	return e.updateAdmin(ctx, "update_tier", caller, func(s *state.State) ([]events.Event, error) {
		if err := s.Tiers.Update(index, tier); err != nil {
			return nil, err
		}
		return []events.Event{tierEvent(caller, events.TierUpdated, index, tier)}, nil
	})
}

// RemoveDiscountTier deletes the tier at index. Every later tier moves down
// one index. Usage counters of the tier's asset are kept.
func (e *Engine) RemoveDiscountTier(ctx context.Context, caller common.Address, index int) error {
	return e.updateAdmin(ctx, "remove_tier", caller, func(s *state.State) ([]events.Event, error) {
		removed, err := s.Tiers.Remove(index)
		if err != nil {
			return nil, err
		}
		return []events.Event{tierEvent(caller, events.TierRemoved, index, removed)}, nil
	})
}

// GetBatchSerialDiscountInfo reports the discount standing of each
// (assets[i], serials[i]) pair.
func (e *Engine) GetBatchSerialDiscountInfo(ctx context.Context, assets []common.Address, serials []uint64) ([]model.SerialDiscountInfo, error) {
	if len(assets) != len(serials) {
		return nil, fmt.Errorf("%w: %d assets, %d serials", ErrLengthMismatch, len(assets), len(serials))
	}
	var out []model.SerialDiscountInfo
	err := e.view(ctx, func(s *state.State) error {
		out = make([]model.SerialDiscountInfo, len(assets))
		for i := range assets {
			out[i] = s.Tiers.SerialInfo(assets[i], serials[i])
		}
		return nil
	})
	return out, err
}

func tierEvent(caller common.Address, action string, index int, tier model.DiscountTier) events.TierChanged {
	return events.TierChanged{
		Admin:           caller,
		Asset:           tier.Asset,
		Action:          action,
		Index:           uint64(index),
		DiscountPercent: tier.DiscountPercent,
	}
}

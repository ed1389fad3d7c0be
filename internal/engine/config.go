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

func (e *Engine) GetMintEconomics(ctx context.Context) (model.EconomicsConfig, error) {
	var out model.EconomicsConfig
	err := e.view(ctx, func(s *state.State) error {
		out = s.Economics
		out.MintPrice = out.MintPrice.Clone()
		out.WhitelistSlotCost = out.WhitelistSlotCost.Clone()
		return nil
	})
	return out, err
}

func validateEconomics(cfg model.EconomicsConfig) error {
	if cfg.WhitelistDiscount > 100 {
		return fmt.Errorf("%w: whitelist discount %d", ErrInvalidPercentage, cfg.WhitelistDiscount)
	}
	if cfg.SacrificeDiscount > 100 {
		return fmt.Errorf("%w: sacrifice discount %d", ErrInvalidPercentage, cfg.SacrificeDiscount)
	}
	if cfg.MintPrice.IsNegative() {
		return fmt.Errorf("%w: negative mint price %s", ErrInvalidConfig, cfg.MintPrice)
	}
	if cfg.WhitelistSlotCost.IsNegative() {
		return fmt.Errorf("%w: negative whitelist slot cost %s", ErrInvalidConfig, cfg.WhitelistSlotCost)
	}
	return nil
}

// UpdateMintEconomics replaces the economics snapshot as a whole.
func (e *Engine) UpdateMintEconomics(ctx context.Context, caller common.Address, cfg model.EconomicsConfig) error {
	cfg.MintPrice = cfg.MintPrice.Clone()
	cfg.WhitelistSlotCost = cfg.WhitelistSlotCost.Clone()
	if err := validateEconomics(cfg); err != nil {
		return err
	}
	err := e.updateAdmin(ctx, "update_economics", caller, func(s *state.State) ([]events.Event, error) {
		s.Economics = cfg
		return []events.Event{events.ConfigUpdated{Admin: caller, Section: events.SectionEconomics}}, nil
	})
	if err == nil {
		e.logger.Info("economics updated",
			zap.String("by", caller.Hex()),
			zap.String("price", cfg.MintPrice.String()),
			zap.Uint32("wl_discount", cfg.WhitelistDiscount),
			zap.Uint32("sacrifice_discount", cfg.SacrificeDiscount),
		)
	}
	return err
}

func (e *Engine) GetMintTiming(ctx context.Context) (model.TimingConfig, error) {
	var out model.TimingConfig
	err := e.view(ctx, func(s *state.State) error {
		out = s.Timing
		return nil
	})
	return out, err
}

// UpdateTiming replaces the timing snapshot as a whole.
func (e *Engine) UpdateTiming(ctx context.Context, caller common.Address, cfg model.TimingConfig) error {
	if cfg.RefundPercentage > 100 {
		return fmt.Errorf("%w: refund percentage %d", ErrInvalidPercentage, cfg.RefundPercentage)
	}
	if cfg.RefundWindow < 0 {
		return fmt.Errorf("%w: negative refund window %d", ErrInvalidConfig, cfg.RefundWindow)
	}
	if cfg.StartTime < 0 {
		return fmt.Errorf("%w: negative start time %d", ErrInvalidConfig, cfg.StartTime)
	}
	err := e.updateAdmin(ctx, "update_timing", caller, func(s *state.State) ([]events.Event, error) {
		s.Timing = cfg
		return []events.Event{events.ConfigUpdated{Admin: caller, Section: events.SectionTiming}}, nil
	})
	if err == nil {
		e.logger.Info("timing updated",
			zap.String("by", caller.Hex()),
			zap.Int64("start", cfg.StartTime),
			zap.Bool("paused", cfg.Paused),
			zap.Bool("wl_only", cfg.WhitelistOnly),
		)
	}
	return err
}

func (e *Engine) GetMiscConfig(ctx context.Context) (model.MiscConfig, error) {
	var out model.MiscConfig
	err := e.view(ctx, func(s *state.State) error {
		out = s.Misc
		return nil
	})
	return out, err
}

// SetSacrificeDestination sets where sacrificed serials go. The zero address burns them.
func (e *Engine) SetSacrificeDestination(ctx context.Context, caller, destination common.Address) error {
	return e.updateAdmin(ctx, "set_sacrifice_destination", caller, func(s *state.State) ([]events.Event, error) {
		s.Misc.SacrificeDestination = destination
		return []events.Event{events.ConfigUpdated{Admin: caller, Section: events.SectionSacrificeDestination}}, nil
	})
}

// SetLazyBurnPercentage sets the share of lazy payments recorded as burned.
func (e *Engine) SetLazyBurnPercentage(ctx context.Context, caller common.Address, pct uint32) error {
	if pct > 100 {
		return fmt.Errorf("%w: lazy burn %d", ErrInvalidPercentage, pct)
	}
	return e.updateAdmin(ctx, "set_lazy_burn", caller, func(s *state.State) ([]events.Event, error) {
		s.Misc.LazyBurnPercentage = pct
		return []events.Event{events.ConfigUpdated{Admin: caller, Section: events.SectionLazyBurn}}, nil
	})
}

// GetTreasury returns the running payment totals.
func (e *Engine) GetTreasury(ctx context.Context) (model.Treasury, error) {
	var out model.Treasury
	err := e.view(ctx, func(s *state.State) error {
		out = model.Treasury{
			Collected: s.Treasury.Collected.Clone(),
			Refunded:  s.Treasury.Refunded.Clone(),
			Burned:    s.Treasury.Burned.Clone(),
		}
		return nil
	})
	return out, err
}

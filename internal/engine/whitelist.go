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

func (e *Engine) WhitelistSlots(ctx context.Context, account common.Address) (uint64, error) {
	var n uint64
	err := e.view(ctx, func(s *state.State) error {
		n = s.Whitelist[account]
		return nil
	})
	return n, err
}

// AddToWhitelist grants slots on top of the account's current balance.
func (e *Engine) AddToWhitelist(ctx context.Context, caller, account common.Address, slots uint64) error {
	return e.BatchAddToWhitelist(ctx, caller, []common.Address{account}, []uint64{slots})
}

// BatchAddToWhitelist grants slots[i] to accounts[i] in one transaction.
func (e *Engine) BatchAddToWhitelist(ctx context.Context, caller common.Address, accounts []common.Address, slots []uint64) error {
	if len(accounts) != len(slots) {
		return fmt.Errorf("%w: %d accounts, %d slot counts", ErrLengthMismatch, len(accounts), len(slots))
	}
	return e.updateAdmin(ctx, "add_whitelist", caller, func(s *state.State) ([]events.Event, error) {
		out := make([]events.Event, 0, len(accounts))
		for i, account := range accounts {
			balance := s.Whitelist[account] + slots[i]
			if balance < slots[i] {
				return nil, fmt.Errorf("%w: whitelist balance overflow for %s", ErrInvalidQuantity, account.Hex())
			}
			s.Whitelist[account] = balance
			out = append(out, events.WhitelistChanged{Admin: caller, Account: account, Slots: balance})
		}
		return out, nil
	})
}

// RemoveFromWhitelist clears the account's slot balance.
func (e *Engine) RemoveFromWhitelist(ctx context.Context, caller, account common.Address) error {
	return e.updateAdmin(ctx, "remove_whitelist", caller, func(s *state.State) ([]events.Event, error) {
		delete(s.Whitelist, account)
		return []events.Event{events.WhitelistChanged{Admin: caller, Account: account, Slots: 0}}, nil
	})
}

// PurchaseResult is the outcome of a whitelist slot purchase.
type PurchaseResult struct {
	Slots  uint64        `json:"slots"`
	Cost   model.Amounts `json:"cost"`
	Change model.Amounts `json:"change"`
}

// BuyWhitelistSlots sells count slots at the configured slot cost. Purchases
// are disabled while the slot cost is zero.
func (e *Engine) BuyWhitelistSlots(ctx context.Context, caller common.Address, count uint64, payment model.Amounts) (PurchaseResult, error) {
	if count == 0 {
		return PurchaseResult{}, fmt.Errorf("%w: zero slots", ErrInvalidQuantity)
	}
	payment = payment.Clone()
	if payment.IsNegative() {
		return PurchaseResult{}, fmt.Errorf("%w: negative payment", ErrInsufficientPayment)
	}

	var result PurchaseResult
	err := e.update(ctx, "buy_whitelist", func(s *state.State) ([]events.Event, error) {
		unit := s.Economics.WhitelistSlotCost.Clone()
		if unit.IsZero() {
			return nil, ErrWhitelistPurchaseDisabled
		}
		cost := unit.MulUint(count)
		if !payment.Covers(cost) {
			return nil, fmt.Errorf("%w: need %s, got %s", ErrInsufficientPayment, cost, payment)
		}
		balance := s.Whitelist[caller] + count
		if balance < count {
			return nil, fmt.Errorf("%w: whitelist balance overflow", ErrInvalidQuantity)
		}
		s.Whitelist[caller] = balance
		s.Treasury.Collected = s.Treasury.Collected.Add(cost)

		result = PurchaseResult{Slots: balance, Cost: cost, Change: payment.Sub(cost)}
		return []events.Event{events.WhitelistPurchased{Account: caller, Count: count, Cost: cost}}, nil
	})
	if err != nil {
		return PurchaseResult{}, err
	}
	e.logger.Info("whitelist slots purchased",
		zap.String("account", caller.Hex()),
		zap.Uint64("count", count),
		zap.Uint64("balance", result.Slots),
	)
	return result, nil
}

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

// RefundResult is the outcome of a successful refund.
type RefundResult struct {
	Serials []uint64      `json:"serials"`
	Amount  model.Amounts `json:"amount"`
}

// IsRefundOwed reports refund eligibility for each serial. Serials without a
// payment record are never owed and report model.ExpiryNever.
func (e *Engine) IsRefundOwed(ctx context.Context, serials []uint64) ([]model.RefundStatus, error) {
	var out []model.RefundStatus
	err := e.view(ctx, func(s *state.State) error {
		now := e.now()
		out = make([]model.RefundStatus, len(serials))
		for i, serial := range serials {
			status := model.RefundStatus{Serial: serial, Expiry: model.ExpiryNever}
			if payment, ok := s.Payments[serial]; ok {
				status.Expiry = payment.RefundExpiry(s.Timing.RefundWindow)
				status.Owed = now < status.Expiry
			}
			out[i] = status
		}
		return nil
	})
	return out, err
}

func (e *Engine) GetSerialPayment(ctx context.Context, serial uint64) (model.SerialPayment, error) {
	var out model.SerialPayment
	err := e.view(ctx, func(s *state.State) error {
		payment, ok := s.Payments[serial]
		if !ok {
			return fmt.Errorf("%w: serial %d", ErrNeverMinted, serial)
		}
		out = payment
		out.Paid = payment.Paid.Clone()
		return nil
	})
	return out, err
}

// RefundNFT returns serials owned by caller to the pool and pays back the
// refund percentage of what was paid for each. One ineligible serial fails
// the whole batch.
func (e *Engine) RefundNFT(ctx context.Context, caller common.Address, serials []uint64) (RefundResult, error) {
	if len(serials) == 0 {
		return RefundResult{}, fmt.Errorf("%w: empty refund batch", ErrInvalidQuantity)
	}
	batch := append([]uint64(nil), serials...)

	var result RefundResult
	err := e.update(ctx, "refund", func(s *state.State) ([]events.Event, error) {
		now := e.now()
		seen := make(map[uint64]struct{}, len(batch))
		for _, serial := range batch {
			if _, dup := seen[serial]; dup {
				return nil, fmt.Errorf("%w: serial %d", ErrDuplicateInBatch, serial)
			}
			seen[serial] = struct{}{}
			payment, ok := s.Payments[serial]
			if !ok {
				return nil, fmt.Errorf("%w: serial %d", ErrNeverMinted, serial)
			}
			if !s.Owns(caller, serial) {
				return nil, fmt.Errorf("%w: serial %d", ErrOwnershipMismatch, serial)
			}
			if expiry := payment.RefundExpiry(s.Timing.RefundWindow); now >= expiry {
				return nil, fmt.Errorf("%w: serial %d expired at %d", ErrRefundExpired, serial, expiry)
			}
		}

		total := model.ZeroAmounts()
		for _, serial := range batch {
			payment := s.Payments[serial]
			total = total.Add(payment.Paid.Percent(s.Timing.RefundPercentage))

			delete(s.Payments, serial)
			delete(s.Minted, serial)
			if err := s.Pool.Release(serial); err != nil {
				return nil, err
			}
			if n := s.WalletMints[payment.Minter]; n > 1 {
				s.WalletMints[payment.Minter] = n - 1
			} else {
				delete(s.WalletMints, payment.Minter)
			}
		}
		s.Treasury.Refunded = s.Treasury.Refunded.Add(total)

		result = RefundResult{Serials: batch, Amount: total}
		return []events.Event{events.Refunded{Account: caller, Serials: batch, Amount: total.Clone()}}, nil
	})
	if err != nil {
		return RefundResult{}, err
	}
	e.logger.Info("refund completed",
		zap.String("account", caller.Hex()),
		zap.Uint64s("serials", batch),
		zap.String("amount", result.Amount.String()),
	)
	return result, nil
}

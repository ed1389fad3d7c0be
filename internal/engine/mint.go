package engine

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"poolMinter/internal/events"
	"poolMinter/internal/model"
	"poolMinter/internal/pricing"
	"poolMinter/internal/state"
)

// MintRequest is the input of Mint.
type MintRequest struct {
	Quantity int
	Payment  model.Amounts
	// Holdings are discount credentials the caller claims to own.
	Holdings []pricing.Holding
	// SacrificeSerials are collection serials the caller gives up for the
	// sacrifice discount.
	SacrificeSerials []uint64
}

// MintResult is the outcome of a successful mint.
type MintResult struct {
	Serials []uint64      `json:"serials"`
	Quote   pricing.Quote `json:"quote"`
	Charged model.Amounts `json:"charged"`
	Change  model.Amounts `json:"change"`
}

// HoldingsFromArgs pairs discount assets with their serial lists.
func HoldingsFromArgs(assets []common.Address, serials [][]uint64) ([]pricing.Holding, error) {
	if len(assets) != len(serials) {
		return nil, fmt.Errorf("%w: %d assets, %d serial lists", ErrLengthMismatch, len(assets), len(serials))
	}
	out := make([]pricing.Holding, len(assets))
	for i, asset := range assets {
		out[i] = pricing.Holding{Asset: asset, Serials: append([]uint64(nil), serials[i]...)}
	}
	return out, nil
}

// CalculateMintCost quotes a mint for caller without changing state. It runs
// the same computation Mint charges with; ownership is not checked.
func (e *Engine) CalculateMintCost(ctx context.Context, caller common.Address, quantity int, holdings []pricing.Holding, sacrificeCount int) (pricing.Quote, error) {
	var quote pricing.Quote
	err := e.view(ctx, func(s *state.State) error {
		q, err := e.quote(s, caller, quantity, holdings, sacrificeCount)
		if err != nil {
			return err
		}
		quote = q
		return nil
	})
	return quote, err
}

func (e *Engine) quote(s *state.State, caller common.Address, quantity int, holdings []pricing.Holding, sacrificeCount int) (pricing.Quote, error) {
	return pricing.Compute(s.Economics, s.Tiers, pricing.Request{
		Quantity:       quantity,
		SacrificeCount: sacrificeCount,
		Holdings:       holdings,
		WhitelistSlots: s.Whitelist[caller],
	}, pricing.Options{HolderOrder: e.opts.HolderOrder})
}

// Mint prices, charges and allocates quantity serials for caller. Either every
// effect is committed or none is.
func (e *Engine) Mint(ctx context.Context, caller common.Address, req MintRequest) (MintResult, error) {
	payment := req.Payment.Clone()
	if payment.IsNegative() {
		return MintResult{}, fmt.Errorf("%w: negative payment", ErrInsufficientPayment)
	}
	if err := e.verifyExternalHoldings(ctx, caller, req.Holdings); err != nil {
		e.logger.Debug("operation rejected", zap.String("op", "mint"), zap.String("kind", Kind(err)), zap.Error(err))
		return MintResult{}, err
	}

	var result MintResult
	err := e.update(ctx, "mint", func(s *state.State) ([]events.Event, error) {
		now := e.now()
		if s.Timing.Paused {
			return nil, ErrPaused
		}
		if now < s.Timing.StartTime {
			return nil, fmt.Errorf("%w: starts at %d", ErrNotStarted, s.Timing.StartTime)
		}
		if req.Quantity < 1 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, req.Quantity)
		}
		qty := uint64(req.Quantity)
		if limit := s.Economics.MaxPerMint; limit > 0 && qty > limit {
			return nil, fmt.Errorf("%w: %d > %d", ErrMaxPerMintExceeded, qty, limit)
		}
		if limit := s.Economics.MaxPerWallet; limit > 0 && s.WalletMints[caller]+qty > limit {
			return nil, fmt.Errorf("%w: %d minted, %d requested, cap %d", ErrMaxPerWalletExceeded, s.WalletMints[caller], qty, limit)
		}
		isAdmin := s.Admins[caller]
		if s.Timing.WhitelistOnly && !isAdmin && s.Whitelist[caller] == 0 {
			return nil, fmt.Errorf("%w: whitelist-only mint", ErrNotEnoughWLSlots)
		}
		if err := checkSacrifice(s, caller, req.SacrificeSerials, req.Quantity); err != nil {
			return nil, err
		}
		if err := checkCollectionHoldings(s, caller, req.Holdings); err != nil {
			return nil, err
		}

		quote, err := e.quote(s, caller, req.Quantity, req.Holdings, len(req.SacrificeSerials))
		if err != nil {
			return nil, err
		}
		if s.Timing.WhitelistOnly && !isAdmin && !quote.SacrificeApplied && quote.FullPriceUnits > 0 {
			return nil, fmt.Errorf("%w: %d units not covered", ErrNotEnoughWLSlots, quote.FullPriceUnits)
		}
		if !payment.Covers(quote.Total) {
			return nil, fmt.Errorf("%w: need %s, got %s", ErrInsufficientPayment, quote.Total, payment)
		}

		var seed []byte
		if e.opts.Allocation == AllocationHashed {
			seed = allocationSeed(caller, s.MintNonce)
		}
		serials, err := s.Pool.Allocate(req.Quantity, seed)
		if err != nil {
			return nil, err
		}

		var out []events.Event
		if len(req.SacrificeSerials) > 0 {
			ev, err := applySacrifice(s, caller, req.SacrificeSerials)
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}

		for _, c := range quote.Consumption {
			if err := s.Tiers.Consume(c.Asset, c.Serial, c.Uses); err != nil {
				return nil, err
			}
		}
		if used := uint64(quote.WhitelistUnits); used > 0 {
			remaining := s.Whitelist[caller] - used
			if remaining == 0 {
				delete(s.Whitelist, caller)
			} else {
				s.Whitelist[caller] = remaining
			}
		}

		shares := model.SplitEvenly(quote.Total, len(serials))
		for i, serial := range serials {
			s.Payments[serial] = model.SerialPayment{
				Serial:        serial,
				Minter:        caller,
				Paid:          shares[i],
				MintTimestamp: now,
			}
			s.Minted[serial] = caller
		}
		s.WalletMints[caller] += qty
		s.MintNonce++

		s.Treasury.Collected = s.Treasury.Collected.Add(quote.Total)
		if pct := s.Misc.LazyBurnPercentage; pct > 0 {
			burn := model.Amounts{Lazy: quote.Total.Clone().Lazy}.Percent(pct)
			s.Treasury.Burned = s.Treasury.Burned.Add(burn)
		}

		result = MintResult{
			Serials: serials,
			Quote:   quote,
			Charged: quote.Total.Clone(),
			Change:  payment.Sub(quote.Total),
		}
		out = append(out, events.MintAllocated{
			Minter:          caller,
			Serials:         serials,
			Paid:            quote.Total.Clone(),
			AverageDiscount: quote.AverageDiscount,
			Remaining:       uint64(s.Pool.Remaining()),
		})
		return out, nil
	})
	if err != nil {
		return MintResult{}, err
	}

	e.logger.Info("mint completed",
		zap.String("minter", caller.Hex()),
		zap.Int("quantity", req.Quantity),
		zap.Uint64s("serials", result.Serials),
		zap.Uint32("avg_discount", result.Quote.AverageDiscount),
		zap.String("charged", result.Charged.String()),
	)
	return result, nil
}

// verifyExternalHoldings checks every declared serial of a non-collection
// asset against the configured verifier. Collection serials are checked
// inside the mint transaction.
func (e *Engine) verifyExternalHoldings(ctx context.Context, caller common.Address, holdings []pricing.Holding) error {
	if len(holdings) == 0 {
		return nil
	}
	var collection common.Address
	if err := e.view(ctx, func(s *state.State) error {
		collection = s.Misc.Collection
		return nil
	}); err != nil {
		return err
	}

	for _, holding := range holdings {
		if holding.Asset == collection {
			continue
		}
		for _, serial := range holding.Serials {
			if e.verifier == nil {
				return fmt.Errorf("%w: no verifier for %s #%d", ErrOwnershipMismatch, holding.Asset.Hex(), serial)
			}
			owner, err := e.verifier.OwnerOf(ctx, holding.Asset, serial)
			if err != nil {
				return fmt.Errorf("verify %s #%d: %w", holding.Asset.Hex(), serial, err)
			}
			if owner != caller {
				return fmt.Errorf("%w: %s #%d", ErrOwnershipMismatch, holding.Asset.Hex(), serial)
			}
		}
	}
	return nil
}

func checkCollectionHoldings(s *state.State, caller common.Address, holdings []pricing.Holding) error {
	for _, holding := range holdings {
		if holding.Asset != s.Misc.Collection {
			continue
		}
		for _, serial := range holding.Serials {
			if !s.Owns(caller, serial) {
				return fmt.Errorf("%w: collection #%d", ErrOwnershipMismatch, serial)
			}
		}
	}
	return nil
}

func checkSacrifice(s *state.State, caller common.Address, serials []uint64, quantity int) error {
	if len(serials) > quantity {
		return fmt.Errorf("%w: %d > %d", ErrSacrificeExceedsQuantity, len(serials), quantity)
	}
	seen := make(map[uint64]struct{}, len(serials))
	for _, serial := range serials {
		if _, dup := seen[serial]; dup {
			return fmt.Errorf("%w: serial %d", ErrDuplicateInBatch, serial)
		}
		seen[serial] = struct{}{}
		if !s.Owns(caller, serial) {
			return fmt.Errorf("%w: sacrifice #%d", ErrOwnershipMismatch, serial)
		}
	}
	return nil
}

// applySacrifice burns the serials when no destination is configured and
// otherwise hands them to the destination. Either way they stop being
// refundable.
func applySacrifice(s *state.State, caller common.Address, serials []uint64) (events.Event, error) {
	destination := s.Misc.SacrificeDestination
	burned := destination == (common.Address{})
	for _, serial := range serials {
		delete(s.Payments, serial)
		if burned {
			delete(s.Minted, serial)
			if err := s.Pool.Forget(serial); err != nil {
				return nil, err
			}
			continue
		}
		s.Minted[serial] = destination
	}
	return events.Sacrificed{
		Account:     caller,
		Destination: destination,
		Serials:     append([]uint64(nil), serials...),
		Burned:      burned,
	}, nil
}

func allocationSeed(caller common.Address, nonce uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	return crypto.Keccak256(caller.Bytes(), buf[:])
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolMinter/internal/engine"
	"poolMinter/internal/model"
	"poolMinter/internal/pricing"
)

// ErrUnknownMethod is returned for a method name the dispatcher does not serve.
var ErrUnknownMethod = errors.New("api: unknown method")

// ErrBadArgs is returned when the arguments of a call cannot be decoded.
var ErrBadArgs = errors.New("api: malformed arguments")

// FailureObserver is told the error kind of every failed call.
type FailureObserver interface {
	ObserveFailure(kind string)
}

type handlerFunc func(ctx context.Context, caller common.Address, raw json.RawMessage) (interface{}, error)

// Dispatcher maps minter method names to engine calls with typed JSON arguments.
type Dispatcher struct {
	engine   *engine.Engine
	logger   *zap.Logger
	observer FailureObserver
	handlers map[string]handlerFunc
}

func NewDispatcher(eng *engine.Engine, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{engine: eng, logger: logger}
	d.handlers = d.routes()
	return d
}

// SetFailureObserver registers an observer for failed calls. Nil disables it.
func (d *Dispatcher) SetFailureObserver(observer FailureObserver) {
	d.observer = observer
}

// Methods lists the served method names in lexical order.
func (d *Dispatcher) Methods() []string {
	out := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// readOnly names the methods that never change state. They are the only ones
// served to an unauthenticated caller.
var readOnly = map[string]bool{
	"getMintEconomics":             true,
	"getMintTiming":                true,
	"getRemainingSupply":           true,
	"getAvailableSerialsPaginated": true,
	"getDiscountTierCount":         true,
	"getDiscountTier":              true,
	"listDiscountTiers":            true,
	"getBatchSerialDiscountInfo":   true,
	"whitelistSlots":               true,
	"calculateMintCost":            true,
	"isRefundOwed":                 true,
	"getSerialPayment":             true,
	"getAdminList":                 true,
	"isAdmin":                      true,
	"getMiscConfig":                true,
	"getTreasury":                  true,
}

// ReadOnly reports whether method is served and never changes state.
func (d *Dispatcher) ReadOnly(method string) bool {
	_, ok := d.handlers[method]
	return ok && readOnly[method]
}

// Call runs method on behalf of caller. raw may be empty for methods without
// arguments.
func (d *Dispatcher) Call(ctx context.Context, caller common.Address, method string, raw json.RawMessage) (interface{}, error) {
	handler, ok := d.handlers[method]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownMethod, method)
		d.observe(err)
		return nil, err
	}
	result, err := handler(ctx, caller, raw)
	if err != nil {
		d.observe(err)
		return nil, err
	}
	return result, nil
}

func (d *Dispatcher) observe(err error) {
	if d.observer != nil {
		d.observer.ObserveFailure(ErrorKind(err))
	}
}

// ErrorKind extends engine.Kind with the dispatcher's own failures.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownMethod):
		return "UnknownMethod"
	case errors.Is(err, ErrBadArgs):
		return "BadArgs"
	default:
		return engine.Kind(err)
	}
}

func decodeArgs(raw json.RawMessage, dst interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadArgs, err)
	}
	return nil
}

// typed adapts a handler taking decoded arguments of type T.
func typed[T any](fn func(ctx context.Context, caller common.Address, args T) (interface{}, error)) handlerFunc {
	return func(ctx context.Context, caller common.Address, raw json.RawMessage) (interface{}, error) {
		var args T
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return fn(ctx, caller, args)
	}
}

type noArgs struct{}

type accountArgs struct {
	Account common.Address `json:"account"`
}

type serialsArgs struct {
	Serials []uint64 `json:"serials"`
}

type indexArgs struct {
	Index int `json:"index"`
}

type economicsArgs struct {
	HbarPrice         int64  `json:"hbar_price"`
	LazyPrice         int64  `json:"lazy_price"`
	WhitelistDiscount uint32 `json:"wl_discount"`
	SacrificeDiscount uint32 `json:"sacrifice_discount"`
	MaxPerMint        uint64 `json:"max_per_mint"`
	MaxPerWallet      uint64 `json:"max_per_wallet"`
	SlotCostHbar      int64  `json:"wl_slot_cost_hbar"`
	SlotCostLazy      int64  `json:"wl_slot_cost_lazy"`
}

type paginateArgs struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type withdrawArgs struct {
	Recipient common.Address `json:"recipient"`
	Serials   []uint64       `json:"serials"`
}

type updateTierArgs struct {
	Index int                `json:"index"`
	Tier  model.DiscountTier `json:"tier"`
}

type serialInfoArgs struct {
	Assets  []common.Address `json:"assets"`
	Serials []uint64         `json:"serials"`
}

type whitelistArgs struct {
	Account common.Address `json:"account"`
	Slots   uint64         `json:"slots"`
}

type batchWhitelistArgs struct {
	Accounts []common.Address `json:"accounts"`
	Slots    []uint64         `json:"slots"`
}

type buySlotsArgs struct {
	Count   uint64        `json:"count"`
	Payment model.Amounts `json:"payment"`
}

type costArgs struct {
	Quantity       int              `json:"quantity"`
	DiscountAssets []common.Address `json:"discount_assets"`
	SerialsByAsset [][]uint64       `json:"serials_by_asset"`
	SacrificeCount int              `json:"sacrifice_count"`
}

type mintArgs struct {
	Quantity         int              `json:"quantity"`
	Payment          model.Amounts    `json:"payment"`
	DiscountAssets   []common.Address `json:"discount_assets"`
	SerialsByAsset   [][]uint64       `json:"serials_by_asset"`
	SacrificeSerials []uint64         `json:"sacrifice_serials"`
}

type serialArgs struct {
	Serial uint64 `json:"serial"`
}

type destinationArgs struct {
	Destination common.Address `json:"destination"`
}

type percentageArgs struct {
	Percentage uint32 `json:"percentage"`
}

type ack struct {
	OK bool `json:"ok"`
}

func done(err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return ack{OK: true}, nil
}

func (d *Dispatcher) routes() map[string]handlerFunc {
	e := d.engine
	return map[string]handlerFunc{
		// Economics
		"getMintEconomics": typed(func(ctx context.Context, _ common.Address, _ noArgs) (interface{}, error) {
			return e.GetMintEconomics(ctx)
		}),
		"updateMintEconomics": typed(func(ctx context.Context, caller common.Address, a economicsArgs) (interface{}, error) {
			return done(e.UpdateMintEconomics(ctx, caller, model.EconomicsConfig{
				MintPrice:         model.NewAmounts(a.HbarPrice, a.LazyPrice),
				WhitelistDiscount: a.WhitelistDiscount,
				SacrificeDiscount: a.SacrificeDiscount,
				MaxPerMint:        a.MaxPerMint,
				MaxPerWallet:      a.MaxPerWallet,
				WhitelistSlotCost: model.NewAmounts(a.SlotCostHbar, a.SlotCostLazy),
			}))
		}),

		// Timing
		"getMintTiming": typed(func(ctx context.Context, _ common.Address, _ noArgs) (interface{}, error) {
			return e.GetMintTiming(ctx)
		}),
		"updateTiming": typed(func(ctx context.Context, caller common.Address, a model.TimingConfig) (interface{}, error) {
			return done(e.UpdateTiming(ctx, caller, a))
		}),

		// Pool
		"getRemainingSupply": typed(func(ctx context.Context, _ common.Address, _ noArgs) (interface{}, error) {
			return e.GetRemainingSupply(ctx)
		}),
		"getAvailableSerialsPaginated": typed(func(ctx context.Context, _ common.Address, a paginateArgs) (interface{}, error) {
			return e.GetAvailableSerials(ctx, a.Offset, a.Limit)
		}),
		"registerPoolNFTs": typed(func(ctx context.Context, caller common.Address, a serialsArgs) (interface{}, error) {
			return done(e.RegisterPoolNFTs(ctx, caller, a.Serials))
		}),
		"addNFTsToPool": typed(func(ctx context.Context, caller common.Address, a serialsArgs) (interface{}, error) {
			return done(e.AddNFTsToPool(ctx, caller, a.Serials))
		}),
		"emergencyWithdrawNFTs": typed(func(ctx context.Context, caller common.Address, a withdrawArgs) (interface{}, error) {
			return done(e.EmergencyWithdrawNFTs(ctx, caller, a.Recipient, a.Serials))
		}),

		// Tiers
		"getDiscountTierCount": typed(func(ctx context.Context, _ common.Address, _ noArgs) (interface{}, error) {
			return e.GetDiscountTierCount(ctx)
		}),
		"getDiscountTier": typed(func(ctx context.Context, _ common.Address, a indexArgs) (interface{}, error) {
			return e.GetDiscountTier(ctx, a.Index)
		}),
		"listDiscountTiers": typed(func(ctx context.Context, _ common.Address, _ noArgs) (interface{}, error) {
			return e.ListDiscountTiers(ctx)
		}),
		"addDiscountTier": typed(func(ctx context.Context, caller common.Address, a model.DiscountTier) (interface{}, error) {
			idx, err := e.AddDiscountTier(ctx, caller, a)
			if err != nil {
				return nil, err
			}
			return indexArgs{Index: idx}, nil
		}),
		"updateDiscountTier": typed(func(ctx context.Context, caller common.Address, a updateTierArgs) (interface{}, error) {
			return done(e.UpdateDiscountTier(ctx, caller, a.Index, a.Tier))
		}),
		"removeDiscountTier": typed(func(ctx context.Context, caller common.Address, a indexArgs) (interface{}, error) {
			return done(e.RemoveDiscountTier(ctx, caller, a.Index))
		}),
		"getBatchSerialDiscountInfo": typed(func(ctx context.Context, _ common.Address, a serialInfoArgs) (interface{}, error) {
			return e.GetBatchSerialDiscountInfo(ctx, a.Assets, a.Serials)
		}),

		// Whitelist
		"whitelistSlots": typed(func(ctx context.Context, caller common.Address, a accountArgs) (interface{}, error) {
			account := a.Account
			if account == (common.Address{}) {
				account = caller
			}
			return e.WhitelistSlots(ctx, account)
		}),
		"addToWhitelist": typed(func(ctx context.Context, caller common.Address, a whitelistArgs) (interface{}, error) {
			return done(e.AddToWhitelist(ctx, caller, a.Account, a.Slots))
		}),
		"removeFromWhitelist": typed(func(ctx context.Context, caller common.Address, a accountArgs) (interface{}, error) {
			return done(e.RemoveFromWhitelist(ctx, caller, a.Account))
		}),
		"batchAddToWhitelist": typed(func(ctx context.Context, caller common.Address, a batchWhitelistArgs) (interface{}, error) {
			return done(e.BatchAddToWhitelist(ctx, caller, a.Accounts, a.Slots))
		}),
		"buyWhitelistSlots": typed(func(ctx context.Context, caller common.Address, a buySlotsArgs) (interface{}, error) {
			return e.BuyWhitelistSlots(ctx, caller, a.Count, a.Payment)
		}),

		// Pricing and mint
		"calculateMintCost": typed(func(ctx context.Context, caller common.Address, a costArgs) (interface{}, error) {
			holdings, err := engine.HoldingsFromArgs(a.DiscountAssets, a.SerialsByAsset)
			if err != nil {
				return nil, err
			}
			return e.CalculateMintCost(ctx, caller, a.Quantity, holdings, a.SacrificeCount)
		}),
		"mint": typed(func(ctx context.Context, caller common.Address, a mintArgs) (interface{}, error) {
			var holdings []pricing.Holding
			if len(a.DiscountAssets) > 0 || len(a.SerialsByAsset) > 0 {
				h, err := engine.HoldingsFromArgs(a.DiscountAssets, a.SerialsByAsset)
				if err != nil {
					return nil, err
				}
				holdings = h
			}
			return e.Mint(ctx, caller, engine.MintRequest{
				Quantity:         a.Quantity,
				Payment:          a.Payment,
				Holdings:         holdings,
				SacrificeSerials: a.SacrificeSerials,
			})
		}),

		// Refund
		"isRefundOwed": typed(func(ctx context.Context, _ common.Address, a serialsArgs) (interface{}, error) {
			return e.IsRefundOwed(ctx, a.Serials)
		}),
		"getSerialPayment": typed(func(ctx context.Context, _ common.Address, a serialArgs) (interface{}, error) {
			return e.GetSerialPayment(ctx, a.Serial)
		}),
		"refundNFT": typed(func(ctx context.Context, caller common.Address, a serialsArgs) (interface{}, error) {
			return e.RefundNFT(ctx, caller, a.Serials)
		}),

		// Admin
		"addAdmin": typed(func(ctx context.Context, caller common.Address, a accountArgs) (interface{}, error) {
			return done(e.AddAdmin(ctx, caller, a.Account))
		}),
		"removeAdmin": typed(func(ctx context.Context, caller common.Address, a accountArgs) (interface{}, error) {
			return done(e.RemoveAdmin(ctx, caller, a.Account))
		}),
		"getAdminList": typed(func(ctx context.Context, _ common.Address, _ noArgs) (interface{}, error) {
			return e.GetAdminList(ctx)
		}),
		"isAdmin": typed(func(ctx context.Context, caller common.Address, a accountArgs) (interface{}, error) {
			account := a.Account
			if account == (common.Address{}) {
				account = caller
			}
			return e.IsAdmin(ctx, account)
		}),

		// Misc
		"getMiscConfig": typed(func(ctx context.Context, _ common.Address, _ noArgs) (interface{}, error) {
			return e.GetMiscConfig(ctx)
		}),
		"setSacrificeDestination": typed(func(ctx context.Context, caller common.Address, a destinationArgs) (interface{}, error) {
			return done(e.SetSacrificeDestination(ctx, caller, a.Destination))
		}),
		"setLazyBurnPercentage": typed(func(ctx context.Context, caller common.Address, a percentageArgs) (interface{}, error) {
			return done(e.SetLazyBurnPercentage(ctx, caller, a.Percentage))
		}),
		"getTreasury": typed(func(ctx context.Context, _ common.Address, _ noArgs) (interface{}, error) {
			return e.GetTreasury(ctx)
		}),
	}
}

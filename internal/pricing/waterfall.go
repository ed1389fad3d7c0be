package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"poolMinter/internal/model"
)

var (
	ErrInvalidQuantity          = errors.New("pricing: invalid quantity")
	ErrSacrificeExceedsQuantity = errors.New("pricing: sacrifice count exceeds quantity")
	ErrUnknownHolderOrder       = errors.New("pricing: unknown holder order")
)

// StageKind names one step of the discount waterfall.
type StageKind string

const (
	StageSacrifice StageKind = "sacrifice"
	StageHolder    StageKind = "holder"
	StageWhitelist StageKind = "whitelist"
	StageFullPrice StageKind = "full_price"
)

// HolderOrder decides which tier's credentials are spent first when a caller
// presents holdings of several tiered assets.
type HolderOrder string

const (
	OrderTierIndex    HolderOrder = "tier-index"
	OrderDiscountDesc HolderOrder = "discount-desc"
	OrderAsSupplied   HolderOrder = "as-supplied"
)

// ParseHolderOrder parses a holder order name; empty selects OrderTierIndex.
func ParseHolderOrder(input string) (HolderOrder, error) {
	switch HolderOrder(strings.ToLower(strings.TrimSpace(input))) {
	case "", OrderTierIndex:
		return OrderTierIndex, nil
	case OrderDiscountDesc:
		return OrderDiscountDesc, nil
	case OrderAsSupplied:
		return OrderAsSupplied, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownHolderOrder, input)
	}
}

// TierSource is the read side of the tier registry used while pricing.
type TierSource interface {
	Lookup(asset common.Address) (int, model.DiscountTier, bool)
	Remaining(asset common.Address, serial uint64) uint32
}

// Holding is a set of serials of one asset the caller claims to own.
type Holding struct {
	Asset   common.Address `json:"asset"`
	Serials []uint64       `json:"serials"`
}

// Request is the input of a price computation.
type Request struct {
	Quantity       int
	SacrificeCount int
	Holdings       []Holding
	WhitelistSlots uint64
}

// Options tunes policy choices of the waterfall.
type Options struct {
	HolderOrder HolderOrder
}

// Line is a group of units priced by the same stage at the same rate.
type Line struct {
	Stage           StageKind      `json:"stage"`
	TierIndex       int            `json:"tier_index"`
	Asset           common.Address `json:"asset"`
	Serial          uint64         `json:"serial"`
	DiscountPercent uint32         `json:"discount_percent"`
	Units           int            `json:"units"`
	UnitCost        model.Amounts  `json:"unit_cost"`
	Cost            model.Amounts  `json:"cost"`
}

// Consumption is the number of discount uses taken from one credential serial.
type Consumption struct {
	Asset     common.Address `json:"asset"`
	Serial    uint64         `json:"serial"`
	TierIndex int            `json:"tier_index"`
	Uses      uint32         `json:"uses"`
}

// Quote is the result of a price computation.
type Quote struct {
	Quantity         int           `json:"quantity"`
	Total            model.Amounts `json:"total"`
	AverageDiscount  uint32        `json:"average_discount"`
	SacrificeApplied bool          `json:"sacrifice_applied"`
	HolderUnits      int           `json:"holder_units"`
	WhitelistUnits   int           `json:"wl_units"`
	FullPriceUnits   int           `json:"full_price_units"`
	Lines            []Line        `json:"lines"`
	Consumption      []Consumption `json:"consumption"`

	discountWeight uint64
}

func (q *Quote) price(base model.Amounts, line Line, units int) {
	line.Units = units
	line.UnitCost = base.Percent(100 - line.DiscountPercent)
	line.Cost = line.UnitCost.MulUint(uint64(units))
	q.Total = q.Total.Add(line.Cost)
	q.discountWeight += uint64(units) * uint64(line.DiscountPercent)
	q.Lines = append(q.Lines, line)
}

// stage prices up to remaining units and returns how many are still unpriced.
type stage struct {
	kind  StageKind
	price func(remaining int, q *Quote) int
}

// Compute runs the discount waterfall. It is a pure function of its inputs:
// the same economics, tier state and request always produce the same quote,
// which is what lets a quote and the later charge share one code path.
func Compute(econ model.EconomicsConfig, tiers TierSource, req Request, opts Options) (Quote, error) {
	q := Quote{
		Quantity:    req.Quantity,
		Total:       model.ZeroAmounts(),
		Lines:       []Line{},
		Consumption: []Consumption{},
	}
	if req.Quantity < 0 {
		return Quote{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, req.Quantity)
	}
	if req.Quantity == 0 {
		return q, nil
	}
	if req.SacrificeCount < 0 {
		return Quote{}, fmt.Errorf("%w: negative sacrifice count %d", ErrInvalidQuantity, req.SacrificeCount)
	}
	if req.SacrificeCount > req.Quantity {
		return Quote{}, fmt.Errorf("%w: %d > %d", ErrSacrificeExceedsQuantity, req.SacrificeCount, req.Quantity)
	}

	order := opts.HolderOrder
	if order == "" {
		order = OrderTierIndex
	}
	candidates := holderCandidates(tiers, req.Holdings, order)

	pipeline := []stage{
		sacrificeStage(econ, req.SacrificeCount),
		holderStage(econ, tiers, candidates),
		whitelistStage(econ, req.WhitelistSlots),
		fullPriceStage(econ),
	}

	remaining := req.Quantity
	for _, st := range pipeline {
		if remaining == 0 {
			break
		}
		remaining = st.price(remaining, &q)
	}

	q.AverageDiscount = uint32(q.discountWeight / uint64(req.Quantity))
	return q, nil
}

func sacrificeStage(econ model.EconomicsConfig, count int) stage {
	return stage{kind: StageSacrifice, price: func(remaining int, q *Quote) int {
		if count == 0 {
			return remaining
		}
		q.price(econ.MintPrice, Line{Stage: StageSacrifice, TierIndex: -1, DiscountPercent: econ.SacrificeDiscount}, remaining)
		q.SacrificeApplied = true
		return 0
	}}
}

func holderStage(econ model.EconomicsConfig, tiers TierSource, candidates []candidate) stage {
	return stage{kind: StageHolder, price: func(remaining int, q *Quote) int {
		for _, c := range candidates {
			serialsUsed := 0
			for _, serial := range c.serials {
				if remaining == 0 {
					return 0
				}
				if c.tier.MaxSerialsPerMint > 0 && serialsUsed >= int(c.tier.MaxSerialsPerMint) {
					break
				}
				uses := tiers.Remaining(c.asset, serial)
				if uses == 0 {
					continue
				}
				units := remaining
				if uint64(uses) < uint64(units) {
					units = int(uses)
				}
				q.price(econ.MintPrice, Line{
					Stage:           StageHolder,
					TierIndex:       c.index,
					Asset:           c.asset,
					Serial:          serial,
					DiscountPercent: c.tier.DiscountPercent,
				}, units)
				q.Consumption = append(q.Consumption, Consumption{
					Asset:     c.asset,
					Serial:    serial,
					TierIndex: c.index,
					Uses:      uint32(units),
				})
				q.HolderUnits += units
				remaining -= units
				serialsUsed++
			}
		}
		return remaining
	}}
}

func whitelistStage(econ model.EconomicsConfig, slots uint64) stage {
	return stage{kind: StageWhitelist, price: func(remaining int, q *Quote) int {
		units := remaining
		if slots < uint64(units) {
			units = int(slots)
		}
		if units == 0 {
			return remaining
		}
		q.price(econ.MintPrice, Line{Stage: StageWhitelist, TierIndex: -1, DiscountPercent: econ.WhitelistDiscount}, units)
		q.WhitelistUnits += units
		return remaining - units
	}}
}

func fullPriceStage(econ model.EconomicsConfig) stage {
	return stage{kind: StageFullPrice, price: func(remaining int, q *Quote) int {
		q.price(econ.MintPrice, Line{Stage: StageFullPrice, TierIndex: -1}, remaining)
		q.FullPriceUnits += remaining
		return 0
	}}
}

type candidate struct {
	index   int
	tier    model.DiscountTier
	asset   common.Address
	serials []uint64
	pos     int
}

// holderCandidates merges holdings per tiered asset, drops repeated serials and
// untiered assets, and orders the result by policy.
func holderCandidates(tiers TierSource, holdings []Holding, order HolderOrder) []candidate {
	byAsset := make(map[common.Address]int)
	seen := make(map[common.Address]map[uint64]struct{})
	out := make([]candidate, 0, len(holdings))

	for _, holding := range holdings {
		idx, tier, ok := tiers.Lookup(holding.Asset)
		if !ok {
			continue
		}
		ci, exists := byAsset[holding.Asset]
		if !exists {
			out = append(out, candidate{index: idx, tier: tier, asset: holding.Asset, pos: len(out)})
			ci = len(out) - 1
			byAsset[holding.Asset] = ci
			seen[holding.Asset] = make(map[uint64]struct{})
		}
		for _, serial := range holding.Serials {
			if _, dup := seen[holding.Asset][serial]; dup {
				continue
			}
			seen[holding.Asset][serial] = struct{}{}
			out[ci].serials = append(out[ci].serials, serial)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		switch order {
		case OrderDiscountDesc:
			if out[i].tier.DiscountPercent != out[j].tier.DiscountPercent {
				return out[i].tier.DiscountPercent > out[j].tier.DiscountPercent
			}
			return out[i].index < out[j].index
		case OrderAsSupplied:
			return out[i].pos < out[j].pos
		default:
			return out[i].index < out[j].index
		}
	})
	return out
}

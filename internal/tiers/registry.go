package tiers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"poolMinter/internal/model"
)

var (
	ErrInvalidDiscount = errors.New("tiers: discount percent out of range")
	ErrInvalidTier     = errors.New("tiers: invalid tier")
	ErrTierExists      = errors.New("tiers: asset already bound to a tier")
	ErrTierNotFound    = errors.New("tiers: tier not found")
	ErrUsageExhausted  = errors.New("tiers: serial discount uses exhausted")
)

// Registry is the ordered list of discount tiers together with the per-serial
// usage counters of every credential asset. Tiers are addressed by position;
// removing a tier shifts every later tier down by one. Usage counters only
// ever grow and outlive the tier that created them. The per-serial use cap of
// an asset only ever shrinks, so the uses left on a credential never grow back.
type Registry struct {
	tiers []model.DiscountTier
	usage map[common.Address]map[uint64]uint32
	caps  map[common.Address]uint32
}

func New() *Registry {
	return &Registry{
		usage: make(map[common.Address]map[uint64]uint32),
		caps:  make(map[common.Address]uint32),
	}
}

// checkCap rejects a tier whose MaxUsesPerSerial exceeds the lowest cap the
// asset was ever bound with.
func (r *Registry) checkCap(tier model.DiscountTier) error {
	if limit, ok := r.caps[tier.Asset]; ok && tier.MaxUsesPerSerial > limit {
		return fmt.Errorf("%w: max uses per serial for %s cannot be raised above %d", ErrInvalidTier, tier.Asset.Hex(), limit)
	}
	return nil
}

func (r *Registry) recordCap(tier model.DiscountTier) {
	if limit, ok := r.caps[tier.Asset]; !ok || tier.MaxUsesPerSerial < limit {
		r.caps[tier.Asset] = tier.MaxUsesPerSerial
	}
}

func validate(tier model.DiscountTier) (model.DiscountTier, error) {
	if tier.DiscountPercent > 100 {
		return tier, fmt.Errorf("%w: %d", ErrInvalidDiscount, tier.DiscountPercent)
	}
	if tier.MaxUsesPerSerial == 0 {
		return tier, fmt.Errorf("%w: max uses per serial must be positive", ErrInvalidTier)
	}
	if tier.Asset == (common.Address{}) {
		return tier, fmt.Errorf("%w: asset address required", ErrInvalidTier)
	}
	tier.Name = strings.TrimSpace(tier.Name)
	return tier, nil
}

// Add appends a tier and returns its index.
func (r *Registry) Add(tier model.DiscountTier) (int, error) {
	tier, err := validate(tier)
	if err != nil {
		return 0, err
	}
	if idx, _, ok := r.Lookup(tier.Asset); ok {
		return 0, fmt.Errorf("%w: %s at index %d", ErrTierExists, tier.Asset.Hex(), idx)
	}
	if err := r.checkCap(tier); err != nil {
		return 0, err
	}
	r.tiers = append(r.tiers, tier)
	r.recordCap(tier)
	return len(r.tiers) - 1, nil
}

// Update replaces the tier at index.
func (r *Registry) Update(index int, tier model.DiscountTier) error {
	if index < 0 || index >= len(r.tiers) {
		return fmt.Errorf("%w: index %d", ErrTierNotFound, index)
	}
	tier, err := validate(tier)
	if err != nil {
		return err
	}
	if idx, _, ok := r.Lookup(tier.Asset); ok && idx != index {
		return fmt.Errorf("%w: %s at index %d", ErrTierExists, tier.Asset.Hex(), idx)
	}
	if err := r.checkCap(tier); err != nil {
		return err
	}
	r.tiers[index] = tier
	r.recordCap(tier)
	return nil
}

// Remove deletes the tier at index and compacts the list.
func (r *Registry) Remove(index int) (model.DiscountTier, error) {
	if index < 0 || index >= len(r.tiers) {
		return model.DiscountTier{}, fmt.Errorf("%w: index %d", ErrTierNotFound, index)
	}
	removed := r.tiers[index]
	r.tiers = append(r.tiers[:index], r.tiers[index+1:]...)
	return removed, nil
}

func (r *Registry) Get(index int) (model.DiscountTier, error) {
	if index < 0 || index >= len(r.tiers) {
		return model.DiscountTier{}, fmt.Errorf("%w: index %d", ErrTierNotFound, index)
	}
	return r.tiers[index], nil
}

func (r *Registry) Count() int {
	return len(r.tiers)
}

// List returns a copy of the tiers in index order.
func (r *Registry) List() []model.DiscountTier {
	out := make([]model.DiscountTier, len(r.tiers))
	copy(out, r.tiers)
	return out
}

// Lookup returns the tier bound to asset.
func (r *Registry) Lookup(asset common.Address) (int, model.DiscountTier, bool) {
	for i, tier := range r.tiers {
		if tier.Asset == asset {
			return i, tier, true
		}
	}
	return -1, model.DiscountTier{}, false
}

// Used returns how many times serial of asset has been consumed as a discount credential.
func (r *Registry) Used(asset common.Address, serial uint64) uint32 {
	return r.usage[asset][serial]
}

// Remaining returns the uses left for serial of asset under its current tier.
// Assets without a tier have no remaining uses.
func (r *Registry) Remaining(asset common.Address, serial uint64) uint32 {
	_, tier, ok := r.Lookup(asset)
	if !ok {
		return 0
	}
	used := r.Used(asset, serial)
	if used >= tier.MaxUsesPerSerial {
		return 0
	}
	return tier.MaxUsesPerSerial - used
}

// Consume records n uses of serial of asset.
func (r *Registry) Consume(asset common.Address, serial uint64, n uint32) error {
	if n == 0 {
		return nil
	}
	if remaining := r.Remaining(asset, serial); remaining < n {
		return fmt.Errorf("%w: %s #%d has %d, needs %d", ErrUsageExhausted, asset.Hex(), serial, remaining, n)
	}
	serials := r.usage[asset]
	if serials == nil {
		serials = make(map[uint64]uint32)
		r.usage[asset] = serials
	}
	serials[serial] += n
	return nil
}

// SerialInfo reports the discount standing of serial of asset.
func (r *Registry) SerialInfo(asset common.Address, serial uint64) model.SerialDiscountInfo {
	info := model.SerialDiscountInfo{
		Asset:        asset,
		Serial:       serial,
		TierIndex:    -1,
		UsesConsumed: r.Used(asset, serial),
	}
	idx, tier, ok := r.Lookup(asset)
	if !ok {
		return info
	}
	info.TierIndex = idx
	info.DiscountPercent = tier.DiscountPercent
	info.UsesRemaining = r.Remaining(asset, serial)
	info.Eligible = info.UsesRemaining > 0
	return info
}

type registryRecord struct {
	Tiers []model.DiscountTier                 `json:"tiers"`
	Usage map[common.Address]map[uint64]uint32 `json:"usage"`
	Caps  map[common.Address]uint32            `json:"caps,omitempty"`
}

func (r *Registry) MarshalJSON() ([]byte, error) {
	tiers := r.tiers
	if tiers == nil {
		tiers = []model.DiscountTier{}
	}
	return json.Marshal(registryRecord{Tiers: tiers, Usage: r.usage, Caps: r.caps})
}

func (r *Registry) UnmarshalJSON(data []byte) error {
	var rec registryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	next := New()
	next.tiers = rec.Tiers
	for asset, serials := range rec.Usage {
		next.usage[asset] = serials
	}
	for asset, limit := range rec.Caps {
		next.caps[asset] = limit
	}
	for _, tier := range next.tiers {
		next.recordCap(tier)
	}
	*r = *next
	return nil
}

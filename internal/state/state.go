package state

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"poolMinter/internal/model"
	"poolMinter/internal/pool"
	"poolMinter/internal/tiers"
)

// State is the complete minter state. Stores hand out a private copy to
// writers and an immutable published copy to readers.
type State struct {
	Admins      map[common.Address]bool        `json:"admins"`
	Economics   model.EconomicsConfig          `json:"economics"`
	Timing      model.TimingConfig             `json:"timing"`
	Misc        model.MiscConfig               `json:"misc"`
	Pool        *pool.Pool                     `json:"pool"`
	Tiers       *tiers.Registry                `json:"tiers"`
	Whitelist   map[common.Address]uint64      `json:"whitelist"`
	WalletMints map[common.Address]uint64      `json:"wallet_mints"`
	Minted      map[uint64]common.Address      `json:"minted"`
	Payments    map[uint64]model.SerialPayment `json:"payments"`
	Treasury    model.Treasury                 `json:"treasury"`
	MintNonce   uint64                         `json:"mint_nonce"`
	Version     uint64                         `json:"version"`
}

// New returns the initial state with a single admin. The mint starts paused
// so nothing can be sold before economics and timing are configured.
func New(admin, collection common.Address) *State {
	s := &State{
		Admins: map[common.Address]bool{admin: true},
		Economics: model.EconomicsConfig{
			MintPrice:         model.ZeroAmounts(),
			WhitelistSlotCost: model.ZeroAmounts(),
		},
		Timing: model.TimingConfig{Paused: true},
		Misc:   model.MiscConfig{Collection: collection},
		Treasury: model.Treasury{
			Collected: model.ZeroAmounts(),
			Refunded:  model.ZeroAmounts(),
			Burned:    model.ZeroAmounts(),
		},
	}
	s.normalize()
	return s
}

func (s *State) normalize() {
	if s.Admins == nil {
		s.Admins = make(map[common.Address]bool)
	}
	if s.Pool == nil {
		s.Pool = pool.New()
	}
	if s.Tiers == nil {
		s.Tiers = tiers.New()
	}
	if s.Whitelist == nil {
		s.Whitelist = make(map[common.Address]uint64)
	}
	if s.WalletMints == nil {
		s.WalletMints = make(map[common.Address]uint64)
	}
	if s.Minted == nil {
		s.Minted = make(map[uint64]common.Address)
	}
	if s.Payments == nil {
		s.Payments = make(map[uint64]model.SerialPayment)
	}
	s.Economics.MintPrice = s.Economics.MintPrice.Clone()
	s.Economics.WhitelistSlotCost = s.Economics.WhitelistSlotCost.Clone()
	s.Treasury.Collected = s.Treasury.Collected.Clone()
	s.Treasury.Refunded = s.Treasury.Refunded.Clone()
	s.Treasury.Burned = s.Treasury.Burned.Clone()
}

// Encode serializes the state into its snapshot form.
func Encode(s *State) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("encode state: nil state")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot produced by Encode.
func Decode(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	s.normalize()
	return &s, nil
}

// Clone returns a deep copy that shares nothing with s.
func (s *State) Clone() (*State, error) {
	data, err := Encode(s)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// AdminList returns the admins sorted by address.
func (s *State) AdminList() []common.Address {
	out := make([]common.Address, 0, len(s.Admins))
	for admin, ok := range s.Admins {
		if ok {
			out = append(out, admin)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Hex() < out[j].Hex()
	})
	return out
}

// Owns reports whether serial of the collection is held by account.
func (s *State) Owns(account common.Address, serial uint64) bool {
	owner, ok := s.Minted[serial]
	return ok && owner == account
}

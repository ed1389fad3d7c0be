package events

import (
	"github.com/ethereum/go-ethereum/common"

	"poolMinter/internal/model"
)

const (
	TypeMintAllocated      = "MintAllocated"
	TypeRefunded           = "Refunded"
	TypePoolRegistered     = "PoolRegistered"
	TypePoolWithdrawn      = "PoolWithdrawn"
	TypeSacrificed         = "Sacrificed"
	TypeTierChanged        = "TierChanged"
	TypeWhitelistChanged   = "WhitelistChanged"
	TypeWhitelistPurchased = "WhitelistPurchased"
	TypeAdminChanged       = "AdminChanged"
	TypeConfigUpdated      = "ConfigUpdated"
)

// Tier change actions.
const (
	TierAdded   = "added"
	TierUpdated = "updated"
	TierRemoved = "removed"
)

// Config sections reported by ConfigUpdated.
const (
	SectionEconomics            = "economics"
	SectionTiming               = "timing"
	SectionSacrificeDestination = "sacrifice_destination"
	SectionLazyBurn             = "lazy_burn"
)

// MintAllocated is published once per successful mint with every serial it handed out.
type MintAllocated struct {
	Minter          common.Address `json:"minter"`
	Serials         []uint64       `json:"serials"`
	Paid            model.Amounts  `json:"paid"`
	AverageDiscount uint32         `json:"average_discount"`
	Remaining       uint64         `json:"remaining"`
}

func (MintAllocated) EventType() string { return TypeMintAllocated }

// Refunded is published once per refund batch.
type Refunded struct {
	Account common.Address `json:"account"`
	Serials []uint64       `json:"serials"`
	Amount  model.Amounts  `json:"amount"`
}

func (Refunded) EventType() string { return TypeRefunded }

type PoolRegistered struct {
	Admin   common.Address `json:"admin"`
	Serials []uint64       `json:"serials"`
}

func (PoolRegistered) EventType() string { return TypePoolRegistered }

// PoolWithdrawn reports serials pulled out of the pool and sent to Recipient.
type PoolWithdrawn struct {
	Admin     common.Address `json:"admin"`
	Recipient common.Address `json:"recipient"`
	Serials   []uint64       `json:"serials"`
}

func (PoolWithdrawn) EventType() string { return TypePoolWithdrawn }

// Sacrificed reports collection serials given up for the sacrifice discount.
// Burned is true when no destination was configured.
type Sacrificed struct {
	Account     common.Address `json:"account"`
	Destination common.Address `json:"destination"`
	Serials     []uint64       `json:"serials"`
	Burned      bool           `json:"burned"`
}

func (Sacrificed) EventType() string { return TypeSacrificed }

type TierChanged struct {
	Admin           common.Address `json:"admin"`
	Asset           common.Address `json:"asset"`
	Action          string         `json:"action"`
	Index           uint64         `json:"index"`
	DiscountPercent uint32         `json:"discount_percent"`
}

func (TierChanged) EventType() string { return TypeTierChanged }

// WhitelistChanged carries the account's slot balance after an admin change.
type WhitelistChanged struct {
	Admin   common.Address `json:"admin"`
	Account common.Address `json:"account"`
	Slots   uint64         `json:"slots"`
}

func (WhitelistChanged) EventType() string { return TypeWhitelistChanged }

type WhitelistPurchased struct {
	Account common.Address `json:"account"`
	Count   uint64         `json:"count"`
	Cost    model.Amounts  `json:"cost"`
}

func (WhitelistPurchased) EventType() string { return TypeWhitelistPurchased }

type AdminChanged struct {
	Admin   common.Address `json:"admin"`
	Account common.Address `json:"account"`
	Added   bool           `json:"added"`
}

func (AdminChanged) EventType() string { return TypeAdminChanged }

type ConfigUpdated struct {
	Admin   common.Address `json:"admin"`
	Section string         `json:"section"`
}

func (ConfigUpdated) EventType() string { return TypeConfigUpdated }

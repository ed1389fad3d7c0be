package model

import (
	"github.com/ethereum/go-ethereum/common"
)

// EconomicsConfig is the pricing snapshot. It is replaced as a whole on update.
type EconomicsConfig struct {
	MintPrice         Amounts `json:"mint_price"`
	WhitelistDiscount uint32  `json:"wl_discount"`
	SacrificeDiscount uint32  `json:"sacrifice_discount"`
	MaxPerMint        uint64  `json:"max_per_mint"`
	MaxPerWallet      uint64  `json:"max_per_wallet"`
	WhitelistSlotCost Amounts `json:"wl_slot_cost"`
}

// TimingConfig is the mint schedule snapshot. It is replaced as a whole on update.
type TimingConfig struct {
	StartTime        int64  `json:"start_time"`
	Paused           bool   `json:"paused"`
	RefundWindow     int64  `json:"refund_window"`
	RefundPercentage uint32 `json:"refund_percentage"`
	WhitelistOnly    bool   `json:"wl_only"`
}

// MiscConfig holds settings that are changed one field at a time.
type MiscConfig struct {
	Collection           common.Address `json:"collection"`
	SacrificeDestination common.Address `json:"sacrifice_destination"`
	LazyBurnPercentage   uint32         `json:"lazy_burn_percentage"`
}

// Treasury tracks money flowing through the minter.
type Treasury struct {
	Collected Amounts `json:"collected"`
	Refunded  Amounts `json:"refunded"`
	Burned    Amounts `json:"burned"`
}

// Balance returns collected minus refunded and burned.
func (t Treasury) Balance() Amounts {
	return t.Collected.Sub(t.Refunded).Sub(t.Burned)
}

package model

import "github.com/ethereum/go-ethereum/common"

// DiscountTier binds a flat discount to holders of one asset class.
type DiscountTier struct {
	Name              string         `json:"name"`
	Asset             common.Address `json:"asset"`
	DiscountPercent   uint32         `json:"discount_percent"`
	MaxUsesPerSerial  uint32         `json:"max_uses_per_serial"`
	MaxSerialsPerMint uint32         `json:"max_serials_per_mint"`
}

// SerialDiscountInfo describes the discount standing of one credential serial.
type SerialDiscountInfo struct {
	Asset           common.Address `json:"asset"`
	Serial          uint64         `json:"serial"`
	Eligible        bool           `json:"eligible"`
	TierIndex       int            `json:"tier_index"`
	DiscountPercent uint32         `json:"discount_percent"`
	UsesConsumed    uint32         `json:"uses_consumed"`
	UsesRemaining   uint32         `json:"uses_remaining"`
}

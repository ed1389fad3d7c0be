package model

import "github.com/ethereum/go-ethereum/common"

// ExpiryNever is reported as the refund expiry of a serial with no payment record.
const ExpiryNever int64 = 0

// SerialPayment records what was actually paid for one minted serial.
type SerialPayment struct {
	Serial        uint64         `json:"serial"`
	Minter        common.Address `json:"minter"`
	Paid          Amounts        `json:"paid"`
	MintTimestamp int64          `json:"mint_timestamp"`
}

// RefundExpiry returns the first instant at which the serial is no longer refundable.
func (p SerialPayment) RefundExpiry(window int64) int64 {
	return p.MintTimestamp + window
}

// RefundStatus is the refund eligibility of one serial.
type RefundStatus struct {
	Serial uint64 `json:"serial"`
	Owed   bool   `json:"owed"`
	Expiry int64  `json:"expiry"`
}

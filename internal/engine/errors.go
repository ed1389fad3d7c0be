package engine

import (
	"errors"

	"poolMinter/internal/pool"
	"poolMinter/internal/pricing"
	"poolMinter/internal/storage"
	"poolMinter/internal/tiers"
)

var (
	ErrNotAdmin                  = errors.New("engine: caller is not an admin")
	ErrCannotRemoveLastAdmin     = errors.New("engine: cannot remove the last admin")
	ErrAdminNotFound             = errors.New("engine: admin not found")
	ErrNotEnoughWLSlots          = errors.New("engine: not enough whitelist slots")
	ErrOwnershipMismatch         = errors.New("engine: caller does not own credential")
	ErrPaused                    = errors.New("engine: mint is paused")
	ErrNotStarted                = errors.New("engine: mint has not started")
	ErrMaxPerMintExceeded        = errors.New("engine: max per mint exceeded")
	ErrMaxPerWalletExceeded      = errors.New("engine: max per wallet exceeded")
	ErrNeverMinted               = errors.New("engine: serial was never minted from the pool")
	ErrRefundExpired             = errors.New("engine: refund window expired")
	ErrInsufficientPayment       = errors.New("engine: insufficient payment")
	ErrLengthMismatch            = errors.New("engine: argument length mismatch")
	ErrInvalidPercentage         = errors.New("engine: percentage out of range")
	ErrInvalidConfig             = errors.New("engine: invalid configuration")
	ErrWhitelistPurchaseDisabled = errors.New("engine: whitelist purchase disabled")

	ErrInsufficientSupply       = pool.ErrInsufficientSupply
	ErrAlreadyRegistered        = pool.ErrAlreadyRegistered
	ErrDuplicateInBatch         = pool.ErrDuplicateInBatch
	ErrOutOfRange               = pool.ErrOutOfRange
	ErrNotAvailable             = pool.ErrNotAvailable
	ErrInvalidDiscount          = tiers.ErrInvalidDiscount
	ErrInvalidTier              = tiers.ErrInvalidTier
	ErrTierExists               = tiers.ErrTierExists
	ErrTierNotFound             = tiers.ErrTierNotFound
	ErrInvalidQuantity          = pricing.ErrInvalidQuantity
	ErrSacrificeExceedsQuantity = pricing.ErrSacrificeExceedsQuantity
	ErrNotInitialized           = storage.ErrNotInitialized
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrNotAdmin, "NotAdmin"},
	{ErrCannotRemoveLastAdmin, "CannotRemoveLastAdmin"},
	{ErrAdminNotFound, "AdminNotFound"},
	{ErrNotEnoughWLSlots, "NotEnoughWLSlots"},
	{ErrOwnershipMismatch, "OwnershipMismatch"},
	{ErrPaused, "Paused"},
	{ErrNotStarted, "NotStarted"},
	{ErrMaxPerMintExceeded, "MaxPerMintExceeded"},
	{ErrMaxPerWalletExceeded, "MaxPerWalletExceeded"},
	{ErrNeverMinted, "NeverMinted"},
	{ErrRefundExpired, "RefundExpired"},
	{ErrInsufficientPayment, "InsufficientPayment"},
	{ErrLengthMismatch, "LengthMismatch"},
	{ErrInvalidPercentage, "InvalidPercentage"},
	{ErrInvalidConfig, "InvalidConfig"},
	{ErrWhitelistPurchaseDisabled, "WhitelistPurchaseDisabled"},
	{ErrInsufficientSupply, "InsufficientSupply"},
	{ErrAlreadyRegistered, "AlreadyRegistered"},
	{ErrDuplicateInBatch, "DuplicateInBatch"},
	{ErrOutOfRange, "OutOfRange"},
	{ErrNotAvailable, "NotAvailable"},
	{ErrInvalidDiscount, "InvalidDiscount"},
	{ErrInvalidTier, "InvalidTier"},
	{ErrTierExists, "TierExists"},
	{ErrTierNotFound, "TierNotFound"},
	{ErrInvalidQuantity, "InvalidQuantity"},
	{ErrSacrificeExceedsQuantity, "SacrificeExceedsQuantity"},
	{ErrNotInitialized, "NotInitialized"},
}

// Kind returns the stable name of the error class err belongs to, "Internal"
// for errors outside the minter taxonomy and "" for nil.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}

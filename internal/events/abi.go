package events

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const minterABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "minter", "type": "address"},
      {"indexed": false, "name": "serials", "type": "uint256[]"},
      {"indexed": false, "name": "paidHbar", "type": "uint256"},
      {"indexed": false, "name": "paidLazy", "type": "uint256"},
      {"indexed": false, "name": "averageDiscount", "type": "uint8"},
      {"indexed": false, "name": "remaining", "type": "uint256"}
    ],
    "name": "MintAllocated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "account", "type": "address"},
      {"indexed": false, "name": "serials", "type": "uint256[]"},
      {"indexed": false, "name": "refundHbar", "type": "uint256"},
      {"indexed": false, "name": "refundLazy", "type": "uint256"}
    ],
    "name": "Refunded",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "admin", "type": "address"},
      {"indexed": false, "name": "serials", "type": "uint256[]"}
    ],
    "name": "PoolRegistered",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "admin", "type": "address"},
      {"indexed": true, "name": "recipient", "type": "address"},
      {"indexed": false, "name": "serials", "type": "uint256[]"}
    ],
    "name": "PoolWithdrawn",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "account", "type": "address"},
      {"indexed": true, "name": "destination", "type": "address"},
      {"indexed": false, "name": "serials", "type": "uint256[]"},
      {"indexed": false, "name": "burned", "type": "bool"}
    ],
    "name": "Sacrificed",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "admin", "type": "address"},
      {"indexed": true, "name": "asset", "type": "address"},
      {"indexed": false, "name": "action", "type": "string"},
      {"indexed": false, "name": "index", "type": "uint256"},
      {"indexed": false, "name": "discountPercent", "type": "uint8"}
    ],
    "name": "TierChanged",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "admin", "type": "address"},
      {"indexed": true, "name": "account", "type": "address"},
      {"indexed": false, "name": "slots", "type": "uint256"}
    ],
    "name": "WhitelistChanged",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "account", "type": "address"},
      {"indexed": false, "name": "count", "type": "uint256"},
      {"indexed": false, "name": "costHbar", "type": "uint256"},
      {"indexed": false, "name": "costLazy", "type": "uint256"}
    ],
    "name": "WhitelistPurchased",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "admin", "type": "address"},
      {"indexed": true, "name": "account", "type": "address"},
      {"indexed": false, "name": "added", "type": "bool"}
    ],
    "name": "AdminChanged",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "admin", "type": "address"},
      {"indexed": false, "name": "section", "type": "string"}
    ],
    "name": "ConfigUpdated",
    "type": "event"
  }
]`

var (
	minterABI     abi.ABI
	minterABIOnce sync.Once
	minterABIErr  error
)

// MinterABI returns the parsed event ABI used to encode log records.
func MinterABI() (abi.ABI, error) {
	minterABIOnce.Do(func() {
		minterABI, minterABIErr = abi.JSON(strings.NewReader(minterABIJSON))
	})
	return minterABI, minterABIErr
}

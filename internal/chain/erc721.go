package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolMinter/internal/retry"
)

const erc721ABIJSON = `[
  {"inputs": [{"name": "tokenId", "type": "uint256"}], "name": "ownerOf", "outputs": [{"name": "owner", "type": "address"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc721ABI     abi.ABI
	erc721ABIOnce sync.Once
	erc721ABIErr  error
)

// ERC721ABI returns the parsed subset of the ERC-721 ABI used for ownership checks.
func ERC721ABI() (abi.ABI, error) {
	erc721ABIOnce.Do(func() {
		erc721ABI, erc721ABIErr = abi.JSON(strings.NewReader(erc721ABIJSON))
	})
	return erc721ABI, erc721ABIErr
}

// OwnerVerifier answers ownership questions with ERC-721 ownerOf calls.
type OwnerVerifier struct {
	caller ethereum.ContractCaller
	policy retry.Policy
	logger *zap.Logger
}

// VerifierOptions tunes RPC retries.
type VerifierOptions struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

func NewOwnerVerifier(caller ethereum.ContractCaller, opts VerifierOptions, logger *zap.Logger) *OwnerVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OwnerVerifier{
		caller: caller,
		policy: retry.Policy{
			MaxRetries: opts.MaxRetries,
			BaseDelay:  opts.RetryBackoff,
			Retryable:  func(err error) bool { return !isRevert(err) },
		},
		logger: logger,
	}
}

// OwnerOf returns the owner of asset #serial at the latest block. A reverted
// call, as for a token that does not exist, yields the zero address.
func (v *OwnerVerifier) OwnerOf(ctx context.Context, asset common.Address, serial uint64) (common.Address, error) {
	parsed, err := ERC721ABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse erc721 abi: %w", err)
	}
	data, err := parsed.Pack("ownerOf", new(big.Int).SetUint64(serial))
	if err != nil {
		return common.Address{}, fmt.Errorf("pack ownerOf: %w", err)
	}
	msg := ethereum.CallMsg{To: &asset, Data: data}

	var resp []byte
	err = retry.Do(ctx, v.policy, func(ctx context.Context) error {
		out, err := v.caller.CallContract(ctx, msg, nil)
		if err != nil {
			return err
		}
		resp = out
		return nil
	})
	if err != nil {
		if isRevert(err) {
			v.logger.Debug("ownerOf reverted", zap.String("asset", asset.Hex()), zap.Uint64("serial", serial), zap.Error(err))
			return common.Address{}, nil
		}
		return common.Address{}, fmt.Errorf("call ownerOf: %w", err)
	}
	if len(resp) == 0 {
		return common.Address{}, nil
	}

	values, err := parsed.Unpack("ownerOf", resp)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack ownerOf: %w", err)
	}
	if len(values) == 0 {
		return common.Address{}, fmt.Errorf("unpack ownerOf: empty result")
	}
	owner, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected ownerOf type %T", values[0])
	}
	return owner, nil
}

func isRevert(err error) bool {
	if err == nil {
		return false
	}
	var dataErr interface{ ErrorData() interface{} }
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

type fakeCaller struct {
	calls   int
	fail    int
	failErr error
	owners  map[uint64]common.Address
	to      common.Address
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	if f.calls <= f.fail {
		return nil, f.failErr
	}
	if msg.To != nil {
		f.to = *msg.To
	}
	parsed, err := ERC721ABI()
	if err != nil {
		return nil, err
	}
	method := parsed.Methods["ownerOf"]
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	serial := args[0].(*big.Int).Uint64()
	owner, ok := f.owners[serial]
	if !ok {
		return nil, errors.New("execution reverted: ERC721: invalid token ID")
	}
	return method.Outputs.Pack(owner)
}

func TestOwnerVerifierOwnerOf(t *testing.T) {
	asset := common.HexToAddress("0x1111111111111111111111111111111111111111")
	holder := common.HexToAddress("0x2222222222222222222222222222222222222222")
	caller := &fakeCaller{owners: map[uint64]common.Address{7: holder}}
	verifier := NewOwnerVerifier(caller, VerifierOptions{}, nil)

	owner, err := verifier.OwnerOf(context.Background(), asset, 7)
	if err != nil {
		t.Fatalf("owner of: %v", err)
	}
	if owner != holder {
		t.Fatalf("expected %s, got %s", holder.Hex(), owner.Hex())
	}
	if caller.to != asset {
		t.Fatalf("call sent to %s", caller.to.Hex())
	}
}

func TestOwnerVerifierRevertIsZeroAddress(t *testing.T) {
	caller := &fakeCaller{owners: map[uint64]common.Address{}}
	verifier := NewOwnerVerifier(caller, VerifierOptions{MaxRetries: 3, RetryBackoff: time.Millisecond}, nil)

	owner, err := verifier.OwnerOf(context.Background(), common.Address{1}, 99)
	if err != nil {
		t.Fatalf("owner of: %v", err)
	}
	if owner != (common.Address{}) {
		t.Fatalf("expected zero address, got %s", owner.Hex())
	}
	if caller.calls != 1 {
		t.Fatalf("revert should not be retried, got %d calls", caller.calls)
	}
}

func TestOwnerVerifierRetriesTransportErrors(t *testing.T) {
	holder := common.HexToAddress("0x3333333333333333333333333333333333333333")
	caller := &fakeCaller{
		fail:    2,
		failErr: errors.New("connection reset"),
		owners:  map[uint64]common.Address{1: holder},
	}
	verifier := NewOwnerVerifier(caller, VerifierOptions{MaxRetries: 2, RetryBackoff: time.Millisecond}, nil)

	owner, err := verifier.OwnerOf(context.Background(), common.Address{1}, 1)
	if err != nil {
		t.Fatalf("owner of: %v", err)
	}
	if owner != holder || caller.calls != 3 {
		t.Fatalf("owner %s after %d calls", owner.Hex(), caller.calls)
	}

	caller = &fakeCaller{fail: 5, failErr: errors.New("connection reset")}
	verifier = NewOwnerVerifier(caller, VerifierOptions{MaxRetries: 1, RetryBackoff: time.Millisecond}, nil)
	if _, err := verifier.OwnerOf(context.Background(), common.Address{1}, 1); err == nil {
		t.Fatalf("expected error after retries")
	}
}

package state

import (
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"poolMinter/internal/model"
)

var (
	admin      = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	collection = common.HexToAddress("0x0000000000000000000000000000000000000c01")
	buyer      = common.HexToAddress("0x0000000000000000000000000000000000000b01")
)

func TestNewStartsPaused(t *testing.T) {
	s := New(admin, collection)
	if !s.Timing.Paused {
		t.Fatalf("new state should be paused")
	}
	if !reflect.DeepEqual(s.AdminList(), []common.Address{admin}) {
		t.Fatalf("admin list mismatch: %v", s.AdminList())
	}
	if s.Misc.Collection != collection {
		t.Fatalf("collection mismatch: %s", s.Misc.Collection.Hex())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New(admin, collection)
	if err := s.Pool.Register([]uint64{1, 2, 3}); err != nil {
		t.Fatalf("register: %v", err)
	}
	s.Whitelist[buyer] = 2
	s.Payments[1] = model.SerialPayment{Serial: 1, Minter: buyer, Paid: model.NewAmounts(5, 1), MintTimestamp: 10}

	c, err := s.Clone()
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if _, err := c.Pool.Allocate(1, nil); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	c.Whitelist[buyer] = 0
	c.Treasury.Collected = c.Treasury.Collected.Add(model.NewAmounts(1, 1))

	if s.Pool.Remaining() != 3 || s.Whitelist[buyer] != 2 || !s.Treasury.Collected.IsZero() {
		t.Fatalf("clone mutation leaked into original")
	}
	if !c.Payments[1].Paid.Equal(model.NewAmounts(5, 1)) {
		t.Fatalf("payment not cloned: %+v", c.Payments[1])
	}
}

func TestDecodeFillsMissingCollections(t *testing.T) {
	s, err := Decode([]byte(`{"admins":null,"version":4}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Pool == nil || s.Tiers == nil || s.Whitelist == nil || s.Minted == nil || s.Payments == nil {
		t.Fatalf("decode should initialize collections: %+v", s)
	}
	if s.Version != 4 {
		t.Fatalf("version mismatch: %d", s.Version)
	}
	if !s.Treasury.Balance().IsZero() {
		t.Fatalf("treasury should default to zero")
	}
}

func TestOwns(t *testing.T) {
	s := New(admin, collection)
	s.Minted[7] = buyer
	if !s.Owns(buyer, 7) || s.Owns(admin, 7) || s.Owns(buyer, 8) {
		t.Fatalf("ownership mismatch")
	}
}

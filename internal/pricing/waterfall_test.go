package pricing

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"poolMinter/internal/model"
	"poolMinter/internal/tiers"
)

var (
	assetA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	assetB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	assetX = common.HexToAddress("0x00000000000000000000000000000000000000ff")
)

func testEconomics() model.EconomicsConfig {
	return model.EconomicsConfig{
		MintPrice:         model.NewAmounts(100, 10),
		WhitelistDiscount: 20,
		SacrificeDiscount: 40,
	}
}

func newRegistry(t *testing.T, list ...model.DiscountTier) *tiers.Registry {
	t.Helper()
	r := tiers.New()
	for _, tr := range list {
		if _, err := r.Add(tr); err != nil {
			t.Fatalf("add tier: %v", err)
		}
	}
	return r
}

func TestComputeHolderThenFullPrice(t *testing.T) {
	reg := newRegistry(t, model.DiscountTier{Name: "a", Asset: assetA, DiscountPercent: 10, MaxUsesPerSerial: 1})
	econ := testEconomics()
	econ.MintPrice = model.NewAmounts(100, 0)

	q, err := Compute(econ, reg, Request{
		Quantity: 2,
		Holdings: []Holding{{Asset: assetA, Serials: []uint64{77}}},
	}, Options{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if !q.Total.Equal(model.NewAmounts(190, 0)) {
		t.Fatalf("total mismatch: %s", q.Total)
	}
	if q.HolderUnits != 1 || q.WhitelistUnits != 0 || q.FullPriceUnits != 1 {
		t.Fatalf("stage units mismatch: %+v", q)
	}
	want := []Consumption{{Asset: assetA, Serial: 77, TierIndex: 0, Uses: 1}}
	if !reflect.DeepEqual(q.Consumption, want) {
		t.Fatalf("consumption mismatch: %+v", q.Consumption)
	}
	if q.AverageDiscount != 5 {
		t.Fatalf("average discount mismatch: %d", q.AverageDiscount)
	}
	// Pricing never mutates the registry.
	if reg.Remaining(assetA, 77) != 1 {
		t.Fatalf("compute must not consume usage")
	}
}

func TestComputeSacrificeSupersedesOtherStages(t *testing.T) {
	reg := newRegistry(t, model.DiscountTier{Name: "a", Asset: assetA, DiscountPercent: 10, MaxUsesPerSerial: 5})

	q, err := Compute(testEconomics(), reg, Request{
		Quantity:       1,
		SacrificeCount: 1,
		Holdings:       []Holding{{Asset: assetA, Serials: []uint64{1}}},
		WhitelistSlots: 3,
	}, Options{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if q.AverageDiscount != 40 {
		t.Fatalf("expected sacrifice discount only, got %d", q.AverageDiscount)
	}
	if !q.SacrificeApplied || q.HolderUnits != 0 || q.WhitelistUnits != 0 || len(q.Consumption) != 0 {
		t.Fatalf("sacrifice must stop the waterfall: %+v", q)
	}
	if !q.Total.Equal(model.NewAmounts(60, 6)) {
		t.Fatalf("total mismatch: %s", q.Total)
	}
}

func TestComputeSacrificeAppliesToAllUnits(t *testing.T) {
	q, err := Compute(testEconomics(), tiers.New(), Request{Quantity: 3, SacrificeCount: 1}, Options{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !q.Total.Equal(model.NewAmounts(180, 18)) {
		t.Fatalf("total mismatch: %s", q.Total)
	}

	if _, err := Compute(testEconomics(), tiers.New(), Request{Quantity: 1, SacrificeCount: 2}, Options{}); !errors.Is(err, ErrSacrificeExceedsQuantity) {
		t.Fatalf("expected sacrifice exceeds quantity, got %v", err)
	}
}

func TestComputeWhitelistStage(t *testing.T) {
	q, err := Compute(testEconomics(), tiers.New(), Request{Quantity: 3, WhitelistSlots: 2}, Options{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// 2 units at 80/8 and one at 100/10.
	if !q.Total.Equal(model.NewAmounts(260, 26)) {
		t.Fatalf("total mismatch: %s", q.Total)
	}
	if q.WhitelistUnits != 2 || q.FullPriceUnits != 1 {
		t.Fatalf("stage units mismatch: %+v", q)
	}
	if q.AverageDiscount != 13 {
		t.Fatalf("average discount mismatch: %d", q.AverageDiscount)
	}
}

func TestComputeZeroQuantity(t *testing.T) {
	q, err := Compute(testEconomics(), tiers.New(), Request{Quantity: 0, SacrificeCount: 4}, Options{})
	if err != nil {
		t.Fatalf("zero quantity should not fail: %v", err)
	}
	if !q.Total.IsZero() || len(q.Lines) != 0 {
		t.Fatalf("zero quantity should cost nothing: %+v", q)
	}

	if _, err := Compute(testEconomics(), tiers.New(), Request{Quantity: -1}, Options{}); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
}

func TestComputeMultiUseSerialAndCaps(t *testing.T) {
	reg := newRegistry(t, model.DiscountTier{
		Name:              "a",
		Asset:             assetA,
		DiscountPercent:   50,
		MaxUsesPerSerial:  2,
		MaxSerialsPerMint: 1,
	})

	q, err := Compute(testEconomics(), reg, Request{
		Quantity: 4,
		Holdings: []Holding{{Asset: assetA, Serials: []uint64{1, 1, 2}}},
	}, Options{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// Serial 1 covers two units; serial 2 is blocked by the per-mint serial cap.
	want := []Consumption{{Asset: assetA, Serial: 1, TierIndex: 0, Uses: 2}}
	if !reflect.DeepEqual(q.Consumption, want) {
		t.Fatalf("consumption mismatch: %+v", q.Consumption)
	}
	if q.HolderUnits != 2 || q.FullPriceUnits != 2 {
		t.Fatalf("stage units mismatch: %+v", q)
	}
}

func TestComputeIgnoresUntieredAndExhausted(t *testing.T) {
	reg := newRegistry(t, model.DiscountTier{Name: "a", Asset: assetA, DiscountPercent: 10, MaxUsesPerSerial: 1})
	if err := reg.Consume(assetA, 5, 1); err != nil {
		t.Fatalf("consume: %v", err)
	}

	q, err := Compute(testEconomics(), reg, Request{
		Quantity: 1,
		Holdings: []Holding{{Asset: assetX, Serials: []uint64{1}}, {Asset: assetA, Serials: []uint64{5}}},
	}, Options{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if q.HolderUnits != 0 || q.FullPriceUnits != 1 {
		t.Fatalf("expected full price only: %+v", q)
	}
}

func TestComputeHolderOrderPolicies(t *testing.T) {
	reg := newRegistry(t,
		model.DiscountTier{Name: "low", Asset: assetA, DiscountPercent: 10, MaxUsesPerSerial: 1},
		model.DiscountTier{Name: "high", Asset: assetB, DiscountPercent: 30, MaxUsesPerSerial: 1},
	)
	req := Request{
		Quantity: 1,
		Holdings: []Holding{
			{Asset: assetB, Serials: []uint64{2}},
			{Asset: assetA, Serials: []uint64{1}},
		},
	}

	cases := []struct {
		order HolderOrder
		asset common.Address
	}{
		{OrderTierIndex, assetA},
		{OrderDiscountDesc, assetB},
		{OrderAsSupplied, assetB},
	}
	for _, tc := range cases {
		q, err := Compute(testEconomics(), reg, req, Options{HolderOrder: tc.order})
		if err != nil {
			t.Fatalf("%s: compute: %v", tc.order, err)
		}
		if len(q.Consumption) != 1 || q.Consumption[0].Asset != tc.asset {
			t.Fatalf("%s: consumed %+v, want asset %s", tc.order, q.Consumption, tc.asset.Hex())
		}
	}
}

func TestComputeIsRepeatable(t *testing.T) {
	reg := newRegistry(t, model.DiscountTier{Name: "a", Asset: assetA, DiscountPercent: 15, MaxUsesPerSerial: 3})
	req := Request{
		Quantity:       5,
		Holdings:       []Holding{{Asset: assetA, Serials: []uint64{9}}},
		WhitelistSlots: 1,
	}

	first, err := Compute(testEconomics(), reg, req, Options{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := Compute(testEconomics(), reg, req, Options{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("quotes differ: %+v vs %+v", first, second)
	}
}

func TestParseHolderOrder(t *testing.T) {
	got, err := ParseHolderOrder("")
	if err != nil || got != OrderTierIndex {
		t.Fatalf("default order mismatch: %q %v", got, err)
	}
	got, err = ParseHolderOrder(" Discount-Desc ")
	if err != nil || got != OrderDiscountDesc {
		t.Fatalf("order mismatch: %q %v", got, err)
	}
	if _, err := ParseHolderOrder("random"); !errors.Is(err, ErrUnknownHolderOrder) {
		t.Fatalf("expected unknown order, got %v", err)
	}
}

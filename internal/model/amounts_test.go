package model

import (
	"math/big"
	"testing"
)

func TestAmountsPercentFloors(t *testing.T) {
	got := NewAmounts(999, 7).Percent(90)
	if got.Hbar.Int64() != 899 || got.Lazy.Int64() != 6 {
		t.Fatalf("unexpected percent: %s", got)
	}
}

func TestAmountsCovers(t *testing.T) {
	if !NewAmounts(100, 5).Covers(NewAmounts(100, 5)) {
		t.Fatalf("equal amounts should cover")
	}
	if NewAmounts(100, 4).Covers(NewAmounts(100, 5)) {
		t.Fatalf("short lazy should not cover")
	}
	if !(Amounts{}).Covers(Amounts{}) {
		t.Fatalf("nil amounts should be treated as zero")
	}
}

func TestSplitEvenlyKeepsTotal(t *testing.T) {
	total := NewAmounts(190, 11)
	shares := SplitEvenly(total, 3)
	if len(shares) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(shares))
	}

	sum := ZeroAmounts()
	for _, share := range shares {
		sum = sum.Add(share)
	}
	if !sum.Equal(total) {
		t.Fatalf("shares sum %s != total %s", sum, total)
	}
	if shares[0].Hbar.Cmp(big.NewInt(64)) != 0 || shares[2].Hbar.Cmp(big.NewInt(63)) != 0 {
		t.Fatalf("unexpected hbar shares: %s %s %s", shares[0], shares[1], shares[2])
	}
}

func TestTreasuryBalance(t *testing.T) {
	tr := Treasury{
		Collected: NewAmounts(1000, 100),
		Refunded:  NewAmounts(300, 0),
		Burned:    NewAmounts(0, 25),
	}
	if !tr.Balance().Equal(NewAmounts(700, 75)) {
		t.Fatalf("unexpected balance: %s", tr.Balance())
	}
}

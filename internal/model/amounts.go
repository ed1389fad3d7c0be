package model

import (
	"fmt"
	"math/big"
)

// Amounts holds a value in each of the two payment currencies.
type Amounts struct {
	Hbar *big.Int `json:"hbar"`
	Lazy *big.Int `json:"lazy"`
}

func NewAmounts(hbar, lazy int64) Amounts {
	return Amounts{Hbar: big.NewInt(hbar), Lazy: big.NewInt(lazy)}
}

// ZeroAmounts returns an Amounts value with both currencies set to zero.
func ZeroAmounts() Amounts {
	return NewAmounts(0, 0)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Clone returns a deep copy with nil values replaced by zero.
func (a Amounts) Clone() Amounts {
	return Amounts{Hbar: orZero(a.Hbar), Lazy: orZero(a.Lazy)}
}

func (a Amounts) Add(b Amounts) Amounts {
	out := a.Clone()
	out.Hbar.Add(out.Hbar, orZero(b.Hbar))
	out.Lazy.Add(out.Lazy, orZero(b.Lazy))
	return out
}

func (a Amounts) Sub(b Amounts) Amounts {
	out := a.Clone()
	out.Hbar.Sub(out.Hbar, orZero(b.Hbar))
	out.Lazy.Sub(out.Lazy, orZero(b.Lazy))
	return out
}

// MulUint multiplies both currencies by n.
func (a Amounts) MulUint(n uint64) Amounts {
	out := a.Clone()
	factor := new(big.Int).SetUint64(n)
	out.Hbar.Mul(out.Hbar, factor)
	out.Lazy.Mul(out.Lazy, factor)
	return out
}

// Percent returns floor(a * pct / 100) in each currency.
func (a Amounts) Percent(pct uint32) Amounts {
	out := a.Clone()
	num := big.NewInt(int64(pct))
	hundred := big.NewInt(100)
	out.Hbar.Mul(out.Hbar, num).Quo(out.Hbar, hundred)
	out.Lazy.Mul(out.Lazy, num).Quo(out.Lazy, hundred)
	return out
}

// Covers reports whether a is at least b in every currency.
func (a Amounts) Covers(b Amounts) bool {
	return orZero(a.Hbar).Cmp(orZero(b.Hbar)) >= 0 && orZero(a.Lazy).Cmp(orZero(b.Lazy)) >= 0
}

func (a Amounts) Equal(b Amounts) bool {
	return orZero(a.Hbar).Cmp(orZero(b.Hbar)) == 0 && orZero(a.Lazy).Cmp(orZero(b.Lazy)) == 0
}

func (a Amounts) IsZero() bool {
	return orZero(a.Hbar).Sign() == 0 && orZero(a.Lazy).Sign() == 0
}

// IsNegative reports whether either currency is below zero.
func (a Amounts) IsNegative() bool {
	return orZero(a.Hbar).Sign() < 0 || orZero(a.Lazy).Sign() < 0
}

func (a Amounts) String() string {
	return fmt.Sprintf("hbar=%s lazy=%s", orZero(a.Hbar), orZero(a.Lazy))
}

// SplitEvenly divides total into n shares whose sum is exactly total. The
// remainder of the integer division goes one unit at a time to the first
// shares.
func SplitEvenly(total Amounts, n int) []Amounts {
	if n <= 0 {
		return nil
	}
	total = total.Clone()
	count := big.NewInt(int64(n))
	hbarShare, hbarRem := new(big.Int).QuoRem(total.Hbar, count, new(big.Int))
	lazyShare, lazyRem := new(big.Int).QuoRem(total.Lazy, count, new(big.Int))
	extraHbar := hbarRem.Int64()
	extraLazy := lazyRem.Int64()

	out := make([]Amounts, n)
	for i := range out {
		share := Amounts{Hbar: new(big.Int).Set(hbarShare), Lazy: new(big.Int).Set(lazyShare)}
		if int64(i) < extraHbar {
			share.Hbar.Add(share.Hbar, big.NewInt(1))
		}
		if int64(i) < extraLazy {
			share.Lazy.Add(share.Lazy, big.NewInt(1))
		}
		out[i] = share
	}
	return out
}

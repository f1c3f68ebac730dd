package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	ErrNilAsset        = errors.New("asset: nil asset")
	ErrNilRaw          = errors.New("asset: nil raw value")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrAmountOverflow  = errors.New("asset: amount exceeds 256 bits")
	ErrTooManyDecimals = errors.New("asset: too many decimal places for asset")
	ErrDivisionByZero  = errors.New("asset: division by zero")
)

// Amount is a token quantity in the token's smallest unit. Like an ERC-20
// balance it is bounded to [0, 2^256).
type Amount struct {
	raw   uint256.Int
	asset *Asset
}

// NewAmount panics on a nil asset or a raw value outside the uint256 range.
func NewAmount(a *Asset, raw *big.Int) Amount {
	if a == nil {
		panic(ErrNilAsset)
	}
	amt, err := fromBig(a, raw)
	if err != nil {
		panic(err)
	}
	return amt
}

// NewAmountFromUint64 is NewAmount for small literals.
func NewAmountFromUint64(a *Asset, raw uint64) Amount {
	if a == nil {
		panic(ErrNilAsset)
	}
	amt := Amount{asset: a}
	amt.raw.SetUint64(raw)
	return amt
}

// Zero returns an empty amount of a.
func Zero(a *Asset) Amount {
	return NewAmountFromUint64(a, 0)
}

func fromBig(a *Asset, raw *big.Int) (Amount, error) {
	switch {
	case raw == nil:
		return Amount{}, ErrNilRaw
	case raw.Sign() < 0:
		return Amount{}, ErrNegativeAmount
	}
	amt := Amount{asset: a}
	if overflow := amt.raw.SetFromBig(raw); overflow {
		return Amount{}, ErrAmountOverflow
	}
	return amt, nil
}

// Raw returns the value as a fresh big.Int.
func (a Amount) Raw() *big.Int { return a.raw.ToBig() }

func (a Amount) Asset() *Asset { return a.asset }

func (a Amount) IsZero() bool { return a.raw.IsZero() }

func (a Amount) IsPositive() bool { return !a.raw.IsZero() }

// Rescale re-expresses the amount in to's precision, flooring when to has
// fewer decimals. It panics if widening overflows 256 bits.
func (a Amount) Rescale(to *Asset) Amount {
	return NewAmount(to, Rescale(a.Raw(), a.asset.Decimals(), to.Decimals()))
}

// Less reports whether a < b. Both must be denominated in the same token.
func (a Amount) Less(b Amount) (bool, error) {
	if a.asset == nil || b.asset == nil {
		return false, ErrNilAsset
	}
	if !a.asset.Equals(b.asset) {
		return false, fmt.Errorf("asset: cannot compare %s with %s", a.asset.Symbol(), b.asset.Symbol())
	}
	return a.raw.Lt(&b.raw), nil
}

// ToDecimal shifts the raw value by the token's decimals. Display only.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw.ToBig(), -int32(a.asset.Decimals()))
}

// String renders "1.5 WETH".
func (a Amount) String() string {
	if a.asset == nil {
		return "0 ???"
	}
	return a.ToDecimal().String() + " " + a.asset.Symbol()
}

// ParseString reads a human decimal such as "1.5" into a's smallest unit.
// Precision beyond the token's decimals is rejected, not rounded.
func ParseString(a *Asset, s string) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("asset: invalid decimal string: %w", err)
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	scaled := d.Shift(int32(a.Decimals()))
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, ErrTooManyDecimals
	}
	return fromBig(a, scaled.BigInt())
}

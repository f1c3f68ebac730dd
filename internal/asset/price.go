package asset

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PricePrecision is the number of decimals kept in a Price's fixed-point rate.
const PricePrecision = 18

// Price is the rate of quote units per whole base unit, as implied by one
// quote. WETH/USDC at 2850.25 is held as 2850250000000000000000.
type Price struct {
	rate        *big.Int
	base, quote *Asset
}

// ImpliedPrice derives the per-unit rate of out for in. A zero input yields
// a zero rate.
func ImpliedPrice(in, out Amount) Price {
	if in.Asset() == nil || out.Asset() == nil {
		panic(ErrNilAsset)
	}
	p := Price{rate: new(big.Int), base: in.Asset(), quote: out.Asset()}
	if in.IsZero() {
		return p
	}
	// (out / 10^qd) / (in / 10^bd) * 10^18
	num := new(big.Int).Mul(out.Raw(), Pow10(in.Asset().Decimals()))
	den := new(big.Int).Mul(in.Raw(), Pow10(out.Asset().Decimals()))
	p.rate = MulDiv(num, Pow10(PricePrecision), den)
	return p
}

// Rate is the price as a decimal, for display.
func (p Price) Rate() decimal.Decimal {
	if p.rate == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(p.rate, -PricePrecision)
}

// Pair labels the price "BASE/QUOTE".
func (p Price) Pair() string {
	if p.base == nil || p.quote == nil {
		return "???/???"
	}
	return p.base.Symbol() + "/" + p.quote.Symbol()
}

// Invert swaps base and quote, flooring the new rate.
func (p Price) Invert() Price {
	inv := Price{rate: new(big.Int), base: p.quote, quote: p.base}
	if p.rate == nil || p.rate.Sign() == 0 {
		return inv
	}
	one := Pow10(PricePrecision)
	inv.rate = MulDiv(one, one, p.rate)
	return inv
}

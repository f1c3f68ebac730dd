package asset

import "math/big"

var pow10Table [MaxDecimals + 1]*big.Int

func init() {
	ten := big.NewInt(10)
	pow10Table[0] = big.NewInt(1)
	for i := 1; i <= MaxDecimals; i++ {
		pow10Table[i] = new(big.Int).Mul(pow10Table[i-1], ten)
	}
}

// Pow10 returns 10^n. The returned value must not be mutated.
func Pow10(n uint8) *big.Int {
	if int(n) > MaxDecimals {
		panic("asset: decimals out of range")
	}
	return pow10Table[n]
}

// Rescale converts raw from a precision of from fractional digits to one of
// to fractional digits: floor(raw * 10^to / 10^from). Intermediate products are
// unbounded so no realistic amount can overflow. raw must be non-negative.
func Rescale(raw *big.Int, from, to uint8) *big.Int {
	if raw == nil {
		panic(ErrNilRaw)
	}
	if raw.Sign() < 0 {
		panic(ErrNegativeAmount)
	}

	switch {
	case from == to:
		return new(big.Int).Set(raw)
	case to > from:
		return new(big.Int).Mul(raw, Pow10(to-from))
	default:
		return new(big.Int).Quo(raw, Pow10(from-to))
	}
}

// MulDiv returns floor(x * num / den) for non-negative operands.
func MulDiv(x, num, den *big.Int) *big.Int {
	if den.Sign() == 0 {
		panic(ErrDivisionByZero)
	}
	if x.Sign() < 0 || num.Sign() < 0 || den.Sign() < 0 {
		panic(ErrNegativeAmount)
	}
	p := new(big.Int).Mul(x, num)
	return p.Quo(p, den)
}

package domain

import (
	"math/big"

	"github.com/fd1az/multiprice-oracle/internal/apperror"
)

// BufferScale is the fixed-point unit of a BufferFraction (1.0).
var BufferScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// BufferFraction is a discount in [0, 1] scaled by 1e18.
type BufferFraction struct {
	scaled *big.Int
}

// NewBufferFraction validates scaled. Nil means no buffer.
func NewBufferFraction(scaled *big.Int) (BufferFraction, error) {
	if scaled == nil {
		return BufferFraction{scaled: new(big.Int)}, nil
	}
	if scaled.Sign() < 0 || scaled.Cmp(BufferScale) > 0 {
		return BufferFraction{}, InvalidParameter(apperror.MsgBufferOutOfRange, "buffer="+scaled.String())
	}
	return BufferFraction{scaled: new(big.Int).Set(scaled)}, nil
}

// Scaled returns a copy of the 1e18-scaled value.
func (b BufferFraction) Scaled() *big.Int {
	if b.scaled == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.scaled)
}

// IsZero reports whether the buffer leaves quotes unchanged.
func (b BufferFraction) IsZero() bool {
	return b.scaled == nil || b.scaled.Sign() == 0
}

// Apply returns floor(q * (1e18 - b) / 1e18).
func (b BufferFraction) Apply(q *big.Int) *big.Int {
	keep := new(big.Int).Sub(BufferScale, b.Scaled())
	out := new(big.Int).Mul(q, keep)
	return out.Quo(out, BufferScale)
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"

	oracledomain "github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
	"github.com/fd1az/multiprice-oracle/internal/asset"
)

// Report is the combined quote of one pair at one block.
type Report struct {
	Block     uint64
	BlockTime time.Time
	Pair      Pair
	Result    *oracledomain.AggregateResult
	Err       error
	Latency   time.Duration
}

// OK reports whether the quote succeeded.
func (r *Report) OK() bool {
	return r.Err == nil && r.Result != nil
}

// ErrorCode is the error kind of a failed quote.
func (r *Report) ErrorCode() string {
	if r.Err == nil {
		return ""
	}
	return string(apperror.GetCode(r.Err))
}

// Value is the selected amount of Out.
func (r *Report) Value() asset.Amount {
	if !r.OK() {
		return asset.Zero(r.Pair.Out)
	}
	return asset.NewAmount(r.Pair.Out, r.Result.Value)
}

// Candidate returns src's amount of Out, if it was computed.
func (r *Report) Candidate(src oracledomain.SourceID) (asset.Amount, bool) {
	if !r.OK() {
		return asset.Zero(r.Pair.Out), false
	}
	c := r.Result.Candidate(src)
	if !c.Present {
		return asset.Zero(r.Pair.Out), false
	}
	return asset.NewAmount(r.Pair.Out, c.Amount), true
}

// Rate is the selected price of one unit of In in Out. Display only.
func (r *Report) Rate() decimal.Decimal {
	if !r.OK() {
		return decimal.Zero
	}
	return asset.ImpliedPrice(r.Pair.AmountIn, r.Value()).Rate()
}

// SpreadBps is how far src sits above the selected value, in basis points.
func (r *Report) SpreadBps(src oracledomain.SourceID) (decimal.Decimal, bool) {
	c, ok := r.Candidate(src)
	if !ok {
		return decimal.Zero, false
	}
	sel := r.Value().ToDecimal()
	if sel.IsZero() {
		return decimal.Zero, false
	}
	return c.ToDecimal().Sub(sel).Div(sel).Mul(decimal.NewFromInt(10_000)), true
}

package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot is the block every read of one query is pinned to.
type Snapshot struct {
	Number *big.Int
	Time   uint64
}

// Candidate is one source's outcome inside a combined quote. Absent
// candidates carry a zero Amount.
type Candidate struct {
	Source  SourceID
	Amount  *big.Int
	Present bool
	Route   Route
}

// Quote is the result of a single-source query.
type Quote struct {
	Amount   *big.Int
	Route    Route
	Snapshot Snapshot
}

// AggregateResult is the outcome of a combined query.
type AggregateResult struct {
	Value      *big.Int
	Selected   SourceID
	Candidates [NumSources]Candidate
	Snapshot   Snapshot
}

// Candidate returns the slot for s.
func (r *AggregateResult) Candidate(s SourceID) Candidate {
	return r.Candidates[s]
}

// QuoteRequest is the pair and input amount common to every query.
type QuoteRequest struct {
	In       common.Address
	AmountIn *big.Int
	Out      common.Address
}

// CombinedRequest parameterises a combined query.
type CombinedRequest struct {
	QuoteRequest
	Buffer *big.Int // 1e18-scaled; nil means 0
	Window TwapWindow
	Mask   InclusionMask
}

// FeedAnswer is a registry round answer plus the feed's decimals.
type FeedAnswer struct {
	Answer    *big.Int
	Decimals  uint8
	UpdatedAt uint64
}

// Slot0 is the subset of a concentrated-liquidity pool's slot0.
type Slot0 struct {
	SqrtPriceX96           *big.Int
	Tick                   int32
	ObservationIndex       uint16
	ObservationCardinality uint16
}

// Observation is one entry of a pool's tick accumulator ring buffer.
type Observation struct {
	BlockTimestamp uint32
	TickCumulative *big.Int
	Initialized    bool
}

// Reserves are a constant-product pair's balances, ordered by token address.
type Reserves struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// ConstantProduct names one constant-product deployment.
type ConstantProduct struct {
	Source  SourceID
	Name    string
	Factory common.Address
}

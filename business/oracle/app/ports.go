// Package app implements the price engine: the feed, concentrated-liquidity
// and constant-product adapters, the shared router, the selector and the
// query entrypoints.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
)

// Snapshotter pins a query to the current head.
type Snapshotter interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// TokenReader reads ERC-20 metadata.
type TokenReader interface {
	Decimals(ctx context.Context, at domain.Snapshot, token common.Address) (uint8, error)
}

// FeedRegistry reads the aggregated feed registry.
// LatestAnswer returns a SourceUnavailable error when no feed exists for
// (base, quote).
type FeedRegistry interface {
	LatestAnswer(ctx context.Context, at domain.Snapshot, base, quote common.Address) (domain.FeedAnswer, error)
}

// CLPoolReader reads a concentrated-liquidity factory and its pools.
type CLPoolReader interface {
	// GetPool returns the zero address when no pool exists.
	GetPool(ctx context.Context, at domain.Snapshot, tokenA, tokenB common.Address, fee uint32) (common.Address, error)
	Slot0(ctx context.Context, at domain.Snapshot, pool common.Address) (domain.Slot0, error)
	Observation(ctx context.Context, at domain.Snapshot, pool common.Address, index uint16) (domain.Observation, error)
	// Observe returns tick cumulatives for each secondsAgo. A window beyond
	// the pool's history yields an InsufficientHistory error.
	Observe(ctx context.Context, at domain.Snapshot, pool common.Address, secondsAgos []uint32) ([]*big.Int, error)
}

// CPPoolReader reads constant-product factories and pairs.
type CPPoolReader interface {
	// GetPair returns the zero address when no pair exists.
	GetPair(ctx context.Context, at domain.Snapshot, factory, tokenA, tokenB common.Address) (common.Address, error)
	Reserves(ctx context.Context, at domain.Snapshot, pair common.Address) (domain.Reserves, error)
}

package app

import (
	"context"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
)

type clAdapter struct {
	settings *Settings
	pools    CLPoolReader
}

func newCLAdapter(settings *Settings, pools CLPoolReader) *clAdapter {
	return &clAdapter{settings: settings, pools: pools}
}

// spotQuote prices amount at each pool's current sqrt price.
func (c *clAdapter) spotQuote(ctx context.Context, q *query, in common.Address, amount *big.Int, out common.Address) (*big.Int, domain.Route, error) {
	return route(ctx, c.spotHop(q), in, amount, out, c.settings.poolBases())
}

// twapQuote prices amount at each pool's arithmetic mean tick over window.
func (c *clAdapter) twapQuote(ctx context.Context, q *query, in common.Address, amount *big.Int, out common.Address, window domain.TwapWindow) (*big.Int, domain.Route, error) {
	if err := window.Validate(); err != nil {
		return nil, domain.Route{}, err
	}
	return route(ctx, c.twapHop(q, window), in, amount, out, c.settings.poolBases())
}

func (c *clAdapter) spotHop(q *query) hopFunc {
	return func(ctx context.Context, in common.Address, amount *big.Int, out common.Address) (*big.Int, error) {
		pool, err := c.findPool(ctx, q, in, out)
		if err != nil {
			return nil, err
		}
		slot0, err := c.pools.Slot0(ctx, q.at, pool)
		if err != nil {
			return nil, err
		}
		if slot0.SqrtPriceX96 == nil || slot0.SqrtPriceX96.Sign() == 0 {
			return nil, domain.SourceUnavailable(apperror.MsgRateNotAvailable, "uninitialized pool "+pool.Hex())
		}
		return quoteAtSqrtRatio(amount, slot0.SqrtPriceX96, in, out), nil
	}
}

func (c *clAdapter) twapHop(q *query, window domain.TwapWindow) hopFunc {
	return func(ctx context.Context, in common.Address, amount *big.Int, out common.Address) (*big.Int, error) {
		pool, err := c.findPool(ctx, q, in, out)
		if err != nil {
			return nil, err
		}
		if err := c.checkHistory(ctx, q, pool, window); err != nil {
			return nil, err
		}

		cums, err := c.pools.Observe(ctx, q.at, pool, []uint32{uint32(window), 0})
		if err != nil {
			return nil, err
		}
		if len(cums) != 2 {
			return nil, apperror.New(apperror.CodeContractDecodeFailed,
				apperror.WithContext("observe returned "+strconv.Itoa(len(cums))+" values"))
		}

		tick, err := meanTick(cums[0], cums[1], uint32(window))
		if err != nil {
			return nil, err
		}
		sqrt, err := sqrtRatioAtTick(tick)
		if err != nil {
			return nil, err
		}
		return quoteAtSqrtRatio(amount, sqrt, in, out), nil
	}
}

// findPool looks for a pool at the canonical fee tier, then at the other
// configured tiers.
func (c *clAdapter) findPool(ctx context.Context, q *query, a, b common.Address) (common.Address, error) {
	for _, fee := range c.settings.clFeeTiers {
		pool, err := c.pools.GetPool(ctx, q.at, a, b, fee)
		if err != nil {
			return common.Address{}, err
		}
		if pool != (common.Address{}) {
			return pool, nil
		}
	}
	return common.Address{}, domain.SourceUnavailable(apperror.MsgPoolNotFound, a.Hex()+"/"+b.Hex())
}

// checkHistory fails when the oldest observation the pool still holds is
// younger than window.
func (c *clAdapter) checkHistory(ctx context.Context, q *query, pool common.Address, window domain.TwapWindow) error {
	slot0, err := c.pools.Slot0(ctx, q.at, pool)
	if err != nil {
		return err
	}
	if slot0.ObservationCardinality == 0 {
		return domain.SourceUnavailable(apperror.MsgRateNotAvailable, "uninitialized pool "+pool.Hex())
	}

	// The slot after the latest write is the oldest once the buffer has
	// wrapped; until then it is still empty and slot 0 is the oldest.
	next := uint16((uint32(slot0.ObservationIndex) + 1) % uint32(slot0.ObservationCardinality))
	oldest, err := c.pools.Observation(ctx, q.at, pool, next)
	if err != nil {
		return err
	}
	if !oldest.Initialized {
		if oldest, err = c.pools.Observation(ctx, q.at, pool, 0); err != nil {
			return err
		}
	}

	age := uint32(q.at.Time) - oldest.BlockTimestamp
	if age < uint32(window) {
		return domain.InsufficientHistory("pool " + pool.Hex() + " history " +
			strconv.FormatUint(uint64(age), 10) + "s < window " +
			strconv.FormatUint(uint64(window), 10) + "s")
	}
	return nil
}

var (
	minTickBig = big.NewInt(minTick)
	maxTickBig = big.NewInt(maxTick)
)

// meanTick is (end - start) / window rounded toward negative infinity. A
// mean outside the tick range means the cumulatives are corrupt.
func meanTick(start, end *big.Int, window uint32) (int32, error) {
	delta := new(big.Int).Sub(end, start)
	// Div is Euclidean; with a positive divisor that is floor division.
	mean := delta.Div(delta, new(big.Int).SetUint64(uint64(window)))
	if mean.Cmp(minTickBig) < 0 || mean.Cmp(maxTickBig) > 0 {
		return 0, domain.SourceUnavailable(apperror.MsgRateNotAvailable, "mean tick "+mean.String()+" out of range")
	}
	return int32(mean.Int64()), nil
}

var q192 = new(big.Int).Lsh(big.NewInt(1), 192)

// quoteAtSqrtRatio converts amount of in to out at sqrtPriceX96, the Q64.96
// square root of token1/token0.
func quoteAtSqrtRatio(amount, sqrtPriceX96 *big.Int, in, out common.Address) *big.Int {
	ratioX192 := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	if isToken0(in, out) {
		p := new(big.Int).Mul(amount, ratioX192)
		return p.Quo(p, q192)
	}
	p := new(big.Int).Mul(amount, q192)
	return p.Quo(p, ratioX192)
}

// isToken0 reports whether a sorts before b in pool token order.
func isToken0(a, b common.Address) bool {
	return a.Cmp(b) < 0
}

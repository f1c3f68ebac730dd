package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
)

type cpAdapter struct {
	settings *Settings
	pairs    CPPoolReader
}

func newCPAdapter(settings *Settings, pairs CPPoolReader) *cpAdapter {
	return &cpAdapter{settings: settings, pairs: pairs}
}

// spotQuote prices amount at the reserve ratio of factory's pairs.
func (c *cpAdapter) spotQuote(ctx context.Context, q *query, factory, in common.Address, amount *big.Int, out common.Address) (*big.Int, domain.Route, error) {
	if factory == (common.Address{}) {
		return nil, domain.Route{}, domain.InvalidParameter(apperror.MsgZeroFactory, "factory")
	}
	return route(ctx, c.hop(q, factory), in, amount, out, c.settings.poolBases())
}

func (c *cpAdapter) hop(q *query, factory common.Address) hopFunc {
	return func(ctx context.Context, in common.Address, amount *big.Int, out common.Address) (*big.Int, error) {
		pair, err := c.pairs.GetPair(ctx, q.at, factory, in, out)
		if err != nil {
			return nil, err
		}
		if pair == (common.Address{}) {
			return nil, domain.SourceUnavailable(apperror.MsgPoolNotFound, in.Hex()+"/"+out.Hex())
		}

		res, err := c.pairs.Reserves(ctx, q.at, pair)
		if err != nil {
			return nil, err
		}
		reserveIn, reserveOut := res.Reserve0, res.Reserve1
		if !isToken0(in, out) {
			reserveIn, reserveOut = res.Reserve1, res.Reserve0
		}
		if reserveIn == nil || reserveOut == nil || reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
			return nil, domain.SourceUnavailable(apperror.MsgRateNotAvailable, "empty reserves "+pair.Hex())
		}

		v := new(big.Int).Mul(amount, reserveOut)
		return v.Quo(v, reserveIn), nil
	}
}

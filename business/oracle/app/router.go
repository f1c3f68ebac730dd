package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
)

// hopFunc quotes a single leg in -> out. It returns a SourceUnavailable
// error when no feed or pool serves the pair.
type hopFunc func(ctx context.Context, in common.Address, amount *big.Int, out common.Address) (*big.Int, error)

// route quotes in -> out directly, or through the first base that serves
// both legs. Only SourceUnavailable moves on to the next candidate path;
// every other failure is returned as is.
func route(ctx context.Context, hop hopFunc, in common.Address, amount *big.Int, out common.Address, bases []common.Address) (*big.Int, domain.Route, error) {
	if in == out {
		return new(big.Int).Set(amount), domain.Direct(), nil
	}

	v, err := hop(ctx, in, amount, out)
	if err == nil {
		return v, domain.Direct(), nil
	}
	if !domain.IsUnavailable(err) {
		return nil, domain.Route{}, err
	}

	for _, base := range bases {
		if base == in || base == out {
			continue
		}
		mid, err := hop(ctx, in, amount, base)
		if err != nil {
			if domain.IsUnavailable(err) {
				continue
			}
			return nil, domain.Route{}, err
		}
		v, err := hop(ctx, base, mid, out)
		if err != nil {
			if domain.IsUnavailable(err) {
				continue
			}
			return nil, domain.Route{}, err
		}
		return v, domain.ViaBase(base), nil
	}

	return nil, domain.Route{}, domain.SourceUnavailable(apperror.MsgRateNotAvailable,
		"no direct or routed path "+in.Hex()+" -> "+out.Hex())
}

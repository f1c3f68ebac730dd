package uniswap

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	chainapp "github.com/fd1az/multiprice-oracle/business/chain/app"
	"github.com/fd1az/multiprice-oracle/business/oracle/app"
	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/business/oracle/infra/evm"
)

var (
	v2FactoryABI = evm.MustParseABI(V2FactoryABI)
	v2PairABI    = evm.MustParseABI(V2PairABI)
)

var _ app.CPPoolReader = (*V2Reader)(nil)

// V2Reader implements app.CPPoolReader for any V2-compatible factory.
type V2Reader struct {
	caller *evm.Caller
}

func NewV2Reader(reader chainapp.ChainReader) (*V2Reader, error) {
	caller, err := evm.NewCaller(reader, "uniswap_v2")
	if err != nil {
		return nil, err
	}
	return &V2Reader{caller: caller}, nil
}

// GetPair returns factory's pair for the tokens, or the zero address.
func (r *V2Reader) GetPair(ctx context.Context, at domain.Snapshot, factory, tokenA, tokenB common.Address) (common.Address, error) {
	out, err := r.caller.Call(ctx, at, factory, v2FactoryABI, "getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, poolError(err, factory)
	}
	pair, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, decodeError("getPair")
	}
	return pair, nil
}

func (r *V2Reader) Reserves(ctx context.Context, at domain.Snapshot, pair common.Address) (domain.Reserves, error) {
	out, err := r.caller.Call(ctx, at, pair, v2PairABI, "getReserves")
	if err != nil {
		return domain.Reserves{}, poolError(err, pair)
	}
	if len(out) != 3 {
		return domain.Reserves{}, decodeError("getReserves")
	}
	r0, ok0 := out[0].(*big.Int)
	r1, ok1 := out[1].(*big.Int)
	if !ok0 || !ok1 {
		return domain.Reserves{}, decodeError("getReserves")
	}
	return domain.Reserves{Reserve0: r0, Reserve1: r1}, nil
}

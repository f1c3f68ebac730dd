// Package uniswap reads Uniswap V3 pools and V2-style constant-product pairs.
package uniswap

import (
	"context"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	chainapp "github.com/fd1az/multiprice-oracle/business/chain/app"
	"github.com/fd1az/multiprice-oracle/business/oracle/app"
	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/business/oracle/infra/evm"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
)

var (
	v3FactoryABI = evm.MustParseABI(V3FactoryABI)
	v3PoolABI    = evm.MustParseABI(V3PoolABI)
)

// Ensure V3Reader implements CLPoolReader.
var _ app.CLPoolReader = (*V3Reader)(nil)

// V3Reader implements app.CLPoolReader for one V3 factory.
type V3Reader struct {
	factory common.Address
	caller  *evm.Caller
}

func NewV3Reader(reader chainapp.ChainReader, factory common.Address) (*V3Reader, error) {
	caller, err := evm.NewCaller(reader, "uniswap_v3")
	if err != nil {
		return nil, err
	}
	return &V3Reader{factory: factory, caller: caller}, nil
}

// GetPool returns the pool for the pair at fee, or the zero address.
func (r *V3Reader) GetPool(ctx context.Context, at domain.Snapshot, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	out, err := r.caller.Call(ctx, at, r.factory, v3FactoryABI, "getPool", tokenA, tokenB, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, poolError(err, r.factory)
	}
	pool, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, decodeError("getPool")
	}
	return pool, nil
}

func (r *V3Reader) Slot0(ctx context.Context, at domain.Snapshot, pool common.Address) (domain.Slot0, error) {
	out, err := r.caller.Call(ctx, at, pool, v3PoolABI, "slot0")
	if err != nil {
		return domain.Slot0{}, poolError(err, pool)
	}
	if len(out) != 7 {
		return domain.Slot0{}, decodeError("slot0")
	}
	sqrtPrice, ok1 := out[0].(*big.Int)
	tick, ok2 := out[1].(*big.Int)
	index, ok3 := out[2].(uint16)
	cardinality, ok4 := out[3].(uint16)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return domain.Slot0{}, decodeError("slot0")
	}
	return domain.Slot0{
		SqrtPriceX96:           sqrtPrice,
		Tick:                   int32(tick.Int64()),
		ObservationIndex:       index,
		ObservationCardinality: cardinality,
	}, nil
}

func (r *V3Reader) Observation(ctx context.Context, at domain.Snapshot, pool common.Address, index uint16) (domain.Observation, error) {
	out, err := r.caller.Call(ctx, at, pool, v3PoolABI, "observations", new(big.Int).SetUint64(uint64(index)))
	if err != nil {
		return domain.Observation{}, poolError(err, pool)
	}
	if len(out) != 4 {
		return domain.Observation{}, decodeError("observations")
	}
	ts, ok1 := out[0].(uint32)
	cum, ok2 := out[1].(*big.Int)
	initialized, ok3 := out[3].(bool)
	if !ok1 || !ok2 || !ok3 {
		return domain.Observation{}, decodeError("observations")
	}
	return domain.Observation{
		BlockTimestamp: ts,
		TickCumulative: cum,
		Initialized:    initialized,
	}, nil
}

// Observe returns the tick cumulatives at each secondsAgo. The pool reverts
// with "OLD" when a target predates its oldest observation.
func (r *V3Reader) Observe(ctx context.Context, at domain.Snapshot, pool common.Address, secondsAgos []uint32) ([]*big.Int, error) {
	out, err := r.caller.Call(ctx, at, pool, v3PoolABI, "observe", secondsAgos)
	if err != nil {
		if rev, ok := evm.AsRevert(err); ok && rev.Reason == "OLD" {
			return nil, domain.InsufficientHistory("pool " + pool.Hex() + " observe " + formatAgos(secondsAgos))
		}
		return nil, poolError(err, pool)
	}
	cums, ok := out[0].([]*big.Int)
	if !ok || len(cums) != len(secondsAgos) {
		return nil, decodeError("observe")
	}
	return cums, nil
}

// poolError reports reverts as SourceUnavailable and passes other failures
// through.
func poolError(err error, addr common.Address) error {
	if rev, ok := evm.AsRevert(err); ok {
		return domain.SourceUnavailable(apperror.MsgRateNotAvailable, addr.Hex()+": "+rev.Error())
	}
	return err
}

func decodeError(method string) error {
	return apperror.New(apperror.CodeContractDecodeFailed, apperror.WithContext(method))
}

func formatAgos(agos []uint32) string {
	s := "["
	for i, a := range agos {
		if i > 0 {
			s += ","
		}
		s += strconv.FormatUint(uint64(a), 10)
	}
	return s + "]"
}

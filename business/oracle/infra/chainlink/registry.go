// Package chainlink reads answers from the Chainlink Feed Registry.
package chainlink

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	chainapp "github.com/fd1az/multiprice-oracle/business/chain/app"
	"github.com/fd1az/multiprice-oracle/business/oracle/app"
	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/business/oracle/infra/evm"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
)

// FeedRegistryABI is the subset of FeedRegistryInterface the oracle calls.
const FeedRegistryABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "base", "type": "address"},
			{"internalType": "address", "name": "quote", "type": "address"}
		],
		"name": "latestRoundData",
		"outputs": [
			{"internalType": "uint80", "name": "roundId", "type": "uint80"},
			{"internalType": "int256", "name": "answer", "type": "int256"},
			{"internalType": "uint256", "name": "startedAt", "type": "uint256"},
			{"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
			{"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "base", "type": "address"},
			{"internalType": "address", "name": "quote", "type": "address"}
		],
		"name": "decimals",
		"outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var registryABI = evm.MustParseABI(FeedRegistryABI)

var _ app.FeedRegistry = (*Registry)(nil)

// Registry implements app.FeedRegistry against one registry deployment.
type Registry struct {
	address common.Address
	caller  *evm.Caller
}

func NewRegistry(reader chainapp.ChainReader, address common.Address) (*Registry, error) {
	caller, err := evm.NewCaller(reader, "feed_registry")
	if err != nil {
		return nil, err
	}
	return &Registry{address: address, caller: caller}, nil
}

// LatestAnswer returns the latest round of the (base, quote) feed with its
// decimals. The registry reverts with "Feed not found" for unknown pairs;
// every revert is reported as SourceUnavailable.
func (r *Registry) LatestAnswer(ctx context.Context, at domain.Snapshot, base, quote common.Address) (domain.FeedAnswer, error) {
	round, err := r.call(ctx, at, "latestRoundData", base, quote)
	if err != nil {
		return domain.FeedAnswer{}, err
	}
	if len(round) != 5 {
		return domain.FeedAnswer{}, decodeError("latestRoundData")
	}
	answer, ok1 := round[1].(*big.Int)
	updatedAt, ok2 := round[3].(*big.Int)
	if !ok1 || !ok2 {
		return domain.FeedAnswer{}, decodeError("latestRoundData")
	}

	dec, err := r.call(ctx, at, "decimals", base, quote)
	if err != nil {
		return domain.FeedAnswer{}, err
	}
	decimals, ok := dec[0].(uint8)
	if !ok {
		return domain.FeedAnswer{}, decodeError("decimals")
	}

	return domain.FeedAnswer{
		Answer:    answer,
		Decimals:  decimals,
		UpdatedAt: updatedAt.Uint64(),
	}, nil
}

func (r *Registry) call(ctx context.Context, at domain.Snapshot, method string, base, quote common.Address) ([]any, error) {
	out, err := r.caller.Call(ctx, at, r.address, registryABI, method, base, quote)
	if err != nil {
		if rev, ok := evm.AsRevert(err); ok {
			return nil, domain.SourceUnavailable(apperror.MsgRateNotAvailable,
				base.Hex()+"/"+quote.Hex()+": "+rev.Error())
		}
		return nil, err
	}
	return out, nil
}

func decodeError(method string) error {
	return apperror.New(apperror.CodeContractDecodeFailed, apperror.WithContext(method))
}

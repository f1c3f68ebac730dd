package chainlink

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/business/oracle/infra/evm/evmtest"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
	"github.com/fd1az/multiprice-oracle/internal/config"
)

var (
	registryAddr = common.HexToAddress(config.MainnetFeedRegistry)
	eth          = common.HexToAddress(config.DenominationETH)
	usd          = common.HexToAddress(config.DenominationUSD)
	at           = domain.Snapshot{Number: big.NewInt(19_000_000), Time: 1_700_000_000}
)

func newRegistry(t *testing.T) (*Registry, *evmtest.Chain) {
	t.Helper()
	chain := evmtest.NewChain(nil)
	chain.Handle(registryAddr, registryABI, "latestRoundData", func(args []any) ([]any, error) {
		if args[0] != eth || args[1] != usd {
			return nil, evmtest.Revert("Feed not found")
		}
		return []any{big.NewInt(1234), big.NewInt(285_012_345_678), big.NewInt(1_699_999_000), big.NewInt(1_699_999_000), big.NewInt(1234)}, nil
	})
	chain.Handle(registryAddr, registryABI, "decimals", func(args []any) ([]any, error) {
		if args[0] != eth || args[1] != usd {
			return nil, evmtest.Revert("Feed not found")
		}
		return []any{uint8(8)}, nil
	})

	r, err := NewRegistry(chain, registryAddr)
	require.NoError(t, err)
	return r, chain
}

func TestRegistry_LatestAnswer(t *testing.T) {
	r, chain := newRegistry(t)

	ans, err := r.LatestAnswer(context.Background(), at, eth, usd)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(285_012_345_678), ans.Answer)
	assert.Equal(t, uint8(8), ans.Decimals)
	assert.Equal(t, uint64(1_699_999_000), ans.UpdatedAt)

	for _, b := range chain.Blocks() {
		assert.Equal(t, at.Number, b)
	}
}

func TestRegistry_FeedNotFound(t *testing.T) {
	r, _ := newRegistry(t)

	_, err := r.LatestAnswer(context.Background(), at, usd, eth)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeSourceUnavailable, apperror.GetCode(err))
	assert.Contains(t, err.Error(), "Feed not found")
}

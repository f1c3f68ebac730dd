package infra

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	oracleapp "github.com/fd1az/multiprice-oracle/business/oracle/app"
)

// ChainTokenMetadata reads decimals at the current head through the
// oracle's token reader.
type ChainTokenMetadata struct {
	snapshots oracleapp.Snapshotter
	tokens    oracleapp.TokenReader
}

// NewChainTokenMetadata creates a ChainTokenMetadata.
func NewChainTokenMetadata(snapshots oracleapp.Snapshotter, tokens oracleapp.TokenReader) *ChainTokenMetadata {
	return &ChainTokenMetadata{snapshots: snapshots, tokens: tokens}
}

// Decimals reads token's decimals() at the latest block.
func (m *ChainTokenMetadata) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	at, err := m.snapshots.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return m.tokens.Decimals(ctx, at, token)
}

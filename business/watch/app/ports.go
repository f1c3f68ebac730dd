// Package app contains the block watcher and its ports.
package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	chaindomain "github.com/fd1az/multiprice-oracle/business/chain/domain"
	oracledomain "github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/business/watch/domain"
)

// Reporter receives watch reports.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report publishes the quotes computed for one block.
	Report(block *chaindomain.Block, reports []*domain.Report)

	// UpdateConnectionStatus updates a connection status display.
	UpdateConnectionStatus(name string, connected bool, latency time.Duration)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// Quoter computes combined quotes.
type Quoter interface {
	CombinedQuote(ctx context.Context, req oracledomain.CombinedRequest) (*oracledomain.AggregateResult, error)
}

// BlockSource delivers new chain heads.
type BlockSource interface {
	SubscribeBlocks(ctx context.Context) (<-chan *chaindomain.Block, error)
	Status() chaindomain.ConnectionStatus
}

// TokenMetadata reads decimals of tokens the asset registry does not know.
type TokenMetadata interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// Package di contains dependency injection tokens for the chain context.
package di

import (
	"github.com/fd1az/multiprice-oracle/business/chain/app"
	"github.com/fd1az/multiprice-oracle/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ChainService = di.NewToken[*app.ChainService]("chain.ChainService")
	ChainReader  = di.NewToken[app.ChainReader]("chain.ChainReader")
)

// Private dependency tokens - internal to chain module
var (
	BlockSubscriber = di.NewToken[app.BlockSubscriber]("chain:blockSubscriber")
)

func GetChainService(c di.ServiceRegistry) *app.ChainService {
	return di.GetToken(c, ChainService)
}

func GetChainReader(c di.ServiceRegistry) app.ChainReader {
	return di.GetToken(c, ChainReader)
}

func GetBlockSubscriber(c di.ServiceRegistry) app.BlockSubscriber {
	return di.GetToken(c, BlockSubscriber)
}

// Package chain implements the chain bounded context: head tracking and
// block-pinned JSON-RPC reads against an Ethereum node.
package chain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/multiprice-oracle/business/chain/app"
	chainDI "github.com/fd1az/multiprice-oracle/business/chain/di"
	"github.com/fd1az/multiprice-oracle/business/chain/domain"
	"github.com/fd1az/multiprice-oracle/business/chain/infra/ethereum"
	"github.com/fd1az/multiprice-oracle/internal/config"
	"github.com/fd1az/multiprice-oracle/internal/di"
	"github.com/fd1az/multiprice-oracle/internal/logger"
	"github.com/fd1az/multiprice-oracle/internal/monolith"
)

// Module implements the chain bounded context.
type Module struct{}

// RegisterServices registers all chain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Private - internal dependency
	di.RegisterToken(c, chainDI.BlockSubscriber, func(sr di.ServiceRegistry) app.BlockSubscriber {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		subCfg := ethereum.DefaultSubscriberConfig(cfg.Ethereum.WebSocketURL, cfg.Ethereum.HTTPURL)
		if cfg.Ethereum.PollInterval > 0 {
			subCfg.PollInterval = cfg.Ethereum.PollInterval
		}
		if cfg.Ethereum.InitialBackoff > 0 {
			subCfg.InitialBackoff = cfg.Ethereum.InitialBackoff
		}
		if cfg.Ethereum.MaxBackoff > 0 {
			subCfg.MaxBackoff = cfg.Ethereum.MaxBackoff
		}
		subCfg.MaxReconnects = cfg.Ethereum.MaxReconnects

		sub, err := ethereum.NewSubscriber(subCfg, ethereum.DialEthclient, log)
		if err != nil {
			panic("failed to create subscriber: " + err.Error())
		}
		return sub
	})

	// Public - the oracle context reads through this
	di.RegisterToken(c, chainDI.ChainReader, func(sr di.ServiceRegistry) app.ChainReader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		reader, err := ethereum.NewRPCReader(client, ethereum.RPCConfig{
			CallTimeout:    cfg.Ethereum.CallTimeout,
			RateLimitRPS:   cfg.Ethereum.RateLimitRPS,
			RateLimitBurst: cfg.Ethereum.RateLimitBurst,
		}, log)
		if err != nil {
			panic("failed to create rpc reader: " + err.Error())
		}
		return reader
	})

	di.RegisterToken(c, chainDI.ChainService, func(sr di.ServiceRegistry) *app.ChainService {
		cfg := sr.Get("config").(*config.Config)
		return app.NewChainService(
			chainDI.GetBlockSubscriber(sr),
			chainDI.GetChainReader(sr),
			cfg.Ethereum.ChainID,
		)
	})

	return nil
}

// Startup verifies the node network and registers health checks.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := chainDI.GetChainService(mono.Services())

	if err := svc.VerifyNetwork(ctx); err != nil {
		return err
	}

	mono.Health().RegisterCheck("ethereum_rpc", func(ctx context.Context) (bool, string) {
		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := svc.Ping(ctx); err != nil {
			return false, err.Error()
		}
		return true, "ok"
	})
	mono.Health().RegisterCheck("ethereum_head", func(context.Context) (bool, string) {
		st := svc.Status()
		switch st.State {
		case domain.StateConnected:
			return true, string(st.State)
		case domain.StateDisconnected:
			if st.LastBlock == 0 {
				// Nobody subscribed yet.
				return true, "idle"
			}
		}
		return false, string(st.State)
	})

	log.Info(ctx, "chain module started", "chain_id", mono.Config().Ethereum.ChainID)
	return nil
}

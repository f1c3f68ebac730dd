// Package oracle implements the price oracle bounded context: on-chain
// price sources and the engine that combines them.
package oracle

import (
	"context"

	chainapp "github.com/fd1az/multiprice-oracle/business/chain/app"
	chainDI "github.com/fd1az/multiprice-oracle/business/chain/di"
	"github.com/fd1az/multiprice-oracle/business/oracle/app"
	oracleDI "github.com/fd1az/multiprice-oracle/business/oracle/di"
	"github.com/fd1az/multiprice-oracle/business/oracle/infra/chainlink"
	"github.com/fd1az/multiprice-oracle/business/oracle/infra/erc20"
	"github.com/fd1az/multiprice-oracle/business/oracle/infra/evm"
	"github.com/fd1az/multiprice-oracle/business/oracle/infra/uniswap"
	"github.com/fd1az/multiprice-oracle/internal/config"
	"github.com/fd1az/multiprice-oracle/internal/di"
	"github.com/fd1az/multiprice-oracle/internal/logger"
	"github.com/fd1az/multiprice-oracle/internal/monolith"
)

// Module implements the oracle bounded context.
type Module struct{}

// RegisterServices registers all oracle services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, oracleDI.Settings, func(sr di.ServiceRegistry) *app.Settings {
		cfg := sr.Get("config").(*config.Config)
		return app.NewSettings(&cfg.Oracle)
	})

	di.RegisterToken(c, oracleDI.Deps, func(sr di.ServiceRegistry) app.Deps {
		cfg := sr.Get("config").(*config.Config)
		deps, err := NewDeps(chainDI.GetChainReader(sr), &cfg.Oracle)
		if err != nil {
			panic("failed to create price sources: " + err.Error())
		}
		return deps
	})

	// Public - used by watch and api
	di.RegisterToken(c, oracleDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		log := sr.Get("logger").(logger.LoggerInterface)
		engine, err := app.NewEngine(oracleDI.GetSettings(sr), oracleDI.GetDeps(sr), log)
		if err != nil {
			panic("failed to create engine: " + err.Error())
		}
		return engine
	})

	return nil
}

// NewDeps builds the on-chain readers behind every engine port.
func NewDeps(reader chainapp.ChainReader, cfg *config.OracleConfig) (app.Deps, error) {
	tokens, err := erc20.NewReader(reader)
	if err != nil {
		return app.Deps{}, err
	}
	feeds, err := chainlink.NewRegistry(reader, cfg.FeedRegistryHex())
	if err != nil {
		return app.Deps{}, err
	}
	pools, err := uniswap.NewV3Reader(reader, cfg.CLFactoryHex())
	if err != nil {
		return app.Deps{}, err
	}
	pairs, err := uniswap.NewV2Reader(reader)
	if err != nil {
		return app.Deps{}, err
	}
	return app.Deps{
		Snapshots: evm.NewHeadSnapshotter(reader),
		Tokens:    tokens,
		Feeds:     feeds,
		CLPools:   pools,
		CPPairs:   pairs,
	}, nil
}

// Startup logs the resolved deployment.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	engine := oracleDI.GetEngine(mono.Services())
	s := engine.Settings()

	mono.Logger().Info(ctx, "oracle module started",
		"feed_registry", s.Registry().Hex(),
		"cl_factory", s.CLFactory().Hex(),
		"cl_fee_tiers", s.CLFeeTiers(),
		"cp_factories", len(s.CPFactories()),
		"weth", s.WETH().Hex(),
		"usd_equivalents", len(s.USDEquivalents()),
		"strict_sources", s.StrictSources(),
	)
	return nil
}

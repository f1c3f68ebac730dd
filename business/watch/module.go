// Package watch implements the watch bounded context: combined quotes for a
// configured set of pairs on every new block.
package watch

import (
	"context"

	chainDI "github.com/fd1az/multiprice-oracle/business/chain/di"
	oracleDI "github.com/fd1az/multiprice-oracle/business/oracle/di"
	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/business/oracle/infra/erc20"
	"github.com/fd1az/multiprice-oracle/business/oracle/infra/evm"
	"github.com/fd1az/multiprice-oracle/business/watch/app"
	watchDI "github.com/fd1az/multiprice-oracle/business/watch/di"
	"github.com/fd1az/multiprice-oracle/business/watch/infra"
	"github.com/fd1az/multiprice-oracle/internal/asset"
	"github.com/fd1az/multiprice-oracle/internal/config"
	"github.com/fd1az/multiprice-oracle/internal/di"
	"github.com/fd1az/multiprice-oracle/internal/logger"
	"github.com/fd1az/multiprice-oracle/internal/monolith"
)

// Module implements the watch bounded context.
type Module struct{}

// RegisterServices registers all watch services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Public - the api streams from it
	di.RegisterToken(c, watchDI.Broadcaster, func(sr di.ServiceRegistry) *infra.Broadcaster {
		return infra.NewBroadcaster()
	})

	di.RegisterToken(c, watchDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		var out app.Reporter = infra.NewConsoleReporter()
		if cfg.App.TUIMode {
			out = infra.NewTUIReporter()
		}
		return infra.MultiReporter{out, watchDI.GetBroadcaster(sr)}
	})

	di.RegisterToken(c, watchDI.Resolver, func(sr di.ServiceRegistry) *app.PairResolver {
		reader := chainDI.GetChainReader(sr)
		tokens, err := erc20.NewReader(reader)
		if err != nil {
			panic("failed to create token reader: " + err.Error())
		}
		meta := infra.NewChainTokenMetadata(evm.NewHeadSnapshotter(reader), tokens)
		return app.NewPairResolver(sr.Get("assetRegistry").(*asset.Registry), meta)
	})

	di.RegisterToken(c, watchDI.Watcher, func(sr di.ServiceRegistry) *app.Watcher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		buffer, err := cfg.Watch.BufferFraction()
		if err != nil {
			panic("invalid watch buffer: " + err.Error())
		}

		w, err := app.NewWatcher(
			chainDI.GetChainService(sr),
			oracleDI.GetEngine(sr),
			watchDI.GetResolver(sr),
			watchDI.GetReporter(sr),
			app.WatcherConfig{
				Specs:  cfg.Watch.Pairs,
				Buffer: buffer,
				Window: domain.TwapWindow(cfg.Watch.Window),
				Mask:   domain.InclusionMask(cfg.Watch.Mask),
			},
			log,
		)
		if err != nil {
			panic("failed to create watcher: " + err.Error())
		}
		return w
	})

	return nil
}

// Startup logs the watch plan. The watcher itself is started by main.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config().Watch
	mono.Logger().Info(ctx, "watch module started",
		"enabled", cfg.Enabled,
		"pairs", cfg.Pairs,
		"buffer", cfg.Buffer,
		"window", cfg.Window,
		"mask", cfg.Mask,
	)
	return nil
}

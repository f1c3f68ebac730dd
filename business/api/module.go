// Package api implements the api bounded context: the HTTP query surface,
// the report stream, health and metrics endpoints.
package api

import (
	"context"

	apiDI "github.com/fd1az/multiprice-oracle/business/api/di"
	"github.com/fd1az/multiprice-oracle/business/api/infra/rest"
	oracleDI "github.com/fd1az/multiprice-oracle/business/oracle/di"
	watchDI "github.com/fd1az/multiprice-oracle/business/watch/di"
	"github.com/fd1az/multiprice-oracle/internal/asset"
	"github.com/fd1az/multiprice-oracle/internal/config"
	"github.com/fd1az/multiprice-oracle/internal/di"
	"github.com/fd1az/multiprice-oracle/internal/health"
	"github.com/fd1az/multiprice-oracle/internal/logger"
	"github.com/fd1az/multiprice-oracle/internal/metrics"
	"github.com/fd1az/multiprice-oracle/internal/monolith"
)

// Module implements the api bounded context.
type Module struct{}

// RegisterServices registers all api services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, apiDI.Handler, func(sr di.ServiceRegistry) *rest.Handler {
		log := sr.Get("logger").(logger.LoggerInterface)
		return rest.NewHandler(
			oracleDI.GetEngine(sr),
			sr.Get("assetRegistry").(*asset.Registry),
			watchDI.GetBroadcaster(sr),
			log,
		)
	})

	di.RegisterToken(c, apiDI.Server, func(sr di.ServiceRegistry) *rest.Server {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		hs := sr.Get("health").(*health.Service)

		srv, err := rest.NewServer(rest.ServerConfig{
			Address:      cfg.API.Address,
			ReadTimeout:  cfg.API.ReadTimeout,
			WriteTimeout: cfg.API.WriteTimeout,
		}, log, metrics.Handler(), hs, apiDI.GetHandler(sr))
		if err != nil {
			panic("failed to create api server: " + err.Error())
		}
		return srv
	})

	return nil
}

// Startup starts listening when the api is enabled.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config().API
	if !cfg.Enabled {
		mono.Logger().Info(ctx, "api disabled")
		return nil
	}
	return apiDI.GetServer(mono.Services()).Start(ctx)
}

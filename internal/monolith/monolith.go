// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"fmt"
	"path"
	"reflect"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/fd1az/multiprice-oracle/internal/asset"
	"github.com/fd1az/multiprice-oracle/internal/config"
	"github.com/fd1az/multiprice-oracle/internal/di"
	"github.com/fd1az/multiprice-oracle/internal/health"
	"github.com/fd1az/multiprice-oracle/internal/httpclient"
	"github.com/fd1az/multiprice-oracle/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	AssetRegistry() *asset.Registry
	Health() *health.Service
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	ethClient     *ethclient.Client
	assetRegistry *asset.Registry
	health        *health.Service
	container     di.Container
}

// New dials the node over an instrumented HTTP client and creates the
// application container.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface, version string) (*app, error) {
	httpClient, err := httpclient.New(
		httpclient.WithProvider("ethereum"),
		httpclient.WithTimeout(cfg.Ethereum.CallTimeout),
		httpclient.WithHeader("User-Agent", "multiprice-oracle/"+version),
	)
	if err != nil {
		return nil, err
	}

	rpcClient, err := rpc.DialOptions(ctx, cfg.Ethereum.HTTPURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	return newApp(cfg, log, ethclient.NewClient(rpcClient), version), nil
}

func newApp(cfg *config.Config, log logger.LoggerInterface, ethClient *ethclient.Client, version string) *app {
	// Pre-populated with well-known mainnet tokens; only used for labels
	// and symbol lookup, never for decimals.
	assetRegistry := asset.DefaultRegistry()
	healthSvc := health.NewService(version)

	container := di.NewContainer()
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("ethClient", ethClient)
	container.Register("assetRegistry", assetRegistry)
	container.Register("health", healthSvc)

	return &app{
		config:        cfg,
		logger:        log,
		ethClient:     ethClient,
		assetRegistry: assetRegistry,
		health:        healthSvc,
		container:     container,
	}
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Health() *health.Service {
	return a.health
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules lets every module bind its services. Modules register in
// dependency order: chain, oracle, watch, api.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return fmt.Errorf("register %s: %w", moduleName(m), err)
		}
	}
	return nil
}

// StartModules starts modules in the order given and stops at the first
// failure.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		name := moduleName(m)
		if err := m.Startup(ctx, a); err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}
		a.logger.Debug(ctx, "module started", "module", name)
	}
	return nil
}

// moduleName is the import path tail of m's package, e.g. "oracle".
func moduleName(m Module) string {
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return path.Base(t.PkgPath())
}

// Close closes all resources.
func (a *app) Close() error {
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return nil
}

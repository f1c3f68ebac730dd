// Package main is the entry point for the multiprice oracle.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/multiprice-oracle/business/api"
	apiDI "github.com/fd1az/multiprice-oracle/business/api/di"
	"github.com/fd1az/multiprice-oracle/business/chain"
	"github.com/fd1az/multiprice-oracle/business/oracle"
	"github.com/fd1az/multiprice-oracle/business/watch"
	watchApp "github.com/fd1az/multiprice-oracle/business/watch/app"
	watchDI "github.com/fd1az/multiprice-oracle/business/watch/di"
	"github.com/fd1az/multiprice-oracle/internal/apm"
	"github.com/fd1az/multiprice-oracle/internal/config"
	"github.com/fd1az/multiprice-oracle/internal/logger"
	"github.com/fd1az/multiprice-oracle/internal/metrics"
	"github.com/fd1az/multiprice-oracle/internal/monolith"
	"github.com/fd1az/multiprice-oracle/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("multiprice %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.App.TUIMode = tuiMode

	// Logs go to the rotated file when configured; the TUI owns the terminal.
	var out io.Writer = os.Stderr
	if tuiMode {
		out = io.Discard
	}
	if cfg.App.LogFile != "" {
		fw := logger.FileWriter(cfg.App.LogFile)
		defer fw.Close()
		out = fw
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting multiprice oracle",
		"version", version,
		"environment", cfg.App.Environment,
	)

	stopTelemetry, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	mono, err := monolith.New(ctx, cfg, log, version)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Dependency order
	modules := []monolith.Module{
		&chain.Module{},  // head tracking and block-pinned reads
		&oracle.Module{}, // price sources and engine
		&watch.Module{},  // per-block quotes for configured pairs
		&api.Module{},    // HTTP query surface and stream
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	var watcher *watchApp.Watcher
	startFunc := func() error {
		if err := mono.StartModules(ctx, modules...); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		ui.Send(ui.StartupMsg{Step: ui.StepEthereum, Status: ui.StatusConnected})
		ui.Send(ui.StartupMsg{Step: ui.StepOracle, Status: ui.StatusDone})
		if !cfg.Watch.Enabled {
			ui.Send(ui.StartupMsg{Step: ui.StepWatch, Status: ui.StatusDone})
			return nil
		}
		watcher = watchDI.GetWatcher(mono.Services())
		return watcher.Start(ctx)
	}
	stopFunc := func() {
		if watcher != nil {
			if err := watcher.Stop(); err != nil {
				log.Error(ctx, "error stopping watcher", "error", err)
			}
		}
		if cfg.API.Enabled {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := apiDI.GetServer(mono.Services()).Stop(shutdownCtx); err != nil {
				log.Error(ctx, "error stopping api server", "error", err)
			}
		}
	}

	if tuiMode {
		return runTUI(ctx, startFunc, stopFunc)
	}
	return runCLI(ctx, startFunc, stopFunc, log)
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	traceProvider, err := apm.NewTraceProvider(log, apm.Config{
		Provider:    apm.Provider(cfg.Telemetry.Exporter),
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	log.Info(ctx, "tracing initialized", "provider", cfg.Telemetry.Exporter)

	opts := metrics.ForExporter(
		cfg.Telemetry.ServiceName,
		cfg.Telemetry.Exporter,
		cfg.Telemetry.OTLPEndpoint,
		apm.ParseHeaders(cfg.Telemetry.OTLPHeaders),
	)
	meterProvider, err := metrics.NewMetricProvider(opts...)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	// With the api enabled /metrics is served on its router instead.
	metricsCtx, stopMetrics := context.WithCancel(ctx)
	if !cfg.API.Enabled && cfg.Telemetry.PrometheusPort > 0 {
		port := strconv.Itoa(cfg.Telemetry.PrometheusPort)
		go func() {
			if err := metrics.ServePrometheusMetrics(metricsCtx, metrics.WithPort(port)); err != nil {
				log.Error(ctx, "prometheus metrics server failed", "error", err)
			}
		}()
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}

	return func() {
		stopMetrics()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = meterProvider.Shutdown(shutdownCtx)
		_ = traceProvider.Stop()
	}, nil
}

func runCLI(ctx context.Context, startFunc func() error, stopFunc func(), log logger.LoggerInterface) error {
	if err := startFunc(); err != nil {
		return err
	}
	log.Info(ctx, "all modules started")

	<-ctx.Done()

	log.Info(ctx, "shutting down")
	stopFunc()
	return nil
}

func runTUI(ctx context.Context, startFunc func() error, stopFunc func()) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// Shows the welcome screen immediately; modules start once it is done.
	p := tea.NewProgram(ui.New(), tea.WithAltScreen(), tea.WithContext(ctx))
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := startFunc(); err != nil {
			ui.Send(ui.StartupMsg{Step: ui.StepEthereum, Status: ui.StatusFailed})
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		<-ctx.Done()
		stopFunc()
		errCh <- nil
	}()

	_, runErr := p.Run()
	killed := ctx.Err() != nil

	// Quitting from the keyboard also stops the modules.
	cancel()
	err := <-errCh

	if runErr != nil && !killed {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return err
}

// Command traderdesk runs the headless trading desk and its operator console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/coachpo/traderdesk/internal/app/desk"
	"github.com/coachpo/traderdesk/internal/app/forms"
	"github.com/coachpo/traderdesk/internal/app/view"
	"github.com/coachpo/traderdesk/internal/infra/config"
	"github.com/coachpo/traderdesk/internal/infra/gateway"
	httpserver "github.com/coachpo/traderdesk/internal/infra/server/http"
	"github.com/coachpo/traderdesk/internal/infra/telemetry"
	"github.com/coachpo/traderdesk/internal/observability"
)

const (
	defaultConfigPath        = "config/app.yaml"
	startPath                = "/"
	shutdownTimeout          = 30 * time.Second
	consoleShutdownTimeout   = 5 * time.Second
	lifecycleShutdownTimeout = 10 * time.Second
	deskShutdownTimeout      = 10 * time.Second
	telemetryShutdownTimeout = 5 * time.Second
	consoleReadHeaderTimeout = 5 * time.Second
)

func main() {
	cfgPathFlag := parseFlags()
	ctx, cancel := newSignalContext()
	defer cancel()

	if err := run(ctx, cancel, resolveConfigPath(cfgPathFlag)); err != nil {
		fmt.Fprintf(os.Stderr, "traderdesk: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, configPath string) error {
	appCfg, loadedFromFile, err := config.LoadOrDefault(ctx, configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(appCfg.Logging)
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	defer func() { _ = logger.Close() }()
	observability.SetLogger(logger)

	if !loadedFromFile {
		logger.Info("configuration file not found, using defaults", observability.F("path", configPath))
	}
	logger.Info("configuration initialised",
		observability.F("env", string(appCfg.Environment)),
		observability.F("gateway", appCfg.Gateway.BaseURL),
		observability.F("sessions", len(appCfg.Desk.SessionIDs)))

	telemetryProvider, err := initTelemetry(ctx, logger, appCfg.Environment, appCfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}

	latest := &view.Latest{}
	d, err := buildDesk(appCfg, latest, logger)
	if err != nil {
		return fmt.Errorf("initialise desk: %w", err)
	}
	if err := d.Start(startPath); err != nil {
		return fmt.Errorf("mount start screen: %w", err)
	}

	var lifecycle conc.WaitGroup
	lifecycle.Go(func() {
		if err := d.Run(ctx); err != nil {
			logger.Error("synchronizer stopped", observability.Err(err))
		}
	})

	consoleServer := buildConsoleServer(appCfg.Console, appCfg.Environment, d, latest, logger)
	startConsoleServer(&lifecycle, logger, consoleServer)
	logger.Info("console listening", observability.F("addr", consoleServer.Addr))

	logger.Info("desk started; awaiting shutdown signal")
	<-ctx.Done()
	logger.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	shutdownStart := time.Now()
	performGracefulShutdown(shutdownCtx, logger, gracefulShutdownConfig{
		server:     consoleServer,
		mainCancel: cancel,
		lifecycle:  &lifecycle,
		desk:       d,
		telemetry:  telemetryProvider,
	})
	logger.Info("shutdown completed", observability.F("elapsed", time.Since(shutdownStart).String()))
	return nil
}

func parseFlags() string {
	cfgPath := flag.String("config", "", fmt.Sprintf("Path to application configuration file (default: %s)", defaultConfigPath))
	flag.Parse()
	return *cfgPath
}

func newSignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newLogger(cfg config.LoggingConfig) (*observability.SlogLogger, error) {
	return observability.NewSlogLogger(observability.LogConfig{
		Level:      cfg.Level,
		Format:     cfg.Format,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	})
}

func initTelemetry(ctx context.Context, logger observability.Logger, env config.Environment, cfg config.TelemetryConfig) (*telemetry.Provider, error) {
	telemetryCfg := telemetryConfig(env, cfg)
	provider, err := telemetry.NewProvider(ctx, telemetryCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry provider: %w", err)
	}
	if provider.Enabled() {
		logger.Info("telemetry initialized",
			observability.F("endpoint", telemetryCfg.OTLPEndpoint),
			observability.F("service", telemetryCfg.ServiceName))
	} else {
		logger.Info("telemetry disabled")
	}
	return provider, nil
}

func telemetryConfig(env config.Environment, cfg config.TelemetryConfig) telemetry.Config {
	telemetryCfg := telemetry.DefaultConfig()
	if cfg.OTLPEndpoint != "" {
		telemetryCfg.OTLPEndpoint = cfg.OTLPEndpoint
	}
	if cfg.ServiceName != "" {
		telemetryCfg.ServiceName = cfg.ServiceName
	}
	telemetryCfg.Environment = string(env)
	telemetryCfg.OTLPInsecure = cfg.OTLPInsecure
	telemetryCfg.Enabled = cfg.EnableMetrics
	return telemetryCfg
}

func buildDesk(appCfg config.AppConfig, surface view.Surface, logger observability.Logger) (*desk.Desk, error) {
	client, err := gateway.New(gateway.Options{
		BaseURL:    appCfg.Gateway.BaseURL,
		Timeout:    appCfg.Gateway.Timeout,
		WriteRate:  appCfg.Gateway.WriteRate,
		WriteBurst: appCfg.Gateway.WriteBurst,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway client: %w", err)
	}
	return desk.New(desk.Options{
		Gateway: client,
		Forms: forms.Context{
			SessionIDs: appCfg.Desk.SessionIDs,
			Symbols:    appCfg.Desk.Symbols,
		},
		Surface:          surface,
		PollInterval:     appCfg.Poll.Interval,
		BootstrapTimeout: appCfg.Gateway.BootstrapTimeout,
		WriteWorkers:     appCfg.Desk.WriteWorkers,
		Logger:           logger,
	})
}

func buildConsoleServer(cfg config.ConsoleConfig, env config.Environment, d *desk.Desk, frames httpserver.Frames, logger observability.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpserver.NewHandler(env, d, frames, logger),
		ReadHeaderTimeout: consoleReadHeaderTimeout,
	}
}

func startConsoleServer(lifecycle *conc.WaitGroup, logger observability.Logger, server *http.Server) {
	lifecycle.Go(func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("console server", observability.Err(err))
		}
	})
}

type gracefulShutdownConfig struct {
	server     *http.Server
	mainCancel context.CancelFunc
	lifecycle  *conc.WaitGroup
	desk       *desk.Desk
	telemetry  *telemetry.Provider
}

func performGracefulShutdown(ctx context.Context, logger observability.Logger, cfg gracefulShutdownConfig) {
	shutdownStep := func(name string, timeout time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		logger.Info("shutdown: " + name)
		if err := fn(stepCtx); err != nil {
			logger.Warn("shutdown step failed", observability.F("step", name), observability.Err(err))
		} else {
			logger.Info("shutdown step completed", observability.F("step", name))
		}
	}

	if cfg.server != nil {
		shutdownStep("stopping console server", consoleShutdownTimeout, func(stepCtx context.Context) error {
			return cfg.server.Shutdown(stepCtx)
		})
	}

	logger.Info("shutdown: cancelling main context")
	if cfg.mainCancel != nil {
		cfg.mainCancel()
	}

	if cfg.lifecycle != nil {
		shutdownStep("waiting for lifecycle goroutines", lifecycleShutdownTimeout, func(stepCtx context.Context) error {
			done := make(chan struct{})
			go func() {
				cfg.lifecycle.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-stepCtx.Done():
				return fmt.Errorf("timeout waiting for goroutines: %w", stepCtx.Err())
			}
		})
	}

	if cfg.desk != nil {
		shutdownStep("draining queued writes", deskShutdownTimeout, func(stepCtx context.Context) error {
			return cfg.desk.Close(stepCtx)
		})
	}

	if cfg.telemetry != nil {
		shutdownStep("shutting down telemetry", telemetryShutdownTimeout, func(stepCtx context.Context) error {
			return cfg.telemetry.Shutdown(stepCtx)
		})
	}
}

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return filepath.Clean(defaultConfigPath)
}

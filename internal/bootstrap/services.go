package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/target/noticeboard/config"
	httpx "github.com/target/noticeboard/internal/http"
	"github.com/target/noticeboard/internal/observability/statsd"
	"github.com/target/noticeboard/internal/service"
	"golang.org/x/sync/errgroup"
)

// ServiceContainer holds the application services.
type ServiceContainer struct {
	Auth    *AuthComponents
	Notices *httpx.NoticeBoard
	Metrics *statsd.Client
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires the auth stack and shared observability.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service deps with config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metricsClient := buildMetrics(logger, deps.Config.Observability.Metrics)

	auth, err := BuildAuth(AuthConfig{
		Auth:        deps.Config.Auth,
		DB:          deps.DB,
		RedisClient: deps.RedisClient,
		Metrics:     metricsClient,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return &ServiceContainer{
		Auth:    auth,
		Notices: httpx.NewNoticeBoard(),
		Metrics: metricsClient,
	}, nil
}

// buildMetrics returns a statsd client, or nil when metrics are disabled or
// the client cannot be created.
func buildMetrics(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// ServiceOrchestrationConfig contains everything RunServicesWithShutdown needs.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// backgroundService is one long-running component gated by a service mode.
type backgroundService struct {
	mode config.ServiceMode
	name string
	run  func(ctx context.Context) error
}

// RunServicesWithShutdown runs every enabled service until SIGINT/SIGTERM or
// the first service failure.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	services, err := buildBackgroundServices(cfg, logger)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = runServices(sigCtx, logger, enabled, services)
	if cfg.Services.Metrics != nil {
		if cerr := cfg.Services.Metrics.Close(); cerr != nil {
			logger.Warn("close statsd client", "error", cerr)
		}
	}
	return err
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) ([]backgroundService, error) {
	appCfg := cfg.Config
	auth := cfg.Services.Auth
	if auth == nil {
		return nil, errors.New("auth components are required")
	}

	var services []backgroundService

	if appCfg.ServiceEnabled(config.ServiceModeHTTP) {
		server, err := NewHTTPServer(HTTPServerConfig{
			Config:  appCfg,
			Auth:    auth,
			Notices: cfg.Services.Notices,
			Metrics: cfg.Services.Metrics,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		services = append(services, backgroundService{
			mode: config.ServiceModeHTTP,
			name: "http server",
			run: func(ctx context.Context) error {
				return ServeHTTP(ctx, server, appCfg.HTTP.ShutdownTimeout, logger)
			},
		})
	}

	if appCfg.ServiceEnabled(config.ServiceModeTokenReaper) {
		reaper, err := service.NewTokenReaper(service.TokenReaperOptions{
			Tokens:   auth.Tokens,
			Config:   appCfg.TokenReaper,
			Validity: appCfg.Auth.RememberMeValidity,
			Logger:   logger,
			Metrics:  cfg.Services.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("create token reaper: %w", err)
		}
		services = append(services, backgroundService{
			mode: config.ServiceModeTokenReaper,
			name: "token reaper",
			run:  reaper.Run,
		})
	}

	return services, nil
}

// runServices starts the enabled services and waits for all of them. The
// first failure cancels the rest; a clean stop on ctx cancellation is nil.
func runServices(
	ctx context.Context,
	logger *slog.Logger,
	enabled map[config.ServiceMode]bool,
	services []backgroundService,
) error {
	g, gctx := errgroup.WithContext(ctx)
	started := 0
	for _, svc := range services {
		if !enabled[svc.mode] {
			continue
		}
		started++
		g.Go(func() error {
			logger.InfoContext(gctx, "service starting", "service", svc.name)
			if err := svc.run(gctx); err != nil {
				logger.ErrorContext(gctx, "service failed", "service", svc.name, "error", err)
				return fmt.Errorf("%s: %w", svc.name, err)
			}
			logger.InfoContext(gctx, "service stopped", "service", svc.name)
			return nil
		})
	}
	if started == 0 {
		return errors.New("no services enabled")
	}
	return g.Wait()
}

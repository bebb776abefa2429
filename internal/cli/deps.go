package cli

import (
	"context"
	"fmt"
	"time"

	"jobpilot/internal/api"
	"jobpilot/internal/auth"
	"jobpilot/internal/config"
	"jobpilot/internal/errors"
	"jobpilot/internal/events"
	"jobpilot/internal/gateway"
	"jobpilot/internal/observability"
	"jobpilot/internal/orchestrator"
	"jobpilot/internal/pipeline"
	"jobpilot/internal/store"

	"github.com/spf13/cobra"
)

// app is the set of collaborators a command works with
type app struct {
	cfg     *config.Config
	logger  *errors.Logger
	obs     *observability.ObservabilityManager
	gateway *gateway.Gateway
	client  *api.Client
	hub     *events.Hub
	db      *store.DB
	history *store.History
	orch    *orchestrator.Orchestrator
}

// newApp wires the backend stack from the command's config
func newApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return nil, err
	}
	logger, err := getLoggerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, hub: events.NewHub()}

	obsConfig := observability.GetObservabilityConfig(cfg, Version)
	obsConfig.Logger = logger
	a.obs, err = observability.NewObservabilityManager(ctx, obsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	creds, err := newCredentials(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.gateway, err = gateway.New(cfg.Backend, creds,
		gateway.WithLogger(logger),
		gateway.WithMetrics(a.obs.Metrics()),
		gateway.WithTransport(a.obs.Transport),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = api.NewClient(a.gateway)

	a.db, err = store.Open(ctx, cfg.DatabasePath())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.history = store.NewHistory(a.db)

	a.orch = orchestrator.New(a.client, cfg.Apply,
		orchestrator.WithRecorder(a.history),
		orchestrator.WithHub(a.hub),
		orchestrator.WithMetrics(a.obs.Metrics()),
		orchestrator.WithTracer(a.obs.Tracer("jobpilot/orchestrator")),
		orchestrator.WithLogger(logger),
	)

	return a, nil
}

// newCredentials resolves the configured credential source, connecting to
// Vault only when it is selected
func newCredentials(ctx context.Context, cfg *config.Config, logger *errors.Logger) (auth.Provider, error) {
	var reader auth.SecretReader
	if cfg.Auth.Source == "vault" {
		if !cfg.Vault.Enabled {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
				"auth.source is vault but vault.enabled is false", nil)
		}
		vc, err := config.NewVaultClient(ctx, cfg.Vault, logger)
		if err != nil {
			return nil, err
		}
		reader = vc
	}
	return auth.NewProvider(cfg.Auth, reader)
}

// controller builds a pipeline controller sharing the app's hub and metrics
func (a *app) controller() *pipeline.Controller {
	return pipeline.NewController(a.client, a.cfg.Pipeline,
		pipeline.WithHub(a.hub),
		pipeline.WithMetrics(a.obs.Metrics()),
		pipeline.WithLogger(a.logger),
	)
}

// Close releases the database and flushes telemetry
func (a *app) Close() {
	if a == nil {
		return
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close history database", "error", err)
		}
	}
	if a.obs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.obs.Shutdown(ctx); err != nil {
			a.logger.Warn("Failed to shut down observability", "error", err)
		}
	}
}

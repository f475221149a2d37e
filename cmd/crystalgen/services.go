package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jask/crystalgen/internal/composition"
	"github.com/jask/crystalgen/internal/config"
	"github.com/jask/crystalgen/internal/genapi"
	"github.com/jask/crystalgen/internal/generation"
	"github.com/jask/crystalgen/internal/logging"
	"github.com/jask/crystalgen/internal/metrics"
	"github.com/jask/crystalgen/internal/secrets"
	"github.com/jask/crystalgen/internal/telemetry"
)

// tokenName is the secrets store key for the service token.
const tokenName = "api"

type services struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Recorder
	client  *genapi.Client
	catalog *composition.Catalog
	orch    *generation.Orchestrator

	logCloser io.Closer
	shutdown  telemetry.ShutdownFunc
}

// setup loads config and builds the shared services. Headless commands also
// log to stderr.
func setup(headless bool) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, closer, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Stderr: headless})
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	slog.SetDefault(logger)

	shutdown, err := telemetry.Setup(cfg.Telemetry.TraceFile, version)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		shutdown = func(context.Context) error { return nil }
	}

	token := secrets.Resolve(cfg.API.TokenEnv, secrets.Store{}, tokenName, cfg.API.Token)
	client := genapi.NewClient(cfg.API.BaseURL, token, cfg.API.Timeout)
	client.SetLogger(logger)

	rec := metrics.New()
	rt := &services{
		cfg:       cfg,
		logger:    logger,
		metrics:   rec,
		client:    client,
		catalog:   &composition.Catalog{Source: client, Logger: logger},
		orch:      &generation.Orchestrator{Service: client, Metrics: rec, Logger: logger},
		logCloser: closer,
		shutdown:  shutdown,
	}
	logger.Info("crystalgen starting", "version", version, "api", cfg.API.BaseURL,
		"engine", cfg.Viewer.Engine, "headless", headless)
	return rt, nil
}

func (rt *services) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.shutdown(ctx); err != nil {
		rt.logger.Warn("trace shutdown", "error", err)
	}
	_ = rt.logCloser.Close()
}

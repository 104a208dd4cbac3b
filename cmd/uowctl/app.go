package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/amp-labs/amp-uow/config"
	"github.com/amp-labs/amp-uow/database"
	"github.com/amp-labs/amp-uow/locks"
	"github.com/amp-labs/amp-uow/logger"
	"github.com/amp-labs/amp-uow/notify"
	"github.com/amp-labs/amp-uow/scope"
	"github.com/amp-labs/amp-uow/telemetry"
)

// app bundles everything a run needs.
type app struct {
	cfg       *config.Config
	telemetry *telemetry.Providers
	factory   *database.SQLFactory
	publisher *notify.Publisher
	provider  *scope.Provider
}

func bootstrap(ctx context.Context, path string, logs io.Writer) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}

	providers, err := telemetry.Initialize(ctx, telemetry.FromConfig(cfg, "cli"))
	if err != nil {
		return nil, err
	}

	opts := []logger.Option{
		logger.WithJSON(cfg.Logging.JSON),
		logger.WithLevel(level),
		logger.WithOutput(logs),
	}

	if handler := providers.LogHandler(); handler != nil {
		opts = append(opts, logger.WithHandlers(handler))
	}

	log, err := logger.ConfigureLogging(ctx, "uowctl", opts...)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(ctx))
	}

	factory, err := database.Open(ctx, cfg.DatabaseConfig())
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(ctx))
	}

	isolation, _ := cfg.IsolationLevel()
	timeout, _ := cfg.LockTimeout()

	var mechanism locks.Mechanism = locks.NewMemory()
	if cfg.Scope.Locks == config.LocksPostgres {
		mechanism = locks.NewPostgres()
	}

	publisher := notify.NewPublisher()

	provider := scope.NewProvider(factory,
		scope.WithLockMechanism(mechanism),
		scope.WithDefaultIsolation(isolation),
		scope.WithLockTimeout(timeout),
		scope.WithMaxDrainPasses(cfg.Scope.MaxDrainPasses),
		scope.WithPublisher(publisher),
		scope.WithLogger(log),
	)

	return &app{
		cfg:       cfg,
		telemetry: providers,
		factory:   factory,
		publisher: publisher,
		provider:  provider,
	}, nil
}

func (a *app) Close(ctx context.Context) error {
	var errs []error

	if err := a.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing publisher: %w", err))
	}

	if err := a.factory.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}

	if err := a.telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
		errs = append(errs, fmt.Errorf("shutting down telemetry: %w", err))
	}

	return errors.Join(errs...)
}

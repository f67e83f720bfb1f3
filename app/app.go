// Package app assembles the prediction service from configuration. The
// server binary and the CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"obesitycheck/artifacts"
	"obesitycheck/config"
	"obesitycheck/db"
	qhttp "obesitycheck/http"
	"obesitycheck/logging"
	"obesitycheck/predictor"
)

type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Service *predictor.Service

	source  artifacts.Source
	watcher *artifacts.Watcher
	store   *db.Store
}

// NewLogger builds the logger described by the log section.
func NewLogger(cfg *config.Config) *zap.Logger {
	return logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}

func Settings(cfg *config.Config) artifacts.Settings {
	return artifacts.Settings{
		ScalerPath:      cfg.Artifacts.ScalerPath,
		ModelType:       cfg.Artifacts.ModelType,
		ModelPath:       cfg.Artifacts.ModelPath,
		ONNXLibraryPath: cfg.Artifacts.ONNXLibraryPath,
	}
}

// New loads the artifacts and opens the history store. Missing artifacts
// are not an error; prediction stays disabled until they appear.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	if cfg.Artifacts.Watch {
		w, err := artifacts.NewWatcher(Settings(cfg), logger)
		if err != nil {
			return nil, fmt.Errorf("watch artifacts: %w", err)
		}
		a.watcher = w
		a.source = w
	} else {
		a.source = artifacts.NewStatic(artifacts.Load(Settings(cfg), logger))
	}
	if err := a.source.Current().Ready(); err != nil {
		logger.Warn("prediction disabled", zap.Error(err))
	}

	opts := []predictor.Option{
		predictor.WithLogger(logger),
		predictor.WithCacheSize(cfg.Cache.Size),
	}
	if cfg.Database.Path != "" {
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
		logger.Info("history enabled", zap.String("path", cfg.Database.Path))
		a.store = store
		opts = append(opts, predictor.WithHistory(store))
	}

	svc, err := predictor.New(a.source, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Service = svc
	if a.watcher != nil {
		a.watcher.OnReload(func(*artifacts.Bundle) { svc.Purge() })
	}
	return a, nil
}

// Store returns the history store, or nil when history is disabled.
func (a *App) Store() *db.Store {
	return a.store
}

// Serve runs the HTTP server, and the artifact watcher when enabled, until
// ctx is done.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.watcher != nil {
		go func() {
			if err := a.watcher.Run(ctx); err != nil {
				a.Logger.Error("artifact watcher stopped", zap.Error(err))
			}
		}()
	}

	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           a.Config.Http.Port,
		Timeout:        a.Config.Http.Timeout,
		AllowedOrigins: a.Config.Http.AllowedOrigins,
		MaxBodyBytes:   qhttp.DefaultServerConfig().MaxBodyBytes,
	}, a.Service, a.Logger)

	errc := make(chan error, 1)
	go func() {
		errc <- server.Start()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	if err := server.Stop(); err != nil {
		return err
	}
	return <-errc
}

func (a *App) Close() error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.source != nil {
		errs = append(errs, a.source.Current().Close())
	}
	return errors.Join(errs...)
}

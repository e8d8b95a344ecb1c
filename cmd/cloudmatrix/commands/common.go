// Package commands implements the cloudmatrix CLI actions.
package commands

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/cloudmatrix/cloudmatrix/config"
	"github.com/cloudmatrix/cloudmatrix/internal/bootstrap"
	"github.com/cloudmatrix/cloudmatrix/internal/core"
	"github.com/cloudmatrix/cloudmatrix/internal/data"
	"github.com/cloudmatrix/cloudmatrix/internal/observability/statsd"
)

// AppContext carries the process configuration and shared infrastructure
// for one CLI invocation.
type AppContext struct {
	Config  config.AppConfig
	Logger  *slog.Logger
	Metrics *statsd.Client

	db    *sql.DB
	redis redis.UniversalClient
}

// NewAppContext loads configuration and connects whatever infrastructure is
// enabled. Archive and baseline backends are optional; when disabled the
// corresponding collaborators are simply absent.
func NewAppContext(ctx context.Context) (*AppContext, error) {
	logger := bootstrap.InitLogger()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return nil, err
	}

	metrics, err := bootstrap.InitMetrics(cfg.Observability, logger)
	if err != nil {
		return nil, err
	}

	app := &AppContext{Config: cfg, Logger: logger, Metrics: metrics}

	if cfg.ArchiveEnabled {
		app.db, err = bootstrap.ConnectDB(ctx, cfg.Postgres, logger)
		if err != nil {
			app.Close(ctx)
			return nil, err
		}
	}
	if cfg.BaselineEnabled {
		app.redis, err = bootstrap.ConnectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			app.Close(ctx)
			return nil, err
		}
	}

	return app, nil
}

// Archive returns the run archive, or nil when disabled.
func (a *AppContext) Archive() core.RunArchive {
	if a.db == nil {
		return nil
	}
	return data.NewRunRepo(a.db, a.Logger)
}

// Baseline returns the baseline store, or nil when disabled.
func (a *AppContext) Baseline() core.BaselineStore {
	if a.redis == nil {
		return nil
	}
	return data.NewBaselineRepo(a.redis)
}

// Close releases held connections.
func (a *AppContext) Close(ctx context.Context) {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "close database failed", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "close redis failed", "error", err)
		}
	}
	if a.Metrics != nil {
		if err := a.Metrics.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "close metrics failed", "error", err)
		}
	}
}

// LoadDocument loads the matrix document for the invocation, falling back to
// the configured default service list when the document omits Services.
func (a *AppContext) LoadDocument(path string) (*config.MatrixDocument, error) {
	return config.LoadMatrixDocument(path, a.Config.DefaultServices)
}

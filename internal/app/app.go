// Package app assembles the adapters and services shared by the HTTP server
// and the command line client.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"studio-service/internal/adapters/secondary/nebius"
	"studio-service/internal/adapters/secondary/postgres"
	"studio-service/internal/adapters/secondary/sqlite"
	"studio-service/internal/config"
	"studio-service/internal/core/poll"
	"studio-service/internal/core/ports/output"
	"studio-service/internal/core/services"
)

// App holds the wired services. Close releases the log store.
type App struct {
	Config *config.Config

	Provider      ports.ProviderClient
	Files         *services.FileService
	FineTuning    *services.FineTuningService
	Checkpoints   *services.CheckpointService
	GenerationLog *services.GenerationLogService

	closers []func()
}

// New wires the application from cfg. A log store that cannot be opened is
// an error; use driver "none" to run without one.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	repo, err := a.openLogStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	ft := cfg.FineTuning
	a.Provider = nebius.NewClient(&cfg.Provider)
	a.Files = services.NewFileService(a.Provider,
		services.WithUploadPolicy(poll.Policy{MaxAttempts: ft.UploadPollAttempts, Delay: ft.UploadPollDelay}),
		services.WithStrictProcessing(ft.StrictProcessing),
	)
	a.GenerationLog = services.NewGenerationLogService(repo)
	a.FineTuning = services.NewFineTuningService(a.Provider, a.Files, a.GenerationLog,
		services.WithRecheckPolicy(poll.Policy{MaxAttempts: ft.RecheckPollAttempts, Delay: ft.RecheckPollDelay}),
		services.WithJSONLValidation(ft.ValidateJSONL),
	)
	a.Checkpoints = services.NewCheckpointService(a.Provider, ft.DownloadDir)

	return a, nil
}

// ProviderConfigured reports whether an API key is set.
func (a *App) ProviderConfigured() bool {
	return a.Config.Provider.APIKey != ""
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openLogStore(ctx context.Context) (ports.GenerationLogRepository, error) {
	ls := a.Config.LogStore

	switch ls.Driver {
	case config.DriverNone, "":
		log.Info("generation log store disabled")
		return nil, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, ls.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite log store: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Warn("close sqlite log store failed")
			}
		})
		log.WithField("path", store.Path()).Info("sqlite log store opened")
		return sqlite.NewGenerationLogRepository(store), nil

	case config.DriverPostgres:
		if ls.DatabaseURL == "" {
			return nil, fmt.Errorf("log store driver %q requires DATABASE_URL", ls.Driver)
		}
		poolCfg, err := pgxpool.ParseConfig(ls.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse db config: %w", err)
		}
		poolCfg.MaxConns = int32(ls.MaxOpenConns)
		poolCfg.MinConns = int32(ls.MaxIdleConns)
		poolCfg.MaxConnLifetime = ls.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("create db pool: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		// The table may be created later; an unreachable database is only
		// reported, the service still starts.
		if err := pool.Ping(ctx); err != nil {
			log.WithError(err).Warn("ping log database failed")
		} else {
			log.Info("database connection established")
		}
		return postgres.NewGenerationLogRepository(pool), nil

	default:
		return nil, fmt.Errorf("unknown log store driver %q", ls.Driver)
	}
}

// InitLogger applies the logger settings to the standard logrus logger.
func InitLogger(cfg config.LoggerConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

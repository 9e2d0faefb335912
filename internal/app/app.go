// Package app wires the sync client together: configuration, local database,
// remote client, pipelines, and the engine, plus graceful shutdown.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bujoapp/journalsync/internal/config"
	"github.com/bujoapp/journalsync/internal/cursor"
	"github.com/bujoapp/journalsync/internal/device"
	"github.com/bujoapp/journalsync/internal/engine"
	"github.com/bujoapp/journalsync/internal/logging"
	"github.com/bujoapp/journalsync/internal/metadata"
	"github.com/bujoapp/journalsync/internal/netx"
	"github.com/bujoapp/journalsync/internal/outbox"
	"github.com/bujoapp/journalsync/internal/pull"
	"github.com/bujoapp/journalsync/internal/push"
	"github.com/bujoapp/journalsync/internal/remote"
	"github.com/bujoapp/journalsync/internal/store"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	engine *engine.Engine

	// Recorder is the hook the domain layer calls inside its write
	// transactions to enqueue outbox mutations.
	Recorder *outbox.Recorder
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	metaRepo := metadata.NewSQLiteRepository(db)
	deviceID, err := device.NewProvider(metaRepo).ID(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("device id error: %w", err)
	}

	rmt := remote.NewHTTPClient(cfg.EndpointURL, cfg.AuthToken, cfg.HTTPTimeout, logger)
	outboxRepo := outbox.NewSQLiteRepository(db)
	cursorRepo := cursor.NewSQLiteRepository(db)
	mirror := store.NewSQLiteRepository(db)

	eng := engine.New(engine.Options{
		Push:        push.NewPipeline(outboxRepo, rmt, cfg.UserID, cfg.PushBatchSize, logger),
		Pull:        pull.NewPipeline(rmt, mirror, cursorRepo, cfg.PullBatchSize, logger),
		Outbox:      outboxRepo,
		Cursors:     cursorRepo,
		Prober:      netx.NewProber(rmt, cfg.HTTPTimeout),
		Metadata:    metaRepo,
		Logger:      logger,
		Interval:    cfg.SyncInterval,
		MaxInterval: cfg.MaxSyncInterval,
		Enabled:     cfg.SyncEnabled,
	})

	return &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		engine:   eng,
		Recorder: outbox.NewRecorder(deviceID),
	}, nil
}

// Engine exposes the sync engine for embedders (status surfaces, manual sync).
func (app *App) Engine() *engine.Engine {
	return app.engine
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts auto-sync and blocks until the context is cancelled or a
// termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting sync client", "endpoint", app.config.EndpointURL)

	app.initSignalHandler(cancelFunc)

	if err := app.engine.StartAutoSync(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return
	}

	<-ctx.Done()

	app.engine.StopAutoSync()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
	app.logger.Info(ctx, "sync client stopped")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/vidx/internal/devengine"
	"github.com/desertthunder/vidx/internal/engine"
	"github.com/desertthunder/vidx/internal/repositories"
	"github.com/desertthunder/vidx/internal/server"
	"github.com/desertthunder/vidx/internal/shared"
)

// EngineServe runs the development engine until interrupted.
func (r *Runner) EngineServe(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}
	dbPath := cmd.String("db")
	if dbPath == "" {
		dbPath = r.config.Database.Path
	}
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	db, err := shared.NewDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	dev, err := devengine.New(repositories.NewDownloadRepository(db), repositories.NewLogRepository(db), devengine.Options{
		TickRate:     r.config.DevEngine.TickRate,
		SegmentStep:  r.config.DevEngine.SegmentStep,
		SegmentBytes: r.config.DevEngine.SegmentBytes,
		HTTPClient:   newHTTPClient(),
		Logger:       r.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start development engine: %w", err)
	}
	defer dev.Close()

	ws := engine.NewServer(dev, r.logger)
	defer ws.Close()

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(ws)
	router.Handler(server.NewPlayerHandler(dev, r.logger))
	router.Handler(server.HealthHandler{})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("development engine ready", "ws", "ws://"+addr+"/ws", "db", dbPath)
	return server.ListenAndServe(ctx, addr, router, r.logger)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

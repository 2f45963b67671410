// Package app orchestrates the application components' lifecycle: the HTTP
// server and the task scheduler run until failure or shutdown signal.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/cloudmeow/chatbot/internal/config"
	"github.com/cloudmeow/chatbot/internal/database"
	"github.com/cloudmeow/chatbot/internal/server"
)

// App represents the running application and manages its components' lifecycle.
type App struct {
	logger    *slog.Logger
	cfg       *config.Config
	db        *sqlx.DB
	store     database.Store
	server    *server.Server
	scheduler *Scheduler
}

// New creates the application orchestrator with all required dependencies.
func New(
	logger *slog.Logger,
	cfg *config.Config,
	db *sqlx.DB,
	store database.Store,
	srv *server.Server,
	scheduler *Scheduler,
) *App {
	return &App{
		logger:    logger.With("component", "orchestrator"),
		cfg:       cfg,
		db:        db,
		store:     store,
		server:    srv,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until the context is canceled or a
// component fails. Shutdown is graceful in both cases.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Start()
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.server.Shutdown(context.Background())
	})

	g.Go(func() error {
		a.logger.Info("Starting scheduler...")
		if err := a.scheduler.Start(); err != nil {
			return err
		}

		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Orchestrator stopped due to error", "error", err)
		return err
	}

	a.logger.Info("Orchestrator stopped gracefully.")
	return nil
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudmeow/chatbot/internal/config"
	"github.com/cloudmeow/chatbot/internal/database"
)

// SessionCleaner removes idle chat sessions and reports how many were dropped.
type SessionCleaner interface {
	CleanupIdleSessions(ctx context.Context) int
}

// TaskDeps contains the dependencies available to scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Sessions SessionCleaner
	Config   *config.Config
}

// RegisterAllTasks builds the registry of scheduled tasks keyed by the names
// used in the scheduler configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	return map[string]ScheduledTaskFunc{
		"sql_maintenance": newSQLMaintenanceTask(deps),
		"session_cleanup": newSessionCleanupTask(deps),
	}
}

// newSQLMaintenanceTask creates a task that compacts the SQLite database.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled database maintenance...")

		timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		if err := deps.Store.RunSQLMaintenance(timeoutCtx); err != nil {
			return fmt.Errorf("database maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Database maintenance completed")
		return nil
	}
}

// newSessionCleanupTask creates a task that drops idle chat sessions so
// abandoned conversations do not accumulate history in memory.
func newSessionCleanupTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "session_cleanup")

	return func(ctx context.Context) error {
		removed := deps.Sessions.CleanupIdleSessions(ctx)
		log.InfoContext(ctx, "Session cleanup completed", "sessions_removed", removed)
		return nil
	}
}

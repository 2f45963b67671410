package app_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmeow/chatbot/internal/app"
	"github.com/cloudmeow/chatbot/internal/config"
	"github.com/cloudmeow/chatbot/internal/database"
)

type fakeMaintenanceStore struct {
	database.Store

	calls int
	err   error
}

func (f *fakeMaintenanceStore) RunSQLMaintenance(_ context.Context) error {
	f.calls++
	return f.err
}

type fakeCleaner struct {
	removed int
	calls   int
}

func (f *fakeCleaner) CleanupIdleSessions(_ context.Context) int {
	f.calls++
	return f.removed
}

func testTaskDeps(store database.Store, cleaner app.SessionCleaner) app.TaskDeps {
	return app.TaskDeps{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:    store,
		Sessions: cleaner,
		Config:   &config.Config{},
	}
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	tasks := app.RegisterAllTasks(testTaskDeps(&fakeMaintenanceStore{}, &fakeCleaner{}))

	require.Contains(t, tasks, "sql_maintenance")
	require.Contains(t, tasks, "session_cleanup")
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()

	t.Run("runs maintenance", func(t *testing.T) {
		t.Parallel()
		store := &fakeMaintenanceStore{}
		tasks := app.RegisterAllTasks(testTaskDeps(store, &fakeCleaner{}))

		require.NoError(t, tasks["sql_maintenance"](context.Background()))
		assert.Equal(t, 1, store.calls)
	})

	t.Run("propagates failure", func(t *testing.T) {
		t.Parallel()
		store := &fakeMaintenanceStore{err: errors.New("database is locked")}
		tasks := app.RegisterAllTasks(testTaskDeps(store, &fakeCleaner{}))

		err := tasks["sql_maintenance"](context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database maintenance failed")
	})
}

func TestSessionCleanupTask(t *testing.T) {
	t.Parallel()

	cleaner := &fakeCleaner{removed: 3}
	tasks := app.RegisterAllTasks(testTaskDeps(&fakeMaintenanceStore{}, cleaner))

	require.NoError(t, tasks["session_cleanup"](context.Background()))
	assert.Equal(t, 1, cleaner.calls)
}

func TestScheduler_StartAndStop(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.SchedulerConfig{
		Tasks: map[string]config.TaskConfig{
			"sql_maintenance": {Enabled: true, Schedule: "0 0 4 * * *"},
			"session_cleanup": {Enabled: false, Schedule: "0 */10 * * * *"},
			"unknown_task":    {Enabled: true, Schedule: "0 0 * * * *"},
		},
	}
	tasks := app.RegisterAllTasks(testTaskDeps(&fakeMaintenanceStore{}, &fakeCleaner{}))

	sched, err := app.NewScheduler(log, cfg, tasks)
	require.NoError(t, err)

	require.NoError(t, sched.Start())
	require.Error(t, sched.Start(), "double start must be rejected")
	require.NoError(t, sched.Stop())
	require.NoError(t, sched.Stop(), "stopping a stopped scheduler is a no-op")
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cloudmeow/chatbot/internal/config"
)

func TestLoad_DefaultsWithAPIKeyFromEnv(t *testing.T) {
	t.Setenv("BOT_GEMINI_API_KEY", "test-key")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, "info", cfg.Logger.Level)
	require.Equal(t, ":8888", cfg.Server.Addr)
	require.Equal(t, "7608dc3f-d239-405c-a097-b152ab38a354", cfg.Server.DefaultUserID)
	require.Equal(t, "test-key", cfg.Gemini.APIKey)
	require.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	require.Equal(t, "imagen-3.0-generate-002", cfg.Gemini.ImageModel)
	require.Equal(t, 5*time.Second, cfg.Converter.PollInterval)
	require.Equal(t, "static/avatars", cfg.Avatar.Dir)
	require.NotEmpty(t, cfg.Messages.Greeting)
	require.NotEmpty(t, cfg.Messages.GeneralError)

	require.Contains(t, cfg.Scheduler.Tasks, "sql_maintenance")
	require.Contains(t, cfg.Scheduler.Tasks, "session_cleanup")
	require.True(t, cfg.Scheduler.Tasks["sql_maintenance"].Enabled)
	require.Equal(t, "0 0 4 * * *", cfg.Scheduler.Tasks["sql_maintenance"].Schedule)
}

func TestLoad_MissingAPIKeyFails(t *testing.T) {
	t.Setenv("BOT_GEMINI_API_KEY", "")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "validation")
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("BOT_GEMINI_API_KEY", "test-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  addr: ":9999"
  default_user_id: "a21f8302-6c99-4a8e-bb9e-6f0c2b90bb11"
logger:
  level: debug
  json: false
messages:
  greeting: "Hello there"
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, ":9999", cfg.Server.Addr)
	require.Equal(t, "a21f8302-6c99-4a8e-bb9e-6f0c2b90bb11", cfg.Server.DefaultUserID)
	require.Equal(t, "debug", cfg.Logger.Level)
	require.False(t, cfg.Logger.JSON)
	require.Equal(t, "Hello there", cfg.Messages.Greeting)
	// Untouched sections keep their defaults.
	require.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	t.Setenv("BOT_GEMINI_API_KEY", "test-key")

	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "bad log level",
			content: "logger:\n  level: loud\n",
		},
		{
			name:    "default user id not a uuid",
			content: "server:\n  default_user_id: not-a-uuid\n",
		},
		{
			name:    "temperature out of range",
			content: "gemini:\n  temperature: 7.5\n",
		},
		{
			name:    "converter url invalid",
			content: "converter:\n  base_url: not-a-url\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := config.Load(path)
			require.Error(t, err)
		})
	}
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	t.Setenv("BOT_GEMINI_API_KEY", "test-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: closed"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}

// Package config provides configuration loading, validation, and management
// for the chatbot application. It handles reading from YAML files, applying
// environment variable overrides, setting default values, and validating
// configuration parameters.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration parameters for all components
// of the chatbot: logging, HTTP server, database, Gemini integration, avatar
// pipeline, and scheduled tasks.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Avatar    AvatarConfig    `mapstructure:"avatar"`
	Converter ConverterConfig `mapstructure:"converter"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"              validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"      validate:"min=1s,max=5m"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"     validate:"min=1s,max=10m"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"  validate:"min=1s,max=5m"`
	ChatRateLimit   int           `mapstructure:"chat_rate_limit"   validate:"min=1"`
	DefaultUserID   string        `mapstructure:"default_user_id"   validate:"required,uuid4"`
}

// DatabaseConfig holds SQLite connection settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// GeminiConfig holds settings for the Gemini API integration.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key"             validate:"required"`
	Model             string        `mapstructure:"model"               validate:"required"`
	RAGModel          string        `mapstructure:"rag_model"           validate:"required"`
	ImageModel        string        `mapstructure:"image_model"         validate:"required"`
	Temperature       float32       `mapstructure:"temperature"         validate:"min=0,max=2"`
	MaxRetries        int           `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int           `mapstructure:"retry_delay_seconds" validate:"min=1,max=60"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"     validate:"min=1s,max=10m"`
	SystemInstruction string        `mapstructure:"system_instruction"  validate:"required"`
	ResponseStyle     string        `mapstructure:"response_style"`
	RAGInstruction    string        `mapstructure:"rag_instruction"     validate:"required"`
	SessionMaxIdle    time.Duration `mapstructure:"session_max_idle"    validate:"min=1m,max=24h"`
}

// AvatarConfig holds settings for avatar image generation and storage.
type AvatarConfig struct {
	Dir                   string `mapstructure:"dir"                    validate:"required"`
	BaseURL               string `mapstructure:"base_url"               validate:"required"`
	GenerationInstruction string `mapstructure:"generation_instruction" validate:"required,contains=%s"`
}

// ConverterConfig holds settings for the external avatar-to-3D conversion service.
type ConverterConfig struct {
	BaseURL      string        `mapstructure:"base_url"      validate:"required,url"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"min=1s,max=5m"`
	ModelDir     string        `mapstructure:"model_dir"     validate:"required"`
}

// SchedulerConfig holds the set of scheduled tasks keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig configures a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MessagesConfig holds user-facing canned messages.
type MessagesConfig struct {
	Greeting     string `mapstructure:"greeting"      validate:"required"`
	GeneralError string `mapstructure:"general_error" validate:"required"`
}

// Load reads configuration from the given YAML file, applies BOT_* environment
// variable overrides and defaults, and validates the result. A missing config
// file is not an error; defaults and environment variables are used instead.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		// Config file not found is okay, defaults and env vars apply.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", true)

	v.SetDefault("server.addr", ":8888")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.chat_rate_limit", 30)
	v.SetDefault("server.default_user_id", "7608dc3f-d239-405c-a097-b152ab38a354")

	v.SetDefault("database.path", "storage.db")

	// Empty default registers the key so BOT_GEMINI_API_KEY can override it.
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.rag_model", "gemini-2.0-flash")
	v.SetDefault("gemini.image_model", "imagen-3.0-generate-002")
	v.SetDefault("gemini.temperature", 1.0)
	v.SetDefault("gemini.max_retries", 2)
	v.SetDefault("gemini.retry_delay_seconds", 2)
	v.SetDefault("gemini.request_timeout", 2*time.Minute)
	v.SetDefault("gemini.system_instruction",
		"You are a playful assistant for a game chatbot. You can show and restyle "+
			"the user's character and avatar when asked. Keep replies short and friendly.")
	v.SetDefault("gemini.response_style", " Answer in plain text suitable for a chat bubble.")
	v.SetDefault("gemini.rag_instruction",
		"Answer questions about the game Cloud Meow using only the retrieved documents.")
	v.SetDefault("gemini.session_max_idle", 30*time.Minute)

	v.SetDefault("avatar.dir", "static/avatars")
	v.SetDefault("avatar.base_url", "/static/avatars")
	v.SetDefault("avatar.generation_instruction",
		"A square portrait avatar for a game character: %s")

	v.SetDefault("converter.base_url", "https://genai3d.example.com")
	v.SetDefault("converter.poll_interval", 5*time.Second)
	v.SetDefault("converter.model_dir", "static/models")

	v.SetDefault("scheduler.tasks", map[string]any{
		"sql_maintenance": map[string]any{"enabled": true, "schedule": "0 0 4 * * *"},
		"session_cleanup": map[string]any{"enabled": true, "schedule": "0 */10 * * * *"},
	})

	v.SetDefault("messages.greeting", "Meow! Ask me about your character, your avatar, or the game.")
	v.SetDefault("messages.general_error", "Something went wrong. Please try again later.")
}

// Package main contains the entrypoint for the chatbot HTTP application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/genai"

	"github.com/cloudmeow/chatbot/internal/app"
	"github.com/cloudmeow/chatbot/internal/avatar"
	"github.com/cloudmeow/chatbot/internal/config"
	"github.com/cloudmeow/chatbot/internal/database"
	"github.com/cloudmeow/chatbot/internal/gemini"
	"github.com/cloudmeow/chatbot/internal/logger"
	"github.com/cloudmeow/chatbot/internal/server"
	"github.com/cloudmeow/chatbot/internal/user"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all application components (config, logger, db, AI clients,
// HTTP server, scheduler), handles graceful shutdown, and returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Error("Failed to initialize genai client", "error", err)
		return 1
	}

	retriever := gemini.NewRetriever(genaiClient, cfg.Gemini, log)
	generator := avatar.NewGenerator(genaiClient, cfg.Gemini, cfg.Avatar, log)
	converter := avatar.NewConverter(cfg.Converter, cfg.Avatar, log)

	userService := user.NewService(log, cfg, store, generator, converter, retriever)
	chatClient := gemini.NewClient(genaiClient, cfg.Gemini, log, userService, user.FunctionDeclarations())

	srv, err := server.New(log, cfg, chatClient, userService, version)
	if err != nil {
		log.Error("Failed to create HTTP server", "error", err)
		return 1
	}

	taskDeps := app.TaskDeps{
		Logger:   log,
		Store:    store,
		Sessions: chatClient,
		Config:   cfg,
	}
	scheduler, err := app.NewScheduler(log, &cfg.Scheduler, app.RegisterAllTasks(taskDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	application := app.New(log, cfg, db, store, srv, scheduler)

	log.Info("Starting chatbot...", "version", version)
	runErr := application.Run(ctx)
	log.Info("Run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Application stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Application stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}

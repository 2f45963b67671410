// Package server exposes the chatbot over HTTP: the chat page, the chat
// endpoint, character model lookup, and static assets.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/cloudmeow/chatbot/internal/config"
	"github.com/cloudmeow/chatbot/internal/database"
	"github.com/cloudmeow/chatbot/internal/logger"
	"github.com/cloudmeow/chatbot/internal/webui"
)

// ChatClient is the conversational surface the server forwards prompts to.
type ChatClient interface {
	SendMessage(ctx context.Context, userID, prompt string) (string, error)
	ResetAllSessions()
}

// ModelLookup retrieves character model records. Lookups distinguish a
// missing record (database.ErrNotFound) from a failing store.
type ModelLookup interface {
	GetModel(ctx context.Context, userID string) (*database.ModelRecord, error)
}

// Server is the HTTP front end of the chatbot.
type Server struct {
	log        *slog.Logger
	cfg        *config.Config
	chat       ChatClient
	models     ModelLookup
	version    string
	httpServer *http.Server
}

// New creates the HTTP server with its routes mounted.
func New(log *slog.Logger, cfg *config.Config, chat ChatClient, models ModelLookup, version string) (*Server, error) {
	s := &Server{
		log:     log.With("component", "http_server"),
		cfg:     cfg,
		chat:    chat,
		models:  models,
		version: version,
	}

	router, err := s.routes()
	if err != nil {
		return nil, err
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s, nil
}

func (s *Server) routes() (chi.Router, error) {
	assets, err := webui.Assets()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/version", s.handleVersion)
	r.Get("/reset", s.handleReset)

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet},
		}))
		r.Get("/get_model", s.handleGetModel)
	})

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.cfg.Server.ChatRateLimit, time.Minute))
		r.Post("/chat", s.handleChat)
	})

	r.Handle("/static/ui/*", http.StripPrefix("/static/ui/", http.FileServer(http.FS(assets))))
	r.Handle("/static/avatars/*", http.StripPrefix("/static/avatars/", http.FileServer(http.Dir(s.cfg.Avatar.Dir))))
	r.Handle("/static/models/*", http.StripPrefix("/static/models/", http.FileServer(http.Dir(s.cfg.Converter.ModelDir))))

	return r, nil
}

// Handler exposes the mounted router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.cfg.Server.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()

	s.log.Info("Shutting down HTTP server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloudmeow/chatbot/internal/database"
	"github.com/cloudmeow/chatbot/internal/webui"
)

const notFoundMessage = "Character was not found. Double-check the name and try again."

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := webui.RenderIndex(w, s.cfg.Messages.Greeting); err != nil {
		s.log.ErrorContext(r.Context(), "Failed to render chat page", "error", err)
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"version": s.version})
}

// handleChat forwards the prompt to the chat client and returns the reply as
// an HTML fragment for the transcript. Chat failures are reported as a
// canned message rather than an HTTP error so the page always gets a bubble
// to display.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	prompt := r.PostFormValue("prompt")
	if prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}

	reply, err := s.chat.SendMessage(r.Context(), s.cfg.Server.DefaultUserID, prompt)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Chat exchange failed", "error", err)
		reply = s.cfg.Messages.GeneralError
	}
	if reply == "" {
		reply = s.cfg.Messages.GeneralError
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(reply)); err != nil {
		s.log.ErrorContext(r.Context(), "Failed to write chat response", "error", err)
	}
}

// handleGetModel returns the character model for the configured user. A
// missing record is a 404; a failing store is a 500.
func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	model, err := s.models.GetModel(r.Context(), s.cfg.Server.DefaultUserID)
	switch {
	case err == nil:
		s.writeJSON(w, r, http.StatusOK, model)
	case errors.Is(err, database.ErrNotFound):
		http.Error(w, notFoundMessage, http.StatusNotFound)
	default:
		s.log.ErrorContext(r.Context(), "Model lookup failed", "error", err)
		http.Error(w, s.cfg.Messages.GeneralError, http.StatusInternalServerError)
	}
}

// handleReset wipes every chat session, not just the requesting user's.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.chat.ResetAllSessions()
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.ErrorContext(r.Context(), "Failed to encode JSON response", "error", err)
	}
}

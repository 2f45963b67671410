package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/cloudmeow/chatbot/internal/config"
)

// Retriever answers game lore questions against the retrieval-backed model.
// It keeps no session state; every question is independent.
type Retriever struct {
	genaiClient    *genai.Client
	log            *slog.Logger
	model          string
	requestTimeout time.Duration
	config         *genai.GenerateContentConfig
}

// NewRetriever creates a retrieval client using the configured RAG model and
// instruction.
func NewRetriever(genaiClient *genai.Client, cfg config.GeminiConfig, log *slog.Logger) *Retriever {
	return &Retriever{
		genaiClient:    genaiClient,
		log:            log.With("component", "gemini_retriever"),
		model:          cfg.RAGModel,
		requestTimeout: cfg.RequestTimeout,
		config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: cfg.RAGInstruction}}},
		},
	}
}

// Retrieve answers a single lore question and returns the model's text.
func (r *Retriever) Retrieve(ctx context.Context, question string) (string, error) {
	r.log.DebugContext(ctx, "Running lore retrieval", "question_len", len(question))

	if r.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.requestTimeout)
		defer cancel()
	}

	contents := []*genai.Content{genai.NewContentFromText(question, genai.RoleUser)}
	resp, err := r.genaiClient.Models.GenerateContent(ctx, r.model, contents, r.config)
	if err != nil {
		return "", fmt.Errorf("retrieval call failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("retrieval model returned empty text")
	}
	return text, nil
}

// Package gemini implements integration with Google's Gemini AI API.
// It maintains per-user chat sessions and routes model-issued function
// calls back into the application.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/cloudmeow/chatbot/internal/config"
	"github.com/cloudmeow/chatbot/internal/user"
)

// FunctionDispatcher executes a function call issued by the model and
// returns the handler's outcome.
type FunctionDispatcher interface {
	Call(ctx context.Context, name string, args map[string]any, userID string) (user.HandlerResult, error)
}

// Client defines the chat operations used throughout the application.
type Client interface {
	SendMessage(ctx context.Context, userID, prompt string) (string, error)
	ResetAllSessions()
	CleanupIdleSessions(ctx context.Context) int
}

type sdkClient struct {
	genaiClient      *genai.Client
	log              *slog.Logger
	contentConfig    *genai.GenerateContentConfig
	defaultModelName string
	responseStyle    string
	maxRetries       int
	retryDelay       time.Duration
	requestTimeout   time.Duration
	sessions         *sessionStore
	dispatcher       FunctionDispatcher
}

// NewClient creates a Gemini chat client over an existing genai connection.
// The dispatcher receives every function call the model issues; tools lists
// the declarations advertised to the model.
func NewClient(
	genaiClient *genai.Client,
	cfg config.GeminiConfig,
	log *slog.Logger,
	dispatcher FunctionDispatcher,
	tools *genai.Tool,
) Client {
	baseCfg := &genai.GenerateContentConfig{
		Temperature: &cfg.Temperature,

		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}

	if cfg.SystemInstruction != "" {
		baseCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.SystemInstruction}}}
	}
	if tools != nil {
		baseCfg.Tools = []*genai.Tool{tools}
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.Model)
	return &sdkClient{
		genaiClient:      genaiClient,
		log:              logger,
		contentConfig:    baseCfg,
		defaultModelName: cfg.Model,
		responseStyle:    cfg.ResponseStyle,
		maxRetries:       cfg.MaxRetries,
		retryDelay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
		requestTimeout:   cfg.RequestTimeout,
		sessions:         newSessionStore(cfg.SessionMaxIdle),
		dispatcher:       dispatcher,
	}
}

// exchangeContext bounds one prompt/reply round trip by the configured
// request timeout. A zero timeout leaves the parent deadline in charge.
func (c *sdkClient) exchangeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

// SendMessage appends the prompt to the user's chat session, lets the model
// respond, and executes at most one function call per message. When a
// handler produces an HTML fragment it is appended to the model's reply so
// the transcript can render it.
func (c *sdkClient) SendMessage(ctx context.Context, userID, prompt string) (string, error) {
	// Exchange id correlates the log lines of one prompt/reply round trip.
	log := c.log.With("exchange_id", uuid.NewString(), "user_id", userID)

	ctx, cancel := c.exchangeContext(ctx)
	defer cancel()

	session := c.sessions.get(userID)
	session.mu.Lock()
	defer session.mu.Unlock()
	// Mark activity up front so a long exchange is not counted as idle.
	session.lastUsed = time.Now()

	history := append(session.history, genai.NewContentFromText(prompt+c.responseStyle, genai.RoleUser))

	resp, err := c.generateContentWithRetries(ctx, c.defaultModelName, history, c.contentConfig)
	if err != nil {
		log.ErrorContext(ctx, "Gemini reply generation failed", "error", err)
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	var fragment string
	calls := resp.FunctionCalls()
	if len(calls) > 0 {
		// Only the first call is honored; the model is not given a
		// reason to batch calls and extra ones are dropped.
		call := calls[0]
		log.InfoContext(ctx, "Model issued function call", "function", call.Name)

		result, err := c.dispatcher.Call(ctx, call.Name, call.Args, userID)
		if err != nil {
			log.ErrorContext(ctx, "Function call dispatch failed", "function", call.Name, "error", err)
			return "", fmt.Errorf("function call %s failed: %w", call.Name, err)
		}
		fragment = result.Fragment

		history = append(history, resp.Candidates[0].Content)
		history = append(history, genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromFunctionResponse(call.Name, map[string]any{"output": result.Reply}),
		}, genai.RoleUser))

		resp, err = c.generateContentWithRetries(ctx, c.defaultModelName, history, c.contentConfig)
		if err != nil {
			log.ErrorContext(ctx, "Gemini function response round-trip failed", "error", err)
			return "", fmt.Errorf("gemini API call failed: %w", err)
		}
	}

	text, err := c.extractTextFromResponse(ctx, resp)
	if err != nil {
		return "", err
	}

	history = append(history, genai.NewContentFromText(text, genai.RoleModel))
	session.history = history
	session.lastUsed = time.Now()

	return text + fragment, nil
}

// ResetAllSessions discards every user's chat history.
func (c *sdkClient) ResetAllSessions() {
	removed := c.sessions.removeAll()
	c.log.Info("All chat sessions reset", "count", removed)
}

// CleanupIdleSessions drops sessions idle longer than the configured limit
// and returns how many were removed.
func (c *sdkClient) CleanupIdleSessions(ctx context.Context) int {
	removed := c.sessions.removeIdle()
	if removed > 0 {
		c.log.InfoContext(ctx, "Removed idle chat sessions", "count", removed)
	}
	return removed
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) {
			if i < c.maxRetries {
				c.log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "delay", c.retryDelay, "code", apiErr.Code)
				time.Sleep(c.retryDelay)
				continue
			}
			c.log.ErrorContext(ctx, "Gemini API call failed after max retries with APIError", "error", err, "code", apiErr.Code)
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.maxRetries, apiErr.Code, err)
		}

		c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return nil, err
}

func (c *sdkClient) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", fmt.Errorf("request blocked by safety filter: %s", reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", fmt.Errorf("model returned no content, finish reason: %s", finishReason)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("model returned empty text")
	}
	return text, nil
}

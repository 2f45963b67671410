// Package user implements the user profile lookup service and the chat
// function-call handlers that act on a user's character model and avatar.
package user

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"

	"github.com/cloudmeow/chatbot/internal/avatar"
	"github.com/cloudmeow/chatbot/internal/config"
	"github.com/cloudmeow/chatbot/internal/database"
)

// cacheBustMax bounds the random suffix appended to avatar URLs to defeat
// browser caching. Not a security or uniqueness mechanism.
const cacheBustMax = 1_000_000

// AvatarGenerator produces a new avatar image for a user from a text
// description and returns the URL it was published under.
type AvatarGenerator interface {
	Generate(ctx context.Context, userID, description string) (string, error)
}

// AvatarConverter submits a user's avatar for 3D conversion and watches the
// conversion job until the finished model is downloaded.
type AvatarConverter interface {
	Submit(ctx context.Context, userID string) (string, error)
	Watch(ctx context.Context, jobID, userID string) error
}

// RAGClient answers questions against the game lore corpus.
type RAGClient interface {
	Retrieve(ctx context.Context, question string) (string, error)
}

// HandlerResult is the outcome of a function-call handler: an instruction
// for the language model on how to phrase its reply, plus an HTML fragment
// to inject into the chat transcript.
type HandlerResult struct {
	Reply    string
	Fragment string
}

// Service provides user profile lookups and the function-call handlers
// exposed to the Gemini tool-calling mechanism.
type Service struct {
	logger    *slog.Logger
	store     database.Store
	cfg       *config.Config
	avatars   AvatarGenerator
	converter AvatarConverter
	rag       RAGClient
}

// NewService creates a user service with its injected dependencies. The
// avatar generator, converter, and RAG client may be nil when the matching
// feature is disabled; the corresponding handlers then report a failure
// reply instead of acting.
func NewService(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	avatars AvatarGenerator,
	converter AvatarConverter,
	rag RAGClient,
) *Service {
	return &Service{
		logger:    logger.With("component", "user_service"),
		store:     store,
		cfg:       cfg,
		avatars:   avatars,
		converter: converter,
		rag:       rag,
	}
}

// GetModel retrieves the character model record for a user.
// Returns database.ErrNotFound when the user has no model; any other error
// indicates a failing store so callers can tell the two cases apart.
func (s *Service) GetModel(ctx context.Context, userID string) (*database.ModelRecord, error) {
	model, err := s.store.GetModel(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("model lookup failed for user %s: %w", userID, err)
	}
	return model, nil
}

// FCShowMyModel reveals the user's character model window in the chat UI.
func (s *Service) FCShowMyModel(ctx context.Context, userID string) HandlerResult {
	s.logger.InfoContext(ctx, "Showing user's character", "user_id", userID)
	return HandlerResult{
		Reply:    `Reply something like "there you go"`,
		Fragment: `<script>$("#modelWindow").show();</script>`,
	}
}

// FCShowMyAvatar embeds the user's current avatar image in the chat
// transcript. The random suffix defeats browser caching of the mutable
// avatar file.
func (s *Service) FCShowMyAvatar(ctx context.Context, userID string) HandlerResult {
	s.logger.InfoContext(ctx, "Showing user's avatar", "user_id", userID)
	return HandlerResult{
		Reply:    `Reply something like "There you go."`,
		Fragment: avatarFragment(s.avatarURL(userID)),
	}
}

// FCSaveModelColor persists a new hex color on the user's model.
func (s *Service) FCSaveModelColor(ctx context.Context, userID, color string) HandlerResult {
	err := s.store.UpdateModelColor(ctx, userID, color)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "Updated model color", "user_id", userID, "color", color)
		return HandlerResult{
			Reply:    "Reply that their character color has been updated",
			Fragment: `<script>window.reloadCurrentModel();</script>`,
		}
	case errors.Is(err, database.ErrNotFound):
		return HandlerResult{
			Reply: fmt.Sprintf("Reply that no character for user '%s' was found.", userID),
		}
	default:
		s.logger.ErrorContext(ctx, "Failed to update model color", "user_id", userID, "error", err)
		return HandlerResult{
			Reply: "Reply that we failed to update their character settings.",
		}
	}
}

// FCRevertModelColor restores the original material of the user's model.
func (s *Service) FCRevertModelColor(ctx context.Context, userID string) HandlerResult {
	err := s.store.RevertModelColor(ctx, userID)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "Reverted to original materials", "user_id", userID)
		return HandlerResult{
			Reply:    "Reply that their character colors have been reverted",
			Fragment: `<script>window.reloadCurrentModel();</script>`,
		}
	case errors.Is(err, database.ErrNotFound):
		return HandlerResult{
			Reply: fmt.Sprintf("Reply that no character for user '%s' was found.", userID),
		}
	default:
		s.logger.ErrorContext(ctx, "Failed to revert model color", "user_id", userID, "error", err)
		return HandlerResult{
			Reply: "Reply that we failed to update their character settings.",
		}
	}
}

// FCGenerateAvatar generates a new avatar image from the description,
// publishes it, and records the URL on the user record.
func (s *Service) FCGenerateAvatar(ctx context.Context, userID, description string) HandlerResult {
	if s.avatars == nil {
		s.logger.WarnContext(ctx, "Avatar generation requested but no generator configured", "user_id", userID)
		return HandlerResult{
			Reply: "Reply that we failed to generate a new avatar. Ask them to try again later",
		}
	}

	avatarURL, err := s.avatars.Generate(ctx, userID, description)
	if err != nil {
		s.logger.ErrorContext(ctx, "Avatar generation failed", "user_id", userID, "error", err)
		return HandlerResult{
			Reply: "Reply that we failed to generate a new avatar. Ask them to try again later",
		}
	}

	if err := s.store.UpdateUserAvatar(ctx, userID, avatarURL); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record new avatar URL", "user_id", userID, "error", err)
		return HandlerResult{
			Reply: "Reply that we failed to generate a new avatar. Ask them to try again later",
		}
	}
	s.logger.InfoContext(ctx, "Updated user avatar", "user_id", userID, "avatar_url", avatarURL)

	return HandlerResult{
		Reply:    `Reply something like "There you go."`,
		Fragment: avatarFragment(avatarURL),
	}
}

// FCRAGRetrieval answers a lore question through the retrieval model and
// passes the answer back verbatim.
func (s *Service) FCRAGRetrieval(ctx context.Context, userID, question string) HandlerResult {
	if s.rag == nil {
		s.logger.WarnContext(ctx, "RAG retrieval requested but no client configured", "user_id", userID)
		return HandlerResult{Reply: s.cfg.Messages.GeneralError}
	}

	answer, err := s.rag.Retrieve(ctx, question)
	if err != nil {
		s.logger.ErrorContext(ctx, "RAG retrieval failed", "user_id", userID, "error", err)
		return HandlerResult{Reply: s.cfg.Messages.GeneralError}
	}
	return HandlerResult{Reply: answer}
}

// FCConvertAvatar submits the user's avatar for 3D conversion and watches
// the job in the background. The reply is returned immediately; the finished
// model replaces the current one once the job completes.
func (s *Service) FCConvertAvatar(ctx context.Context, userID string) HandlerResult {
	if s.converter == nil {
		s.logger.WarnContext(ctx, "Avatar conversion requested but no converter configured", "user_id", userID)
		return HandlerResult{
			Reply: "Reply that we failed to convert your avatar to a 3D model. Please try again later.",
		}
	}

	jobID, err := s.converter.Submit(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		s.logger.WarnContext(ctx, "No avatar file to convert", "user_id", userID)
		return HandlerResult{
			Reply: "Reply that we couldn't find your avatar. Please create one first.",
		}
	case errors.Is(err, avatar.ErrNoJobID):
		s.logger.ErrorContext(ctx, "Conversion service assigned no job id", "user_id", userID)
		return HandlerResult{
			Reply: "Reply that we couldn't start the conversion of their avatar to 3D model. Please try again later.",
		}
	default:
		s.logger.ErrorContext(ctx, "Avatar conversion submit failed", "user_id", userID, "error", err)
		return HandlerResult{
			Reply: "Reply that we failed to convert your avatar to a 3D model. Please try again later.",
		}
	}

	s.logger.InfoContext(ctx, "3D model generation started", "user_id", userID, "job_id", jobID)

	watchCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.converter.Watch(watchCtx, jobID, userID); err != nil {
			s.logger.Error("Avatar conversion job failed", "user_id", userID, "job_id", jobID, "error", err)
		}
	}()

	return HandlerResult{
		Reply:    "Reply that the conversion of their avatar to 3D model has started. The model will be updated later.",
		Fragment: fmt.Sprintf(`<script>console.log("Job id: %s");</script>`, jobID),
	}
}

func (s *Service) avatarURL(userID string) string {
	return fmt.Sprintf("%s/%s.png", s.cfg.Avatar.BaseURL, userID)
}

func avatarFragment(avatarURL string) string {
	return fmt.Sprintf(`
            <div>
                <br>
                <img class="avatar" src="%s?rand=%d">
            </div>`, avatarURL, rand.IntN(cacheBustMax+1))
}

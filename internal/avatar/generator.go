// Package avatar implements the avatar pipeline: image generation through
// the Imagen API and conversion of avatars to 3D models through an external
// service.
package avatar

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"google.golang.org/genai"

	"github.com/cloudmeow/chatbot/internal/config"
)

// Generator produces avatar images and publishes them under the static
// avatar directory. One image exists per user; regeneration overwrites it.
type Generator struct {
	genaiClient *genai.Client
	log         *slog.Logger
	model       string
	dir         string
	baseURL     string
	instruction string
}

// NewGenerator creates an avatar image generator.
func NewGenerator(genaiClient *genai.Client, geminiCfg config.GeminiConfig, avatarCfg config.AvatarConfig, log *slog.Logger) *Generator {
	return &Generator{
		genaiClient: genaiClient,
		log:         log.With("component", "avatar_generator"),
		model:       geminiCfg.ImageModel,
		dir:         avatarCfg.Dir,
		baseURL:     avatarCfg.BaseURL,
		instruction: avatarCfg.GenerationInstruction,
	}
}

// Generate renders a new avatar from the description, writes it to
// <dir>/<userID>.png, and returns the URL it is served under.
func (g *Generator) Generate(ctx context.Context, userID, description string) (string, error) {
	prompt := fmt.Sprintf(g.instruction, description)
	g.log.InfoContext(ctx, "Generating avatar image", "user_id", userID, "model", g.model)

	resp, err := g.genaiClient.Models.GenerateImages(ctx, g.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "1:1",
	})
	if err != nil {
		return "", fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return "", fmt.Errorf("image generation returned no images")
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create avatar directory: %w", err)
	}

	path := filepath.Join(g.dir, userID+".png")
	if err := os.WriteFile(path, resp.GeneratedImages[0].Image.ImageBytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write avatar file: %w", err)
	}

	g.log.InfoContext(ctx, "Avatar image written", "user_id", userID, "path", path)
	return fmt.Sprintf("%s/%s.png", g.baseURL, userID), nil
}

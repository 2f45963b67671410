package avatar

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cloudmeow/chatbot/internal/config"
)

// ErrNoJobID indicates the conversion service accepted the upload but did
// not assign a job id, so the conversion never started.
var ErrNoJobID = errors.New("upload response contained no job id")

// Converter submits avatar images to the external 3D conversion service and
// watches conversion jobs until the finished model file is downloaded.
type Converter struct {
	httpClient   *http.Client
	log          *slog.Logger
	baseURL      string
	pollInterval time.Duration
	avatarDir    string
	modelDir     string
}

// NewConverter creates a converter client for the conversion service at
// cfg.BaseURL.
func NewConverter(cfg config.ConverterConfig, avatarCfg config.AvatarConfig, log *slog.Logger) *Converter {
	return &Converter{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          log.With("component", "avatar_converter"),
		baseURL:      cfg.BaseURL,
		pollInterval: cfg.PollInterval,
		avatarDir:    avatarCfg.Dir,
		modelDir:     cfg.ModelDir,
	}
}

// Submit uploads the user's current avatar for conversion and returns the
// job id assigned by the service.
func (c *Converter) Submit(ctx context.Context, userID string) (string, error) {
	imageData, err := os.ReadFile(filepath.Join(c.avatarDir, userID+".png"))
	if err != nil {
		return "", fmt.Errorf("failed to read avatar file: %w", err)
	}

	payload, err := json.Marshal(map[string]string{
		"image": base64.StdEncoding.EncodeToString(imageData),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal upload payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("Failed to close upload response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload returned status %d", resp.StatusCode)
	}

	var jobData struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jobData); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if jobData.JobID == "" {
		return "", ErrNoJobID
	}

	return jobData.JobID, nil
}

// Watch polls the job until it finishes, then downloads the model file and
// installs it as the user's current model. It returns when the job reaches a
// terminal state, polling fails, or ctx is canceled.
func (c *Converter) Watch(ctx context.Context, jobID, userID string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, filename, err := c.checkJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("checking job %s: %w", jobID, err)
		}

		switch status {
		case "finished":
			c.log.InfoContext(ctx, "Conversion job finished", "job_id", jobID, "user_id", userID)
			if filename == "" {
				return fmt.Errorf("job %s finished without a filename", jobID)
			}
			return c.downloadModel(ctx, filename, userID)
		case "queued":
			c.log.InfoContext(ctx, "Conversion job queued, waiting", "job_id", jobID, "interval", c.pollInterval)
		default:
			return fmt.Errorf("job %s returned unknown status %q", jobID, status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Converter) checkJob(ctx context.Context, jobID string) (status, filename string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/check_job/"+jobID, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("status request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("Failed to close status response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("status check returned %d", resp.StatusCode)
	}

	var jobData struct {
		Status   string `json:"status"`
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jobData); err != nil {
		return "", "", fmt.Errorf("failed to decode status response: %w", err)
	}
	return jobData.Status, jobData.Filename, nil
}

func (c *Converter) downloadModel(ctx context.Context, filename, userID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, filename, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model download failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("Failed to close download response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model download returned status %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read model content: %w", err)
	}

	if err := os.MkdirAll(c.modelDir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	path := filepath.Join(c.modelDir, "default.glb")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}

	c.log.InfoContext(ctx, "Updated 3D model", "user_id", userID, "source", filename, "path", path)
	return nil
}

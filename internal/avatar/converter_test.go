package avatar_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmeow/chatbot/internal/avatar"
	"github.com/cloudmeow/chatbot/internal/config"
)

const testUserID = "7608dc3f-d239-405c-a097-b152ab38a354"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeAvatarFile(t *testing.T, dir string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, testUserID+".png"), content, 0o644))
}

func newConverter(t *testing.T, baseURL string) (*avatar.Converter, string, string) {
	t.Helper()
	avatarDir := t.TempDir()
	modelDir := t.TempDir()

	conv := avatar.NewConverter(
		config.ConverterConfig{
			BaseURL:      baseURL,
			PollInterval: 10 * time.Millisecond,
			ModelDir:     modelDir,
		},
		config.AvatarConfig{Dir: avatarDir},
		discardLogger(),
	)
	return conv, avatarDir, modelDir
}

func TestConverter_Submit(t *testing.T) {
	t.Parallel()

	imageContent := []byte("fake png bytes")
	var gotImage string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/upload", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotImage = payload["image"]

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"job_id":"job-7"}`))
	}))
	defer srv.Close()

	conv, avatarDir, _ := newConverter(t, srv.URL)
	writeAvatarFile(t, avatarDir, imageContent)

	jobID, err := conv.Submit(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, "job-7", jobID)
	assert.Equal(t, base64.StdEncoding.EncodeToString(imageContent), gotImage)
}

func TestConverter_Submit_MissingAvatar(t *testing.T) {
	t.Parallel()

	conv, _, _ := newConverter(t, "http://127.0.0.1:0")

	_, err := conv.Submit(context.Background(), testUserID)
	require.ErrorIs(t, err, fs.ErrNotExist, "a missing avatar file must stay recognizable to callers")
}

func TestConverter_Submit_NoJobID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	conv, avatarDir, _ := newConverter(t, srv.URL)
	writeAvatarFile(t, avatarDir, []byte("png"))

	_, err := conv.Submit(context.Background(), testUserID)
	require.ErrorIs(t, err, avatar.ErrNoJobID)
}

func TestConverter_Watch_DownloadsFinishedModel(t *testing.T) {
	t.Parallel()

	modelContent := []byte("glTF binary payload")
	var polls atomic.Int32

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/check_job/job-7", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// First poll reports the job still queued, then it finishes.
		if polls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"status":"queued"}`))
			return
		}
		resp := map[string]string{
			"status":   "finished",
			"filename": srv.URL + "/results/model.glb",
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/results/model.glb", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(modelContent)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	conv, _, modelDir := newConverter(t, srv.URL)

	require.NoError(t, conv.Watch(context.Background(), "job-7", testUserID))
	assert.GreaterOrEqual(t, polls.Load(), int32(2))

	written, err := os.ReadFile(filepath.Join(modelDir, "default.glb"))
	require.NoError(t, err)
	assert.Equal(t, modelContent, written)
}

func TestConverter_Watch_UnknownStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"exploded"}`))
	}))
	defer srv.Close()

	conv, _, _ := newConverter(t, srv.URL)

	err := conv.Watch(context.Background(), "job-7", testUserID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestConverter_Watch_ContextCanceled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	}))
	defer srv.Close()

	conv, _, _ := newConverter(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := conv.Watch(ctx, "job-7", testUserID)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

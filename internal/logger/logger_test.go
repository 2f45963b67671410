package logger_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmeow/chatbot/internal/logger"
)

func TestNewLogger_Levels(t *testing.T) {
	t.Parallel()

	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		log := logger.NewLogger(level, true)
		require.NotNil(t, log, "level %q must still produce a logger", level)
	}
}

func TestMiddleware_PassesThrough(t *testing.T) {
	t.Parallel()

	log := logger.NewLogger("error", false)

	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	logger.Middleware(log)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestMiddleware_DefaultsTo200(t *testing.T) {
	t.Parallel()

	log := logger.NewLogger("error", false)

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	rr := httptest.NewRecorder()
	logger.Middleware(log)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

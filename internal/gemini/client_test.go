package gemini

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmeow/chatbot/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExchangeContext_AppliesRequestTimeout(t *testing.T) {
	t.Parallel()

	cfg := config.GeminiConfig{Model: "gemini-test", RequestTimeout: 2 * time.Minute}
	c, ok := NewClient(nil, cfg, discardLogger(), nil, nil).(*sdkClient)
	require.True(t, ok)

	ctx, cancel := c.exchangeContext(context.Background())
	defer cancel()

	deadline, hasDeadline := ctx.Deadline()
	require.True(t, hasDeadline, "configured timeout must bound the exchange")
	assert.WithinDuration(t, time.Now().Add(cfg.RequestTimeout), deadline, 5*time.Second)
}

func TestExchangeContext_ZeroTimeoutKeepsParentDeadline(t *testing.T) {
	t.Parallel()

	c, ok := NewClient(nil, config.GeminiConfig{Model: "gemini-test"}, discardLogger(), nil, nil).(*sdkClient)
	require.True(t, ok)

	ctx, cancel := c.exchangeContext(context.Background())
	defer cancel()

	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)
}

func TestExchangeContext_KeepsEarlierParentDeadline(t *testing.T) {
	t.Parallel()

	cfg := config.GeminiConfig{Model: "gemini-test", RequestTimeout: time.Hour}
	c, ok := NewClient(nil, cfg, discardLogger(), nil, nil).(*sdkClient)
	require.True(t, ok)

	parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
	defer parentCancel()

	ctx, cancel := c.exchangeContext(parent)
	defer cancel()

	deadline, hasDeadline := ctx.Deadline()
	require.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
}

func TestNewRetriever_CarriesRequestTimeout(t *testing.T) {
	t.Parallel()

	cfg := config.GeminiConfig{RAGModel: "gemini-rag-test", RequestTimeout: 90 * time.Second}
	r := NewRetriever(nil, cfg, discardLogger())

	assert.Equal(t, cfg.RequestTimeout, r.requestTimeout)
}

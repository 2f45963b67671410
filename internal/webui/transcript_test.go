package webui_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmeow/chatbot/internal/webui"
)

func countByClass(nodes []*webui.Node, classes ...string) int {
	count := 0
	for _, n := range nodes {
		matched := true
		for _, class := range classes {
			found := false
			for _, c := range n.Classes {
				if c == class {
					found = true
					break
				}
			}
			if !found {
				matched = false
				break
			}
		}
		if matched {
			count++
		}
		count += countByClass(n.Children, classes...)
	}
	return count
}

func TestTranscript_InsertUserPrompt_EmptyInputIsNoOp(t *testing.T) {
	t.Parallel()

	r := webui.NewMemoryRenderer()
	tr := webui.NewTranscript(r)

	tr.InsertUserPrompt()

	assert.Empty(t, r.Nodes)
	assert.Zero(t, r.ScrollTop)
}

func TestTranscript_InsertUserPrompt_AppendsOneUserBubble(t *testing.T) {
	t.Parallel()

	r := webui.NewMemoryRenderer()
	tr := webui.NewTranscript(r)

	r.Input = "show my model"
	tr.InsertUserPrompt()

	assert.Equal(t, 1, countByClass(r.Nodes, webui.ClassMessage, webui.ClassUser))
	assert.Equal(t, r.ScrollMax, r.ScrollTop, "panel must stay scrolled to its maximum")
	require.Len(t, r.Nodes, 1)
	assert.Equal(t, "show my model", r.Nodes[0].Text)
}

func TestTranscript_InsertBotPlaceholder(t *testing.T) {
	t.Parallel()

	r := webui.NewMemoryRenderer()
	tr := webui.NewTranscript(r)

	tr.InsertBotPlaceholder()

	assert.Equal(t, 1, countByClass(r.Nodes, webui.ClassResponseTarget))
	assert.Equal(t, 1, countByClass(r.Nodes, webui.ClassLoadingContainer))
	assert.Equal(t, r.ScrollMax, r.ScrollTop)
}

func TestTranscript_RemoveLoadingIndicator(t *testing.T) {
	t.Parallel()

	r := webui.NewMemoryRenderer()
	tr := webui.NewTranscript(r)

	r.Input = "hello"
	tr.InsertUserPrompt()
	tr.InsertBotPlaceholder()
	tr.InsertBotPlaceholder() // a second pending bubble can exist if requests overlap

	tr.RemoveLoadingIndicator()

	assert.Zero(t, countByClass(r.Nodes, webui.ClassLoadingContainer),
		"all loading containers must be removed")
	assert.Zero(t, countByClass(r.Nodes, webui.ClassResponseTarget),
		"the pending-response marker must be stripped everywhere")
	assert.Equal(t, 1, countByClass(r.Nodes, webui.ClassUser),
		"user bubbles must survive")
}

func TestTranscript_FormFields(t *testing.T) {
	t.Parallel()

	r := webui.NewMemoryRenderer()
	tr := webui.NewTranscript(r)

	tr.DisableFormFields()
	assert.False(t, r.FormEnabled)
	assert.False(t, r.InputFocused)

	tr.EnableFormFields()
	assert.True(t, r.FormEnabled)
	assert.True(t, r.InputFocused, "input regains focus when the form is re-enabled")
}

func TestTranscript_LoadingIndicatorVisibility(t *testing.T) {
	t.Parallel()

	r := webui.NewMemoryRenderer()
	tr := webui.NewTranscript(r)

	tr.ShowLoadingIndicator()
	assert.True(t, r.LoadingVisible)
}

func TestMemoryRenderer_HTMLEscapesText(t *testing.T) {
	t.Parallel()

	r := webui.NewMemoryRenderer()
	r.AppendUserMessage(`<script>alert("x")</script>`)

	html := r.HTML()
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, `class="chat-message user"`)
}

func TestRenderIndex(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	require.NoError(t, webui.RenderIndex(&sb, "Welcome, meow!"))

	page := sb.String()
	assert.Contains(t, page, `id="chat-history"`)
	assert.Contains(t, page, `id="prompt"`)
	assert.Contains(t, page, `id="chat-form"`)
	assert.Contains(t, page, `id="loading-indicator"`)
	assert.Contains(t, page, `id="modelWindow"`)
	assert.Contains(t, page, "Welcome, meow!")
	assert.Contains(t, page, `class="chat-message bot"`)
}

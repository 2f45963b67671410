// Package webui holds the chat page assets and the transcript presentation
// logic. The DOM-facing operations are expressed against a small Renderer
// interface so the logic can be driven and tested without a browser; the
// embedded chat script performs the same operations against the live page.
package webui

// Renderer is the drawing surface the transcript logic operates on: append
// messages, toggle the loading state, and control the input form.
type Renderer interface {
	// InputValue returns the current content of the prompt input.
	InputValue() string

	// AppendUserMessage appends one user message bubble to the history panel.
	AppendUserMessage(text string)

	// AppendBotPlaceholder appends a pending bot bubble containing a loading
	// indicator and carrying the marker for the response being awaited.
	AppendBotPlaceholder()

	// ClearPendingResponse removes every loading indicator container and
	// strips the pending-response marker wherever it is set.
	ClearPendingResponse()

	// ScrollToBottom sets the history panel's scroll position to its maximum.
	ScrollToBottom()

	// SetFormEnabled toggles the disabled state of the prompt input and
	// submit button, refocusing the input when enabling.
	SetFormEnabled(enabled bool)

	// SetLoadingVisible toggles the visibility of the loading indicator.
	SetLoadingVisible(visible bool)
}

// Transcript implements the chat page's presentation operations on top of a
// Renderer. It keeps no state of its own; all state lives in the renderer.
type Transcript struct {
	r Renderer
}

// NewTranscript creates transcript logic bound to the given renderer.
func NewTranscript(r Renderer) *Transcript {
	return &Transcript{r: r}
}

// InsertUserPrompt appends the current input value as a user bubble and
// scrolls to the bottom. An empty input is a no-op.
func (t *Transcript) InsertUserPrompt() {
	if t.r.InputValue() == "" {
		return
	}
	t.r.AppendUserMessage(t.r.InputValue())
	t.r.ScrollToBottom()
}

// InsertBotPlaceholder appends a pending bot bubble with a loading indicator
// and scrolls to the bottom.
func (t *Transcript) InsertBotPlaceholder() {
	t.r.AppendBotPlaceholder()
	t.r.ScrollToBottom()
}

// ScrollToBottom scrolls the history panel to its maximum position.
func (t *Transcript) ScrollToBottom() {
	t.r.ScrollToBottom()
}

// EnableFormFields re-enables the prompt input and submit button; the
// renderer refocuses the input.
func (t *Transcript) EnableFormFields() {
	t.r.SetFormEnabled(true)
}

// DisableFormFields disables the prompt input and submit button while a
// request is in flight.
func (t *Transcript) DisableFormFields() {
	t.r.SetFormEnabled(false)
}

// ShowLoadingIndicator makes the loading indicator fully visible.
func (t *Transcript) ShowLoadingIndicator() {
	t.r.SetLoadingVisible(true)
}

// RemoveLoadingIndicator removes all loading indicator containers and clears
// the pending-response marker.
func (t *Transcript) RemoveLoadingIndicator() {
	t.r.ClearPendingResponse()
}

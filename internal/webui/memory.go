package webui

import (
	"fmt"
	"html"
	"slices"
	"strings"
)

// CSS classes shared between the memory renderer and the chat script.
const (
	ClassMessage          = "chat-message"
	ClassUser             = "user"
	ClassBot              = "bot"
	ClassLoadingContainer = "chat-loading-indicator-container"
	ClassResponseTarget   = "response-target"
)

// Node is one element in the rendered history panel. Children model nested
// markup such as the loading indicator inside a pending bubble.
type Node struct {
	Classes  []string
	Text     string
	Children []*Node
}

func (n *Node) hasClass(class string) bool {
	return slices.Contains(n.Classes, class)
}

// MemoryRenderer is an in-memory Renderer. It backs server-side rendering of
// the initial transcript and lets the presentation logic run under test.
type MemoryRenderer struct {
	Input          string
	Nodes          []*Node
	ScrollTop      int
	ScrollMax      int
	FormEnabled    bool
	InputFocused   bool
	LoadingVisible bool
}

// NewMemoryRenderer creates an empty transcript surface with the form
// enabled, matching the initial page state.
func NewMemoryRenderer() *MemoryRenderer {
	return &MemoryRenderer{FormEnabled: true}
}

// InputValue returns the simulated prompt input content.
func (m *MemoryRenderer) InputValue() string { return m.Input }

// AppendUserMessage appends one user bubble.
func (m *MemoryRenderer) AppendUserMessage(text string) {
	m.Nodes = append(m.Nodes, &Node{
		Classes: []string{ClassMessage, ClassUser},
		Text:    text,
	})
	m.ScrollMax++
}

// AppendBotMessage appends a completed bot bubble. Used when rendering the
// initial greeting server-side; the live page receives bot replies through
// the chat script instead.
func (m *MemoryRenderer) AppendBotMessage(text string) {
	m.Nodes = append(m.Nodes, &Node{
		Classes: []string{ClassMessage, ClassBot},
		Text:    text,
	})
	m.ScrollMax++
}

// AppendBotPlaceholder appends a pending bot bubble carrying the
// response-target marker, with the loading indicator as a child element.
func (m *MemoryRenderer) AppendBotPlaceholder() {
	m.Nodes = append(m.Nodes, &Node{
		Classes: []string{ClassMessage, ClassBot, ClassResponseTarget},
		Children: []*Node{
			{Classes: []string{ClassLoadingContainer}},
		},
	})
	m.ScrollMax++
}

// ClearPendingResponse removes every loading indicator container at any
// depth and strips the response-target marker from remaining nodes.
func (m *MemoryRenderer) ClearPendingResponse() {
	m.Nodes = removeByClass(m.Nodes, ClassLoadingContainer)
	for _, n := range m.Nodes {
		stripClass(n, ClassResponseTarget)
	}
}

// ScrollToBottom pins the scroll position to its maximum.
func (m *MemoryRenderer) ScrollToBottom() {
	m.ScrollTop = m.ScrollMax
}

// SetFormEnabled toggles the form state, focusing the input on enable.
func (m *MemoryRenderer) SetFormEnabled(enabled bool) {
	m.FormEnabled = enabled
	if enabled {
		m.InputFocused = true
	}
}

// SetLoadingVisible toggles the loading indicator visibility.
func (m *MemoryRenderer) SetLoadingVisible(visible bool) {
	m.LoadingVisible = visible
}

// HTML renders the current history panel as markup for the initial page.
func (m *MemoryRenderer) HTML() string {
	var sb strings.Builder
	for _, n := range m.Nodes {
		writeNode(&sb, n)
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node) {
	fmt.Fprintf(sb, `<div class="%s">`, strings.Join(n.Classes, " "))
	sb.WriteString(html.EscapeString(n.Text))
	for _, child := range n.Children {
		writeNode(sb, child)
	}
	sb.WriteString("</div>")
}

func removeByClass(nodes []*Node, class string) []*Node {
	kept := nodes[:0]
	for _, n := range nodes {
		if n.hasClass(class) {
			continue
		}
		n.Children = removeByClass(n.Children, class)
		kept = append(kept, n)
	}
	return kept
}

func stripClass(n *Node, class string) {
	n.Classes = slices.DeleteFunc(n.Classes, func(c string) bool { return c == class })
	for _, child := range n.Children {
		stripClass(child, class)
	}
}

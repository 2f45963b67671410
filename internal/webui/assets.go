package webui

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
)

//go:embed web
var webFS embed.FS

var indexTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

// Assets returns the static chat page assets (script, stylesheet) rooted at
// the web directory.
func Assets() (fs.FS, error) {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		return nil, fmt.Errorf("failed to open web assets: %w", err)
	}
	return sub, nil
}

// RenderIndex writes the chat page with the initial transcript containing
// the greeting as the first bot bubble.
func RenderIndex(w io.Writer, greeting string) error {
	r := NewMemoryRenderer()
	t := NewTranscript(r)
	r.AppendBotMessage(greeting)
	t.ScrollToBottom()

	data := struct {
		InitialTranscript template.HTML
	}{
		InitialTranscript: template.HTML(r.HTML()),
	}
	if err := indexTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render index page: %w", err)
	}
	return nil
}

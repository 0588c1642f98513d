package app

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	xansi "github.com/charmbracelet/x/ansi"
)

var (
	rendererMu      sync.Mutex
	renderersByWide = map[int]*glamour.TermRenderer{}
)

// renderMarkdown renders an assistant reply for a pane of the given width.
// Rendering failures fall back to the wrapped plain text.
func renderMarkdown(input string, width int) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := markdownRenderer(width)
	if r == nil {
		return xansi.Wordwrap(input, width, " ")
	}
	out, err := r.Render(input)
	if err != nil {
		return xansi.Wordwrap(input, width, " ")
	}
	out = strings.Trim(out, "\n")
	return xansi.Hardwrap(out, width, true)
}

func markdownRenderer(width int) *glamour.TermRenderer {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	if r, ok := renderersByWide[width]; ok {
		return r
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	renderersByWide[width] = r
	return r
}

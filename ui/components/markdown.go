package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders finished assistant replies. Rendered output is cached
// per reply since the transcript is redrawn on every typing frame.
type Markdown struct {
	renderer *glamour.TermRenderer
	width    int
	cache    map[string]string
}

func NewMarkdown(width int) *Markdown {
	md := &Markdown{}
	md.Resize(width)
	return md
}

func (md *Markdown) Resize(width int) {
	if width <= 0 {
		width = 80
	}
	if md.renderer != nil && width == md.width {
		return
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-8, 20)),
	)
	if err != nil {
		renderer = nil
	}
	md.renderer = renderer
	md.width = width
	md.cache = make(map[string]string)
}

// Render returns text unchanged when no renderer is available.
func (md *Markdown) Render(text string) string {
	if md == nil || md.renderer == nil {
		return text
	}
	if out, ok := md.cache[text]; ok {
		return out
	}
	out, err := md.renderer.Render(text)
	if err != nil {
		return text
	}
	out = strings.Trim(out, "\n")
	md.cache[text] = out
	return out
}

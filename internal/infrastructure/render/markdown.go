// Package render turns the safety reasons returned by the recipe backend,
// which are markdown, into something a surface can display.
package render

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	mdhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/tastyfood/web/internal/ports/outbound"
)

// HTMLRenderer converts markdown to sanitized HTML
type HTMLRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

var _ outbound.MarkdownRenderer = (*HTMLRenderer)(nil)

// NewHTMLRenderer creates the renderer used by the web frontend. Raw HTML in
// the source passes through goldmark and is then filtered by the UGC policy.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Strikethrough),
			goldmark.WithRendererOptions(mdhtml.WithUnsafe()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render returns sanitized HTML. Blank input renders to the empty string.
func (r *HTMLRenderer) Render(markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return string(r.policy.SanitizeBytes(buf.Bytes())), nil
}

package render

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/tastyfood/web/internal/ports/outbound"
)

const (
	defaultWrapWidth = 80
	maxWrapWidth     = 100
)

// TerminalRenderer styles markdown for a terminal
type TerminalRenderer struct {
	renderer *glamour.TermRenderer
}

var _ outbound.MarkdownRenderer = (*TerminalRenderer)(nil)

// NewTerminalRenderer creates a glamour renderer. An empty style detects the
// terminal background; "notty" produces plain output for pipes.
func NewTerminalRenderer(style string) (*TerminalRenderer, error) {
	styleOption := glamour.WithAutoStyle()
	if style != "" {
		styleOption = glamour.WithStandardStyle(style)
	}

	renderer, err := glamour.NewTermRenderer(
		styleOption,
		glamour.WithWordWrap(wrapWidth()),
	)
	if err != nil {
		return nil, err
	}
	return &TerminalRenderer{renderer: renderer}, nil
}

// Render returns styled text. Blank input renders to the empty string.
func (r *TerminalRenderer) Render(markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", nil
	}
	return r.renderer.Render(markdown)
}

// Plain is the renderer for non-interactive output
func Plain() outbound.MarkdownRenderer {
	return passthrough{}
}

type passthrough struct{}

func (passthrough) Render(markdown string) (string, error) {
	return markdown, nil
}

// IsTerminal reports whether stdout is attached to a terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func wrapWidth() int {
	width := defaultWrapWidth
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	if width > maxWrapWidth {
		width = maxWrapWidth
	}
	return width
}

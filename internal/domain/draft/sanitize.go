package draft

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Policy selects how much of the input a Sanitizer keeps
type Policy int

const (
	// PolicyLabel keeps only letters and digits of the allowed scripts plus
	// whitespace. Used for tags and the category.
	PolicyLabel Policy = iota
	// PolicyFreeText keeps everything except markdown control characters.
	// Used for ingredients and instructions, which carry quantities and
	// punctuation that must survive.
	PolicyFreeText
)

// markdownRunes are stripped from free text so AI output like "**1 cup**"
// renders as plain text.
const markdownRunes = "*_~`>#"

// Sanitizer is an allow-list character filter. Input is NFC-normalized first
// so that precomposed and decomposed forms of the same text filter alike.
type Sanitizer struct {
	scripts []*unicode.RangeTable
}

// NewSanitizer creates a filter that accepts ASCII letters and digits plus
// the letters, digits and marks of the given scripts.
func NewSanitizer(scripts ...*unicode.RangeTable) *Sanitizer {
	return &Sanitizer{scripts: scripts}
}

// DefaultSanitizer accepts Latin ASCII and Thai, the languages the recipe
// backend generates in.
var DefaultSanitizer = NewSanitizer(unicode.Thai)

// Clean applies the policy to s and trims surrounding whitespace
func (s *Sanitizer) Clean(text string, policy Policy) string {
	text = norm.NFC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if s.keep(r, policy) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Label is shorthand for Clean(text, PolicyLabel)
func (s *Sanitizer) Label(text string) string {
	return s.Clean(text, PolicyLabel)
}

// FreeText is shorthand for Clean(text, PolicyFreeText)
func (s *Sanitizer) FreeText(text string) string {
	return s.Clean(text, PolicyFreeText)
}

// FreeTextAll cleans every entry of items, preserving order and length
func (s *Sanitizer) FreeTextAll(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = s.FreeText(item)
	}
	return out
}

func (s *Sanitizer) keep(r rune, policy Policy) bool {
	if policy == PolicyFreeText {
		return !strings.ContainsRune(markdownRunes, r)
	}

	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case unicode.IsSpace(r):
		return true
	}
	for _, table := range s.scripts {
		if unicode.Is(table, r) {
			return true
		}
	}
	return false
}

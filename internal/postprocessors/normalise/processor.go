// Package normalise provides a text clean-up processor for extracted PDF text.
package normalise

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/researchbot/researchbot/internal/core/domain"
)

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// Processor normalises document text before chunking.
// It rewrites doc.Content and passes chunks through unchanged.
type Processor struct{}

// New creates a new normalise processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "normalise"
}

// Process cleans doc.Content in place.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	doc.Content = Text(doc.Content)
	return chunks, nil
}

// Text unifies line endings, turns form feeds (page breaks) into paragraph
// breaks, drops other control characters, strips trailing spaces and
// collapses runs of blank lines.
func Text(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\f", "\n\n")

	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\u00a0':
			return ' '
		case unicode.IsControl(r), r == '\ufeff', r == unicode.ReplacementChar:
			return -1
		default:
			return r
		}
	}, s)

	s = trailingSpace.ReplaceAllString(s, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

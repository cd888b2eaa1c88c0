// Package chunker provides a recursive, overlap-aware text chunking processor.
package chunker

import (
	"context"
	"fmt"
	"unicode"

	"github.com/google/uuid"

	"github.com/researchbot/researchbot/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 800

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 150

// separatorLevels lists split points from coarsest to finest.
// Each level may hold several separators that count as equally coarse.
var separatorLevels = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? "},
	{" "},
}

// Processor splits document content into overlapping chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a new chunker processor with the given options.
// Parameters are validated when text is processed.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	chunks, err := Split(doc.Content, p.chunkSize, p.overlap)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
	}
	return chunks, nil
}

// Validate checks chunk parameters: size must be positive and overlap must
// lie in [0, size).
func Validate(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", domain.ErrInvalidConfiguration, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", domain.ErrInvalidConfiguration, overlap, chunkSize)
	}
	return nil
}

// Split cuts text into chunks of at most chunkSize runes.
//
// Each chunk ends at the coarsest separator (paragraph, line, sentence,
// word) found in the upper half of its window, or is cut hard at chunkSize
// when none is. The next chunk starts up to overlap runes before the
// previous end, moved forward to a word boundary. Chunk.Overlap records the
// shared prefix so that domain.Reassemble returns text unchanged.
func Split(text string, chunkSize, overlap int) ([]domain.Chunk, error) {
	if err := Validate(chunkSize, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return []domain.Chunk{}, nil
	}

	chunks := make([]domain.Chunk, 0, n/(chunkSize-overlap)+1)
	start, prevEnd := 0, 0

	for {
		end := n
		if n-start > chunkSize {
			end = cutPoint(runes, start, chunkSize, overlap)
		}

		chunks = append(chunks, domain.Chunk{
			ID:       uuid.New().String(),
			Content:  string(runes[start:end]),
			Position: len(chunks),
			Start:    start,
			End:      end,
			Overlap:  prevEnd - start,
		})

		if end == n {
			return chunks, nil
		}

		prevEnd = end
		start = overlapStart(runes, end, overlap)
	}
}

// cutPoint returns the end offset of the chunk beginning at start.
// The cut always lies past start+overlap so the following chunk advances.
func cutPoint(runes []rune, start, chunkSize, overlap int) int {
	lo := start + max(chunkSize/2, overlap+1)
	hi := start + chunkSize

	for _, level := range separatorLevels {
		best := -1
		for _, sep := range level {
			if c := lastCut(runes, sep, lo, hi); c > best {
				best = c
			}
		}
		if best >= 0 {
			return best
		}
	}
	return hi
}

// lastCut finds the largest offset c in [lo, hi] such that runes[:c] ends
// with sep. Returns -1 when there is none.
func lastCut(runes []rune, sep string, lo, hi int) int {
	s := []rune(sep)
	for c := hi; c >= lo; c-- {
		i := c - len(s)
		if i < 0 {
			break
		}
		if hasRunes(runes[i:c], s) {
			return c
		}
	}
	return -1
}

// overlapStart picks where the chunk after end begins: overlap runes back,
// then forward to just past the next whitespace so words are not split.
func overlapStart(runes []rune, end, overlap int) int {
	s := end - overlap
	if overlap == 0 || s == 0 || unicode.IsSpace(runes[s-1]) {
		return s
	}
	for i := s; i < end; i++ {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return s
}

func hasRunes(a, b []rune) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

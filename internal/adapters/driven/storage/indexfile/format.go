package indexfile

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/researchbot/researchbot/internal/core/domain"
)

// FormatVersion is the only payload version this package reads and writes.
const FormatVersion uint16 = 1

// maxPayload bounds the payload length accepted from a header.
const maxPayload = 1 << 32

var magic = [8]byte{'R', 'B', 'I', 'N', 'D', 'E', 'X', 0}

type header struct {
	Magic    [8]byte
	Version  uint16
	Flags    uint16
	Length   uint64
	Checksum uint64
}

// headerSize is the encoded size of header.
const headerSize = 8 + 2 + 2 + 8 + 8

type payload struct {
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	BuiltAt    time.Time `json:"built_at"`
	Entries    []entry   `json:"entries"`
}

type entry struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	Content    string         `json:"content"`
	Position   int            `json:"position"`
	Start      int            `json:"start"`
	End        int            `json:"end"`
	Overlap    int            `json:"overlap"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Vector     []float32      `json:"vector"`
}

// Encode writes snap to w in the index file format.
func Encode(w io.Writer, snap *domain.IndexSnapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrStorage)
	}

	p := payload{
		Model:      snap.Model,
		Dimensions: snap.Dimensions,
		BuiltAt:    snap.BuiltAt.UTC(),
		Entries:    make([]entry, len(snap.Entries)),
	}
	for i, e := range snap.Entries {
		c := e.Chunk
		p.Entries[i] = entry{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Content:    c.Content,
			Position:   c.Position,
			Start:      c.Start,
			End:        c.End,
			Overlap:    c.Overlap,
			Metadata:   c.Metadata,
			Vector:     e.Vector,
		}
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: encode index: %w", domain.ErrStorage, err)
	}

	h := header{
		Magic:    magic,
		Version:  FormatVersion,
		Length:   uint64(len(body)),
		Checksum: xxhash.Sum64(body),
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("%w: write index header: %w", domain.ErrStorage, err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("%w: write index payload: %w", domain.ErrStorage, err)
	}
	return nil
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*domain.IndexSnapshot, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: index header truncated", domain.ErrStorage)
		}
		return nil, fmt.Errorf("%w: read index header: %w", domain.ErrStorage, err)
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("%w: not an index file", domain.ErrStorage)
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported index version %d", domain.ErrStorage, h.Version)
	}
	if h.Length > maxPayload {
		return nil, fmt.Errorf("%w: index payload length %d too large", domain.ErrStorage, h.Length)
	}

	// The buffer grows with the bytes actually present, so a forged Length
	// cannot force a large allocation up front.
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(io.LimitReader(r, int64(h.Length))); err != nil {
		return nil, fmt.Errorf("%w: read index payload: %w", domain.ErrStorage, err)
	}
	if uint64(buf.Len()) != h.Length {
		return nil, fmt.Errorf("%w: index payload truncated: have %d of %d bytes", domain.ErrStorage, buf.Len(), h.Length)
	}
	body := buf.Bytes()
	if sum := xxhash.Sum64(body); sum != h.Checksum {
		return nil, fmt.Errorf("%w: index checksum mismatch (%016x != %016x)", domain.ErrStorage, sum, h.Checksum)
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: decode index: %w", domain.ErrStorage, err)
	}

	snap := &domain.IndexSnapshot{
		Model:      p.Model,
		Dimensions: p.Dimensions,
		BuiltAt:    p.BuiltAt,
		Entries:    make([]domain.IndexEntry, len(p.Entries)),
	}
	for i, e := range p.Entries {
		snap.Entries[i] = domain.IndexEntry{
			Chunk: domain.Chunk{
				ID:         e.ID,
				DocumentID: e.DocumentID,
				Content:    e.Content,
				Position:   e.Position,
				Start:      e.Start,
				End:        e.End,
				Overlap:    e.Overlap,
				Metadata:   e.Metadata,
			},
			Vector: e.Vector,
		}
	}
	return snap, nil
}

package indexfile

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchbot/researchbot/internal/core/domain"
)

func testSnapshot() *domain.IndexSnapshot {
	return &domain.IndexSnapshot{
		Model:      "nomic-embed-text",
		Dimensions: 3,
		BuiltAt:    time.Date(2024, 5, 1, 12, 0, 0, 42, time.UTC),
		Entries: []domain.IndexEntry{
			{
				Chunk: domain.Chunk{
					ID: "c0", DocumentID: "d", Content: "Paris is the capital of France. ",
					Position: 0, Start: 0, End: 32,
					Metadata: map[string]any{"source": "a.pdf"},
				},
				Vector: []float32{0.1, -0.25, 3.5e-7},
			},
			{
				Chunk: domain.Chunk{
					ID: "c1", DocumentID: "d", Content: "France. It has a population.",
					Position: 1, Start: 24, End: 52, Overlap: 8,
				},
				Vector: []float32{1, 0, 0},
			},
		},
	}
}

func encoded(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, testSnapshot()))
	return buf.Bytes()
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	snap, err := Decode(bytes.NewReader(encoded(t)))
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), snap)
}

func TestEncode_Deterministic(t *testing.T) {
	assert.Equal(t, encoded(t), encoded(t))
}

func TestEncode_Header(t *testing.T) {
	data := encoded(t)
	require.Greater(t, len(data), headerSize)

	assert.Equal(t, "RBINDEX\x00", string(data[:8]))
	assert.Equal(t, FormatVersion, binary.LittleEndian.Uint16(data[8:10]))
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(data[10:12]))
	assert.Equal(t, uint64(len(data)-headerSize), binary.LittleEndian.Uint64(data[12:20]))
}

func TestEncode_NilSnapshot(t *testing.T) {
	err := Encode(&bytes.Buffer{}, nil)
	assert.True(t, errors.Is(err, domain.ErrStorage))
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"empty", func([]byte) []byte { return nil }},
		{"short header", func(b []byte) []byte { return b[:10] }},
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"unknown version", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[8:10], 99); return b }},
		{"truncated payload", func(b []byte) []byte { return b[:len(b)-5] }},
		{"flipped payload byte", func(b []byte) []byte { b[headerSize+3] ^= 0xff; return b }},
		{"bad checksum", func(b []byte) []byte { b[20] ^= 0x01; return b }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(encoded(t))
			snap, err := Decode(bytes.NewReader(data))
			assert.Nil(t, snap)
			assert.True(t, errors.Is(err, domain.ErrStorage), "got %v", err)
		})
	}
}

func TestDecode_ForgedLengthDoesNotPreallocate(t *testing.T) {
	data := encoded(t)
	binary.LittleEndian.PutUint64(data[12:20], maxPayload)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	snap, err := Decode(bytes.NewReader(data))
	runtime.ReadMemStats(&after)

	assert.Nil(t, snap)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorContains(t, err, "truncated")
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(64<<20))
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	store := NewStore()

	require.NoError(t, store.Save(ctx, path, testSnapshot()))

	loaded, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), loaded)

	// Saving the loaded snapshot reproduces the same bytes.
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, path, loaded))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, NewStore().Save(context.Background(), path, testSnapshot()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, DefaultFileName, entries[0].Name())
}

func TestStore_LoadMissing(t *testing.T) {
	_, err := NewStore().Load(context.Background(), filepath.Join(t.TempDir(), "absent.rbi"))
	assert.True(t, errors.Is(err, domain.ErrStorage))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("not an index"), 0600))

	_, err := NewStore().Load(context.Background(), path)
	assert.True(t, errors.Is(err, domain.ErrStorage))
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewStore().Save(ctx, filepath.Join(t.TempDir(), DefaultFileName), testSnapshot())
	assert.ErrorIs(t, err, context.Canceled)
}

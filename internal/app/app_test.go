package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchbot/researchbot/internal/adapters/driven/storage/indexfile"
	"github.com/researchbot/researchbot/internal/core/domain"
)

func TestNew_Ephemeral(t *testing.T) {
	dir := t.TempDir()

	a, err := New(context.Background(), Config{DataDir: dir, Ephemeral: true})
	require.NoError(t, err)
	defer a.Close()

	assert.Empty(t, a.IndexPath)
	assert.False(t, a.Index.Info().Ready)
	_, err = os.Stat(filepath.Join(dir, "data", "history.db"))
	assert.True(t, os.IsNotExist(err), "ephemeral mode must not create the history database")

	records, err := a.QA.History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNew_Persistent(t *testing.T) {
	dir := t.TempDir()

	a, err := New(context.Background(), Config{DataDir: dir})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, filepath.Join(dir, "data", indexfile.DefaultFileName), a.IndexPath)
	assert.FileExists(t, filepath.Join(dir, "data", "history.db"))
	assert.False(t, a.Index.Info().Ready, "no index on first run")

	_, err = a.QA.Ask(context.Background(), "anything?")
	assert.ErrorIs(t, err, domain.ErrUninitializedIndex)
}

func TestNew_LoadsStoredIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data", indexfile.DefaultFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	snap := &domain.IndexSnapshot{
		Model:      "nomic-embed-text",
		Dimensions: 2,
		BuiltAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Entries: []domain.IndexEntry{
			{Chunk: domain.Chunk{ID: "c0", Content: "Paris is the capital of France."}, Vector: []float32{1, 0}},
		},
	}
	require.NoError(t, indexfile.NewStore().Save(context.Background(), path, snap))

	a, err := New(context.Background(), Config{DataDir: dir})
	require.NoError(t, err)
	defer a.Close()

	info := a.Index.Info()
	assert.True(t, info.Ready)
	assert.Equal(t, 1, info.Chunks)
	assert.Equal(t, "nomic-embed-text", info.Model)
}

func TestNew_CorruptIndexIsIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data", indexfile.DefaultFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("not an index"), 0600))

	a, err := New(context.Background(), Config{DataDir: dir})
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Index.Info().Ready)
}

func TestNew_UsesStoredRetrievalSettings(t *testing.T) {
	dir := t.TempDir()
	a, err := New(context.Background(), Config{DataDir: dir, Ephemeral: true})
	require.NoError(t, err)
	r := domain.DefaultRetrievalSettings()
	r.ChunkSize = 120
	r.ChunkOverlap = 20
	require.NoError(t, a.Settings.SetRetrieval(r))
	a.Close()

	b, err := New(context.Background(), Config{DataDir: dir, Ephemeral: true})
	require.NoError(t, err)
	defer b.Close()

	s, err := b.Settings.Get()
	require.NoError(t, err)
	assert.Equal(t, 120, s.Retrieval.ChunkSize)
	assert.Equal(t, 20, s.Retrieval.ChunkOverlap)
}

func TestApp_CloseIsIdempotent(t *testing.T) {
	a, err := New(context.Background(), Config{DataDir: t.TempDir()})
	require.NoError(t, err)

	a.Close()
	a.Close()
}

package indexfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
)

// DefaultFileName is the index file name inside the data directory.
const DefaultFileName = "index.rbi"

// Verify interface compliance.
var _ driven.IndexStore = (*Store)(nil)

// Store reads and writes index files on the local filesystem.
type Store struct{}

// NewStore creates a file-backed index store.
func NewStore() *Store {
	return &Store{}
}

// DefaultPath returns ~/.researchbot/data/index.rbi.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".researchbot", "data", DefaultFileName), nil
}

// Save writes snap to path atomically.
func (s *Store) Save(ctx context.Context, path string, snap *domain.IndexSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: create index directory: %w", domain.ErrStorage, err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp index: %w", domain.ErrStorage, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	w := bufio.NewWriter(tmp)
	if err := Encode(w, snap); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write index: %w", domain.ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync index: %w", domain.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close index: %w", domain.ErrStorage, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: replace index: %w", domain.ErrStorage, err)
	}
	return nil
}

// Load reads the snapshot stored at path.
func (s *Store) Load(ctx context.Context, path string) (*domain.IndexSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w: %s", domain.ErrStorage, domain.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open index: %w", domain.ErrStorage, err)
	}
	defer f.Close()

	return Decode(bufio.NewReader(f))
}

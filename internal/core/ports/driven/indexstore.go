package driven

import (
	"context"

	"github.com/researchbot/researchbot/internal/core/domain"
)

// IndexStore persists built index snapshots.
// Implementations must detect truncated or tampered data on load rather
// than returning a partial snapshot.
type IndexStore interface {
	// Save writes the snapshot to location, replacing any previous one.
	Save(ctx context.Context, location string, snapshot *domain.IndexSnapshot) error

	// Load reads a snapshot from location.
	// Returns an error wrapping domain.ErrNotFound when nothing is stored there.
	Load(ctx context.Context, location string) (*domain.IndexSnapshot, error)
}

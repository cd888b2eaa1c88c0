package driven

import (
	"context"

	"github.com/researchbot/researchbot/internal/core/domain"
)

// QALogStore is the append-only question/answer history.
// Records are never updated or deleted.
type QALogStore interface {
	// Append records a question and its answer with the current time.
	Append(ctx context.Context, question, answer string) (domain.QARecord, error)

	// All returns every record, newest first.
	All(ctx context.Context) ([]domain.QARecord, error)

	// Close releases resources.
	Close() error
}

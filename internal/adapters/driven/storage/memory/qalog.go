package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
)

// Ensure QALog implements the interface.
var _ driven.QALogStore = (*QALog)(nil)

// QALog is an in-memory question/answer history.
type QALog struct {
	mu      sync.RWMutex
	records []domain.QARecord
	now     func() time.Time
}

// NewQALog creates an empty history.
func NewQALog() *QALog {
	return &QALog{now: time.Now}
}

// Append records a question and answer.
func (l *QALog) Append(_ context.Context, question, answer string) (domain.QARecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().UTC()
	// Keep timestamps non-decreasing even if the wall clock steps back.
	if n := len(l.records); n > 0 && ts.Before(l.records[n-1].Timestamp) {
		ts = l.records[n-1].Timestamp
	}

	rec := domain.QARecord{
		ID:        int64(len(l.records) + 1),
		Question:  question,
		Answer:    answer,
		Timestamp: ts,
	}
	l.records = append(l.records, rec)
	return rec, nil
}

// All returns every record, newest first.
func (l *QALog) All(_ context.Context) ([]domain.QARecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := slices.Clone(l.records)
	slices.Reverse(out)
	return out, nil
}

// Close is a no-op.
func (l *QALog) Close() error { return nil }

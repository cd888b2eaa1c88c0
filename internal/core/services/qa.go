package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
	"github.com/researchbot/researchbot/internal/core/ports/driving"
	"github.com/researchbot/researchbot/internal/logger"
)

// Ensure QAService implements the interface.
var _ driving.QAService = (*QAService)(nil)

// QAService runs the question answering pipeline:
// retrieve, compose, generate, then record.
type QAService struct {
	retriever driving.Retriever
	composer  *Composer
	generator *AnswerGenerator
	history   driven.QALogStore
	topK      int
	timeout   time.Duration
}

// NewQAService creates a QA service.
// The history store is optional; without it answers are not recorded.
func NewQAService(
	retriever driving.Retriever,
	composer *Composer,
	generator *AnswerGenerator,
	history driven.QALogStore,
) *QAService {
	defaults := domain.DefaultRetrievalSettings()
	return &QAService{
		retriever: retriever,
		composer:  composer,
		generator: generator,
		history:   history,
		topK:      defaults.TopK,
		timeout:   time.Duration(defaults.TimeoutSeconds) * time.Second,
	}
}

// SetTopK sets how many chunks are retrieved per question.
func (s *QAService) SetTopK(k int) {
	s.topK = k
}

// SetTimeout bounds the provider calls made while answering.
// Zero disables the bound.
func (s *QAService) SetTimeout(d time.Duration) {
	s.timeout = d
}

// Ask answers a question from the indexed documents.
//
// A failure to record the answer does not fail the call: it is reported on
// Answer.LogErr and the answer is returned.
func (s *QAService) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if s.retriever == nil {
		return nil, domain.ErrUninitializedIndex
	}

	logger.Section("Ask")
	logger.Debug("Question: %q", question)

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	retrieved, err := s.retriever.Retrieve(callCtx, question, s.topK)
	if err != nil {
		return nil, err
	}

	contextText := s.composer.Compose(callCtx, retrieved)

	text, err := s.generator.Generate(callCtx, question, contextText)
	if err != nil {
		return nil, err
	}

	answer := &domain.Answer{
		Question: question,
		Text:     text,
		Sources:  retrieved,
		Context:  contextText,
	}

	if s.history != nil {
		record, err := s.history.Append(ctx, question, text)
		if err != nil {
			logger.Warn("Failed to record answer: %v", err)
			answer.LogErr = err
		} else {
			answer.Record = &record
		}
	}

	return answer, nil
}

// History returns past questions and answers, newest first.
func (s *QAService) History(ctx context.Context) ([]domain.QARecord, error) {
	if s.history == nil {
		return nil, fmt.Errorf("%w: history is not enabled", domain.ErrStorage)
	}
	return s.history.All(ctx)
}

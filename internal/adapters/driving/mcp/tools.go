package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/researchbot/researchbot/internal/core/domain"
)

// defaultRetrieveK is used when the retrieve tool is called without k.
const defaultRetrieveK = 3

// errNoIndex is returned by retrieve when the server has no index port.
var errNoIndex = errors.New("retrieval is not available on this server")

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string          `json:"answer"`
	Sources []PassageOutput `json:"sources"`
	Logged  bool            `json:"logged"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"text to find similar passages for"`
	K     int    `json:"k,omitempty" jsonschema:"number of passages to return (default 3)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Passages []PassageOutput `json:"passages"`
	Count    int             `json:"count"`
}

// PassageOutput is one retrieved chunk.
type PassageOutput struct {
	Rank     int     `json:"rank"`
	Score    float64 `json:"score"`
	Content  string  `json:"content"`
	Source   string  `json:"source,omitempty"`
	Position int     `json:"position"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the indexed PDF documents, citing [Source N] passages",
	}, s.handleAsk)

	if s.ports.Index != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "retrieve",
			Description: "Return the indexed passages most similar to a query, best first",
		}, s.handleRetrieve)
	}
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.QA.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, toolError(err)
	}

	return nil, AskOutput{
		Answer:  answer.Text,
		Sources: passages(answer.Sources),
		Logged:  answer.LogErr == nil && answer.Record != nil,
	}, nil
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if s.ports.Index == nil {
		return nil, RetrieveOutput{}, errNoIndex
	}
	k := input.K
	if k <= 0 {
		k = defaultRetrieveK
	}

	results, err := s.ports.Index.Retrieve(ctx, input.Query, k)
	if err != nil {
		return nil, RetrieveOutput{}, toolError(err)
	}

	out := passages(results)
	return nil, RetrieveOutput{Passages: out, Count: len(out)}, nil
}

func passages(results []domain.RetrievedChunk) []PassageOutput {
	out := make([]PassageOutput, len(results))
	for i, r := range results {
		source, _ := r.Chunk.Metadata["source"].(string)
		out[i] = PassageOutput{
			Rank:     r.Rank,
			Score:    r.Score,
			Content:  r.Chunk.Content,
			Source:   source,
			Position: r.Chunk.Position,
		}
	}
	return out
}

// toolError prefixes err with the message a user would see in the CLI.
func toolError(err error) error {
	return fmt.Errorf("%s: %w", domain.UserMessage(err), err)
}

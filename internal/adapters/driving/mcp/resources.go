package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/researchbot/researchbot/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for researchbot resources.
	uriScheme = "researchbot://"

	historyURI = uriScheme + "history"
	indexURI   = uriScheme + "index"
)

type recordInfo struct {
	ID        int64  `json:"id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Timestamp string `json:"timestamp"`
}

type indexInfo struct {
	Ready      bool   `json:"ready"`
	Model      string `json:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`
	Chunks     int    `json:"chunks"`
	BuiltAt    string `json:"built_at,omitempty"`
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         historyURI,
		Name:        "history",
		Description: "Every question asked and its answer, newest first",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: historyURI + "/{id}",
		Name:        "history-record",
		Description: "A single question/answer record",
		MIMEType:    "application/json",
	}, s.handleRecordResource)

	if s.ports.Index != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         indexURI,
			Name:        "index",
			Description: "Status of the embedding index",
			MIMEType:    "application/json",
		}, s.handleIndexResource)
	}
}

func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	records, err := s.ports.QA.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	infos := make([]recordInfo, len(records))
	for i, r := range records {
		infos[i] = toRecordInfo(r)
	}
	return jsonResult(req.Params.URI, infos)
}

func (s *Server) handleRecordResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id, ok := extractRecordID(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	records, err := s.ports.QA.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	for _, r := range records {
		if r.ID == id {
			return jsonResult(req.Params.URI, toRecordInfo(r))
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func (s *Server) handleIndexResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	idx := s.ports.Index.Info()
	info := indexInfo{Ready: idx.Ready, Model: idx.Model, Dimensions: idx.Dimensions, Chunks: idx.Chunks}
	if idx.Ready {
		info.BuiltAt = idx.BuiltAt.Format(time.RFC3339)
	}
	return jsonResult(req.Params.URI, info)
}

func toRecordInfo(r domain.QARecord) recordInfo {
	return recordInfo{
		ID:        r.ID,
		Question:  r.Question,
		Answer:    r.Answer,
		Timestamp: r.Timestamp.Format(time.RFC3339),
	}
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractRecordID parses the id from researchbot://history/{id}.
func extractRecordID(uri string) (int64, bool) {
	const prefix = historyURI + "/"

	if !strings.HasPrefix(uri, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(uri, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Package mcp provides an MCP (Model Context Protocol) server adapter for
// researchbot. It lets AI assistants ask questions about the indexed PDFs
// and read the question/answer history.
package mcp

import "errors"

// ErrMissingQAService is returned when the QA service is not provided.
var ErrMissingQAService = errors.New("mcp: QA service is required")

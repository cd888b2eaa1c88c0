package mcp

import (
	"github.com/researchbot/researchbot/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// QA answers questions and exposes the history.
	QA driving.QAService

	// Index backs the retrieve tool and the index resource. Optional.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.QA == nil {
		return ErrMissingQAService
	}
	return nil
}

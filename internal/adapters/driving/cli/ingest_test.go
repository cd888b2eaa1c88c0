package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchbot/researchbot/internal/core/domain"
)

func TestIngestCmd_RequiresPaths(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ingest")

	assert.Error(t, err)
}

func TestIngestCmd_PrintsReport(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ingest", "/docs/europe.pdf")

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"/docs/europe.pdf"}}, ts.ingest.paths)
	assert.Contains(t, out, "Ingested 1 document(s), 4 page(s)")
	assert.Contains(t, out, "  - europe.pdf")
	assert.Contains(t, out, "Indexed 12 chunks in 1.5s")
	assert.Contains(t, out, "Index saved to /data/index.rbi")
}

func TestIngestCmd_InMemory(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingest.report.IndexPath = ""

	out, err := execute(t, "ingest", "a.pdf", "b.pdf")

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a.pdf", "b.pdf"}}, ts.ingest.paths)
	assert.NotContains(t, out, "Index saved")
}

func TestIngestCmd_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingest.err = domain.ErrEmptyInput

	_, err := execute(t, "ingest", "blank.pdf")

	assert.ErrorIs(t, err, domain.ErrEmptyInput)
	assert.Contains(t, err.Error(), "ingest failed")
}

func TestIngestCmd_NotConfigured(t *testing.T) {
	SetServices(nil)

	_, err := execute(t, "ingest", "a.pdf")

	assert.EqualError(t, err, "ingest service not configured")
}

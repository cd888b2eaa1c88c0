package pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	calls  int
	args   []string
}

func (m *mockRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	m.calls++
	m.args = args
	return m.output, m.err
}

func newTestExtractor(runner CommandRunner, lib func(string) (string, int, error)) *Extractor {
	e := NewWithRunner(runner)
	e.lookPath = func(string) (string, error) { return "/usr/bin/pdftotext", nil }
	e.readPDF = lib
	return e
}

func writePDF(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake pdf content"), 0600))
	return path
}

func failingLibrary(string) (string, int, error) {
	return "", 0, errors.New("malformed xref")
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.TextExtractor = (*Extractor)(nil)
}

func TestSupports(t *testing.T) {
	e := New()
	assert.True(t, e.Supports("paper.pdf"))
	assert.True(t, e.Supports("/a/b/REPORT.PDF"))
	assert.False(t, e.Supports("notes.txt"))
	assert.False(t, e.Supports("pdf"))
}

func TestExtract_UsesLibraryText(t *testing.T) {
	runner := &mockRunner{}
	e := newTestExtractor(runner, func(string) (string, int, error) {
		return "Paris Facts\nParis is the capital of France.\n", 2, nil
	})
	path := writePDF(t, "facts.pdf")

	doc, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, path, doc.URI)
	assert.Equal(t, "Paris Facts", doc.Title)
	assert.Equal(t, 2, doc.Pages)
	assert.Contains(t, doc.Content, "capital of France")
	assert.Equal(t, "go-pdf", doc.Metadata["extractor"])
	assert.Zero(t, runner.calls)
}

func TestExtract_FallsBackToPdftotext(t *testing.T) {
	runner := &mockRunner{output: []byte("PDF Title\n\nThis is the content of the PDF.\n\fPage two.\n")}
	e := newTestExtractor(runner, failingLibrary)
	path := writePDF(t, "doc.pdf")

	doc, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "PDF Title", doc.Title)
	assert.Equal(t, 2, doc.Pages)
	assert.Equal(t, "pdftotext", doc.Metadata["extractor"])
	assert.Equal(t, 1, runner.calls)
	assert.Contains(t, runner.args, path)
}

func TestExtract_FallsBackOnBlankLibraryText(t *testing.T) {
	runner := &mockRunner{output: []byte("scanned text")}
	e := newTestExtractor(runner, func(string) (string, int, error) { return "  \n", 3, nil })

	doc, err := e.Extract(context.Background(), writePDF(t, "scan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "scanned text", doc.Content)
	assert.Equal(t, 3, doc.Pages)
}

func TestExtract_RunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("pdftotext crashed")}
	e := newTestExtractor(runner, failingLibrary)

	doc, err := e.Extract(context.Background(), writePDF(t, "doc.pdf"))
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, domain.ErrDocumentExtraction)
	assert.Contains(t, err.Error(), "pdftotext failed")
	assert.Contains(t, err.Error(), "malformed xref")
}

func TestExtract_NoFallbackTool(t *testing.T) {
	e := newTestExtractor(&mockRunner{}, failingLibrary)
	e.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	_, err := e.Extract(context.Background(), writePDF(t, "doc.pdf"))
	assert.ErrorIs(t, err, domain.ErrDocumentExtraction)
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
}

func TestExtract_NoText(t *testing.T) {
	runner := &mockRunner{output: []byte("\f\f")}
	e := newTestExtractor(runner, func(string) (string, int, error) { return "", 2, nil })

	_, err := e.Extract(context.Background(), writePDF(t, "blank.pdf"))
	assert.ErrorIs(t, err, domain.ErrDocumentExtraction)
}

func TestExtract_InvalidPaths(t *testing.T) {
	e := newTestExtractor(&mockRunner{}, failingLibrary)
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.pdf"), 0700))

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "absent.pdf")},
		{"not a pdf", filepath.Join(dir, "notes.txt")},
		{"directory", filepath.Join(dir, "folder.pdf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(context.Background(), tt.path)
			assert.ErrorIs(t, err, domain.ErrDocumentExtraction)
		})
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Extract(ctx, "doc.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadWithLibrary_InvalidFile(t *testing.T) {
	_, _, err := readWithLibrary(writePDF(t, "broken.pdf"))
	assert.Error(t, err)
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		uri      string
		expected string
	}{
		{"first line as title", "Document Title\n\nSome content here.", "/doc.pdf", "Document Title"},
		{"skip empty lines", "\n\n\nActual Title\nContent", "/doc.pdf", "Actual Title"},
		{"fallback to filename", "", "/path/to/my_research-notes.pdf", "my research notes"},
		{"skip very long first line", string(make([]byte, 250)) + "\nShort Title\nContent", "/doc.pdf", "Short Title"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, extractTitle(tc.content, tc.uri))
		})
	}
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

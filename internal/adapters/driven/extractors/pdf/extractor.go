// Package pdf extracts text from PDF files.
//
// Text is read in-process with github.com/ledongthuc/pdf. When that fails or
// yields no text, the extractor falls back to the pdftotext command from
// poppler-utils if it is installed.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
	"github.com/researchbot/researchbot/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// MaxFileSize is the largest PDF the extractor will open.
const MaxFileSize = 200 << 20

// pdftotextTimeout bounds a single pdftotext run.
const pdftotextTimeout = 30 * time.Second

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Extractor reads PDF text.
type Extractor struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
	readPDF  func(path string) (string, int, error)
}

// New creates an extractor that shells out to the real pdftotext.
func New() *Extractor {
	return NewWithRunner(execRunner{})
}

// NewWithRunner creates an extractor with a custom command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{
		runner:   runner,
		lookPath: exec.LookPath,
		readPDF:  readWithLibrary,
	}
}

// CheckAvailable reports whether pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns how to install the pdftotext fallback.
func InstallInstructions() string {
	return `pdftotext is optional and used when built-in PDF parsing fails.
Install poppler-utils:
  macOS:          brew install poppler
  Debian/Ubuntu:  apt install poppler-utils
  Fedora:         dnf install poppler-utils`
}

// Supports reports whether path has a .pdf extension.
func (e *Extractor) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Extract reads the text of the PDF at path.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !e.Supports(path) {
		return nil, fmt.Errorf("%w: %s is not a PDF", domain.ErrDocumentExtraction, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDocumentExtraction, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrDocumentExtraction, path)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", domain.ErrDocumentExtraction, path, MaxFileSize)
	}

	method := "go-pdf"
	text, pages, libErr := e.readPDF(path)
	if libErr != nil || strings.TrimSpace(text) == "" {
		logger.Debug("built-in PDF parser gave no text for %s (%v), trying pdftotext", path, libErr)

		method = "pdftotext"
		text, err = e.pdftotext(ctx, path)
		if err != nil {
			if libErr != nil {
				return nil, fmt.Errorf("%w: %w; %w", domain.ErrDocumentExtraction, libErr, err)
			}
			return nil, fmt.Errorf("%w: %w", domain.ErrDocumentExtraction, err)
		}
		if pages == 0 {
			pages = strings.Count(strings.TrimRight(text, "\f"), "\f") + 1
		}
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s contains no extractable text", domain.ErrDocumentExtraction, path)
	}

	now := time.Now()
	doc := &domain.Document{
		ID:      uuid.New().String(),
		URI:     path,
		Title:   extractTitle(text, path),
		Content: text,
		Pages:   pages,
		Metadata: map[string]any{
			"format":    "pdf",
			"extractor": method,
			"size":      info.Size(),
		},
		CreatedAt: now,
	}

	logger.Debug("Extracted %d pages (%d bytes of text) from %s via %s", pages, len(text), path, method)
	return doc, nil
}

func (e *Extractor) pdftotext(ctx context.Context, path string) (string, error) {
	if _, err := e.lookPath("pdftotext"); err != nil {
		return "", ErrPDFToolNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, pdftotextTimeout)
	defer cancel()

	out, err := e.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return string(out), nil
}

// readWithLibrary extracts the text of every page, one page per line group.
// Pages without text are skipped.
func readWithLibrary(path string) (text string, pages int, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	pages = r.NumPage()
	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("skipping page %d of %s: %v", i, path, err)
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), pages, nil
}

// extractTitle uses the first short non-empty line, or the file name.
func extractTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > 200 {
			continue
		}
		return line
	}

	filename := strings.TrimSuffix(filepath.Base(uri), filepath.Ext(uri))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}

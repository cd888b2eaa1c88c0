package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
	"github.com/researchbot/researchbot/internal/core/ports/driving"
	"github.com/researchbot/researchbot/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// documentSeparator joins the text of several documents before chunking.
const documentSeparator = "\n\n"

// IngestService turns PDF files into a published, persisted index.
type IngestService struct {
	extractor driven.TextExtractor
	pipeline  driven.PostProcessorPipeline
	index     driving.IndexService
	indexPath string
	now       func() time.Time
}

// NewIngestService creates an ingestion service. An empty indexPath keeps
// the index in memory only.
func NewIngestService(
	extractor driven.TextExtractor,
	pipeline driven.PostProcessorPipeline,
	index driving.IndexService,
	indexPath string,
) *IngestService {
	return &IngestService{
		extractor: extractor,
		pipeline:  pipeline,
		index:     index,
		indexPath: indexPath,
		now:       time.Now,
	}
}

// Ingest extracts every PDF named by paths, chunks the combined text and
// rebuilds the index from it. Directories contribute the PDFs they contain.
// A failure before the build completes leaves the previous index published.
// A failed save is reported after the new index is already live in memory.
func (s *IngestService) Ingest(ctx context.Context, paths []string) (*domain.IngestReport, error) {
	start := s.now()

	files, err := s.expand(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no PDF files found", domain.ErrInvalidInput)
	}

	logger.Section("Ingest")
	logger.Debug("Files: %v", files)

	report := &domain.IngestReport{}
	texts := make([]string, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.extractor.Extract(ctx, f)
		if err != nil {
			return nil, err
		}
		logger.Debug("Extracted %s: %d pages, %d chars", f, doc.Pages, len(doc.Content))
		texts = append(texts, doc.Content)
		report.Documents = append(report.Documents, f)
		report.Pages += doc.Pages
	}

	combined := &domain.Document{
		ID:        uuid.New().String(),
		URI:       strings.Join(files, ","),
		Title:     filepath.Base(files[0]),
		Content:   strings.Join(texts, documentSeparator),
		Pages:     report.Pages,
		CreatedAt: s.now(),
	}
	if strings.TrimSpace(combined.Content) == "" {
		return nil, fmt.Errorf("%w: documents contain no text", domain.ErrEmptyInput)
	}

	chunks, err := s.pipeline.Process(ctx, combined)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: documents contain no text", domain.ErrEmptyInput)
	}
	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any)
		}
		chunks[i].Metadata["source"] = combined.URI
	}

	if err := s.index.Build(ctx, chunks); err != nil {
		return nil, err
	}
	report.Chunks = len(chunks)

	if s.indexPath != "" {
		if err := s.index.Save(ctx, s.indexPath); err != nil {
			return nil, err
		}
		report.IndexPath = s.indexPath
	}

	report.Duration = s.now().Sub(start)
	logger.With("documents", len(files), "chunks", report.Chunks).Info("ingest complete", "duration", report.Duration)
	return report, nil
}

// expand resolves paths to a sorted, de-duplicated list of PDF files.
// Directories are walked recursively; hidden directories are skipped.
func (s *IngestService) expand(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		if !info.IsDir() {
			if !s.extractor.Supports(p) {
				return nil, fmt.Errorf("%w: %s is not a PDF", domain.ErrInvalidInput, p)
			}
			add(p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if s.extractor.Supports(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

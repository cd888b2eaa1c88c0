package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/researchbot/researchbot/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
	"github.com/researchbot/researchbot/internal/logger"
)

var _ driven.QALogStore = (*Store)(nil)

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// Store is the SQLite-backed question/answer history.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time

	appendMu sync.Mutex
}

// NewStore opens dataDir/history.db, creating the directory and schema as
// needed. An empty dataDir means ~/.researchbot/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: locate home directory: %w", domain.ErrStorage, err)
		}
		dataDir = filepath.Join(home, ".researchbot", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: create data directory: %w", domain.ErrStorage, err)
	}

	path := filepath.Join(dataDir, "history.db")
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrStorage, path, err)
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate %s: %w", domain.ErrStorage, path, err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Append records a question and its answer with the current time. The
// timestamp never precedes the latest stored one, even if the wall clock
// steps back.
func (s *Store) Append(ctx context.Context, question, answer string) (rec domain.QARecord, err error) {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.QARecord{}, fmt.Errorf("%w: append qa record: %w", domain.ErrStorage, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ts := s.now().UTC()
	var last string
	err = tx.QueryRowContext(ctx, "SELECT timestamp FROM qa_history ORDER BY id DESC LIMIT 1").Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return domain.QARecord{}, fmt.Errorf("%w: read latest timestamp: %w", domain.ErrStorage, err)
	default:
		prev, perr := time.Parse(time.RFC3339Nano, last)
		if perr != nil {
			err = fmt.Errorf("%w: parse latest timestamp: %w", domain.ErrStorage, perr)
			return domain.QARecord{}, err
		}
		if ts.Before(prev) {
			ts = prev
		}
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO qa_history (question, answer, timestamp) VALUES (?, ?, ?)",
		question, answer, ts.Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.QARecord{}, fmt.Errorf("%w: append qa record: %w", domain.ErrStorage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.QARecord{}, fmt.Errorf("%w: read qa record id: %w", domain.ErrStorage, err)
	}
	if err = tx.Commit(); err != nil {
		return domain.QARecord{}, fmt.Errorf("%w: commit qa record: %w", domain.ErrStorage, err)
	}

	return domain.QARecord{
		ID:        id,
		Question:  question,
		Answer:    answer,
		Timestamp: ts,
	}, nil
}

// All returns every record, newest first.
func (s *Store) All(ctx context.Context) ([]domain.QARecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, question, answer, timestamp FROM qa_history ORDER BY id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list qa records: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	var records []domain.QARecord
	for rows.Next() {
		var (
			rec domain.QARecord
			ts  string
		)
		if err := rows.Scan(&rec.ID, &rec.Question, &rec.Answer, &ts); err != nil {
			return nil, fmt.Errorf("%w: scan qa record: %w", domain.ErrStorage, err)
		}
		rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: parse timestamp of record %d: %w", domain.ErrStorage, rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list qa records: %w", domain.ErrStorage, err)
	}

	return records, nil
}

type migration struct {
	version int
	name    string
}

// pending lists the NNN_name.up.sql files in fsys newer than current, in
// version order. Files without a numeric prefix are ignored.
func pending(fsys fs.FS, current int) ([]migration, error) {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}
	var out []migration
	for _, name := range ups {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		out = append(out, migration{version: version, name: name})
	}
	slices.SortFunc(out, func(a, b migration) int { return a.version - b.version })
	return out, nil
}

// migrate brings the schema up to date, one transaction per migration.
func (s *Store) migrate(fsys fs.FS) error {
	if _, err := s.db.Exec(createMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	todo, err := pending(fsys, current)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	for _, m := range todo {
		script, err := fs.ReadFile(fsys, m.name)
		if err != nil {
			return fmt.Errorf("read %s: %w", m.name, err)
		}
		if err := s.apply(m.version, string(script)); err != nil {
			return fmt.Errorf("apply %s: %w", m.name, err)
		}
		logger.Debug("Applied history migration %s", m.name)
	}
	return nil
}

func (s *Store) apply(version int, script string) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(script); err != nil {
		return err
	}
	if _, err = tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

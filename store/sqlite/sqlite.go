/*
Package sqlite provides a SQLite-backed implementation of audit.Store.

PURPOSE:
  Keeps the evaluation history so verdicts can be listed, re-read and
  rendered as reports after the upload request has finished.

KEY TABLES:
  evaluations: One row per evaluation. The transcript and verdict are
               stored as JSON documents; the columns used for listing
               (can_graduate, last_term, gpa) are duplicated for queries.

INDEXES:
  - idx_evaluations_created_at: History listing, newest first

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite allows one writer at a time.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/curriculum.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := audit.NewService(rules, extractor, store, logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - audit/evaluation.go: Store interface
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/curriculum-engine/audit"
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements audit.Store using SQLite.
type Store struct {
	db *sqlx.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if strings.HasPrefix(dbPath, ":memory:") {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		source TEXT NOT NULL,
		curriculum_version TEXT NOT NULL,
		can_graduate BOOLEAN NOT NULL,
		last_term INTEGER NOT NULL,
		gpa TEXT NOT NULL,
		transcript_json TEXT NOT NULL,
		verdict_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_created_at
		ON evaluations(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EVALUATION STORE (audit.Store interface)
// =============================================================================

type evaluationRow struct {
	ID                string `db:"id"`
	Filename          string `db:"filename"`
	Source            string `db:"source"`
	CurriculumVersion string `db:"curriculum_version"`
	CanGraduate       bool   `db:"can_graduate"`
	LastTerm          int    `db:"last_term"`
	GPA               string `db:"gpa"`
	TranscriptJSON    string `db:"transcript_json"`
	VerdictJSON       string `db:"verdict_json"`
	CreatedAt         string `db:"created_at"`
}

const selectColumns = `
	SELECT id, filename, source, curriculum_version, can_graduate, last_term, gpa,
	       transcript_json, verdict_json, created_at
	FROM evaluations`

// Save stores an evaluation. Saving an existing ID replaces it.
func (s *Store) Save(ctx context.Context, e *audit.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcriptJSON, err := json.Marshal(e.Transcript)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	verdictJSON, err := json.Marshal(e.Verdict)
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}

	row := evaluationRow{
		ID:                e.ID.String(),
		Filename:          e.Filename,
		Source:            string(e.Source),
		CurriculumVersion: e.CurriculumVersion,
		CanGraduate:       e.Verdict.CanGraduate,
		LastTerm:          e.Verdict.LastTerm,
		GPA:               e.Verdict.GPA.String(),
		TranscriptJSON:    string(transcriptJSON),
		VerdictJSON:       string(verdictJSON),
		CreatedAt:         e.CreatedAt.UTC().Format(timeLayout),
	}

	query := `
		INSERT OR REPLACE INTO evaluations
		(id, filename, source, curriculum_version, can_graduate, last_term, gpa,
		 transcript_json, verdict_json, created_at)
		VALUES (:id, :filename, :source, :curriculum_version, :can_graduate, :last_term, :gpa,
		 :transcript_json, :verdict_json, :created_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}
	return nil
}

// Get returns (nil, nil) for an unknown ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*audit.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row evaluationRow
	err := s.db.GetContext(ctx, &row, selectColumns+` WHERE id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return row.decode()
}

// List returns up to limit evaluations, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]audit.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []evaluationRow
	err := s.db.SelectContext(ctx, &rows, selectColumns+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}

	out := make([]audit.Evaluation, 0, len(rows))
	for _, r := range rows {
		e, err := r.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

// Prune deletes evaluations created before the cutoff.
func (s *Store) Prune(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM evaluations WHERE created_at < ?`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune evaluations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to prune evaluations: %w", err)
	}
	return int(n), nil
}

func (r evaluationRow) decode() (*audit.Evaluation, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("evaluation %q: bad id: %w", r.ID, err)
	}
	created, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("evaluation %s: bad created_at: %w", r.ID, err)
	}

	e := &audit.Evaluation{
		ID:                id,
		Filename:          r.Filename,
		Source:            audit.Source(r.Source),
		CurriculumVersion: r.CurriculumVersion,
		CreatedAt:         created,
	}
	if err := json.Unmarshal([]byte(r.TranscriptJSON), &e.Transcript); err != nil {
		return nil, fmt.Errorf("evaluation %s: bad transcript: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.VerdictJSON), &e.Verdict); err != nil {
		return nil, fmt.Errorf("evaluation %s: bad verdict: %w", r.ID, err)
	}
	return e, nil
}

// Package store persists learning patterns in SQLite so approvals and
// success rates survive between runs. The pipeline core never touches
// the database; it only ever sees plain pattern data loaded from here.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chartlinehq/chartline/internal/model"
)

// Store manages the pattern SQLite database
type Store struct {
	db *sql.DB
}

// Open opens or creates the pattern database at path, creating the
// schema if it does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS patterns (
			hash TEXT PRIMARY KEY,
			fact_type TEXT NOT NULL,
			original_text TEXT NOT NULL,
			corrected_text TEXT NOT NULL,
			context TEXT,
			status TEXT NOT NULL,
			created_by TEXT,
			created_at TEXT,
			approved_by TEXT,
			approved_at TEXT,
			rejected_by TEXT,
			reject_reason TEXT,
			success_rate REAL NOT NULL,
			applied_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_patterns_status ON patterns(status)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save upserts one pattern
func (s *Store) Save(ctx context.Context, p *model.LearningPattern) error {
	contextJSON, err := json.Marshal(p.Context)
	if err != nil {
		return fmt.Errorf("encoding context: %w", err)
	}

	approvedAt := ""
	if p.ApprovedAt != nil {
		approvedAt = p.ApprovedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO patterns (hash, fact_type, original_text, corrected_text, context,
			status, created_by, created_at, approved_by, approved_at,
			rejected_by, reject_reason, success_rate, applied_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET
			context=excluded.context, status=excluded.status,
			approved_by=excluded.approved_by, approved_at=excluded.approved_at,
			rejected_by=excluded.rejected_by, reject_reason=excluded.reject_reason,
			success_rate=excluded.success_rate, applied_count=excluded.applied_count`,
		p.Hash, string(p.FactType), p.OriginalText, p.CorrectedText, string(contextJSON),
		string(p.Status), p.CreatedBy, p.CreatedAt.UTC().Format(time.RFC3339Nano),
		p.ApprovedBy, approvedAt, p.RejectedBy, p.RejectReason,
		p.SuccessRate, p.AppliedCount,
	)
	if err != nil {
		return fmt.Errorf("saving pattern %s: %w", p.ShortHash(), err)
	}
	return nil
}

// SaveAll upserts every pattern in one transaction
func (s *Store) SaveAll(ctx context.Context, patterns []*model.LearningPattern) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range patterns {
		contextJSON, err := json.Marshal(p.Context)
		if err != nil {
			return fmt.Errorf("encoding context: %w", err)
		}
		approvedAt := ""
		if p.ApprovedAt != nil {
			approvedAt = p.ApprovedAt.UTC().Format(time.RFC3339Nano)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO patterns (hash, fact_type, original_text, corrected_text, context,
				status, created_by, created_at, approved_by, approved_at,
				rejected_by, reject_reason, success_rate, applied_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(hash) DO UPDATE SET
				context=excluded.context, status=excluded.status,
				approved_by=excluded.approved_by, approved_at=excluded.approved_at,
				rejected_by=excluded.rejected_by, reject_reason=excluded.reject_reason,
				success_rate=excluded.success_rate, applied_count=excluded.applied_count`,
			p.Hash, string(p.FactType), p.OriginalText, p.CorrectedText, string(contextJSON),
			string(p.Status), p.CreatedBy, p.CreatedAt.UTC().Format(time.RFC3339Nano),
			p.ApprovedBy, approvedAt, p.RejectedBy, p.RejectReason,
			p.SuccessRate, p.AppliedCount,
		)
		if err != nil {
			return fmt.Errorf("saving pattern %s: %w", p.ShortHash(), err)
		}
	}
	return tx.Commit()
}

// LoadAll reads every persisted pattern
func (s *Store) LoadAll(ctx context.Context) ([]*model.LearningPattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hash, fact_type, original_text, corrected_text, context,
			status, created_by, created_at, approved_by, approved_at,
			rejected_by, reject_reason, success_rate, applied_count
		 FROM patterns ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("querying patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*model.LearningPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// Get reads one pattern by hash
func (s *Store) Get(ctx context.Context, hash string) (*model.LearningPattern, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT hash, fact_type, original_text, corrected_text, context,
			status, created_by, created_at, approved_by, approved_at,
			rejected_by, reject_reason, success_rate, applied_count
		 FROM patterns WHERE hash = ?`, hash)

	p, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("pattern %s not found", hash)
	}
	return p, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPattern(row scanner) (*model.LearningPattern, error) {
	var p model.LearningPattern
	var factType, status, contextJSON, createdAt, approvedAt string

	err := row.Scan(&p.Hash, &factType, &p.OriginalText, &p.CorrectedText, &contextJSON,
		&status, &p.CreatedBy, &createdAt, &p.ApprovedBy, &approvedAt,
		&p.RejectedBy, &p.RejectReason, &p.SuccessRate, &p.AppliedCount)
	if err != nil {
		return nil, err
	}

	p.FactType = model.FactType(factType)
	p.Status = model.PatternStatus(status)

	if contextJSON != "" && contextJSON != "null" {
		if err := json.Unmarshal([]byte(contextJSON), &p.Context); err != nil {
			return nil, fmt.Errorf("decoding context for %s: %w", p.ShortHash(), err)
		}
	}
	if createdAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			p.CreatedAt = t
		}
	}
	if approvedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, approvedAt); err == nil {
			p.ApprovedAt = &t
		}
	}
	return &p, nil
}

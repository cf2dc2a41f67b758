// Package store keeps a local history of finished reports in SQLite so past
// audits can be listed and re-rendered without calling the engine again.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"porkvision/internal/audit"
	"porkvision/internal/logging"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("report not found")

// Entry is one row of the history listing.
type Entry struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"createdAt"`
	OverallRisk    float64   `json:"overallRiskScore"`
	PorkPercentage float64   `json:"porkPercentage"`
	Summary        string    `json:"summary"`
	Degraded       bool      `json:"degraded"`
}

// Store is a report history database.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open creates or opens the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; also keeps a :memory: database on a single connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.StoreDebug("report store open: %s", path)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		overall_risk REAL NOT NULL,
		pork_percentage REAL NOT NULL,
		summary TEXT NOT NULL,
		report_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return RunMigrations(s.db)
}

// Save stores r and returns its id. A report without an id gets a new one.
func (s *Store) Save(ctx context.Context, r *audit.Report) (string, error) {
	if r == nil {
		return "", errors.New("nil report")
	}
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	stored := *r
	stored.ID = id
	if stored.GeneratedAt.IsZero() {
		stored.GeneratedAt = time.Now().UTC()
	}

	body, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	pork := 0.0
	if stored.Result.PorkPercentage != nil {
		pork = *stored.Result.PorkPercentage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reports
			(id, source, created_at, overall_risk, pork_percentage, summary, degraded, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, stored.Source, stored.GeneratedAt.UnixNano(), stored.Result.OverallRiskScore, pork,
		stored.Result.Summary, boolToInt(stored.Degraded), string(body))
	if err != nil {
		logging.StoreError("save report %s: %v", id, err)
		return "", fmt.Errorf("save report: %w", err)
	}
	logging.Store("saved report %s (%s)", id, stored.Source)
	return id, nil
}

// Get loads a stored report.
func (s *Store) Get(ctx context.Context, id string) (*audit.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body string
	err := s.db.QueryRowContext(ctx, `SELECT report_json FROM reports WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}

	var r audit.Report
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &r, nil
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, created_at, overall_risk, pork_percentage, summary, degraded
		FROM reports
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e        Entry
			created  int64
			degraded int
		)
		if err := rows.Scan(&e.ID, &e.Source, &created, &e.OverallRisk, &e.PorkPercentage, &e.Summary, &degraded); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		e.Degraded = degraded != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes a report.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

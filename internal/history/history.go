// Package history keeps a local, SQLite-backed record of every scan started
// through the CLI and how it ended. It is a convenience for the operator
// ("what did I scan last week, and was it clean?"), not a cache of service
// state.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vulnissimo/vulnissimo-go/internal/logging"
	"github.com/vulnissimo/vulnissimo-go/internal/model"

	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNotFound is returned when a scan id has no history entry.
var ErrNotFound = errors.New("scan not in history")

// Entry is one recorded scan.
type Entry struct {
	ID          uuid.UUID
	Target      string
	Status      model.ScanStatus
	HTMLResult  string
	Error       string
	Attempts    int
	Findings    int
	ByRisk      map[model.RiskLevel]int
	SubmittedAt time.Time
	EndedAt     *time.Time
}

// Store is the SQLite-backed history. Safe for concurrent use; SQLite access
// is serialized by database/sql.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (or creates) the history database under storagePath.
func Open(storagePath string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		return nil, errors.New("history: nil logger provided")
	}

	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	dbPath := filepath.Join(storagePath, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}

	logger.Info("history store opened", logging.Field{Key: "path", Value: dbPath})
	return &Store{db: db, logger: logger}, nil
}

// applySchema applies the SQLite schema and sets pragmas.
func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // Write-Ahead Logging for better concurrency
		"PRAGMA synchronous=NORMAL", // Balance between safety and performance
		"PRAGMA foreign_keys=ON",    // Enable foreign key constraints
		"PRAGMA busy_timeout=5000",  // Wait up to 5 seconds on locked database
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Record stores a freshly accepted scan.
func (s *Store) Record(ctx context.Context, scan *model.Scan) error {
	submitted := scan.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, target, status, html_result, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		scan.ID.String(), scan.Target, string(model.StatusPending), scan.HTMLResult,
		submitted.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record scan: %w", err)
	}
	s.logger.Debug("scan recorded",
		logging.Field{Key: "scan_id", Value: scan.ID.String()},
		logging.Field{Key: "target", Value: scan.Target})
	return nil
}

// Complete stores the terminal state of a recorded scan: final status,
// finding counts and the failure detail when there is one.
func (s *Store) Complete(ctx context.Context, scanID uuid.UUID, status model.ScanStatus, findings []model.Finding, errorInfo string, attempts int) error {
	counts := model.CountByRisk(findings)
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET status = ?, error = ?, attempts = ?,
		        findings_total = ?, findings_critical = ?, findings_high = ?,
		        findings_medium = ?, findings_low = ?, findings_info = ?,
		        ended_at = ?
		 WHERE id = ?`,
		string(status), errorInfo, attempts,
		len(findings), counts[model.RiskCritical], counts[model.RiskHigh],
		counts[model.RiskMedium], counts[model.RiskLow], counts[model.RiskInfo],
		time.Now().UTC().Format(time.RFC3339),
		scanID.String())
	if err != nil {
		return fmt.Errorf("complete scan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete scan: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns the history entry for one scan.
func (s *Store) Get(ctx context.Context, scanID uuid.UUID) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM scans WHERE id = ?`, scanID.String())
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return entry, err
}

// List returns the most recently submitted scans, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` FROM scans ORDER BY submitted_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `SELECT id, target, status, html_result, error, attempts,
	findings_total, findings_critical, findings_high, findings_medium,
	findings_low, findings_info, submitted_at, ended_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		id, target, status, htmlResult, errInfo string
		attempts, total                         int
		critical, high, medium, low, info       int
		submittedRaw                            string
		endedRaw                                sql.NullString
	)
	if err := row.Scan(&id, &target, &status, &htmlResult, &errInfo, &attempts,
		&total, &critical, &high, &medium, &low, &info,
		&submittedRaw, &endedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan history row: %w", err)
	}

	scanID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("history row has invalid scan id %q: %w", id, err)
	}
	submitted, err := time.Parse(time.RFC3339, submittedRaw)
	if err != nil {
		return nil, fmt.Errorf("history row has invalid submitted_at: %w", err)
	}

	entry := &Entry{
		ID:          scanID,
		Target:      target,
		Status:      model.ScanStatus(status),
		HTMLResult:  htmlResult,
		Error:       errInfo,
		Attempts:    attempts,
		Findings:    total,
		SubmittedAt: submitted,
		ByRisk: map[model.RiskLevel]int{
			model.RiskCritical: critical,
			model.RiskHigh:     high,
			model.RiskMedium:   medium,
			model.RiskLow:      low,
			model.RiskInfo:     info,
		},
	}
	if endedRaw.Valid && endedRaw.String != "" {
		ended, err := time.Parse(time.RFC3339, endedRaw.String)
		if err != nil {
			return nil, fmt.Errorf("history row has invalid ended_at: %w", err)
		}
		entry.EndedAt = &ended
	}
	return entry, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cdp-tools/cdpmirror/internal/model"
	"github.com/cdp-tools/cdpmirror/internal/registry"
)

// Database errors.
var (
	// ErrRunNotFound is returned when a run id does not exist.
	ErrRunNotFound = errors.New("database: run not found")
)

// DB is the run-history store. Every mirror run leaves behind its
// summary, its terminal page and file records, and the registry's event
// stream, so an operator can list past runs and diff two of them to see
// what the portal gained or lost.
//
// Design decision: We use SQLite via modernc.org/sqlite because:
//  1. The history is relational (runs, their pages, their files) and
//     the diff queries are natural joins
//  2. The pure-Go driver needs no cgo toolchain, which keeps the
//     binary a single static artifact
//  3. One file under the XDG data dir is trivial to back up or delete
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets a custom logger for the database.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DB) {
		d.logger = logger
	}
}

// New opens (creating if needed) the run-history database at path.
func New(ctx context.Context, path string, opts ...Option) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", "file:"+path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite tolerates one writer; a second connection would only queue
	// behind the first and risk SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	d := &DB{
		conn:   conn,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := d.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// migrate creates the schema. Statements are idempotent so reopening an
// existing database is a no-op.
func (d *DB) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id               TEXT PRIMARY KEY,
			portal           TEXT NOT NULL,
			output_dir       TEXT NOT NULL,
			test_mode        INTEGER NOT NULL,
			cancelled        INTEGER NOT NULL DEFAULT 0,
			started_at       TEXT NOT NULL,
			elapsed_seconds  REAL NOT NULL DEFAULT 0,
			pages_saved      INTEGER NOT NULL DEFAULT 0,
			pages_failed     INTEGER NOT NULL DEFAULT 0,
			files_downloaded INTEGER NOT NULL DEFAULT 0,
			files_failed     INTEGER NOT NULL DEFAULT 0,
			assets_mirrored  INTEGER NOT NULL DEFAULT 0,
			assets_failed    INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS run_pages (
			run_id         TEXT NOT NULL REFERENCES runs(id),
			remote_key     TEXT NOT NULL,
			title          TEXT NOT NULL,
			local_file     TEXT NOT NULL,
			status         TEXT NOT NULL,
			failure_reason TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, remote_key)
		)`,
		`CREATE TABLE IF NOT EXISTS run_files (
			run_id         TEXT NOT NULL REFERENCES runs(id),
			remote_key     TEXT NOT NULL,
			title          TEXT NOT NULL,
			real_file      TEXT NOT NULL DEFAULT '',
			origin_page    TEXT NOT NULL DEFAULT '',
			size_bytes     INTEGER NOT NULL DEFAULT 0,
			status         TEXT NOT NULL,
			failure_reason TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, remote_key)
		)`,
		`CREATE TABLE IF NOT EXISTS run_events (
			run_id     TEXT NOT NULL REFERENCES runs(id),
			seq        INTEGER NOT NULL,
			kind       TEXT NOT NULL,
			remote_key TEXT NOT NULL,
			detail     TEXT NOT NULL DEFAULT '',
			at         TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_portal ON runs(portal, started_at)`,
	}
	for _, stmt := range statements {
		if _, err := d.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

// NewRunID allocates a run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// SaveRun persists a completed run: its summary row, the terminal page
// and file records, and the event stream, in one transaction.
func (d *DB) SaveRun(ctx context.Context, runID string, summary *model.RunSummary, pages []model.PageRecord, files []model.FileRecord, events []registry.Event) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, portal, output_dir, test_mode, cancelled, started_at,
			elapsed_seconds, pages_saved, pages_failed,
			files_downloaded, files_failed, assets_mirrored, assets_failed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			elapsed_seconds  = excluded.elapsed_seconds,
			cancelled        = excluded.cancelled,
			pages_saved      = excluded.pages_saved,
			pages_failed     = excluded.pages_failed,
			files_downloaded = excluded.files_downloaded,
			files_failed     = excluded.files_failed,
			assets_mirrored  = excluded.assets_mirrored,
			assets_failed    = excluded.assets_failed`,
		runID, summary.Portal, summary.OutputDir,
		boolInt(summary.TestMode), boolInt(summary.Cancelled),
		summary.StartedAt.UTC().Format(time.RFC3339),
		summary.Elapsed.Seconds(),
		summary.PagesSaved, summary.PagesFailed,
		summary.FilesDownloaded, summary.FilesFailed(),
		summary.AssetsMirrored, summary.AssetsFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, p := range pages {
		if !p.Status.Terminal() {
			continue
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO run_pages
				(run_id, remote_key, title, local_file, status, failure_reason)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, p.RemoteKey, p.Title, p.Filename(), p.Status.String(), p.FailureReason)
		if err != nil {
			return fmt.Errorf("failed to insert page %s: %w", p.RemoteKey, err)
		}
	}

	for _, f := range files {
		if !f.Status.Terminal() {
			continue
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO run_files
				(run_id, remote_key, title, real_file, origin_page, size_bytes, status, failure_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, f.RemoteKey, f.DisplayName, f.RealFileName, f.OriginPage,
			f.SizeBytes, f.Status.String(), f.FailureReason)
		if err != nil {
			return fmt.Errorf("failed to insert file %s: %w", f.RemoteKey, err)
		}
	}

	for _, e := range events {
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO run_events
				(run_id, seq, kind, remote_key, detail, at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, e.Seq, e.Kind, e.RemoteKey, e.Detail, e.At.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to insert event %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	d.logger.Debug("run saved", "run_id", runID, "portal", summary.Portal)
	return nil
}

// RunInfo is one row of the run history.
type RunInfo struct {
	ID              string
	Portal          string
	OutputDir       string
	TestMode        bool
	Cancelled       bool
	StartedAt       time.Time
	Elapsed         time.Duration
	PagesSaved      int
	PagesFailed     int
	FilesDownloaded int
	FilesFailed     int
	AssetsMirrored  int
	AssetsFailed    int
}

// ListRuns returns the most recent runs, newest first, optionally
// filtered by portal. limit <= 0 means all.
func (d *DB) ListRuns(ctx context.Context, portal string, limit int) ([]RunInfo, error) {
	query := `
		SELECT id, portal, output_dir, test_mode, cancelled, started_at,
		       elapsed_seconds, pages_saved, pages_failed,
		       files_downloaded, files_failed, assets_mirrored, assets_failed
		FROM runs`
	args := []any{}
	if portal != "" {
		query += ` WHERE portal = ?`
		args = append(args, portal)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// Run returns one run by id.
func (d *DB) Run(ctx context.Context, runID string) (RunInfo, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT id, portal, output_dir, test_mode, cancelled, started_at,
		       elapsed_seconds, pages_saved, pages_failed,
		       files_downloaded, files_failed, assets_mirrored, assets_failed
		FROM runs WHERE id = ?`, runID)

	info, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return info, err
}

// FileChange is one side of a run diff: a file present in one run's
// history but not the other's. Reason is set only for failure diffs.
type FileChange struct {
	RemoteKey string
	Title     string
	RealFile  string
	SizeBytes int64
	Reason    string
}

// PageChange is one side of a page diff: a page fetched in one run but
// not the other.
type PageChange struct {
	RemoteKey string
	Title     string
	LocalFile string
}

// DiffRuns compares the downloaded files of two runs. added lists files
// the newer run has that the older lacks; removed the reverse. Both
// sides are keyed by the portal's stable remote key, so renames show up
// as nothing and replacements as remove plus add.
func (d *DB) DiffRuns(ctx context.Context, olderID, newerID string) (added, removed []FileChange, err error) {
	for _, id := range []string{olderID, newerID} {
		if _, err := d.Run(ctx, id); err != nil {
			return nil, nil, err
		}
	}

	added, err = d.filesOnlyIn(ctx, newerID, olderID)
	if err != nil {
		return nil, nil, err
	}
	removed, err = d.filesOnlyIn(ctx, olderID, newerID)
	if err != nil {
		return nil, nil, err
	}
	return added, removed, nil
}

// filesOnlyIn returns downloaded files recorded for run a but not run b.
func (d *DB) filesOnlyIn(ctx context.Context, a, b string) ([]FileChange, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT remote_key, title, real_file, size_bytes
		FROM run_files
		WHERE run_id = ? AND status = 'downloaded'
		  AND remote_key NOT IN (
			SELECT remote_key FROM run_files
			WHERE run_id = ? AND status = 'downloaded'
		  )
		ORDER BY CAST(remote_key AS INTEGER), remote_key`, a, b)
	if err != nil {
		return nil, fmt.Errorf("failed to diff runs: %w", err)
	}
	defer rows.Close()

	var changes []FileChange
	for rows.Next() {
		var c FileChange
		if err := rows.Scan(&c.RemoteKey, &c.Title, &c.RealFile, &c.SizeBytes); err != nil {
			return nil, fmt.Errorf("failed to scan diff row: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// DiffPages compares the fetched pages of two runs the same way DiffRuns
// compares files. Callers validate run existence via DiffRuns first.
func (d *DB) DiffPages(ctx context.Context, olderID, newerID string) (added, removed []PageChange, err error) {
	added, err = d.pagesOnlyIn(ctx, newerID, olderID)
	if err != nil {
		return nil, nil, err
	}
	removed, err = d.pagesOnlyIn(ctx, olderID, newerID)
	if err != nil {
		return nil, nil, err
	}
	return added, removed, nil
}

// pagesOnlyIn returns fetched pages recorded for run a but not run b.
func (d *DB) pagesOnlyIn(ctx context.Context, a, b string) ([]PageChange, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT remote_key, title, local_file
		FROM run_pages
		WHERE run_id = ? AND status = 'fetched'
		  AND remote_key NOT IN (
			SELECT remote_key FROM run_pages
			WHERE run_id = ? AND status = 'fetched'
		  )
		ORDER BY CAST(remote_key AS INTEGER), remote_key`, a, b)
	if err != nil {
		return nil, fmt.Errorf("failed to diff pages: %w", err)
	}
	defer rows.Close()

	var changes []PageChange
	for rows.Next() {
		var c PageChange
		if err := rows.Scan(&c.RemoteKey, &c.Title, &c.LocalFile); err != nil {
			return nil, fmt.Errorf("failed to scan page diff row: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// NewlyFailedFiles returns files that failed in the newer run without
// having failed in the older one: regressions, not chronic failures.
func (d *DB) NewlyFailedFiles(ctx context.Context, olderID, newerID string) ([]FileChange, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT remote_key, title, failure_reason
		FROM run_files
		WHERE run_id = ? AND status = 'failed'
		  AND remote_key NOT IN (
			SELECT remote_key FROM run_files
			WHERE run_id = ? AND status = 'failed'
		  )
		ORDER BY CAST(remote_key AS INTEGER), remote_key`, newerID, olderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list newly failed files: %w", err)
	}
	defer rows.Close()

	var changes []FileChange
	for rows.Next() {
		var c FileChange
		if err := rows.Scan(&c.RemoteKey, &c.Title, &c.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan failure row: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for scanRun.
type scanner interface {
	Scan(dest ...any) error
}

// scanRun reads one runs row.
func scanRun(s scanner) (RunInfo, error) {
	var (
		info                RunInfo
		testMode, cancelled int
		startedAt           string
		elapsedSeconds      float64
	)
	err := s.Scan(&info.ID, &info.Portal, &info.OutputDir, &testMode, &cancelled,
		&startedAt, &elapsedSeconds, &info.PagesSaved, &info.PagesFailed,
		&info.FilesDownloaded, &info.FilesFailed, &info.AssetsMirrored, &info.AssetsFailed)
	if err != nil {
		return RunInfo{}, err
	}
	info.TestMode = testMode != 0
	info.Cancelled = cancelled != 0
	info.StartedAt = parseTimestamp(startedAt)
	info.Elapsed = time.Duration(elapsedSeconds * float64(time.Second))
	return info, nil
}

// parseTimestamp tolerates both RFC3339 and SQLite's native datetime
// spelling; a run row written by hand should still list cleanly.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// boolInt stores a bool the SQLite way.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package store handles SQLite persistence of reduced frame statistics.
package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/darkcmp/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed width so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for cached frame records.
type Store struct {
	db *sql.DB
}

// Run describes one ingest run.
type Run struct {
	ID        string
	Folder    string
	StartedAt time.Time
	EndedAt   time.Time
	Files     int
	Cached    int
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			folder TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			files INTEGER NOT NULL DEFAULT 0,
			cached INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS frames (
			path TEXT NOT NULL,
			crop REAL NOT NULL,
			size INTEGER NOT NULL,
			mod_time TEXT NOT NULL,
			run_id TEXT NOT NULL,
			category TEXT NOT NULL,
			object TEXT NOT NULL,
			camera TEXT NOT NULL,
			gain REAL NOT NULL,
			exposure REAL NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			mean REAL,
			median REAL,
			std_dev REAL,
			PRIMARY KEY (path, crop)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// StartRun records the start of an ingest run and returns its id.
func (s *Store) StartRun(ctx context.Context, folder string, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, folder, started_at) VALUES (?, ?, ?)`,
		id, folder, startedAt.UTC().Format(timeLayout))
	if err != nil {
		return "", err
	}
	return id, nil
}

// FinishRun stores the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, id string, endedAt time.Time, files, cached int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, files = ?, cached = ? WHERE id = ?`,
		endedAt.UTC().Format(timeLayout), files, cached, id)
	return err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, folder, started_at, COALESCE(ended_at, ''), files, cached
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, ended string
		if err := rows.Scan(&r.ID, &r.Folder, &started, &ended, &r.Files, &r.Cached); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, err
		}
		if ended != "" {
			if r.EndedAt, err = time.Parse(timeLayout, ended); err != nil {
				return nil, err
			}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// LookupFrame returns the cached record for path when size, modification
// time, and crop fraction all match what was stored.
func (s *Store) LookupFrame(ctx context.Context, path string, size int64, modTime time.Time, crop float64) (model.ImageRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT category, object, camera, gain, exposure, width, height, mean, median, std_dev
		 FROM frames WHERE path = ? AND crop = ? AND size = ? AND mod_time = ?`,
		path, crop, size, formatModTime(modTime))
	rec := model.ImageRecord{Path: path, Size: size, ModTime: modTime}
	var category string
	var mean, median, stdDev sql.NullFloat64
	err := row.Scan(&category, &rec.Object, &rec.Camera, &rec.Gain, &rec.Exposure,
		&rec.Width, &rec.Height, &mean, &median, &stdDev)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ImageRecord{}, false, nil
	}
	if err != nil {
		return model.ImageRecord{}, false, err
	}
	rec.Category = model.Category(category)
	rec.Mean = fromNullFloat(mean)
	rec.Median = fromNullFloat(median)
	rec.StdDev = fromNullFloat(stdDev)
	return rec, true, nil
}

// PutFrame stores or replaces the record for its path and crop fraction.
func (s *Store) PutFrame(ctx context.Context, runID string, rec model.ImageRecord, crop float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO frames (path, crop, size, mod_time, run_id, category, object, camera,
			gain, exposure, width, height, mean, median, std_dev)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Path, crop, rec.Size, formatModTime(rec.ModTime), runID, string(rec.Category), rec.Object, rec.Camera,
		rec.Gain, rec.Exposure, rec.Width, rec.Height,
		toNullFloat(rec.Mean), toNullFloat(rec.Median), toNullFloat(rec.StdDev))
	return err
}

// Prune removes cached frames under folder that were not seen by runID.
func (s *Store) Prune(ctx context.Context, folder, runID string, keep []string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep_paths (path TEXT PRIMARY KEY)`); err != nil {
		return 0, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM keep_paths`); err != nil {
		return 0, err
	}
	for _, p := range keep {
		if _, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO keep_paths (path) VALUES (?)`, p); err != nil {
			return 0, err
		}
	}
	prefix := filepath.Clean(folder) + string(filepath.Separator)
	res, err := tx.ExecContext(ctx,
		`DELETE FROM frames
		 WHERE substr(path, 1, length(?)) = ? AND run_id != ? AND path NOT IN (SELECT path FROM keep_paths)`,
		prefix, prefix, runID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// NaN statistics are stored as NULL; SQLite has no NaN.
func toNullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func formatModTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Package database keeps a SQLite history of processed filings.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dgallion1/itemxtract/internal/ledger"
)

// RunDB stores one row per completed filing. It is a ledger.Sink.
type RunDB struct {
	db *sql.DB
}

// Open opens or creates the database file at path.
func Open(path string) (*RunDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	r := &RunDB{db: db}
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := r.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return r, nil
}

func (r *RunDB) Close() error {
	return r.db.Close()
}

func (r *RunDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS filings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		identifier TEXT NOT NULL,
		cik TEXT,
		year INTEGER NOT NULL,
		filing_type TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT NOT NULL,
		downloaded INTEGER NOT NULL DEFAULT 0,
		cached INTEGER NOT NULL DEFAULT 0,
		toc_found INTEGER NOT NULL DEFAULT 0,
		items TEXT NOT NULL,
		errors TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_filings_run ON filings(run_id);
	CREATE INDEX IF NOT EXISTS idx_filings_cik ON filings(cik, year, filing_type);
	`
	_, err := r.db.ExecContext(context.Background(), schema)
	return err
}

// FilingCompleted inserts rec.
func (r *RunDB) FilingCompleted(ctx context.Context, rec ledger.FilingRecord) error {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	errs, err := json.Marshal(rec.Errors)
	if err != nil {
		return fmt.Errorf("encode errors: %w", err)
	}

	query := `
	INSERT INTO filings (run_id, identifier, cik, year, filing_type, started_at, ended_at,
		downloaded, cached, toc_found, items, errors)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.RunID, rec.Identifier, rec.CIK, rec.Year, rec.FilingType,
		formatTime(rec.StartedAt), formatTime(rec.EndedAt),
		rec.Downloaded, rec.Cached, rec.TOCFound,
		string(items), string(errs),
	)
	if err != nil {
		return fmt.Errorf("insert filing: %w", err)
	}
	return nil
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	RunID      string
	CIK        string
	FilingType string
	Limit      int
}

// List returns stored filings, newest first.
func (r *RunDB) List(ctx context.Context, f Filter) ([]ledger.FilingRecord, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	query := `
	SELECT run_id, identifier, cik, year, filing_type, started_at, ended_at,
		downloaded, cached, toc_found, items, errors
	FROM filings
	WHERE (? = '' OR run_id = ?)
	  AND (? = '' OR cik = ?)
	  AND (? = '' OR filing_type = ?)
	ORDER BY id DESC
	LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query,
		f.RunID, f.RunID, f.CIK, f.CIK, f.FilingType, f.FilingType, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("query filings: %w", err)
	}
	defer rows.Close()

	var out []ledger.FilingRecord
	for rows.Next() {
		var (
			rec            ledger.FilingRecord
			cik            sql.NullString
			started, ended string
			items, errs    string
		)
		if err := rows.Scan(&rec.RunID, &rec.Identifier, &cik, &rec.Year, &rec.FilingType,
			&started, &ended, &rec.Downloaded, &rec.Cached, &rec.TOCFound, &items, &errs); err != nil {
			return nil, fmt.Errorf("scan filing: %w", err)
		}
		rec.CIK = cik.String
		rec.StartedAt = parseTime(started)
		rec.EndedAt = parseTime(ended)
		rec.Status = ledger.StatusCompleted
		if err := json.Unmarshal([]byte(items), &rec.Items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		if err := json.Unmarshal([]byte(errs), &rec.Errors); err != nil {
			return nil, fmt.Errorf("decode errors: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Package store keeps a history of run results in a SQLite database.
package store

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"tracelab/internal/artifact"
	"tracelab/internal/util"
)

// DefaultPath is the history database used when none is given.
const DefaultPath = "tracelab.db"

const schemaVersion = 1

const schemaVersionTable = `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`

const runsTable = `CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	timestamp_utc TEXT NOT NULL,
	mode          TEXT NOT NULL,
	arch          TEXT NOT NULL DEFAULT '',
	command       TEXT NOT NULL,
	duration_sec  REAL,
	exit_code     INTEGER NOT NULL,
	label         TEXT NOT NULL DEFAULT '',
	confidence    TEXT NOT NULL DEFAULT '',
	source_path   TEXT NOT NULL DEFAULT '',
	document      TEXT NOT NULL
)`

const runsIndex = `CREATE INDEX IF NOT EXISTS idx_runs_mode_timestamp ON runs(mode, timestamp_utc)`

// Entry is the summary of one stored run.
type Entry struct {
	RunID        string
	TimestampUTC string
	Mode         string
	Arch         string
	Command      string
	DurationSec  *float64
	ExitCode     int
	Label        string
	Confidence   string
	SourcePath   string
}

// ListFilter restricts List results. Zero values match everything.
type ListFilter struct {
	Mode  string
	Limit int
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens, creating when needed, the history database at path.
func Open(path string) (*Store, error) {
	if err := util.CreateParentDirectory(path); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory for %s", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}
	for _, p := range []string{"PRAGMA busy_timeout=5000;", "PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;"} {
		if _, err := db.Exec(p); err != nil {
			slog.Warn("failed to set pragma", slog.String("pragma", p), slog.String("error", err.Error()))
		}
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(schemaVersionTable); err != nil {
		return errors.Wrap(err, "failed to create schema_version table")
	}
	var current int
	err = tx.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrap(err, "failed to get current schema version")
	}
	if current > schemaVersion {
		return errors.Errorf("database schema version %d is newer than supported version %d", current, schemaVersion)
	}
	if current < 1 {
		for _, stmt := range []string{runsTable, runsIndex} {
			if _, err := tx.Exec(stmt); err != nil {
				return errors.Wrap(err, "failed to create runs table")
			}
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return errors.Wrap(err, "failed to update schema version")
		}
	}
	return tx.Commit()
}

// Add stores run, replacing any earlier row with the same run id. Runs
// without a run id are given one. It returns the stored run id.
func (s *Store) Add(run artifact.RunResult, sourcePath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	doc, err := json.Marshal(run)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal run")
	}
	var label, confidence string
	if run.Diagnosis != nil {
		label = run.Diagnosis.Label
		confidence = run.Diagnosis.Confidence
	}
	var duration sql.NullFloat64
	if run.DurationSec != nil {
		duration = sql.NullFloat64{Float64: *run.DurationSec, Valid: true}
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO runs
		(run_id, timestamp_utc, mode, arch, command, duration_sec, exit_code, label, confidence, source_path, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.TimestampUTC, run.Mode, run.Arch(), run.Command, duration, run.ExitCode, label, confidence, sourcePath, string(doc))
	if err != nil {
		return "", errors.Wrapf(err, "failed to store run %s", run.RunID)
	}
	slog.Debug("stored run", slog.String("run_id", run.RunID), slog.String("source", sourcePath))
	return run.RunID, nil
}

// List returns stored runs, newest first.
func (s *Store) List(filter ListFilter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sb strings.Builder
	var args []any
	sb.WriteString(`SELECT run_id, timestamp_utc, mode, arch, command, duration_sec, exit_code, label, confidence, source_path FROM runs`)
	if filter.Mode != "" {
		sb.WriteString(" WHERE mode = ?")
		args = append(args, filter.Mode)
	}
	sb.WriteString(" ORDER BY timestamp_utc DESC, rowid DESC")
	if filter.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}
	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query runs")
	}
	defer func() { _ = rows.Close() }()
	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var duration sql.NullFloat64
		if err := rows.Scan(&e.RunID, &e.TimestampUTC, &e.Mode, &e.Arch, &e.Command, &duration, &e.ExitCode, &e.Label, &e.Confidence, &e.SourcePath); err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		if duration.Valid {
			d := duration.Float64
			e.DurationSec = &d
		}
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "failed to read runs")
}

// All returns every stored run document in insertion order.
func (s *Store) All() ([]artifact.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT run_id, document FROM runs ORDER BY rowid`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query runs")
	}
	defer func() { _ = rows.Close() }()
	runs := []artifact.RunResult{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		var run artifact.RunResult
		if err := json.Unmarshal([]byte(doc), &run); err != nil {
			return nil, errors.Wrapf(err, "failed to decode run %s", id)
		}
		runs = append(runs, run)
	}
	return runs, errors.Wrap(rows.Err(), "failed to read runs")
}

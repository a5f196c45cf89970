// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit persists a log of tool executions to SQLite, so a
// session can be reviewed after the fact: which tools the model asked
// for, with which arguments, and how they went.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/wikichat/internal/tools"
)

// =============================================================================
// LOG
// =============================================================================

// Entry is one recorded tool execution.
type Entry struct {
	ID        string
	Tool      string
	Arguments string
	Status    string
	Message   string
	Timestamp time.Time
	Duration  time.Duration
}

// Log is a SQLite-backed execution log. Safe for concurrent use; the
// database limits itself to a single writer connection.
type Log struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS executions (
	id          TEXT PRIMARY KEY,
	tool        TEXT NOT NULL,
	arguments   TEXT NOT NULL,
	status      TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	ts          INTEGER NOT NULL,
	duration_us INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS executions_ts ON executions(ts);
`

// Open opens (or creates) the audit database at path.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Log{db: db}, nil
}

// Close releases the database.
func (l *Log) Close() error {
	return l.db.Close()
}

// =============================================================================
// RECORDING
// =============================================================================

// Record inserts one execution record.
func (l *Log) Record(rec tools.ExecutionRecord) error {
	_, err := l.db.Exec(
		`INSERT INTO executions (id, tool, arguments, status, message, ts, duration_us)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		rec.Tool,
		rec.Arguments,
		rec.Status,
		rec.Message,
		rec.Timestamp.UnixMilli(),
		rec.Duration.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// Recorder adapts the log to the registry's recorder hook. Write
// failures only produce a warning: a broken audit log must never take
// down a tool dispatch.
func (l *Log) Recorder() tools.Recorder {
	return func(rec tools.ExecutionRecord) {
		if err := l.Record(rec); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.Query(
		`SELECT id, tool, arguments, status, message, ts, duration_us
		 FROM executions ORDER BY ts DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ByTool returns entries for one tool, newest first.
func (l *Log) ByTool(tool string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.Query(
		`SELECT id, tool, arguments, status, message, ts, duration_us
		 FROM executions WHERE tool = ? ORDER BY ts DESC, id LIMIT ?`, tool, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Stats summarizes recorded executions per tool.
type Stats struct {
	Tool      string
	Total     int
	Succeeded int
	Failed    int
}

// Summary returns per-tool counters over the whole log.
func (l *Log) Summary() ([]Stats, error) {
	rows, err := l.db.Query(
		`SELECT tool,
		        COUNT(*),
		        SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN status != 'success' THEN 1 ELSE 0 END)
		 FROM executions GROUP BY tool ORDER BY tool`)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	var out []Stats
	for rows.Next() {
		var s Stats
		if err := rows.Scan(&s.Tool, &s.Total, &s.Succeeded, &s.Failed); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		var durUS int64
		if err := rows.Scan(&e.ID, &e.Tool, &e.Arguments, &e.Status, &e.Message, &ts, &durUS); err != nil {
			return nil, err
		}
		e.Timestamp = time.UnixMilli(ts)
		e.Duration = time.Duration(durUS) * time.Microsecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Package storage keeps the audit trail: every approval decision and every
// tool execution is recorded in a local SQLite database.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// AuditLog is a SQLite-backed append-mostly log, WAL mode.
type AuditLog struct {
	db   *sql.DB
	path string
}

// ApprovalEntry records one user verdict on a flagged tool call.
type ApprovalEntry struct {
	SessionID string
	CallID    string
	Tool      string
	Approved  bool
	Reason    string
	CreatedAt string
}

// ExecutionEntry records one tool run and its outcome summary.
type ExecutionEntry struct {
	SessionID string
	CallID    string
	Tool      string
	OK        bool
	Summary   string
	CreatedAt string
}

func OpenAuditLog(dbPath string) (*AuditLog, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("audit db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	log := &AuditLog{db: db, path: dbPath}
	if err := log.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return log, nil
}

func (l *AuditLog) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS approvals (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		call_id    TEXT NOT NULL,
		tool       TEXT NOT NULL,
		approved   INTEGER NOT NULL,
		reason     TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS executions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		call_id    TEXT NOT NULL,
		tool       TEXT NOT NULL,
		ok         INTEGER NOT NULL,
		summary    TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_approvals_session ON approvals(session_id);
	CREATE INDEX IF NOT EXISTS idx_executions_session ON executions(session_id);
	`
	_, err := l.db.Exec(schema)
	return err
}

func (l *AuditLog) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *AuditLog) RecordApproval(entry ApprovalEntry) error {
	_, err := l.db.Exec(`
		INSERT INTO approvals (session_id, call_id, tool, approved, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.SessionID, entry.CallID, entry.Tool, boolToInt(entry.Approved), entry.Reason, nowUTC())
	if err != nil {
		return fmt.Errorf("record approval: %w", err)
	}
	return nil
}

func (l *AuditLog) RecordExecution(entry ExecutionEntry) error {
	_, err := l.db.Exec(`
		INSERT INTO executions (session_id, call_id, tool, ok, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.SessionID, entry.CallID, entry.Tool, boolToInt(entry.OK), entry.Summary, nowUTC())
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

// Approvals returns the session's approval history, oldest first.
func (l *AuditLog) Approvals(sessionID string) ([]ApprovalEntry, error) {
	rows, err := l.db.Query(`
		SELECT session_id, call_id, tool, approved, reason, created_at
		FROM approvals WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query approvals: %w", err)
	}
	defer rows.Close()

	var out []ApprovalEntry
	for rows.Next() {
		var e ApprovalEntry
		var approved int
		if err := rows.Scan(&e.SessionID, &e.CallID, &e.Tool, &approved, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		e.Approved = approved != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// Executions returns the session's tool run history, oldest first.
func (l *AuditLog) Executions(sessionID string) ([]ExecutionEntry, error) {
	rows, err := l.db.Query(`
		SELECT session_id, call_id, tool, ok, summary, created_at
		FROM executions WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var out []ExecutionEntry
	for rows.Next() {
		var e ExecutionEntry
		var ok int
		if err := rows.Scan(&e.SessionID, &e.CallID, &e.Tool, &ok, &e.Summary, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		e.OK = ok != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists sessions in an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	stmts := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		`CREATE TABLE IF NOT EXISTS voice_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NULL,
			transcription TEXT NOT NULL DEFAULT '',
			agent_response TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_voice_sessions_user_started ON voice_sessions (user_id, started_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite session schema failed on %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, sess Session) (Session, error) {
	meta, err := encodeMetadata(sess.Metadata)
	if err != nil {
		return Session{}, err
	}
	if sess.Status == "" {
		sess.Status = StatusActive
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO voice_sessions (id, user_id, agent_id, status, started_at, ended_at, transcription, agent_response, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.UserID,
		sess.AgentID,
		string(sess.Status),
		formatTime(sess.StartedAt),
		formatTimePtr(sess.EndedAt),
		sess.Transcription,
		sess.AgentResponse,
		meta,
	)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return s.Get(ctx, sess.ID)
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM voice_sessions WHERE id = ?`, sessionID)

	var (
		out       Session
		status    string
		startedAt string
		endedAt   sql.NullString
		meta      string
	)
	err := row.Scan(&out.ID, &out.UserID, &out.AgentID, &status, &startedAt, &endedAt, &out.Transcription, &out.AgentResponse, &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	out.Status = Status(status)
	if out.StartedAt, err = parseTime(startedAt); err != nil {
		return Session{}, err
	}
	if endedAt.Valid && endedAt.String != "" {
		ended, err := parseTime(endedAt.String)
		if err != nil {
			return Session{}, err
		}
		out.EndedAt = &ended
	}
	if out.Metadata, err = decodeMetadata([]byte(meta)); err != nil {
		return Session{}, err
	}
	return out, nil
}

func (s *SQLiteStore) Update(ctx context.Context, sessionID string, patch Patch) (Session, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE voice_sessions SET
			transcription = COALESCE(?, transcription),
			agent_response = COALESCE(?, agent_response)
		 WHERE id = ?`,
		nullableString(patch.Transcription),
		nullableString(patch.AgentResponse),
		sessionID,
	)
	if err != nil {
		return Session{}, fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Session{}, ErrNotFound
	}
	return s.Get(ctx, sessionID)
}

func (s *SQLiteStore) Complete(ctx context.Context, sessionID string, at time.Time) (Session, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE voice_sessions SET status = ?, ended_at = ? WHERE id = ? AND status = ?`,
		string(StatusCompleted),
		formatTime(at),
		sessionID,
		string(StatusActive),
	)
	if err != nil {
		return Session{}, fmt.Errorf("complete session: %w", err)
	}
	n, _ := res.RowsAffected()
	out, err := s.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if n == 0 {
		return out, ErrAlreadyCompleted
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse session time %q: %w", v, err)
	}
	return t.UTC(), nil
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

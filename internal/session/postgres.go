package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const sessionColumns = `id, user_id, agent_id, status, started_at, ended_at, transcription, agent_response, metadata`

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS voice_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ NULL,
			transcription TEXT NOT NULL DEFAULT '',
			agent_response TEXT NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb
		);`,
		`CREATE INDEX IF NOT EXISTS idx_voice_sessions_user_started ON voice_sessions (user_id, started_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init session schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, sess Session) (Session, error) {
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
	row := s.pool.QueryRow(ctx,
		`INSERT INTO voice_sessions (id, user_id, agent_id, status, started_at, ended_at, transcription, agent_response, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
		 RETURNING `+sessionColumns,
		sess.ID,
		sess.UserID,
		sess.AgentID,
		string(sess.Status),
		sess.StartedAt,
		sess.EndedAt,
		sess.Transcription,
		sess.AgentResponse,
		meta,
	)
	out, err := scanSessionRow(row)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM voice_sessions WHERE id=$1`, sessionID)
	out, err := scanSessionRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, sessionID string, patch Patch) (Session, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE voice_sessions SET
			transcription = COALESCE($2, transcription),
			agent_response = COALESCE($3, agent_response)
		 WHERE id=$1
		 RETURNING `+sessionColumns,
		sessionID,
		patch.Transcription,
		patch.AgentResponse,
	)
	out, err := scanSessionRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("update session: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Complete(ctx context.Context, sessionID string, at time.Time) (Session, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE voice_sessions SET status=$2, ended_at=$3
		 WHERE id=$1 AND status=$4
		 RETURNING `+sessionColumns,
		sessionID,
		string(StatusCompleted),
		at.UTC(),
		string(StatusActive),
	)
	out, err := scanSessionRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := s.Get(ctx, sessionID)
		if getErr != nil {
			return Session{}, getErr
		}
		return existing, ErrAlreadyCompleted
	}
	if err != nil {
		return Session{}, fmt.Errorf("complete session: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanSessionRow(row pgx.Row) (Session, error) {
	var (
		out    Session
		status string
		meta   []byte
	)
	if err := row.Scan(
		&out.ID,
		&out.UserID,
		&out.AgentID,
		&status,
		&out.StartedAt,
		&out.EndedAt,
		&out.Transcription,
		&out.AgentResponse,
		&meta,
	); err != nil {
		return Session{}, err
	}
	out.Status = Status(status)
	out.StartedAt = out.StartedAt.UTC()
	if out.EndedAt != nil {
		ended := out.EndedAt.UTC()
		out.EndedAt = &ended
	}
	md, err := decodeMetadata(meta)
	if err != nil {
		return Session{}, err
	}
	out.Metadata = md
	return out, nil
}

func encodeMetadata(md map[string]string) (string, error) {
	if len(md) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("encode session metadata: %w", err)
	}
	return string(raw), nil
}

func decodeMetadata(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var md map[string]string
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, fmt.Errorf("decode session metadata: %w", err)
	}
	if len(md) == 0 {
		return nil, nil
	}
	return md, nil
}

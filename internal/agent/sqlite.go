package agent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore reads agents from an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
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
		db.SetMaxOpenConns(1)
	}
	stmts := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		`CREATE TABLE IF NOT EXISTS voice_agents (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			system_prompt TEXT NULL,
			voice_id TEXT NOT NULL DEFAULT '',
			stability REAL NULL,
			similarity_boost REAL NULL,
			is_active INTEGER NOT NULL DEFAULT 1
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite agent schema failed on %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, agentID string) (Agent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM voice_agents WHERE id = ?`, agentID)
	a, err := scanSQLiteAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	if err != nil {
		return Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) Put(ctx context.Context, a Agent) error {
	if err := a.Validate(); err != nil {
		return err
	}
	stability, similarity := settingsColumns(a.VoiceSettings)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO voice_agents (`+agentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			user_id=excluded.user_id,
			name=excluded.name,
			description=excluded.description,
			system_prompt=excluded.system_prompt,
			voice_id=excluded.voice_id,
			stability=excluded.stability,
			similarity_boost=excluded.similarity_boost,
			is_active=excluded.is_active`,
		a.ID, a.UserID, a.Name, a.Description, nullString(a.SystemPrompt), a.VoiceID, nullFloat(stability), nullFloat(similarity), a.IsActive,
	)
	if err != nil {
		return fmt.Errorf("put agent: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Agent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+agentColumns+` FROM voice_agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanSQLiteAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSQLiteAgent(row rowScanner) (Agent, error) {
	var (
		a          Agent
		prompt     sql.NullString
		stability  sql.NullFloat64
		similarity sql.NullFloat64
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Description, &prompt, &a.VoiceID, &stability, &similarity, &a.IsActive); err != nil {
		return Agent{}, err
	}
	if prompt.Valid {
		p := prompt.String
		a.SystemPrompt = &p
	}
	var sp, mp *float64
	if stability.Valid {
		sp = &stability.Float64
	}
	if similarity.Valid {
		mp = &similarity.Float64
	}
	a.VoiceSettings = settingsFromColumns(sp, mp)
	return a, nil
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

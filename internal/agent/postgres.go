package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads agents from PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const agentColumns = `id, user_id, name, description, system_prompt, voice_id, stability, similarity_boost, is_active`

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS voice_agents (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			system_prompt TEXT NULL,
			voice_id TEXT NOT NULL DEFAULT '',
			stability DOUBLE PRECISION NULL,
			similarity_boost DOUBLE PRECISION NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		);`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init agent schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, agentID string) (Agent, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM voice_agents WHERE id=$1`, agentID)
	a, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	if err != nil {
		return Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Put(ctx context.Context, a Agent) error {
	if err := a.Validate(); err != nil {
		return err
	}
	stability, similarity := settingsColumns(a.VoiceSettings)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO voice_agents (`+agentColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (id) DO UPDATE SET
			user_id=EXCLUDED.user_id,
			name=EXCLUDED.name,
			description=EXCLUDED.description,
			system_prompt=EXCLUDED.system_prompt,
			voice_id=EXCLUDED.voice_id,
			stability=EXCLUDED.stability,
			similarity_boost=EXCLUDED.similarity_boost,
			is_active=EXCLUDED.is_active`,
		a.ID, a.UserID, a.Name, a.Description, a.SystemPrompt, a.VoiceID, stability, similarity, a.IsActive,
	)
	if err != nil {
		return fmt.Errorf("put agent: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Agent, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+agentColumns+` FROM voice_agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanAgent(row pgx.Row) (Agent, error) {
	var (
		a          Agent
		stability  *float64
		similarity *float64
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Description, &a.SystemPrompt, &a.VoiceID, &stability, &similarity, &a.IsActive); err != nil {
		return Agent{}, err
	}
	a.VoiceSettings = settingsFromColumns(stability, similarity)
	return a, nil
}

func settingsColumns(vs *VoiceSettings) (*float64, *float64) {
	if vs == nil {
		return nil, nil
	}
	stability, similarity := vs.Stability, vs.SimilarityBoost
	return &stability, &similarity
}

func settingsFromColumns(stability, similarity *float64) *VoiceSettings {
	if stability == nil && similarity == nil {
		return nil
	}
	vs := DefaultVoiceSettings
	if stability != nil {
		vs.Stability = *stability
	}
	if similarity != nil {
		vs.SimilarityBoost = *similarity
	}
	return &vs
}

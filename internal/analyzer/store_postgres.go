package analyzer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "taxpilot/pkg/domain"
	"taxpilot/pkg/platform/sentinel"
	storetx "taxpilot/pkg/platform/tx"
)

// PostgresStore persists analysis results in PostgreSQL, one row per
// transaction with the result body as JSONB. When the context carries a SQL
// transaction (pkg/platform/tx), statements run inside it so a result commits
// atomically with the state transition it triggered.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema returns the DDL for the analysis results table.
func Schema() string {
	return `
	CREATE TABLE IF NOT EXISTS analysis_results (
		transaction_id UUID PRIMARY KEY,
		registry_version BIGINT NOT NULL,
		result JSONB NOT NULL,
		analyzed_at TIMESTAMPTZ NOT NULL
	)`
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) execer {
	if tx, ok := storetx.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Put(ctx context.Context, result *Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode analysis result: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO analysis_results (transaction_id, registry_version, result, analyzed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (transaction_id) DO UPDATE SET
			registry_version = EXCLUDED.registry_version,
			result = EXCLUDED.result,
			analyzed_at = EXCLUDED.analyzed_at`,
		uuid.UUID(result.TransactionID), result.RegistryVersion, body, result.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert analysis result: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, txID id.TransactionID) (*Result, error) {
	var body []byte
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT result FROM analysis_results WHERE transaction_id = $1`,
		uuid.UUID(txID)).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select analysis result: %w", err)
	}
	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode analysis result: %w", err)
	}
	return &result, nil
}

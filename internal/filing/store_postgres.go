package filing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "taxpilot/pkg/domain"
	"taxpilot/pkg/platform/sentinel"
	storetx "taxpilot/pkg/platform/tx"
)

// PostgresStore persists filings in PostgreSQL. When the context carries a
// SQL transaction (pkg/platform/tx), statements run inside it so a filing
// outcome commits atomically with its transaction state transition.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema returns the DDL for the filings table.
func Schema() string {
	return `
	CREATE TABLE IF NOT EXISTS filings (
		id UUID PRIMARY KEY,
		transaction_id UUID NOT NULL,
		portal TEXT NOT NULL,
		payload_hash TEXT NOT NULL,
		confirmation_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		attempts INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (transaction_id, portal)
	)`
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) conn(ctx context.Context) execer {
	if tx, ok := storetx.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, f *Filing) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO filings (
			id, transaction_id, portal, payload_hash, confirmation_id,
			status, reason, attempts, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		uuid.UUID(f.ID), uuid.UUID(f.TransactionID), f.Portal, f.PayloadHash,
		f.ConfirmationID, string(f.Status), f.Reason, f.Attempts,
		f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert filing: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, filingID id.FilingID) (*Filing, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, transaction_id, portal, payload_hash, confirmation_id,
		       status, reason, attempts, created_at, updated_at
		FROM filings WHERE id = $1`, uuid.UUID(filingID))
	return scanFiling(row)
}

func (s *PostgresStore) GetByTransactionPortal(ctx context.Context, txID id.TransactionID, portal string) (*Filing, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, transaction_id, portal, payload_hash, confirmation_id,
		       status, reason, attempts, created_at, updated_at
		FROM filings WHERE transaction_id = $1 AND portal = $2`,
		uuid.UUID(txID), portal)
	return scanFiling(row)
}

func (s *PostgresStore) Update(ctx context.Context, f *Filing) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE filings SET
			payload_hash = $2, confirmation_id = $3, status = $4,
			reason = $5, attempts = $6, updated_at = $7
		WHERE id = $1`,
		uuid.UUID(f.ID), f.PayloadHash, f.ConfirmationID, string(f.Status),
		f.Reason, f.Attempts, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update filing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update filing: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByTransaction(ctx context.Context, txID id.TransactionID) ([]*Filing, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, transaction_id, portal, payload_hash, confirmation_id,
		       status, reason, attempts, created_at, updated_at
		FROM filings WHERE transaction_id = $1 ORDER BY created_at`,
		uuid.UUID(txID))
	if err != nil {
		return nil, fmt.Errorf("list filings: %w", err)
	}
	defer rows.Close()

	var out []*Filing
	for rows.Next() {
		f, err := scanFiling(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFiling(row rowScanner) (*Filing, error) {
	var (
		f      Filing
		rawID  uuid.UUID
		rawTx  uuid.UUID
		status string
	)
	err := row.Scan(
		&rawID, &rawTx, &f.Portal, &f.PayloadHash, &f.ConfirmationID,
		&status, &f.Reason, &f.Attempts, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan filing: %w", err)
	}
	f.ID = id.FilingID(rawID)
	f.TransactionID = id.TransactionID(rawTx)
	f.Status = Status(status)
	return &f, nil
}

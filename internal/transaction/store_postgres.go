package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	id "taxpilot/pkg/domain"
	"taxpilot/pkg/platform/sentinel"
	storetx "taxpilot/pkg/platform/tx"
)

// PostgresStore persists transactions in PostgreSQL. When the context carries
// a SQL transaction (pkg/platform/tx), statements run inside it so a state
// transition commits atomically with its triggering result.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema returns the DDL for the transactions table. Applied by migrations in
// deployment; integration tests execute it directly.
func Schema() string {
	return `
	CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		invoice_number TEXT NOT NULL UNIQUE,
		amount NUMERIC(20,4) NOT NULL,
		currency TEXT NOT NULL,
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		category TEXT NOT NULL,
		settlement TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		state TEXT NOT NULL,
		state_reason TEXT NOT NULL DEFAULT '',
		validation_attempts INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
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

func (s *PostgresStore) Create(ctx context.Context, tx *Transaction) error {
	query := `
		INSERT INTO transactions (
			id, invoice_number, amount, currency, origin, destination, category,
			settlement, occurred_at, state, state_reason, validation_attempts,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		uuid.UUID(tx.ID), tx.InvoiceNumber, tx.Amount.String(), tx.Currency,
		tx.Origin, tx.Destination, tx.Category, string(tx.Settlement),
		tx.OccurredAt, string(tx.State), tx.StateReason, tx.ValidationAttempts,
		tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, txID id.TransactionID) (*Transaction, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, invoice_number, amount, currency, origin, destination, category,
		       settlement, occurred_at, state, state_reason, validation_attempts,
		       created_at, updated_at
		FROM transactions WHERE id = $1`, uuid.UUID(txID))
	return scanTransaction(row)
}

func (s *PostgresStore) Update(ctx context.Context, tx *Transaction) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE transactions SET
			settlement = $2, state = $3, state_reason = $4,
			validation_attempts = $5, updated_at = $6
		WHERE id = $1`,
		uuid.UUID(tx.ID), string(tx.Settlement), string(tx.State),
		tx.StateReason, tx.ValidationAttempts, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Transaction, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, invoice_number, amount, currency, origin, destination, category,
		       settlement, occurred_at, state, state_reason, validation_attempts,
		       created_at, updated_at
		FROM transactions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	var (
		tx         Transaction
		rawID      uuid.UUID
		amount     string
		settlement string
		state      string
	)
	err := row.Scan(
		&rawID, &tx.InvoiceNumber, &amount, &tx.Currency, &tx.Origin,
		&tx.Destination, &tx.Category, &settlement, &tx.OccurredAt, &state,
		&tx.StateReason, &tx.ValidationAttempts, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse stored amount: %w", err)
	}
	tx.ID = id.TransactionID(rawID)
	tx.Amount = parsed
	tx.Settlement = SettlementStatus(settlement)
	tx.State = State(state)
	return &tx, nil
}

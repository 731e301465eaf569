package checklist

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

// PostgresStore persists checklists in PostgreSQL, one row per transaction
// with the item sequence as JSONB. When the context carries a SQL transaction
// (pkg/platform/tx), statements run inside it.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema returns the DDL for the checklists table.
func Schema() string {
	return `
	CREATE TABLE IF NOT EXISTS checklists (
		transaction_id UUID PRIMARY KEY,
		registry_version BIGINT NOT NULL,
		items JSONB NOT NULL,
		generated_at TIMESTAMPTZ NOT NULL
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

func (s *PostgresStore) Put(ctx context.Context, list *Checklist) error {
	items, err := json.Marshal(list.Items)
	if err != nil {
		return fmt.Errorf("encode checklist items: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO checklists (transaction_id, registry_version, items, generated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (transaction_id) DO UPDATE SET
			registry_version = EXCLUDED.registry_version,
			items = EXCLUDED.items,
			generated_at = EXCLUDED.generated_at`,
		uuid.UUID(list.TransactionID), list.RegistryVersion, items, list.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert checklist: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, txID id.TransactionID) (*Checklist, error) {
	var (
		list    Checklist
		rawID   uuid.UUID
		rawJSON []byte
	)
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT transaction_id, registry_version, items, generated_at
		FROM checklists WHERE transaction_id = $1`, uuid.UUID(txID)).
		Scan(&rawID, &list.RegistryVersion, &rawJSON, &list.GeneratedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select checklist: %w", err)
	}
	if err := json.Unmarshal(rawJSON, &list.Items); err != nil {
		return nil, fmt.Errorf("decode checklist items: %w", err)
	}
	list.TransactionID = id.TransactionID(rawID)
	return &list, nil
}

func (s *PostgresStore) UpdateItemStatus(ctx context.Context, txID id.TransactionID, itemID id.ChecklistItemID, status ItemStatus) error {
	list, err := s.Get(ctx, txID)
	if err != nil {
		return err
	}
	found := false
	for i := range list.Items {
		if list.Items[i].ID == itemID {
			list.Items[i].Status = status
			found = true
			break
		}
	}
	if !found {
		return sentinel.ErrNotFound
	}
	return s.Put(ctx, list)
}

func (s *PostgresStore) Delete(ctx context.Context, txID id.TransactionID) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM checklists WHERE transaction_id = $1`, uuid.UUID(txID))
	if err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}
	return nil
}

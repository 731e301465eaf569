//go:build integration

package transaction_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"taxpilot/internal/transaction"
	id "taxpilot/pkg/domain"
	"taxpilot/pkg/platform/sentinel"
	"taxpilot/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *transaction.PostgresStore
	ctx   context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T(), transaction.Schema())
	s.store = transaction.NewPostgresStore(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(s.ctx, "transactions"))
}

func (s *PostgresStoreSuite) newTransaction(invoice string) *transaction.Transaction {
	now := time.Now().UTC().Truncate(time.Microsecond)
	tx, err := transaction.New(
		id.TransactionID(uuid.New()), invoice,
		decimal.NewFromInt(600000), "INR", "IN", "US", "technical",
		now, now,
	)
	s.Require().NoError(err)
	return tx
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	tx := s.newTransaction("INV-2026-001")
	s.Require().NoError(s.store.Create(s.ctx, tx))

	got, err := s.store.Get(s.ctx, tx.ID)
	s.Require().NoError(err)
	s.Equal(tx.ID, got.ID)
	s.Equal(tx.InvoiceNumber, got.InvoiceNumber)
	s.True(tx.Amount.Equal(got.Amount))
	s.Equal(tx.Currency, got.Currency)
	s.Equal(transaction.StateCreated, got.State)
	s.Equal(transaction.SettlementPending, got.Settlement)
	s.Equal(0, got.ValidationAttempts)
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, id.TransactionID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCreateDuplicateID() {
	tx := s.newTransaction("INV-2026-002")
	s.Require().NoError(s.store.Create(s.ctx, tx))

	dup := s.newTransaction("INV-2026-003")
	dup.ID = tx.ID
	s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestCreateDuplicateInvoiceNumber() {
	tx := s.newTransaction("INV-2026-004")
	s.Require().NoError(s.store.Create(s.ctx, tx))

	dup := s.newTransaction("INV-2026-004")
	s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdate() {
	tx := s.newTransaction("INV-2026-005")
	s.Require().NoError(s.store.Create(s.ctx, tx))

	now := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(tx.Apply(transaction.StateAnalyzed, "analyzed at registry version 1", now))
	tx.Settlement = transaction.SettlementSettled
	tx.ValidationAttempts = 1
	s.Require().NoError(s.store.Update(s.ctx, tx))

	got, err := s.store.Get(s.ctx, tx.ID)
	s.Require().NoError(err)
	s.Equal(transaction.StateAnalyzed, got.State)
	s.Equal("analyzed at registry version 1", got.StateReason)
	s.Equal(transaction.SettlementSettled, got.Settlement)
	s.Equal(1, got.ValidationAttempts)
}

func (s *PostgresStoreSuite) TestUpdateMissing() {
	tx := s.newTransaction("INV-2026-006")
	s.ErrorIs(s.store.Update(s.ctx, tx), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOrdersByCreation() {
	first := s.newTransaction("INV-2026-007")
	s.Require().NoError(s.store.Create(s.ctx, first))

	second := s.newTransaction("INV-2026-008")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	second.UpdatedAt = second.CreatedAt
	s.Require().NoError(s.store.Create(s.ctx, second))

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(first.ID, all[0].ID)
	s.Equal(second.ID, all[1].ID)
}

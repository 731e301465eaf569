package checklist

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxpilot/internal/analyzer"
	"taxpilot/internal/rules"
	"taxpilot/internal/transaction"
	id "taxpilot/pkg/domain"
	"taxpilot/pkg/platform/sentinel"
)

var generatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func fixtureResult(t *testing.T) *analyzer.Result {
	t.Helper()
	tx, err := transaction.New(
		id.TransactionID(uuid.New()), "INV-CHK-1",
		decimal.RequireFromString("600000"), "INR",
		"IN", "US", rules.CategoryTechnical, generatedAt, generatedAt,
	)
	require.NoError(t, err)

	result, err := analyzer.Evaluate(rules.Seed(), tx, generatedAt)
	require.NoError(t, err)
	return result
}

func TestBuild_OneItemPerDocumentEffect(t *testing.T) {
	result := fixtureResult(t)
	list := Build(result)

	wantDocs := 0
	for _, rule := range result.MatchedRules {
		for _, effect := range rule.Effects {
			if effect.Kind == rules.EffectDocument {
				wantDocs++
			}
		}
	}
	require.NotZero(t, wantDocs)
	assert.Len(t, list.Items, wantDocs)
	for _, item := range list.Items {
		assert.Equal(t, StatusPending, item.Status)
		assert.NotEmpty(t, item.Description)
	}
}

func TestBuild_NoDuplicateRuleDocumentPairs(t *testing.T) {
	result := fixtureResult(t)
	// Duplicate every matched rule to force potential duplicates.
	result.MatchedRules = append(result.MatchedRules, result.MatchedRules...)

	list := Build(result)

	seen := make(map[[2]string]bool)
	for _, item := range list.Items {
		key := [2]string{item.RuleID, item.DocumentType}
		assert.False(t, seen[key], "duplicate item for %v", key)
		seen[key] = true
	}
}

func TestBuild_IsIdempotent(t *testing.T) {
	result := fixtureResult(t)

	first := Build(result)
	second := Build(result)

	assert.Equal(t, first, second)
	for i := range first.Items {
		assert.Equal(t, first.Items[i].ID, second.Items[i].ID, "item IDs must be stable")
	}
}

func TestBuild_Ordering(t *testing.T) {
	epoch := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	specific := rules.ComplianceRule{
		ID:               "XX-SPECIFIC",
		JurisdictionCode: "XX",
		Category:         "withholding",
		Predicate:        rules.Predicate{CrossBorderOnly: true, Categories: []string{rules.CategoryTechnical}},
		Effects:          []rules.Effect{rules.DocumentEffect("cert", "FORM-A", 60)},
		EffectiveFrom:    epoch,
	}
	generalLate := rules.ComplianceRule{
		ID:               "XX-GENERAL-B",
		JurisdictionCode: "XX",
		Category:         "vat",
		Effects:          []rules.Effect{rules.DocumentEffect("return", "FORM-B", 30)},
		EffectiveFrom:    epoch,
	}
	generalEarly := rules.ComplianceRule{
		ID:               "XX-GENERAL-A",
		JurisdictionCode: "XX",
		Category:         "vat",
		Effects:          []rules.Effect{rules.DocumentEffect("invoice", "FORM-C", 7)},
		EffectiveFrom:    epoch,
	}
	result := &analyzer.Result{
		TransactionID: id.TransactionID(uuid.New()),
		MatchedRules:  []rules.ComplianceRule{generalLate, generalEarly, specific},
		AnalyzedAt:    generatedAt,
	}

	list := Build(result)

	require.Len(t, list.Items, 3)
	// Specificity first, then deadline urgency ascending.
	assert.Equal(t, "XX-SPECIFIC", list.Items[0].RuleID)
	assert.Equal(t, "XX-GENERAL-A", list.Items[1].RuleID)
	assert.Equal(t, "XX-GENERAL-B", list.Items[2].RuleID)
}

func TestBuild_TiesBreakOnRuleID(t *testing.T) {
	epoch := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	a := rules.ComplianceRule{
		ID: "XX-A", JurisdictionCode: "XX", Category: "vat",
		Effects:       []rules.Effect{rules.DocumentEffect("return", "", 30)},
		EffectiveFrom: epoch,
	}
	b := rules.ComplianceRule{
		ID: "XX-B", JurisdictionCode: "XX", Category: "vat",
		Effects:       []rules.Effect{rules.DocumentEffect("return", "", 30)},
		EffectiveFrom: epoch,
	}
	result := &analyzer.Result{
		TransactionID: id.TransactionID(uuid.New()),
		MatchedRules:  []rules.ComplianceRule{b, a},
		AnalyzedAt:    generatedAt,
	}

	list := Build(result)

	require.Len(t, list.Items, 2)
	assert.Equal(t, "XX-A", list.Items[0].RuleID)
	assert.Equal(t, "XX-B", list.Items[1].RuleID)
}

func TestChecklist_AllSatisfied(t *testing.T) {
	list := Build(fixtureResult(t))
	require.NotEmpty(t, list.Items)
	assert.False(t, list.AllSatisfied())

	for i := range list.Items {
		list.Items[i].Status = StatusSatisfied
	}
	assert.True(t, list.AllSatisfied())

	empty := &Checklist{TransactionID: list.TransactionID}
	assert.True(t, empty.AllSatisfied())
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	list := Build(fixtureResult(t))

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, list.TransactionID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("put and get", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, list))
		got, err := store.Get(ctx, list.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, list, got)
	})

	t.Run("returned copy does not alias the store", func(t *testing.T) {
		got, err := store.Get(ctx, list.TransactionID)
		require.NoError(t, err)
		got.Items[0].Status = StatusFailed

		again, err := store.Get(ctx, list.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, again.Items[0].Status)
	})

	t.Run("update item status", func(t *testing.T) {
		itemID := list.Items[0].ID
		require.NoError(t, store.UpdateItemStatus(ctx, list.TransactionID, itemID, StatusSatisfied))

		got, err := store.Get(ctx, list.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, StatusSatisfied, got.Items[0].Status)
	})

	t.Run("update unknown item", func(t *testing.T) {
		err := store.UpdateItemStatus(ctx, list.TransactionID, id.ChecklistItemID(uuid.New()), StatusSatisfied)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, list.TransactionID))
		_, err := store.Get(ctx, list.TransactionID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		require.NoError(t, store.Delete(ctx, list.TransactionID))
	})
}

package validation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxpilot/internal/checklist"
	"taxpilot/internal/rules"
	id "taxpilot/pkg/domain"
	"taxpilot/pkg/requestcontext"
)

func item(docType string) checklist.Item {
	return checklist.Item{
		ID:           id.ChecklistItemID(uuid.New()),
		RuleID:       "XX-RULE",
		DocumentType: docType,
		Status:       checklist.StatusPending,
	}
}

func pdf(docType string) Document {
	return Document{
		ID:          id.DocumentID(uuid.New()),
		Type:        docType,
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.7 stub"),
	}
}

func singleItemList(docType string) *checklist.Checklist {
	return &checklist.Checklist{
		TransactionID: id.TransactionID(uuid.New()),
		Items:         []checklist.Item{item(docType)},
	}
}

func TestValidate_MissingDocument(t *testing.T) {
	engine := NewEngine(nil)
	list := singleItemList(rules.DocW8BEN)

	outcomes := engine.Validate(context.Background(), list, nil, nil)

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Satisfied)
	assert.Equal(t, "missing required document: w8ben", outcomes[0].Reason)
	assert.Equal(t, list.Items[0].ID, outcomes[0].ItemID)
}

func TestValidate_DocumentWellFormedness(t *testing.T) {
	engine := NewEngine(nil)

	t.Run("empty content", func(t *testing.T) {
		doc := pdf(rules.DocW8BEN)
		doc.Content = nil
		outcomes := engine.Validate(context.Background(), singleItemList(rules.DocW8BEN), []Document{doc}, nil)
		require.Len(t, outcomes, 1)
		assert.False(t, outcomes[0].Satisfied)
		assert.Contains(t, outcomes[0].Reason, "has no content")
	})

	t.Run("unsupported content type", func(t *testing.T) {
		doc := pdf(rules.DocW8BEN)
		doc.ContentType = "application/zip"
		outcomes := engine.Validate(context.Background(), singleItemList(rules.DocW8BEN), []Document{doc}, nil)
		require.Len(t, outcomes, 1)
		assert.False(t, outcomes[0].Satisfied)
		assert.Contains(t, outcomes[0].Reason, "unsupported content type")
	})

	t.Run("well-formed document with no fact constraints passes", func(t *testing.T) {
		outcomes := engine.Validate(context.Background(), singleItemList(rules.DocW8BEN), []Document{pdf(rules.DocW8BEN)}, nil)
		require.Len(t, outcomes, 1)
		assert.True(t, outcomes[0].Satisfied)
		assert.Empty(t, outcomes[0].Reason)
	})
}

func TestValidate_FactConstraints(t *testing.T) {
	engine := NewEngine(nil)
	docs := []Document{pdf(rules.DocTaxResidencyCert)}

	cases := []struct {
		name      string
		facts     Facts
		satisfied bool
		reason    string
	}{
		{
			name:   "fact missing",
			facts:  Facts{},
			reason: `missing declared fact "pan" (PAN) for tax_residency_certificate`,
		},
		{
			name:   "fact malformed",
			facts:  Facts{"pan": "not-a-pan"},
			reason: `declared fact "pan" does not match the PAN format`,
		},
		{
			name:      "fact valid",
			facts:     Facts{"pan": "ABCDE1234F"},
			satisfied: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcomes := engine.Validate(context.Background(), singleItemList(rules.DocTaxResidencyCert), docs, tc.facts)
			require.Len(t, outcomes, 1)
			assert.Equal(t, tc.satisfied, outcomes[0].Satisfied)
			assert.Equal(t, tc.reason, outcomes[0].Reason)
		})
	}
}

func TestValidate_RegistrationNumberFormats(t *testing.T) {
	cases := []struct {
		name  string
		docs  string
		facts Facts
		ok    bool
	}{
		{
			name: "singapore F5 with valid UEN and GST registration",
			docs: rules.DocGSTReturn,
			facts: Facts{
				"uen":              "201912345A",
				"gst_registration": "M12345678X",
			},
			ok: true,
		},
		{
			name: "singapore F5 with malformed UEN",
			docs: rules.DocGSTReturn,
			facts: Facts{
				"uen":              "20191234",
				"gst_registration": "M12345678X",
			},
			ok: false,
		},
		{
			name: "remittance certificate with valid PAN and GSTIN",
			docs: rules.DocForeignRemittance,
			facts: Facts{
				"pan":   "ABCDE1234F",
				"gstin": "07ABCDE1234F1Z5",
			},
			ok: true,
		},
		{
			name: "remittance certificate with malformed GSTIN",
			docs: rules.DocForeignRemittance,
			facts: Facts{
				"pan":   "ABCDE1234F",
				"gstin": "XXABCDE1234F1Z5",
			},
			ok: false,
		},
	}
	engine := NewEngine(nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcomes := engine.Validate(context.Background(), singleItemList(tc.docs), []Document{pdf(tc.docs)}, tc.facts)
			require.Len(t, outcomes, 1)
			assert.Equal(t, tc.ok, outcomes[0].Satisfied, "reason: %s", outcomes[0].Reason)
		})
	}
}

func TestValidate_FirstFailingConstraintOnly(t *testing.T) {
	// Both facts are wrong; the reason names only the first constraint.
	engine := NewEngine(nil)
	outcomes := engine.Validate(context.Background(),
		singleItemList(rules.DocForeignRemittance),
		[]Document{pdf(rules.DocForeignRemittance)},
		Facts{"pan": "bad", "gstin": "bad"},
	)

	require.Len(t, outcomes, 1)
	assert.Equal(t, `declared fact "pan" does not match the PAN format`, outcomes[0].Reason)
}

func TestValidate_OutcomePerItemInChecklistOrder(t *testing.T) {
	engine := NewEngine(nil)
	list := &checklist.Checklist{
		TransactionID: id.TransactionID(uuid.New()),
		Items: []checklist.Item{
			item(rules.DocW8BEN),
			item(rules.DocInvoice),
			item(rules.DocProofOfService),
		},
	}
	docs := []Document{pdf(rules.DocInvoice)}

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	outcomes := engine.Validate(ctx, list, docs, nil)

	require.Len(t, outcomes, 3)
	assert.False(t, outcomes[0].Satisfied)
	assert.True(t, outcomes[1].Satisfied)
	assert.False(t, outcomes[2].Satisfied)
	for i, outcome := range outcomes {
		assert.Equal(t, list.Items[i].ID, outcome.ItemID)
		assert.Equal(t, now, outcome.Timestamp)
	}
}

// Package validation checks submitted documents and declared facts against a
// transaction's checklist. The engine is synchronous and self-contained: the
// caller supplies everything, no collaborator is called, and each item's
// outcome names the first failing constraint.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"taxpilot/internal/checklist"
	"taxpilot/internal/rules"
	id "taxpilot/pkg/domain"
	"taxpilot/pkg/requestcontext"
)

// Document is a submitted supporting document, fetched from the document
// store by the caller before validation runs.
type Document struct {
	ID          id.DocumentID `json:"id"`
	Type        string        `json:"type"`
	ContentType string        `json:"content_type"`
	Content     []byte        `json:"-"`
}

// Facts are the declared facts accompanying a submission, keyed by fact name
// (registration numbers, certificate references).
type Facts map[string]string

// Outcome is the validation verdict for one checklist item.
type Outcome struct {
	ItemID    id.ChecklistItemID `json:"item_id"`
	Satisfied bool               `json:"satisfied"`
	Reason    string             `json:"reason,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// FactConstraint requires a declared fact to match a format.
type FactConstraint struct {
	Key     string
	Pattern *regexp.Regexp
	Label   string
}

// Registration number formats enforced on declared facts.
var (
	gstinPattern = regexp.MustCompile(`^\d{2}[A-Z]{5}\d{4}[A-Z]{1}[A-Z\d]{1}[Z]{1}[A-Z\d]{1}$`)
	panPattern   = regexp.MustCompile(`^[A-Z]{5}\d{4}[A-Z]{1}$`)
	uenPattern   = regexp.MustCompile(`^\d{9}[A-Z]$`)
	sgGSTPattern = regexp.MustCompile(`^[MF]\d{8}[A-Z]$`)
)

// DefaultConstraints maps document types to the declared facts they require.
// The GST return is Singapore's F5, the residency certificate and remittance
// forms are India's, so each carries that jurisdiction's format rules.
func DefaultConstraints() map[string][]FactConstraint {
	return map[string][]FactConstraint{
		rules.DocGSTReturn: {
			{Key: "uen", Pattern: uenPattern, Label: "UEN"},
			{Key: "gst_registration", Pattern: sgGSTPattern, Label: "GST registration number"},
		},
		rules.DocTaxResidencyCert: {
			{Key: "pan", Pattern: panPattern, Label: "PAN"},
		},
		rules.DocForeignRemittance: {
			{Key: "pan", Pattern: panPattern, Label: "PAN"},
			{Key: "gstin", Pattern: gstinPattern, Label: "GSTIN"},
		},
		rules.DocWithholdingReturn: {
			{Key: "counterparty_tax_id", Pattern: nil, Label: "counterparty tax identifier"},
		},
	}
}

// allowedContentTypes is the well-formedness allow-list for document payloads.
var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"text/plain":      true,
}

// Engine validates checklists. Constraints are data so jurisdictional format
// rules can be extended without touching the evaluation loop.
type Engine struct {
	logger      *slog.Logger
	constraints map[string][]FactConstraint
}

func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger, constraints: DefaultConstraints()}
}

// WithConstraints replaces the constraint table. Used by tests and by
// deployments carrying jurisdiction-specific fact requirements.
func (e *Engine) WithConstraints(constraints map[string][]FactConstraint) *Engine {
	e.constraints = constraints
	return e
}

// Validate produces one outcome per checklist item, in checklist order. An
// item is satisfied only when its document is present, well-formed and every
// associated fact constraint passes; otherwise the outcome carries the first
// failing constraint as its reason.
func (e *Engine) Validate(ctx context.Context, list *checklist.Checklist, documents []Document, facts Facts) []Outcome {
	now := requestcontext.Now(ctx)
	byType := make(map[string]Document, len(documents))
	for _, doc := range documents {
		if _, exists := byType[doc.Type]; !exists {
			byType[doc.Type] = doc
		}
	}

	outcomes := make([]Outcome, 0, len(list.Items))
	satisfied := 0
	for _, item := range list.Items {
		outcome := Outcome{ItemID: item.ID, Timestamp: now}
		if reason := e.checkItem(item, byType, facts); reason != "" {
			outcome.Reason = reason
		} else {
			outcome.Satisfied = true
			satisfied++
		}
		outcomes = append(outcomes, outcome)
	}

	if e.logger != nil {
		e.logger.InfoContext(ctx, "checklist validated",
			"transaction_id", list.TransactionID,
			"items", len(list.Items),
			"satisfied", satisfied,
		)
	}
	return outcomes
}

// checkItem returns the first failing constraint's reason, or "" when the
// item is satisfied.
func (e *Engine) checkItem(item checklist.Item, byType map[string]Document, facts Facts) string {
	doc, ok := byType[item.DocumentType]
	if !ok {
		return fmt.Sprintf("missing required document: %s", item.DocumentType)
	}
	if len(doc.Content) == 0 {
		return fmt.Sprintf("document %s has no content", item.DocumentType)
	}
	if !allowedContentTypes[doc.ContentType] {
		return fmt.Sprintf("document %s has unsupported content type %q", item.DocumentType, doc.ContentType)
	}

	for _, constraint := range e.constraints[item.DocumentType] {
		value, declared := facts[constraint.Key]
		if !declared || value == "" {
			return fmt.Sprintf("missing declared fact %q (%s) for %s", constraint.Key, constraint.Label, item.DocumentType)
		}
		if constraint.Pattern != nil && !constraint.Pattern.MatchString(value) {
			return fmt.Sprintf("declared fact %q does not match the %s format", constraint.Key, constraint.Label)
		}
	}
	return ""
}

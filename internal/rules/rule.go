// Package rules holds the jurisdiction-keyed compliance rule model and the
// versioned registry used to evaluate transactions. Rules are data: the
// engine applies whatever rule set the active snapshot carries and makes no
// claim about legal correctness.
package rules

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxType tags a rate effect with the kind of tax it levies.
type TaxType string

const (
	TaxGST           TaxType = "gst"
	TaxIGST          TaxType = "igst"
	TaxVAT           TaxType = "vat"
	TaxTDS           TaxType = "tds"
	TaxWithholding   TaxType = "withholding"
	TaxReverseCharge TaxType = "reverse_charge"
)

// Jurisdiction is immutable reference data for one tax authority's domain.
type Jurisdiction struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Regime   string `json:"regime"`
	EUMember bool   `json:"eu_member"`
}

// EffectKind discriminates the Effect variant.
type EffectKind string

const (
	// EffectRate levies a percentage of the transaction amount.
	EffectRate EffectKind = "rate"
	// EffectDocument requires a supporting document or filing form.
	EffectDocument EffectKind = "document"
)

// Effect is a tagged variant: exactly the fields for its Kind are set.
// Modeling effects this way lets the analyzer and checklist generator switch
// exhaustively on Kind instead of type-asserting through a hierarchy.
type Effect struct {
	Kind EffectKind `json:"kind"`

	// Rate effect fields.
	TaxType TaxType         `json:"tax_type,omitempty"`
	Rate    decimal.Decimal `json:"rate,omitempty"` // percent of transaction amount

	// Document effect fields.
	DocumentType       string `json:"document_type,omitempty"`
	FilingForm         string `json:"filing_form,omitempty"`
	DeadlineOffsetDays int    `json:"deadline_offset_days,omitempty"`
}

// RateEffect builds a rate variant.
func RateEffect(taxType TaxType, percent string) Effect {
	return Effect{Kind: EffectRate, TaxType: taxType, Rate: decimal.RequireFromString(percent)}
}

// DocumentEffect builds a document variant.
func DocumentEffect(documentType, filingForm string, deadlineOffsetDays int) Effect {
	return Effect{
		Kind:               EffectDocument,
		DocumentType:       documentType,
		FilingForm:         filingForm,
		DeadlineOffsetDays: deadlineOffsetDays,
	}
}

// TransactionAttributes are the rule-relevant facts about a transaction.
// The registry depends on this narrow struct rather than the transaction
// aggregate so lookups stay a pure function of their inputs.
type TransactionAttributes struct {
	Amount              decimal.Decimal
	Currency            string
	Category            string
	CrossBorder         bool
	CounterpartyCountry string
	Settled             bool
}

// Predicate is the applicability condition of a rule. Zero-valued fields are
// unconstrained; each constrained field raises the rule's specificity by one.
type Predicate struct {
	Categories            []string         `json:"categories,omitempty"`
	MinAmount             *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount             *decimal.Decimal `json:"max_amount,omitempty"`
	CrossBorderOnly       bool             `json:"cross_border_only,omitempty"`
	CounterpartyCountries []string         `json:"counterparty_countries,omitempty"`
	SettledOnly           bool             `json:"settled_only,omitempty"`
}

// Matches reports whether the predicate applies to the given attributes.
func (p Predicate) Matches(attrs TransactionAttributes) bool {
	if len(p.Categories) > 0 && !contains(p.Categories, attrs.Category) {
		return false
	}
	if p.MinAmount != nil && attrs.Amount.LessThan(*p.MinAmount) {
		return false
	}
	if p.MaxAmount != nil && attrs.Amount.GreaterThan(*p.MaxAmount) {
		return false
	}
	if p.CrossBorderOnly && !attrs.CrossBorder {
		return false
	}
	if len(p.CounterpartyCountries) > 0 && !contains(p.CounterpartyCountries, attrs.CounterpartyCountry) {
		return false
	}
	if p.SettledOnly && !attrs.Settled {
		return false
	}
	return true
}

// Specificity counts the constrained predicate fields. More specific rules
// sort ahead of general ones, and exclusive rules suppress less specific
// rules in their category.
func (p Predicate) Specificity() int {
	n := 0
	if len(p.Categories) > 0 {
		n++
	}
	if p.MinAmount != nil {
		n++
	}
	if p.MaxAmount != nil {
		n++
	}
	if p.CrossBorderOnly {
		n++
	}
	if len(p.CounterpartyCountries) > 0 {
		n++
	}
	if p.SettledOnly {
		n++
	}
	return n
}

// ComplianceRule is one versioned, jurisdiction-scoped rule.
//
// Invariants:
//   - ID is stable across snapshot versions (used in checklist item identity)
//   - EffectiveTo is zero for open-ended rules
//   - Exclusive rules suppress lower-specificity rules in the same Category
type ComplianceRule struct {
	ID               string    `json:"id"`
	JurisdictionCode string    `json:"jurisdiction"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Predicate        Predicate `json:"predicate"`
	Effects          []Effect  `json:"effects"`
	Exclusive        bool      `json:"exclusive"`
	EffectiveFrom    time.Time `json:"effective_from"`
	EffectiveTo      time.Time `json:"effective_to,omitempty"`
}

// InEffect reports whether the rule's effective range includes asOf.
func (r ComplianceRule) InEffect(asOf time.Time) bool {
	if asOf.Before(r.EffectiveFrom) {
		return false
	}
	if !r.EffectiveTo.IsZero() && asOf.After(r.EffectiveTo) {
		return false
	}
	return true
}

// Specificity is the rule's ordering weight; see Predicate.Specificity.
func (r ComplianceRule) Specificity() int {
	return r.Predicate.Specificity()
}

// Treaty captures a double-taxation agreement between two countries: when a
// withholding-type rule matches and the treaty offers a lower rate, the
// analyzer applies the treaty rate instead.
type Treaty struct {
	Countries        [2]string                  `json:"countries"`
	WithholdingRates map[string]decimal.Decimal `json:"withholding_rates"` // keyed by category
	PEDays           int                        `json:"permanent_establishment_days"`
}

// RateFor returns the treaty withholding rate for a category, if any.
func (t Treaty) RateFor(category string) (decimal.Decimal, bool) {
	rate, ok := t.WithholdingRates[category]
	return rate, ok
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

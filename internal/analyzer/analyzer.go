// Package analyzer evaluates a transaction against the applicable rules of
// its origin and destination jurisdictions and computes the resulting tax
// impact. Evaluation is pure: the same transaction and registry snapshot
// always produce the same result.
package analyzer

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"taxpilot/internal/analyzer/metrics"
	"taxpilot/internal/rules"
	"taxpilot/internal/transaction"
	id "taxpilot/pkg/domain"
	dErrors "taxpilot/pkg/domain-errors"
	"taxpilot/pkg/requestcontext"
)

// AppliedTax is one tax levied by a matched rule.
type AppliedTax struct {
	RuleID  string          `json:"rule_id"`
	TaxType rules.TaxType   `json:"tax_type"`
	Rate    decimal.Decimal `json:"rate"`
	Amount  decimal.Decimal `json:"amount"`
	Note    string          `json:"note,omitempty"`
}

// Result is the tax-impact analysis of one transaction. Immutable once
// produced for a given registry version.
type Result struct {
	TransactionID   id.TransactionID       `json:"transaction_id"`
	RegistryVersion int64                  `json:"registry_version"`
	MatchedRules    []rules.ComplianceRule `json:"matched_rules"`
	Taxes           []AppliedTax           `json:"taxes"`
	TaxLiability    decimal.Decimal        `json:"tax_liability"`
	CrossBorder     bool                   `json:"cross_border"`
	Exemptions      []string               `json:"exemptions,omitempty"`
	AnalyzedAt      time.Time              `json:"analyzed_at"`
}

// Analyzer wraps the pure evaluation with the active registry snapshot,
// logging and metrics.
type Analyzer struct {
	registry *rules.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(registry *rules.Registry, logger *slog.Logger, m *metrics.Metrics) *Analyzer {
	return &Analyzer{registry: registry, logger: logger, metrics: m}
}

// Analyze evaluates the transaction against the currently active snapshot.
func (a *Analyzer) Analyze(ctx context.Context, tx *transaction.Transaction) (*Result, error) {
	start := time.Now()
	snapshot := a.registry.Current()

	result, err := Evaluate(snapshot, tx, requestcontext.Now(ctx))
	if err != nil {
		if a.logger != nil {
			a.logger.WarnContext(ctx, "analysis rejected",
				"transaction_id", tx.ID,
				"error", err,
			)
		}
		return nil, err
	}

	if a.metrics != nil {
		a.metrics.ObserveAnalysis(result.CrossBorder, time.Since(start))
	}
	if a.logger != nil {
		a.logger.InfoContext(ctx, "transaction analyzed",
			"transaction_id", tx.ID,
			"registry_version", result.RegistryVersion,
			"matched_rules", len(result.MatchedRules),
			"tax_liability", result.TaxLiability.String(),
			"cross_border", result.CrossBorder,
		)
	}
	return result, nil
}

// Evaluate is the pure evaluation core. asOf selects the effective rule
// versions and becomes the result's analysis timestamp.
func Evaluate(snapshot *rules.Snapshot, tx *transaction.Transaction, asOf time.Time) (*Result, error) {
	if !tx.Amount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if tx.Currency == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "currency is required")
	}

	origin, ok := snapshot.Jurisdiction(tx.Origin)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "unresolved origin jurisdiction %q", tx.Origin)
	}
	destination, ok := snapshot.Jurisdiction(tx.Destination)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "unresolved destination jurisdiction %q", tx.Destination)
	}

	crossBorder := tx.CrossBorder()
	matched, err := matchRules(snapshot, tx, crossBorder, asOf)
	if err != nil {
		return nil, err
	}

	var exemptions []string

	// Intra-EU supplies carry no withholding; the exemption is recorded so
	// the audit trail shows why the rules were dropped.
	if crossBorder && origin.EUMember && destination.EUMember {
		var kept []rules.ComplianceRule
		dropped := false
		for _, rule := range matched {
			if rule.Category == rules.RuleCategoryWithholding {
				dropped = true
				continue
			}
			kept = append(kept, rule)
		}
		if dropped {
			exemptions = append(exemptions, "intra-EU supply: withholding tax not applicable")
		}
		matched = kept
	}

	matched = suppressExclusive(matched)

	taxes, liability, treatyNotes := computeTaxes(snapshot, tx, matched, crossBorder)
	exemptions = append(exemptions, treatyNotes...)

	return &Result{
		TransactionID:   tx.ID,
		RegistryVersion: snapshot.Version(),
		MatchedRules:    matched,
		Taxes:           taxes,
		TaxLiability:    liability,
		CrossBorder:     crossBorder,
		Exemptions:      exemptions,
		AnalyzedAt:      asOf,
	}, nil
}

// matchRules unions the origin and destination rule sets, deduplicated by
// rule ID and ordered by specificity then rule ID.
func matchRules(snapshot *rules.Snapshot, tx *transaction.Transaction, crossBorder bool, asOf time.Time) ([]rules.ComplianceRule, error) {
	originAttrs := attributesFor(tx, crossBorder, tx.Destination)
	matched, err := snapshot.Lookup(tx.Origin, originAttrs, asOf)
	if err != nil {
		return nil, err
	}
	if !crossBorder {
		return matched, nil
	}

	destAttrs := attributesFor(tx, crossBorder, tx.Origin)
	destMatched, err := snapshot.Lookup(tx.Destination, destAttrs, asOf)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(matched))
	for _, rule := range matched {
		seen[rule.ID] = struct{}{}
	}
	for _, rule := range destMatched {
		if _, dup := seen[rule.ID]; !dup {
			matched = append(matched, rule)
		}
	}
	sortRules(matched)
	return matched, nil
}

func attributesFor(tx *transaction.Transaction, crossBorder bool, counterparty string) rules.TransactionAttributes {
	return rules.TransactionAttributes{
		Amount:              tx.Amount,
		Currency:            tx.Currency,
		Category:            tx.Category,
		CrossBorder:         crossBorder,
		CounterpartyCountry: counterparty,
		Settled:             tx.Settlement == transaction.SettlementSettled,
	}
}

func sortRules(set []rules.ComplianceRule) {
	sort.SliceStable(set, func(i, j int) bool {
		si, sj := set[i].Specificity(), set[j].Specificity()
		if si != sj {
			return si > sj
		}
		return set[i].ID < set[j].ID
	})
}

// suppressExclusive removes rules out-ranked by an exclusive rule in the same
// category. Non-exclusive overlapping rules all apply (additive composition).
func suppressExclusive(matched []rules.ComplianceRule) []rules.ComplianceRule {
	maxExclusive := make(map[string]int)
	for _, rule := range matched {
		if !rule.Exclusive {
			continue
		}
		if spec, ok := maxExclusive[rule.Category]; !ok || rule.Specificity() > spec {
			maxExclusive[rule.Category] = rule.Specificity()
		}
	}
	if len(maxExclusive) == 0 {
		return matched
	}

	var kept []rules.ComplianceRule
	for _, rule := range matched {
		if spec, ok := maxExclusive[rule.Category]; ok && rule.Specificity() < spec {
			continue
		}
		kept = append(kept, rule)
	}
	return kept
}

func computeTaxes(snapshot *rules.Snapshot, tx *transaction.Transaction, matched []rules.ComplianceRule, crossBorder bool) ([]AppliedTax, decimal.Decimal, []string) {
	var (
		taxes     []AppliedTax
		liability = decimal.Zero
		notes     []string
	)
	hundred := decimal.NewFromInt(100)

	for _, rule := range matched {
		for _, effect := range rule.Effects {
			if effect.Kind != rules.EffectRate {
				continue
			}
			rate := effect.Rate
			note := ""
			if crossBorder && withholdingType(effect.TaxType) {
				if treatyRate, ok := treatyRateFor(snapshot, tx); ok && treatyRate.LessThan(rate) {
					rate = treatyRate
					note = "treaty rate applied"
					notes = append(notes, "treaty benefit: "+rule.ID+" rate reduced to "+rate.String()+"%")
				}
			}
			amount := tx.Amount.Mul(rate).Div(hundred)
			taxes = append(taxes, AppliedTax{
				RuleID:  rule.ID,
				TaxType: effect.TaxType,
				Rate:    rate,
				Amount:  amount,
				Note:    note,
			})
			liability = liability.Add(amount)
		}
	}
	return taxes, liability, notes
}

func withholdingType(t rules.TaxType) bool {
	return t == rules.TaxWithholding || t == rules.TaxTDS
}

func treatyRateFor(snapshot *rules.Snapshot, tx *transaction.Transaction) (decimal.Decimal, bool) {
	treaty, ok := snapshot.Treaty(tx.Origin, tx.Destination)
	if !ok {
		return decimal.Decimal{}, false
	}
	key, ok := treatyCategory(tx.Category)
	if !ok {
		return decimal.Decimal{}, false
	}
	return treaty.RateFor(key)
}

// treatyCategory maps transaction categories onto treaty article keys.
func treatyCategory(category string) (string, bool) {
	switch category {
	case rules.CategoryRoyalty:
		return rules.TreatyCategoryRoyalty, true
	case rules.CategoryTechnical, rules.CategoryConsulting, rules.CategoryCloudServices:
		return rules.TreatyCategoryTechnical, true
	default:
		return "", false
	}
}

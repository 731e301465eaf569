// Package checklist derives the ordered compliance checklist for a
// transaction from its analysis result. Generation is deterministic: item
// identifiers are content-derived, so regenerating from the same result
// yields an identical checklist.
package checklist

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"taxpilot/internal/analyzer"
	"taxpilot/internal/rules"
	id "taxpilot/pkg/domain"
)

// ItemStatus tracks whether a checklist item's requirement has been met.
type ItemStatus string

const (
	StatusPending   ItemStatus = "pending"
	StatusSatisfied ItemStatus = "satisfied"
	StatusFailed    ItemStatus = "failed"
)

// Item is one discrete compliance requirement derived from a matched rule.
type Item struct {
	ID                 id.ChecklistItemID `json:"id"`
	RuleID             string             `json:"rule_id"`
	DocumentType       string             `json:"document_type"`
	FilingForm         string             `json:"filing_form,omitempty"`
	Description        string             `json:"description"`
	DeadlineOffsetDays int                `json:"deadline_offset_days"`
	Status             ItemStatus         `json:"status"`
}

// Checklist is the ordered item sequence for one transaction, pinned to the
// registry version it was derived from. Re-analysis under a newer version
// replaces the whole checklist; items are never edited across versions.
type Checklist struct {
	TransactionID   id.TransactionID `json:"transaction_id"`
	RegistryVersion int64            `json:"registry_version"`
	Items           []Item           `json:"items"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// AllSatisfied reports whether every item is satisfied. An empty checklist is
// trivially satisfied.
func (c *Checklist) AllSatisfied() bool {
	for _, item := range c.Items {
		if item.Status != StatusSatisfied {
			return false
		}
	}
	return true
}

// Pending returns the items still awaiting a document or fact.
func (c *Checklist) Pending() []Item {
	var pending []Item
	for _, item := range c.Items {
		if item.Status != StatusSatisfied {
			pending = append(pending, item)
		}
	}
	return pending
}

// itemNamespace seeds the content-derived item identifiers.
var itemNamespace = uuid.MustParse("7a8c2f04-51e5-4b0e-9d7e-3f1b2a6c9e42")

// Generator turns analysis results into checklists.
type Generator struct {
	logger *slog.Logger
}

func NewGenerator(logger *slog.Logger) *Generator {
	return &Generator{logger: logger}
}

// Generate emits one item per document effect of each matched rule,
// deduplicated by (rule, document type). Items are ordered by rule
// specificity descending, then deadline offset ascending, then rule ID.
// The checklist timestamp is the analysis timestamp, keeping generation a
// pure function of its input.
func (g *Generator) Generate(ctx context.Context, result *analyzer.Result) *Checklist {
	list := Build(result)
	if g.logger != nil {
		g.logger.InfoContext(ctx, "checklist generated",
			"transaction_id", result.TransactionID,
			"registry_version", result.RegistryVersion,
			"items", len(list.Items),
		)
	}
	return list
}

// Build is the pure generation core.
func Build(result *analyzer.Result) *Checklist {
	type entry struct {
		item        Item
		specificity int
	}

	seen := make(map[string]struct{})
	var entries []entry
	for _, rule := range result.MatchedRules {
		for _, effect := range rule.Effects {
			if effect.Kind != rules.EffectDocument {
				continue
			}
			key := rule.ID + "\x00" + effect.DocumentType
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			entries = append(entries, entry{
				item: Item{
					ID:                 itemID(result.TransactionID, rule.ID, effect.DocumentType),
					RuleID:             rule.ID,
					DocumentType:       effect.DocumentType,
					FilingForm:         effect.FilingForm,
					Description:        describeItem(rule, effect),
					DeadlineOffsetDays: effect.DeadlineOffsetDays,
					Status:             StatusPending,
				},
				specificity: rule.Specificity(),
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].specificity != entries[j].specificity {
			return entries[i].specificity > entries[j].specificity
		}
		if entries[i].item.DeadlineOffsetDays != entries[j].item.DeadlineOffsetDays {
			return entries[i].item.DeadlineOffsetDays < entries[j].item.DeadlineOffsetDays
		}
		return entries[i].item.RuleID < entries[j].item.RuleID
	})

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.item)
	}
	return &Checklist{
		TransactionID:   result.TransactionID,
		RegistryVersion: result.RegistryVersion,
		Items:           items,
		GeneratedAt:     result.AnalyzedAt,
	}
}

// itemID derives a stable identifier from the item's identity triple, so the
// same (transaction, rule, document type) always maps to the same item.
func itemID(txID id.TransactionID, ruleID, documentType string) id.ChecklistItemID {
	name := txID.String() + "/" + ruleID + "/" + documentType
	return id.ChecklistItemID(uuid.NewSHA1(itemNamespace, []byte(name)))
}

func describeItem(rule rules.ComplianceRule, effect rules.Effect) string {
	if effect.FilingForm != "" {
		return fmt.Sprintf("%s (%s) required by rule %s", effect.DocumentType, effect.FilingForm, rule.ID)
	}
	return fmt.Sprintf("%s required by rule %s", effect.DocumentType, rule.ID)
}

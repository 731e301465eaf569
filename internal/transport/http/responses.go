package httptransport

import (
	"time"

	"taxpilot/internal/analyzer"
	"taxpilot/internal/checklist"
	"taxpilot/internal/filing"
	"taxpilot/internal/transaction"
)

// TransactionResponse is the public shape of a transaction.
type TransactionResponse struct {
	ID                 string    `json:"id"`
	InvoiceNumber      string    `json:"invoice_number"`
	Amount             string    `json:"amount"`
	Currency           string    `json:"currency"`
	Origin             string    `json:"origin"`
	Destination        string    `json:"destination"`
	Category           string    `json:"category"`
	Settlement         string    `json:"settlement"`
	State              string    `json:"state"`
	StateReason        string    `json:"state_reason,omitempty"`
	ValidationAttempts int       `json:"validation_attempts"`
	OccurredAt         time.Time `json:"occurred_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	Analysis *AnalysisResponse `json:"analysis,omitempty"`
	Filings  []FilingResponse  `json:"filings,omitempty"`
}

// AnalysisResponse summarizes the latest analysis result.
type AnalysisResponse struct {
	RegistryVersion int64         `json:"registry_version"`
	CrossBorder     bool          `json:"cross_border"`
	TaxLiability    string        `json:"tax_liability"`
	Taxes           []TaxResponse `json:"taxes"`
	Exemptions      []string      `json:"exemptions,omitempty"`
	AnalyzedAt      time.Time     `json:"analyzed_at"`
}

type TaxResponse struct {
	RuleID  string `json:"rule_id"`
	TaxType string `json:"tax_type"`
	Rate    string `json:"rate"`
	Amount  string `json:"amount"`
	Note    string `json:"note,omitempty"`
}

// FilingResponse is the public shape of a filing record.
type FilingResponse struct {
	ID             string `json:"id"`
	Portal         string `json:"portal"`
	Status         string `json:"status"`
	ConfirmationID string `json:"confirmation_id,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Attempts       int    `json:"attempts"`
}

// ChecklistResponse is the public shape of a compliance checklist.
type ChecklistResponse struct {
	TransactionID   string                  `json:"transaction_id"`
	RegistryVersion int64                   `json:"registry_version"`
	GeneratedAt     time.Time               `json:"generated_at"`
	AllSatisfied    bool                    `json:"all_satisfied"`
	Items           []ChecklistItemResponse `json:"items"`
}

type ChecklistItemResponse struct {
	ID                 string `json:"id"`
	RuleID             string `json:"rule_id"`
	DocumentType       string `json:"document_type"`
	FilingForm         string `json:"filing_form,omitempty"`
	Description        string `json:"description"`
	DeadlineOffsetDays int    `json:"deadline_offset_days"`
	Status             string `json:"status"`
}

// SnapshotResponse describes the active rule registry snapshot.
type SnapshotResponse struct {
	Version       int64    `json:"version"`
	Jurisdictions []string `json:"jurisdictions"`
	RuleCount     int      `json:"rule_count"`
}

func fromTransaction(tx *transaction.Transaction, result *analyzer.Result, filings []*filing.Filing) TransactionResponse {
	resp := TransactionResponse{
		ID:                 tx.ID.String(),
		InvoiceNumber:      tx.InvoiceNumber,
		Amount:             tx.Amount.String(),
		Currency:           tx.Currency,
		Origin:             tx.Origin,
		Destination:        tx.Destination,
		Category:           tx.Category,
		Settlement:         string(tx.Settlement),
		State:              string(tx.State),
		StateReason:        tx.StateReason,
		ValidationAttempts: tx.ValidationAttempts,
		OccurredAt:         tx.OccurredAt,
		CreatedAt:          tx.CreatedAt,
		UpdatedAt:          tx.UpdatedAt,
	}
	if result != nil {
		analysis := AnalysisResponse{
			RegistryVersion: result.RegistryVersion,
			CrossBorder:     result.CrossBorder,
			TaxLiability:    result.TaxLiability.String(),
			Exemptions:      result.Exemptions,
			AnalyzedAt:      result.AnalyzedAt,
		}
		for _, tax := range result.Taxes {
			analysis.Taxes = append(analysis.Taxes, TaxResponse{
				RuleID:  tax.RuleID,
				TaxType: string(tax.TaxType),
				Rate:    tax.Rate.String(),
				Amount:  tax.Amount.String(),
				Note:    tax.Note,
			})
		}
		resp.Analysis = &analysis
	}
	for _, f := range filings {
		resp.Filings = append(resp.Filings, FilingResponse{
			ID:             f.ID.String(),
			Portal:         f.Portal,
			Status:         string(f.Status),
			ConfirmationID: f.ConfirmationID,
			Reason:         f.Reason,
			Attempts:       f.Attempts,
		})
	}
	return resp
}

func fromChecklist(list *checklist.Checklist) ChecklistResponse {
	resp := ChecklistResponse{
		TransactionID:   list.TransactionID.String(),
		RegistryVersion: list.RegistryVersion,
		GeneratedAt:     list.GeneratedAt,
		AllSatisfied:    list.AllSatisfied(),
	}
	for _, item := range list.Items {
		resp.Items = append(resp.Items, ChecklistItemResponse{
			ID:                 item.ID.String(),
			RuleID:             item.RuleID,
			DocumentType:       item.DocumentType,
			FilingForm:         item.FilingForm,
			Description:        item.Description,
			DeadlineOffsetDays: item.DeadlineOffsetDays,
			Status:             string(item.Status),
		})
	}
	return resp
}

package httptransport

import (
	"encoding/base64"
	"time"

	"github.com/shopspring/decimal"

	"taxpilot/internal/orchestrator"
	"taxpilot/internal/validation"
	id "taxpilot/pkg/domain"
	dErrors "taxpilot/pkg/domain-errors"
)

// CreateTransactionRequest is the inbound surface for POST /transactions.
type CreateTransactionRequest struct {
	InvoiceNumber string `json:"invoice_number"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	Category      string `json:"category"`
	OccurredAt    string `json:"occurred_at,omitempty"`

	parsedAmount     decimal.Decimal
	parsedOccurredAt time.Time
}

func (r *CreateTransactionRequest) Validate() error {
	if r.InvoiceNumber == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "invoice_number is required")
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "amount must be a decimal string")
	}
	r.parsedAmount = amount
	if r.Currency == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "currency is required")
	}
	if r.Origin == "" || r.Destination == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "origin and destination are required")
	}
	if r.OccurredAt != "" {
		occurredAt, err := time.Parse(time.RFC3339, r.OccurredAt)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, "occurred_at must be RFC 3339")
		}
		r.parsedOccurredAt = occurredAt
	}
	return nil
}

// Input converts the validated request to the service's inbound type.
func (r *CreateTransactionRequest) Input() orchestrator.NewTransactionInput {
	return orchestrator.NewTransactionInput{
		InvoiceNumber: r.InvoiceNumber,
		Amount:        r.parsedAmount,
		Currency:      r.Currency,
		Origin:        r.Origin,
		Destination:   r.Destination,
		Category:      r.Category,
		OccurredAt:    r.parsedOccurredAt,
	}
}

// EvidenceRequest carries document references and declared facts for
// POST /transactions/{id}/process and /documents. Both fields are optional
// on process; documents-only and facts-only submissions are valid.
type EvidenceRequest struct {
	DocumentIDs []string          `json:"document_ids,omitempty"`
	Facts       map[string]string `json:"facts,omitempty"`

	parsedDocumentIDs []id.DocumentID
}

func (r *EvidenceRequest) Validate() error {
	r.parsedDocumentIDs = make([]id.DocumentID, 0, len(r.DocumentIDs))
	for _, raw := range r.DocumentIDs {
		docID, err := id.ParseDocumentID(raw)
		if err != nil {
			return err
		}
		r.parsedDocumentIDs = append(r.parsedDocumentIDs, docID)
	}
	return nil
}

// Input converts the validated request to the service's inbound type.
func (r *EvidenceRequest) Input() orchestrator.ProcessInput {
	return orchestrator.ProcessInput{
		DocumentIDs: r.parsedDocumentIDs,
		Facts:       validation.Facts(r.Facts),
	}
}

// UploadDocumentRequest is the inbound surface for POST /documents.
type UploadDocumentRequest struct {
	DocumentType  string `json:"document_type"`
	ContentType   string `json:"content_type"`
	ContentBase64 string `json:"content_base64"`

	parsedContent []byte
}

func (r *UploadDocumentRequest) Validate() error {
	if r.DocumentType == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "document_type is required")
	}
	if r.ContentType == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "content_type is required")
	}
	content, err := base64.StdEncoding.DecodeString(r.ContentBase64)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "content_base64 is not valid base64")
	}
	if len(content) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "document content is required")
	}
	r.parsedContent = content
	return nil
}

// Document converts the validated request to the stored document shape.
func (r *UploadDocumentRequest) Document() validation.Document {
	return validation.Document{
		Type:        r.DocumentType,
		ContentType: r.ContentType,
		Content:     r.parsedContent,
	}
}

// Package domain defines strongly typed identifiers shared across the
// compliance core. Distinct UUID types prevent accidentally passing a
// filing ID where a transaction ID is expected; the compiler enforces it.
package domain

import (
	"github.com/google/uuid"

	dErrors "taxpilot/pkg/domain-errors"
)

type (
	// TransactionID identifies an ingested invoice transaction.
	TransactionID uuid.UUID

	// FilingID identifies a filing submission record.
	FilingID uuid.UUID

	// ChecklistItemID identifies a single compliance checklist item.
	ChecklistItemID uuid.UUID

	// DocumentID identifies a document held by the document store.
	DocumentID uuid.UUID
)

func (id TransactionID) String() string   { return uuid.UUID(id).String() }
func (id FilingID) String() string        { return uuid.UUID(id).String() }
func (id ChecklistItemID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string      { return uuid.UUID(id).String() }

func (id TransactionID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id FilingID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseTransactionID parses and validates a transaction ID from its string form.
func ParseTransactionID(raw string) (TransactionID, error) {
	parsed, err := parseUUID(raw, "transaction")
	if err != nil {
		return TransactionID{}, err
	}
	return TransactionID(parsed), nil
}

// ParseFilingID parses and validates a filing ID from its string form.
func ParseFilingID(raw string) (FilingID, error) {
	parsed, err := parseUUID(raw, "filing")
	if err != nil {
		return FilingID{}, err
	}
	return FilingID(parsed), nil
}

// ParseChecklistItemID parses and validates a checklist item ID from its string form.
func ParseChecklistItemID(raw string) (ChecklistItemID, error) {
	parsed, err := parseUUID(raw, "checklist item")
	if err != nil {
		return ChecklistItemID{}, err
	}
	return ChecklistItemID(parsed), nil
}

// ParseDocumentID parses and validates a document ID from its string form.
func ParseDocumentID(raw string) (DocumentID, error) {
	parsed, err := parseUUID(raw, "document")
	if err != nil {
		return DocumentID{}, err
	}
	return DocumentID(parsed), nil
}

// Package orchestrator drives a transaction through the compliance pipeline:
// analysis, checklist generation, validation and filing. Per-transaction
// processing is sequential under a single-writer lock; each state transition
// commits atomically with the result that triggered it.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"taxpilot/internal/analyzer"
	"taxpilot/internal/audit"
	"taxpilot/internal/checklist"
	"taxpilot/internal/filing"
	"taxpilot/internal/orchestrator/ports"
	"taxpilot/internal/transaction"
	"taxpilot/internal/validation"
	id "taxpilot/pkg/domain"
	dErrors "taxpilot/pkg/domain-errors"
	"taxpilot/pkg/platform/sentinel"
	storetx "taxpilot/pkg/platform/tx"
	"taxpilot/pkg/requestcontext"
)

// Config bounds the pipeline's recovery behavior.
type Config struct {
	// MaxValidationRetries is how many failed validation rounds a
	// transaction may accumulate before it is abandoned.
	MaxValidationRetries int
}

func DefaultConfig() Config {
	return Config{MaxValidationRetries: 3}
}

// Stores groups the persistence dependencies.
type Stores struct {
	Transactions transaction.Store
	Results      analyzer.Store
	Checklists   checklist.Store
	Filings      filing.Store
}

// Collaborators groups the external service ports. ERP and PaymentGateway
// are optional; when absent, ingestion attributes are taken at face value.
type Collaborators struct {
	Documents ports.DocumentStore
	ERP       ports.ERP
	Gateway   ports.PaymentGateway
}

// Service is the pipeline coordinator.
type Service struct {
	cfg     Config
	stores  Stores
	collab  Collaborators
	analyze *analyzer.Analyzer
	gen     *checklist.Generator
	engine  *validation.Engine
	sub     *filing.Submitter
	trail   *audit.Publisher
	runner  storetx.Runner
	logger  *slog.Logger
	tracer  trace.Tracer

	mu    sync.Mutex
	locks map[id.TransactionID]*sync.Mutex
}

func New(cfg Config, stores Stores, collab Collaborators, a *analyzer.Analyzer, gen *checklist.Generator, engine *validation.Engine, sub *filing.Submitter, trail *audit.Publisher, runner storetx.Runner, logger *slog.Logger) *Service {
	if cfg.MaxValidationRetries <= 0 {
		cfg.MaxValidationRetries = DefaultConfig().MaxValidationRetries
	}
	if runner == nil {
		runner = storetx.NopRunner{}
	}
	return &Service{
		cfg:     cfg,
		stores:  stores,
		collab:  collab,
		analyze: a,
		gen:     gen,
		engine:  engine,
		sub:     sub,
		trail:   trail,
		runner:  runner,
		logger:  logger,
		tracer:  otel.Tracer("taxpilot/orchestrator"),
		locks:   make(map[id.TransactionID]*sync.Mutex),
	}
}

// lock serializes processing per transaction ID: the single-writer invariant.
func (s *Service) lock(txID id.TransactionID) func() {
	s.mu.Lock()
	m, ok := s.locks[txID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[txID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// NewTransactionInput is the validated inbound surface from the request layer.
type NewTransactionInput struct {
	InvoiceNumber string
	Amount        decimal.Decimal
	Currency      string
	Origin        string
	Destination   string
	Category      string
	OccurredAt    time.Time
}

// ProcessInput carries the submitted evidence for validation.
type ProcessInput struct {
	DocumentIDs []id.DocumentID
	Facts       validation.Facts
}

func (in ProcessInput) empty() bool {
	return len(in.DocumentIDs) == 0 && len(in.Facts) == 0
}

// Ingest creates a transaction in the Created state.
func (s *Service) Ingest(ctx context.Context, input NewTransactionInput) (*transaction.Transaction, error) {
	tx, err := transaction.New(
		id.TransactionID(uuid.New()), input.InvoiceNumber, input.Amount,
		input.Currency, input.Origin, input.Destination, input.Category,
		input.OccurredAt, requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, err
	}
	if err := s.stores.Transactions.Create(ctx, tx); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "invoice %s already ingested", input.InvoiceNumber)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create transaction")
	}
	s.emit(ctx, tx, audit.ActionTransactionCreated, "")
	return tx, nil
}

// Get returns the transaction.
func (s *Service) Get(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	tx, err := s.stores.Transactions.Get(ctx, txID)
	if err != nil {
		return nil, notFound(err, "transaction %s", txID)
	}
	return tx, nil
}

// List returns every transaction in creation order, for the dashboard
// surface.
func (s *Service) List(ctx context.Context) ([]*transaction.Transaction, error) {
	txs, err := s.stores.Transactions.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list transactions")
	}
	return txs, nil
}

// Result returns the transaction's latest analysis result.
func (s *Service) Result(ctx context.Context, txID id.TransactionID) (*analyzer.Result, error) {
	result, err := s.stores.Results.Get(ctx, txID)
	if err != nil {
		return nil, notFound(err, "analysis result for transaction %s", txID)
	}
	return result, nil
}

// Checklist returns the transaction's current checklist.
func (s *Service) Checklist(ctx context.Context, txID id.TransactionID) (*checklist.Checklist, error) {
	list, err := s.stores.Checklists.Get(ctx, txID)
	if err != nil {
		return nil, notFound(err, "checklist for transaction %s", txID)
	}
	return list, nil
}

// Filings returns the transaction's filings in creation order.
func (s *Service) Filings(ctx context.Context, txID id.TransactionID) ([]*filing.Filing, error) {
	return s.stores.Filings.ListByTransaction(ctx, txID)
}

// Trail returns the transaction's audit events.
func (s *Service) Trail(ctx context.Context, txID id.TransactionID) ([]audit.Event, error) {
	return s.trail.List(ctx, txID)
}

// Process runs the pipeline from the transaction's current state as far as
// it can go: to Filed, to a terminal failure, or to ValidationFailed when the
// supplied evidence does not satisfy the checklist. Cancellation is honored
// between state transitions only.
func (s *Service) Process(ctx context.Context, txID id.TransactionID, input ProcessInput) (*transaction.Transaction, error) {
	unlock := s.lock(txID)
	defer unlock()

	tx, err := s.stores.Transactions.Get(ctx, txID)
	if err != nil {
		return nil, notFound(err, "transaction %s", txID)
	}
	return s.pipeline(ctx, tx, input)
}

// Resupply re-enters validation from ValidationFailed with fresh documents
// and facts, then continues the pipeline.
func (s *Service) Resupply(ctx context.Context, txID id.TransactionID, input ProcessInput) (*transaction.Transaction, error) {
	unlock := s.lock(txID)
	defer unlock()

	tx, err := s.stores.Transactions.Get(ctx, txID)
	if err != nil {
		return nil, notFound(err, "transaction %s", txID)
	}
	if tx.State != transaction.StateValidationFailed {
		return nil, dErrors.Newf(dErrors.CodeBadRequest,
			"transaction %s is in state %s, documents can only be resupplied after a failed validation", txID, tx.State)
	}
	if input.empty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "resupply requires documents or declared facts")
	}
	s.emit(ctx, tx, audit.ActionDocumentsResupplied, "")
	return s.pipeline(ctx, tx, input)
}

// Reanalyze re-runs analysis against the currently active registry snapshot
// and invalidates the previous checklist. The transaction re-enters the
// Analyzed state and must walk the pipeline again.
func (s *Service) Reanalyze(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	unlock := s.lock(txID)
	defer unlock()

	tx, err := s.stores.Transactions.Get(ctx, txID)
	if err != nil {
		return nil, notFound(err, "transaction %s", txID)
	}
	if tx.State.Terminal() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation,
			"transaction %s is terminal in state %s", txID, tx.State)
	}
	if tx.State == transaction.StateCreated {
		return nil, dErrors.Newf(dErrors.CodeBadRequest,
			"transaction %s has not been analyzed yet", txID)
	}

	result, err := s.analyze.Analyze(ctx, tx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	reason := fmt.Sprintf("re-analysis at registry version %d", result.RegistryVersion)
	if err := tx.Apply(transaction.StateAnalyzed, reason, now); err != nil {
		return nil, err
	}
	tx.ValidationAttempts = 0
	err = s.runner.Run(ctx, func(ctx context.Context) error {
		if err := s.stores.Results.Put(ctx, result); err != nil {
			return err
		}
		if err := s.stores.Checklists.Delete(ctx, tx.ID); err != nil {
			return err
		}
		return s.stores.Transactions.Update(ctx, tx)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "commit re-analysis")
	}
	s.emit(ctx, tx, audit.ActionReanalysisTriggered, reason)
	return tx, nil
}

func (s *Service) pipeline(ctx context.Context, tx *transaction.Transaction, input ProcessInput) (*transaction.Transaction, error) {
	for {
		if err := ctx.Err(); err != nil {
			return tx, dErrors.Wrap(err, dErrors.CodeUnavailable, "processing cancelled")
		}
		switch tx.State {
		case transaction.StateCreated:
			if err := s.analyzeStep(ctx, tx); err != nil {
				return tx, err
			}
		case transaction.StateAnalyzed:
			if err := s.checklistStep(ctx, tx); err != nil {
				return tx, err
			}
		case transaction.StateChecklistReady, transaction.StateValidationFailed:
			if input.empty() {
				// The caller has not submitted evidence yet; stop here so
				// the checklist can be fetched and fulfilled.
				return tx, nil
			}
			if err := s.validateStep(ctx, tx, input); err != nil {
				return tx, err
			}
			// One validation round per supplied input: a failed round stops
			// here for resupply instead of spending another retry on the
			// same evidence.
			if tx.State != transaction.StateValidationPassed {
				return tx, nil
			}
		case transaction.StateValidationPassed:
			if err := s.submitStep(ctx, tx); err != nil {
				return tx, err
			}
		case transaction.StateSubmitting:
			// A prior run was interrupted after committing the filing
			// intent. Resume; the idempotency key makes it at-most-once.
			if err := s.submitStep(ctx, tx); err != nil {
				return tx, err
			}
		default:
			return tx, nil
		}
	}
}

// analyzeStep enriches the transaction from the ERP and payment gateway,
// runs the analyzer and commits the result with the Created -> Analyzed
// transition.
func (s *Service) analyzeStep(ctx context.Context, tx *transaction.Transaction) error {
	ctx, span := s.tracer.Start(ctx, "orchestrator.analyze",
		trace.WithAttributes(attribute.String("transaction.id", tx.ID.String())))
	defer span.End()

	if err := s.enrich(ctx, tx); err != nil {
		return err
	}
	result, err := s.analyze.Analyze(ctx, tx)
	if err != nil {
		// Input and rule errors leave the transaction in Created.
		return err
	}
	now := requestcontext.Now(ctx)
	if err := tx.Apply(transaction.StateAnalyzed, "", now); err != nil {
		return err
	}
	err = s.runner.Run(ctx, func(ctx context.Context) error {
		if err := s.stores.Results.Put(ctx, result); err != nil {
			return err
		}
		return s.stores.Transactions.Update(ctx, tx)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit analysis")
	}
	s.emit(ctx, tx, audit.ActionTransactionAnalyzed, "")
	return nil
}

// enrich reconciles the transaction against the ERP and reads the settlement
// status from the payment gateway; both fetches run concurrently.
func (s *Service) enrich(ctx context.Context, tx *transaction.Transaction) error {
	if s.collab.ERP == nil && s.collab.Gateway == nil {
		return nil
	}
	var (
		attrs      ports.InvoiceAttributes
		settlement transaction.SettlementStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	if s.collab.ERP != nil {
		g.Go(func() error {
			var err error
			attrs, err = s.collab.ERP.FetchInvoiceAttributes(gctx, tx.InvoiceNumber)
			return err
		})
	}
	if s.collab.Gateway != nil {
		g.Go(func() error {
			var err error
			settlement, err = s.collab.Gateway.SettlementStatus(gctx, tx.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "collaborator unavailable")
	}

	if s.collab.ERP != nil {
		if !attrs.Amount.IsZero() && !attrs.Amount.Equal(tx.Amount) {
			return dErrors.Newf(dErrors.CodeValidation,
				"amount %s does not match ERP record %s for invoice %s",
				tx.Amount, attrs.Amount, tx.InvoiceNumber)
		}
		if attrs.Currency != "" && attrs.Currency != tx.Currency {
			return dErrors.Newf(dErrors.CodeValidation,
				"currency %s does not match ERP record %s for invoice %s",
				tx.Currency, attrs.Currency, tx.InvoiceNumber)
		}
	}
	if s.collab.Gateway != nil && settlement != "" {
		tx.Settlement = settlement
	}
	return nil
}

// checklistStep derives the checklist from the stored analysis result and
// commits it with the Analyzed -> ChecklistReady transition.
func (s *Service) checklistStep(ctx context.Context, tx *transaction.Transaction) error {
	ctx, span := s.tracer.Start(ctx, "orchestrator.checklist",
		trace.WithAttributes(attribute.String("transaction.id", tx.ID.String())))
	defer span.End()

	result, err := s.stores.Results.Get(ctx, tx.ID)
	if err != nil {
		return notFound(err, "analysis result for transaction %s", tx.ID)
	}
	list := s.gen.Generate(ctx, result)

	now := requestcontext.Now(ctx)
	if err := tx.Apply(transaction.StateChecklistReady, "", now); err != nil {
		return err
	}
	err = s.runner.Run(ctx, func(ctx context.Context) error {
		if err := s.stores.Checklists.Put(ctx, list); err != nil {
			return err
		}
		return s.stores.Transactions.Update(ctx, tx)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit checklist")
	}
	s.emit(ctx, tx, audit.ActionChecklistGenerated, "")
	return nil
}

// validateStep fetches the submitted documents, runs the validation engine
// and commits the checklist statuses with the resulting transition. A failed
// round past the retry budget abandons the transaction.
func (s *Service) validateStep(ctx context.Context, tx *transaction.Transaction, input ProcessInput) error {
	ctx, span := s.tracer.Start(ctx, "orchestrator.validate",
		trace.WithAttributes(attribute.String("transaction.id", tx.ID.String())))
	defer span.End()

	list, err := s.stores.Checklists.Get(ctx, tx.ID)
	if err != nil {
		return notFound(err, "checklist for transaction %s", tx.ID)
	}
	documents, err := s.fetchDocuments(ctx, input.DocumentIDs)
	if err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	if err := tx.Apply(transaction.StateValidating, "", now); err != nil {
		return err
	}
	outcomes := s.engine.Validate(ctx, list, documents, input.Facts)

	failReason := ""
	byItem := make(map[id.ChecklistItemID]validation.Outcome, len(outcomes))
	for _, outcome := range outcomes {
		byItem[outcome.ItemID] = outcome
		if !outcome.Satisfied && failReason == "" {
			failReason = outcome.Reason
		}
	}
	for i := range list.Items {
		if outcome, ok := byItem[list.Items[i].ID]; ok {
			if outcome.Satisfied {
				list.Items[i].Status = checklist.StatusSatisfied
			} else {
				list.Items[i].Status = checklist.StatusFailed
			}
		}
	}

	if failReason == "" {
		if err := tx.Apply(transaction.StateValidationPassed, "", now); err != nil {
			return err
		}
	} else {
		tx.ValidationAttempts++
		if err := tx.Apply(transaction.StateValidationFailed, failReason, now); err != nil {
			return err
		}
	}
	abandoned := failReason != "" && tx.ValidationAttempts >= s.cfg.MaxValidationRetries
	if abandoned {
		if err := tx.Apply(transaction.StateAbandoned, "validation retry budget exhausted", now); err != nil {
			return err
		}
	}

	err = s.runner.Run(ctx, func(ctx context.Context) error {
		if err := s.stores.Checklists.Put(ctx, list); err != nil {
			return err
		}
		return s.stores.Transactions.Update(ctx, tx)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit validation")
	}

	switch {
	case abandoned:
		s.emit(ctx, tx, audit.ActionValidationAbandoned, tx.StateReason)
	case failReason != "":
		s.emit(ctx, tx, audit.ActionValidationFailed, failReason)
	default:
		s.emit(ctx, tx, audit.ActionValidationPassed, "")
	}
	return nil
}

func (s *Service) fetchDocuments(ctx context.Context, docIDs []id.DocumentID) ([]validation.Document, error) {
	if len(docIDs) == 0 {
		return nil, nil
	}
	if s.collab.Documents == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "document store not configured")
	}
	documents := make([]validation.Document, 0, len(docIDs))
	for _, docID := range docIDs {
		doc, err := s.collab.Documents.Fetch(ctx, docID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Newf(dErrors.CodeInvalidInput, "document %s not found", docID)
			}
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable,
				fmt.Sprintf("document %s unavailable", docID))
		}
		documents = append(documents, doc)
	}
	return documents, nil
}

// submitStep builds the filing payload, submits it through the retrying
// submitter and commits the outcome with the terminal transition. The
// Submitting transition and the filing record are committed before the
// external call so a crash mid-submission is recoverable through the
// idempotency key.
func (s *Service) submitStep(ctx context.Context, tx *transaction.Transaction) error {
	ctx, span := s.tracer.Start(ctx, "orchestrator.submit",
		trace.WithAttributes(attribute.String("transaction.id", tx.ID.String())))
	defer span.End()

	result, err := s.stores.Results.Get(ctx, tx.ID)
	if err != nil {
		return notFound(err, "analysis result for transaction %s", tx.ID)
	}
	list, err := s.stores.Checklists.Get(ctx, tx.ID)
	if err != nil {
		return notFound(err, "checklist for transaction %s", tx.ID)
	}
	if !list.AllSatisfied() {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"transaction %s has unsatisfied checklist items", tx.ID)
	}

	payload, err := buildPayload(tx, result)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build filing payload")
	}
	portalName := portalFor(tx.Origin)
	now := requestcontext.Now(ctx)

	f, err := s.stores.Filings.GetByTransactionPortal(ctx, tx.ID, portalName)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		f = filing.New(id.FilingID(uuid.New()), tx.ID, portalName, payload, now)
		if err := tx.Apply(transaction.StateSubmitting, "", now); err != nil {
			return err
		}
		err = s.runner.Run(ctx, func(ctx context.Context) error {
			if err := s.stores.Filings.Create(ctx, f); err != nil {
				return err
			}
			return s.stores.Transactions.Update(ctx, tx)
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "commit filing intent")
		}
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "load filing")
	default:
		if f.Status == filing.StatusRejected {
			return dErrors.Newf(dErrors.CodeRejected,
				"filing %s was permanently rejected: %s", f.ID, f.Reason)
		}
		// A prior run crashed or exhausted its retries. Resume with the
		// recorded payload hash; the idempotency key keeps the submission
		// at-most-once.
		if f.PayloadHash != filing.PayloadHash(payload) {
			f.PayloadHash = filing.PayloadHash(payload)
			f.Status = filing.StatusPending
			f.Reason = ""
		}
		if err := tx.Apply(transaction.StateSubmitting, "", now); err != nil {
			return err
		}
		err = s.runner.Run(ctx, func(ctx context.Context) error {
			if err := s.stores.Filings.Update(ctx, f); err != nil {
				return err
			}
			return s.stores.Transactions.Update(ctx, tx)
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "commit filing intent")
		}
	}
	if f.Status == filing.StatusFailed {
		f.Status = filing.StatusPending
	}

	submitErr := s.sub.Submit(ctx, f, payload)

	next := transaction.StateFiled
	action := audit.ActionFilingAccepted
	reason := ""
	if submitErr != nil {
		next = transaction.StateFilingFailed
		reason = f.Reason
		if f.Status == filing.StatusRejected {
			action = audit.ActionFilingRejected
		} else {
			action = audit.ActionFilingFailed
		}
	}
	if err := tx.Apply(next, reason, now); err != nil {
		return err
	}
	err = s.runner.Run(ctx, func(ctx context.Context) error {
		if err := s.stores.Filings.Update(ctx, f); err != nil {
			return err
		}
		return s.stores.Transactions.Update(ctx, tx)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit filing outcome")
	}
	s.emit(ctx, tx, action, reason)
	return submitErr
}

// buildPayload renders the deterministic filing payload. Timestamps are
// deliberately excluded so a re-run at the same registry version hashes to
// the same idempotency key.
func buildPayload(tx *transaction.Transaction, result *analyzer.Result) ([]byte, error) {
	type payloadTax struct {
		RuleID  string `json:"rule_id"`
		TaxType string `json:"tax_type"`
		Rate    string `json:"rate"`
		Amount  string `json:"amount"`
	}
	taxes := make([]payloadTax, 0, len(result.Taxes))
	for _, tax := range result.Taxes {
		taxes = append(taxes, payloadTax{
			RuleID:  tax.RuleID,
			TaxType: string(tax.TaxType),
			Rate:    tax.Rate.String(),
			Amount:  tax.Amount.String(),
		})
	}
	return json.Marshal(struct {
		TransactionID   string       `json:"transaction_id"`
		InvoiceNumber   string       `json:"invoice_number"`
		Amount          string       `json:"amount"`
		Currency        string       `json:"currency"`
		Origin          string       `json:"origin"`
		Destination     string       `json:"destination"`
		Category        string       `json:"category"`
		RegistryVersion int64        `json:"registry_version"`
		TaxLiability    string       `json:"tax_liability"`
		Taxes           []payloadTax `json:"taxes"`
	}{
		TransactionID:   tx.ID.String(),
		InvoiceNumber:   tx.InvoiceNumber,
		Amount:          tx.Amount.String(),
		Currency:        tx.Currency,
		Origin:          tx.Origin,
		Destination:     tx.Destination,
		Category:        tx.Category,
		RegistryVersion: result.RegistryVersion,
		TaxLiability:    result.TaxLiability.String(),
		Taxes:           taxes,
	})
}

// portalFor routes a filing to its origin jurisdiction's portal.
func portalFor(origin string) string {
	switch origin {
	case "IN":
		return "gstn"
	case "US":
		return "irs"
	case "GB":
		return "hmrc"
	case "DE":
		return "bzst"
	case "FR":
		return "dgfip"
	case "SG":
		return "iras"
	default:
		return "default"
	}
}

func (s *Service) emit(ctx context.Context, tx *transaction.Transaction, action audit.Action, reason string) {
	if s.trail == nil {
		return
	}
	err := s.trail.Emit(ctx, audit.Event{
		TransactionID: tx.ID,
		Action:        action,
		State:         string(tx.State),
		Reason:        reason,
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"transaction_id", tx.ID, "action", action, "error", err)
	}
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, format+" not found", args...)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf(format, args...))
}

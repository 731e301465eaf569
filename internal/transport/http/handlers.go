// Package httptransport is the HTTP edge of the compliance core. Handlers
// decode and validate requests, delegate to the orchestrator and translate
// domain errors; no business logic lives here.
package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"taxpilot/internal/analyzer"
	"taxpilot/internal/checklist"
	"taxpilot/internal/filing"
	"taxpilot/internal/orchestrator"
	"taxpilot/internal/orchestrator/ports"
	"taxpilot/internal/rules"
	"taxpilot/internal/transaction"
	id "taxpilot/pkg/domain"
	dErrors "taxpilot/pkg/domain-errors"
	"taxpilot/pkg/platform/httputil"
	"taxpilot/pkg/platform/middleware/metadata"
	"taxpilot/pkg/requestcontext"
)

// Service defines the pipeline operations the transport exposes.
type Service interface {
	Ingest(ctx context.Context, input orchestrator.NewTransactionInput) (*transaction.Transaction, error)
	Process(ctx context.Context, txID id.TransactionID, input orchestrator.ProcessInput) (*transaction.Transaction, error)
	Resupply(ctx context.Context, txID id.TransactionID, input orchestrator.ProcessInput) (*transaction.Transaction, error)
	Reanalyze(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error)
	Get(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error)
	List(ctx context.Context) ([]*transaction.Transaction, error)
	Result(ctx context.Context, txID id.TransactionID) (*analyzer.Result, error)
	Checklist(ctx context.Context, txID id.TransactionID) (*checklist.Checklist, error)
	Filings(ctx context.Context, txID id.TransactionID) ([]*filing.Filing, error)
}

// Handler wires the compliance endpoints to the orchestrator.
type Handler struct {
	service   Service
	registry  *rules.Registry
	documents ports.DocumentStore
	logger    *slog.Logger
}

func NewHandler(service Service, registry *rules.Registry, documents ports.DocumentStore, logger *slog.Logger) *Handler {
	return &Handler{service: service, registry: registry, documents: documents, logger: logger}
}

// Register mounts the compliance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/documents", h.handleUpload)
	r.Post("/transactions", h.handleCreate)
	r.Post("/transactions/{transactionID}/process", h.handleProcess)
	r.Post("/transactions/{transactionID}/documents", h.handleDocuments)
	r.Post("/transactions/{transactionID}/reanalyze", h.handleReanalyze)
	r.Get("/transactions", h.handleList)
	r.Get("/transactions/{transactionID}", h.handleGet)
	r.Get("/transactions/{transactionID}/checklist", h.handleChecklist)
	r.Get("/rules/snapshot", h.handleSnapshot)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[UploadDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	docID, err := h.documents.Store(ctx, req.Document())
	if err != nil {
		h.logger.WarnContext(ctx, "document upload failed",
			"request_id", requestID,
			"document_type", req.DocumentType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"document_id": docID.String()})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateTransactionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tx, err := h.service.Ingest(ctx, req.Input())
	if err != nil {
		h.logger.WarnContext(ctx, "transaction ingestion failed",
			"request_id", requestID,
			"invoice_number", req.InvoiceNumber,
			"client_ip", metadata.GetClientIP(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transaction ingested",
		"request_id", requestID,
		"transaction_id", tx.ID,
		"invoice_number", tx.InvoiceNumber,
		"client_ip", metadata.GetClientIP(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, fromTransaction(tx, nil, nil))
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	input, ok := h.evidence(w, r, requestID)
	if !ok {
		return
	}

	tx, err := h.service.Process(ctx, txID, input)
	if err != nil {
		h.logger.WarnContext(ctx, "pipeline run failed",
			"request_id", requestID,
			"transaction_id", txID,
			"error", err,
		)
		h.writeProcessOutcome(w, tx, err)
		return
	}

	h.logger.InfoContext(ctx, "pipeline run finished",
		"request_id", requestID,
		"transaction_id", txID,
		"state", tx.State,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, h.enriched(ctx, tx))
}

func (h *Handler) handleDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[EvidenceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tx, err := h.service.Resupply(ctx, txID, req.Input())
	if err != nil {
		h.logger.WarnContext(ctx, "document resupply failed",
			"request_id", requestID,
			"transaction_id", txID,
			"error", err,
		)
		h.writeProcessOutcome(w, tx, err)
		return
	}

	h.logger.InfoContext(ctx, "documents resupplied",
		"request_id", requestID,
		"transaction_id", txID,
		"state", tx.State,
	)
	httputil.WriteJSON(w, http.StatusOK, h.enriched(ctx, tx))
}

func (h *Handler) handleReanalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}

	tx, err := h.service.Reanalyze(ctx, txID)
	if err != nil {
		h.logger.WarnContext(ctx, "re-analysis failed",
			"request_id", requestID,
			"transaction_id", txID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transaction re-analyzed",
		"request_id", requestID,
		"transaction_id", txID,
	)
	httputil.WriteJSON(w, http.StatusOK, h.enriched(ctx, tx))
}

// handleList is the dashboard surface: every transaction with its resting
// state, no per-transaction enrichment.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, fromTransaction(tx, nil, nil))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	tx, err := h.service.Get(ctx, txID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.enriched(ctx, tx))
}

func (h *Handler) handleChecklist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	list, err := h.service.Checklist(ctx, txID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromChecklist(list))
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := h.registry.Current()
	httputil.WriteJSON(w, http.StatusOK, SnapshotResponse{
		Version:       snapshot.Version(),
		Jurisdictions: snapshot.JurisdictionCodes(),
		RuleCount:     snapshot.RuleCount(),
	})
}

func (h *Handler) transactionID(w http.ResponseWriter, r *http.Request) (id.TransactionID, bool) {
	txID, err := id.ParseTransactionID(chi.URLParam(r, "transactionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.TransactionID{}, false
	}
	return txID, true
}

// evidence decodes the optional request body. An empty body means "run the
// pipeline as far as it goes without fresh evidence".
func (h *Handler) evidence(w http.ResponseWriter, r *http.Request, requestID string) (orchestrator.ProcessInput, bool) {
	if r.Body == nil || r.ContentLength == 0 {
		return orchestrator.ProcessInput{}, true
	}
	req, ok := httputil.DecodeAndPrepare[EvidenceRequest](w, r, h.logger, r.Context(), requestID)
	if !ok {
		return orchestrator.ProcessInput{}, false
	}
	return req.Input(), true
}

// writeProcessOutcome reports pipeline errors. Terminal filing outcomes
// still return the transaction body so callers see where it landed; the
// error code rides in the response status and envelope.
func (h *Handler) writeProcessOutcome(w http.ResponseWriter, tx *transaction.Transaction, err error) {
	var de *dErrors.Error
	if tx != nil && errors.As(err, &de) && (de.Code == dErrors.CodeRejected || de.Code == dErrors.CodeUnavailable) && tx.State.Terminal() {
		httputil.WriteJSON(w, dErrors.ToHTTPStatus(de.Code), fromTransaction(tx, nil, nil))
		return
	}
	httputil.WriteError(w, err)
}

// enriched attaches the latest analysis and filings when they exist.
func (h *Handler) enriched(ctx context.Context, tx *transaction.Transaction) TransactionResponse {
	result, err := h.service.Result(ctx, tx.ID)
	if err != nil {
		result = nil
	}
	filings, err := h.service.Filings(ctx, tx.ID)
	if err != nil {
		filings = nil
	}
	return fromTransaction(tx, result, filings)
}

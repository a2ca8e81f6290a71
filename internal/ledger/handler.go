package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-sales/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-sales/internal/shared"
)

// IdempotencyHeader carries an optional client key that makes POST /transaction safe to retry.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes transaction endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers transaction routes behind the auth middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/transaction", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/summary", h.handleSummary)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, r, h.logger, shared.ErrTokenMissing, "")
		return
	}
	items, err := h.service.List(r.Context(), id.AccountID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, "Error fetching transactions")
		return
	}
	httpx.OK(w, r, http.StatusOK, newTransactionList(items), "Transactions fetched successfully")
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, r, h.logger, shared.ErrTokenMissing, "")
		return
	}
	var req createTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "Invalid transaction data")
		return
	}
	date, ok := parseDate(req.Date)
	if !ok {
		httpx.Fail(w, r, http.StatusBadRequest, "Invalid transaction data")
		return
	}

	created, err := h.service.Create(r.Context(), id.AccountID, CreateTransactionInput{
		Customer:       req.Customer,
		Date:           date,
		Lines:          req.lines(),
		IdempotencyKey: strings.TrimSpace(r.Header.Get(IdempotencyHeader)),
	})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, "Error creating transaction")
		return
	}
	httpx.OK(w, r, http.StatusCreated, newTransactionResponse(created), "Transaction created successfully")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, r, h.logger, shared.ErrTokenMissing, "")
		return
	}
	txID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || txID <= 0 {
		httpx.Fail(w, r, http.StatusBadRequest, "Invalid transaction id")
		return
	}
	deleted, err := h.service.Delete(r.Context(), id.AccountID, txID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, "Server error during transaction deletion")
		return
	}
	httpx.OK(w, r, http.StatusOK, newTransactionResponse(deleted), "Transaction deleted successfully")
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, r, h.logger, shared.ErrTokenMissing, "")
		return
	}
	entries, err := h.service.Summarize(r.Context(), id.AccountID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, "Server error while retrieving transaction summaries")
		return
	}
	httpx.OK(w, r, http.StatusOK, newSummaryList(entries), "Transaction summaries retrieved successfully")
}

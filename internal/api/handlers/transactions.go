package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/api/middleware"
	"github.com/dvloznov/financas-voz/internal/domain"
	"github.com/dvloznov/financas-voz/internal/report"
	"github.com/dvloznov/financas-voz/internal/state"
)

// TransactionsHandler handles transaction, filter and summary endpoints.
type TransactionsHandler struct {
	store *state.Store
	loc   *time.Location
	log   zerolog.Logger

	Now func() time.Time
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(store *state.Store, loc *time.Location, log zerolog.Logger) *TransactionsHandler {
	if loc == nil {
		loc = time.Local
	}
	return &TransactionsHandler{store: store, loc: loc, log: log, Now: time.Now}
}

// ListTransactions handles GET /api/transactions. The active filter applies
// unless all=true.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	st := h.store.Snapshot()

	txs := st.Visible()
	if r.URL.Query().Get("all") == "true" {
		txs = st.Transactions
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
		"filter":       st.Filter,
	})
}

// ToggleDeleted handles POST /api/transactions/{id}/deleted
func (h *TransactionsHandler) ToggleDeleted(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.store.ToggleDeleted)
}

// ToggleChargeback handles POST /api/transactions/{id}/chargeback
func (h *TransactionsHandler) ToggleChargeback(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.store.ToggleChargeback)
}

func (h *TransactionsHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(id string) (domain.Transaction, error)) {
	id := chi.URLParam(r, "id")
	tx, err := fn(id)
	if err != nil {
		writeStoreError(w, h.log, err, "Transaction not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// GetFilter handles GET /api/filter
func (h *TransactionsHandler) GetFilter(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"filter": h.store.Snapshot().Filter,
	})
}

// ClearFilter handles DELETE /api/filter
func (h *TransactionsHandler) ClearFilter(w http.ResponseWriter, r *http.Request) {
	h.store.ClearFilter()
	w.WriteHeader(http.StatusNoContent)
}

// Summary handles GET /api/summary
func (h *TransactionsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	st := h.store.Snapshot()
	middleware.WriteJSON(w, http.StatusOK, report.Summarize(st.Transactions, h.Now().In(h.loc)))
}

// writeStoreError maps state errors to responses. Not-found is a 404; any
// other error means the change was applied but not saved.
func writeStoreError(w http.ResponseWriter, log zerolog.Logger, err error, notFound string) {
	if errors.Is(err, state.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, notFound)
		return
	}
	log.Error().Err(err).Msg("Failed to save state")
	middleware.WriteError(w, http.StatusInternalServerError, "Failed to save state")
}

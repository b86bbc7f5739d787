package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gobuckaroo/infra/response"
	"github.com/mstgnz/gobuckaroo/provider"
)

const maxLogLimit = 500

// LogsHandler serves the recorded gateway exchanges of the caller's tenant
type LogsHandler struct {
	searcher provider.ExchangeSearcher
}

// NewLogsHandler creates a new logs handler
func NewLogsHandler(searcher provider.ExchangeSearcher) *LogsHandler {
	return &LogsHandler{searcher: searcher}
}

// ListLogs handles GET /logs?limit=, the latest exchanges of the tenant
func (h *LogsHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, "")
}

// GetInvoiceLogs handles GET /logs/{invoice}, every exchange for one invoice
func (h *LogsHandler) GetInvoiceLogs(w http.ResponseWriter, r *http.Request) {
	invoice := chi.URLParam(r, "invoice")
	if invoice == "" {
		response.Error(w, http.StatusBadRequest, "Missing invoice number", nil)
		return
	}
	h.search(w, r, invoice)
}

func (h *LogsHandler) search(w http.ResponseWriter, r *http.Request, invoice string) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxLogLimit {
			response.Error(w, http.StatusBadRequest, "limit must be between 1 and 500", err)
			return
		}
		limit = n
	}

	exchanges, err := h.searcher.SearchExchanges(ctx, tenantID, invoice, limit)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to retrieve logs", err)
		return
	}
	if exchanges == nil {
		exchanges = []provider.Exchange{}
	}

	response.Success(w, http.StatusOK, "Logs retrieved", map[string]any{
		"tenantId":      tenantID,
		"invoiceNumber": invoice,
		"count":         len(exchanges),
		"logs":          exchanges,
	})
}

package handlers

import (
	"context"
	"net/http"

	"github.com/guardpost/apiserver/types"
)

// ActivityLister reads the audit log.
type ActivityLister interface {
	List(ctx context.Context, filter types.ActivityFilter, offset, limit int) ([]types.Activity, int, error)
}

// ActivityHandler exposes the audit log read-only.
type ActivityHandler struct {
	activities ActivityLister
}

func NewActivityHandler(activities ActivityLister) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := activityFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.activities.List(r.Context(), filter, offset, limit)
	if err != nil {
		writeServiceError(w, r, err, "activity")
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(items, page, limit, total))
}

// FinancialLedger is implemented by services.FinancialService.
type FinancialLedger interface {
	crudService[types.FinancialRecord, types.FinancialFilter]
	Totals(ctx context.Context, filter types.FinancialFilter) (types.FinancialTotals, error)
}

// FinancialHandler adds aggregate totals to the financial record CRUD.
type FinancialHandler struct {
	*ResourceHandler[types.FinancialRecord, types.FinancialFilter]
	ledger FinancialLedger
}

func NewFinancialHandler(ledger FinancialLedger) *FinancialHandler {
	return &FinancialHandler{
		ResourceHandler: NewResourceHandler[types.FinancialRecord, types.FinancialFilter](ledger, "financial record", financialFilter),
		ledger:          ledger,
	}
}

func (h *FinancialHandler) Totals(w http.ResponseWriter, r *http.Request) {
	filter, err := financialFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	totals, err := h.ledger.Totals(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "financial record")
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/daybookapp/backend/internal/services"
)

type DashboardHandler struct {
	entries *services.EntryService
}

func NewDashboardHandler(entries *services.EntryService) *DashboardHandler {
	return &DashboardHandler{
		entries: entries,
	}
}

// GetSummary returns the windowed totals for the tenant's dashboard
// @Summary Dashboard summary
// @Description Incoming/outgoing/net totals for today, the trailing week and the trailing month
// @Tags dashboard
// @Produce json
// @Success 200 {object} object{today=services.Totals,week=services.Totals,month=services.Totals,stale=bool}
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /dashboard/summary [get]
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	tenant, ok := r.Context().Value("tenant").(string)
	if !ok || tenant == "" {
		services.SendErrorResponse(w, "Tenant required", http.StatusUnauthorized, nil)
		return
	}

	entries, stale, err := h.entries.FetchEntries(r.Context(), tenant)
	if err != nil {
		log.Printf("[DASHBOARD] Failed to fetch entries for tenant %s: %v", tenant, err)
		services.SendErrorResponse(w, "Failed to fetch entries", http.StatusInternalServerError, nil)
		return
	}

	summary := services.Aggregate(entries, time.Now())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"today": summary.Today,
		"week":  summary.Week,
		"month": summary.Month,
		"stale": stale,
	})
}

package handlers

import (
	"net/http"
	"time"

	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/internal/maintenance"
	"github.com/wonny/pricecast/pkg/logger"
)

// MaintenanceHandler exposes the explicit maintenance trigger
type MaintenanceHandler struct {
	service *maintenance.Service
	now     func() time.Time
	logger  *logger.Logger
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(svc *maintenance.Service, log *logger.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		service: svc,
		now:     time.Now,
		logger:  log,
	}
}

// RunMaintenance runs backfill/daily/compaction for today (or ?date=YYYY-MM-DD)
// POST /api/maintenance
func (h *MaintenanceHandler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	today := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := contracts.ParseDate(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		today = d
	}

	report, err := h.service.Ensure(r.Context(), today)
	if err != nil {
		h.logger.WithError(err).Error("Maintenance failed")
		respondError(w, http.StatusInternalServerError, "maintenance failed")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

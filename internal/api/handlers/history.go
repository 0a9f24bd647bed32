package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/wonny/pricecast/internal/admin"
	"github.com/wonny/pricecast/pkg/logger"
)

// maxEntryBody bounds a manual entry request body
const maxEntryBody = 1 << 16

// HistoryHandler handles the operator price history endpoints
type HistoryHandler struct {
	admin  *admin.Service
	logger *logger.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(svc *admin.Service, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		admin:  svc,
		logger: log,
	}
}

// ListHistory returns filtered history rows with summary statistics
// GET /api/history?product_id=&city_id=&district_id=&days=
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	var q admin.HistoryQuery
	var ok bool

	if q.ProductID, ok = queryInt(r, "product_id"); !ok {
		respondError(w, http.StatusBadRequest, "product_id must be an integer")
		return
	}
	if q.CityID, ok = queryInt(r, "city_id"); !ok {
		respondError(w, http.StatusBadRequest, "city_id must be an integer")
		return
	}
	if q.DistrictID, ok = queryInt(r, "district_id"); !ok {
		respondError(w, http.StatusBadRequest, "district_id must be an integer")
		return
	}

	if q.Days, ok = queryInt(r, "days"); !ok {
		respondError(w, http.StatusBadRequest, "days must be an integer")
		return
	}

	respondJSON(w, http.StatusOK, h.admin.Query(r.Context(), q))
}

// AddEntry upserts one manual observation
// POST /api/history (form or JSON body)
func (h *HistoryHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	in, err := decodeEntry(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.admin.AddEntry(r.Context(), in)
	if err != nil {
		var verr *admin.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.WithError(err).Error("Failed to save price entry")
		respondError(w, http.StatusInternalServerError, "failed to save price entry")
		return
	}

	status := http.StatusOK
	if result.Inserted {
		status = http.StatusCreated
	}
	respondJSON(w, status, result)
}

// Regenerate discards all history and backfills a fresh window
// POST /api/history/regenerate?days=
func (h *HistoryHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	days := admin.DefaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	report, message, err := h.admin.Regenerate(r.Context(), days)
	if err != nil {
		h.logger.WithError(err).Error("Failed to regenerate price history")
		respondError(w, http.StatusInternalServerError, "failed to regenerate price history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": message,
		"report":  report,
	})
}

// decodeEntry accepts either a form post or a JSON object.
// JSON values may be strings or numbers; both arrive as their text form.
func decodeEntry(w http.ResponseWriter, r *http.Request) (admin.EntryInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEntryBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		if err := r.ParseForm(); err != nil {
			return admin.EntryInput{}, fmt.Errorf("invalid form body")
		}
		return admin.EntryInput{
			ProductID:  r.PostForm.Get("product_id"),
			CityID:     r.PostForm.Get("city_id"),
			DistrictID: r.PostForm.Get("district_id"),
			Price:      r.PostForm.Get("price"),
			Date:       r.PostForm.Get("date"),
		}, nil
	}

	var raw map[string]interface{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return admin.EntryInput{}, fmt.Errorf("invalid JSON body")
	}

	field := func(name string) string {
		v, ok := raw[name]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}

	return admin.EntryInput{
		ProductID:  field("product_id"),
		CityID:     field("city_id"),
		DistrictID: field("district_id"),
		Price:      field("price"),
		Date:       field("date"),
	}, nil
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/pricecast/internal/contracts"
	"github.com/wonny/pricecast/internal/forecast"
	"github.com/wonny/pricecast/pkg/logger"
)

// ForecastHandler handles forecast API endpoints
// ⭐ SSOT: Forecast API 핸들러는 이 구조체에서만
type ForecastHandler struct {
	predictor forecast.Predictor
	catalog   contracts.CatalogReader
	logger    *logger.Logger
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(predictor forecast.Predictor, catalog contracts.CatalogReader, log *logger.Logger) *ForecastHandler {
	return &ForecastHandler{
		predictor: predictor,
		catalog:   catalog,
		logger:    log,
	}
}

// productForecastResponse is the single-product payload
type productForecastResponse struct {
	ProductID   int                 `json:"product_id"`
	ProductName string              `json:"product_name"`
	LocationKey string              `json:"location_key"`
	Location    string              `json:"location"`
	Forecast    *contracts.Forecast `json:"forecast"`
}

// GetForecast predicts one product at one location
// GET /api/forecast/{product_id}?city_id=&district_id=
func (h *ForecastHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(mux.Vars(r)["product_id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "product_id must be an integer")
		return
	}

	product, ok := h.catalog.Product(productID)
	if !ok {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	cityID, okCity := queryInt(r, "city_id")
	districtID, okDistrict := queryInt(r, "district_id")
	if !okCity || !okDistrict {
		respondError(w, http.StatusBadRequest, "city_id and district_id must be integers")
		return
	}

	var location *contracts.Location
	if cityID != nil && districtID != nil {
		if loc, ok := h.catalog.Location(*cityID, *districtID); ok {
			location = &loc
		}
	}

	f := h.predictor.Predict(r.Context(), product, location)
	if f == nil {
		respondError(w, http.StatusNotFound, "no forecast without a known location")
		return
	}

	respondJSON(w, http.StatusOK, productForecastResponse{
		ProductID:   product.ID,
		ProductName: product.Name,
		LocationKey: location.Key(),
		Location:    location.DisplayName(),
		Forecast:    f,
	})
}

// GetLocationForecasts predicts every product at one location
// GET /api/forecast/location/{city_id}/{district_id}
func (h *ForecastHandler) GetLocationForecasts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	cityID, err1 := strconv.Atoi(vars["city_id"])
	districtID, err2 := strconv.Atoi(vars["district_id"])
	if err1 != nil || err2 != nil {
		respondError(w, http.StatusBadRequest, "city_id and district_id must be integers")
		return
	}

	location, ok := h.catalog.Location(cityID, districtID)
	if !ok {
		respondError(w, http.StatusNotFound, "Location not found")
		return
	}

	forecasts := h.predictor.PredictAll(r.Context(), h.catalog.Products(), location)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"location_key": location.Key(),
		"location":     location.DisplayName(),
		"count":        len(forecasts),
		"forecasts":    forecasts,
	})
}

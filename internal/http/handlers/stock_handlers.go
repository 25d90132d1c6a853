package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"github.com/rogerio-castellano/warehouse-ledger/internal/stock"
)

// GetLocationsHandler godoc
// @Summary List locations
// @Tags locations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Location
// @Router /locations [get]
func GetLocationsHandler(w http.ResponseWriter, r *http.Request) {
	locations, err := catalogService.ListLocations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, locations)
}

// CreateLocationHandler godoc
// @Summary Create a location
// @Tags locations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param location body LocationRequest true "Location to add"
// @Success 201 {object} models.Location
// @Failure 400 {array} ValidationError
// @Failure 403 {string} string "Forbidden"
// @Failure 409 {string} string "Code already exists"
// @Router /locations [post]
func CreateLocationHandler(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	if validationErrors := validateLocation(req); len(validationErrors) > 0 {
		respond(w, http.StatusBadRequest, validationErrors)
		return
	}

	created, err := catalogService.CreateLocation(r.Context(), models.Location{
		Code:  strings.TrimSpace(req.Code),
		Kind:  models.LocationKind(req.Kind),
		Title: req.Title,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

// GetLocationStockHandler godoc
// @Summary Stock held at a location
// @Tags stock
// @Produce json
// @Security BearerAuth
// @Param code path string true "Location code"
// @Success 200 {array} models.StockLevel
// @Failure 404 {string} string "Location not found"
// @Router /locations/{code}/stock [get]
func GetLocationStockHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if _, err := catalogService.GetLocation(r.Context(), code); err != nil {
		writeError(w, err)
		return
	}

	levels, err := stockService.StockByLocation(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, levels)
}

// GetStockHandler godoc
// @Summary Current quantity of a product at a location
// @Tags stock
// @Produce json
// @Security BearerAuth
// @Param product query int true "Product ID"
// @Param location query string true "Location code"
// @Success 200 {object} StockResponse
// @Failure 400 {string} string "Invalid input"
// @Router /stock [get]
func GetStockHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID, err := strconv.ParseInt(q.Get("product"), 10, 64)
	if err != nil {
		http.Error(w, "invalid product ID", http.StatusBadRequest)
		return
	}
	location := q.Get("location")
	if location == "" {
		http.Error(w, "location is required", http.StatusBadRequest)
		return
	}

	qty, err := stockService.CurrentQuantity(r.Context(), productID, location)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, StockResponse{ProductID: productID, Location: location, Quantity: qty})
}

// MoveHandler godoc
// @Summary Move stock between two locations
// @Description Both legs are committed as a single event, or neither is.
// @Tags stock
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param move body MoveRequest true "Move"
// @Success 201 {object} models.StockEvent
// @Failure 400 {array} ValidationError
// @Failure 404 {string} string "Product or location not found"
// @Failure 409 {object} InsufficientStockResponse
// @Router /moves [post]
func MoveHandler(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	if validationErrors := validateMove(req); len(validationErrors) > 0 {
		respond(w, http.StatusBadRequest, validationErrors)
		return
	}

	ev, err := stockService.Move(r.Context(), stock.MoveRequest{
		ProductID: req.ProductID,
		From:      req.From,
		To:        req.To,
		Quantity:  req.Quantity,
		Actor:     actor(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, ev)
}

// AdjustmentHandler godoc
// @Summary Apply a signed stock correction at one location
// @Tags stock
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param adjustment body AdjustmentRequest true "Adjustment"
// @Success 201 {object} models.StockEvent
// @Failure 400 {array} ValidationError
// @Failure 404 {string} string "Product or location not found"
// @Failure 409 {object} InsufficientStockResponse
// @Router /adjustments [post]
func AdjustmentHandler(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	if validationErrors := validateAdjustment(req); len(validationErrors) > 0 {
		respond(w, http.StatusBadRequest, validationErrors)
		return
	}

	ev, err := stockService.Adjust(r.Context(), stock.AdjustRequest{
		ProductID: req.ProductID,
		Location:  req.Location,
		Delta:     req.Delta,
		Reason:    req.Reason,
		Actor:     actor(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, ev)
}

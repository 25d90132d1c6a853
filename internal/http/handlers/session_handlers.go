package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OpenSessionHandler godoc
// @Summary Open an inventory session for a location
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session body OpenSessionRequest true "Location to count"
// @Success 201 {object} models.InventorySession
// @Failure 400 {string} string "Invalid input"
// @Failure 404 {string} string "Location not found"
// @Failure 409 {string} string "Location already has an open session"
// @Router /sessions [post]
func OpenSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := readJSON(w, r, &req); err != nil || req.Location == "" {
		http.Error(w, "location is required", http.StatusBadRequest)
		return
	}

	s, err := sessionManager.Open(r.Context(), req.Location, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, s)
}

// GetSessionHandler godoc
// @Summary Get an inventory session
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} models.InventorySession
// @Failure 404 {string} string "Session not found"
// @Router /sessions/{id} [get]
func GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	s, err := sessionManager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, s)
}

// RecordCountsHandler godoc
// @Summary Record counted quantities
// @Description Re-counting a product replaces its previous count.
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param counts body CountsRequest true "Counted quantities"
// @Success 200 {object} models.InventorySession
// @Failure 400 {string} string "Invalid input"
// @Failure 404 {string} string "Session or product not found"
// @Failure 409 {string} string "Session is not open"
// @Router /sessions/{id}/counts [put]
func RecordCountsHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CountsRequest
	if err := readJSON(w, r, &req); err != nil || len(req.Counts) == 0 {
		http.Error(w, "counts are required", http.StatusBadRequest)
		return
	}

	for _, c := range req.Counts {
		if err := sessionManager.RecordCount(r.Context(), id, c.ProductID, c.Counted); err != nil {
			writeError(w, err)
			return
		}
	}

	s, err := sessionManager.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, s)
}

// CommitSessionHandler godoc
// @Summary Commit an inventory session
// @Description Writes one count-correction event per product whose count differs from the ledger.
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} session.CommitResult
// @Failure 404 {string} string "Session not found"
// @Failure 409 {string} string "Session is not open"
// @Router /sessions/{id}/commit [post]
func CommitSessionHandler(w http.ResponseWriter, r *http.Request) {
	result, err := sessionManager.Commit(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		if result.Session.ID != "" {
			// Cancelled mid-commit: the session is closed with the failures recorded.
			logger.Warn("⚠️ session commit interrupted", zap.String("session_id", result.Session.ID), zap.Error(err))
			respond(w, http.StatusOK, result)
			return
		}
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

// AbortSessionHandler godoc
// @Summary Abort an inventory session without touching stock
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} models.InventorySession
// @Failure 404 {string} string "Session not found"
// @Failure 409 {string} string "Session is not open"
// @Router /sessions/{id}/abort [post]
func AbortSessionHandler(w http.ResponseWriter, r *http.Request) {
	s, err := sessionManager.Abort(r.Context(), chi.URLParam(r, "id"), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, s)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/warehouse-ledger/internal/catalog"
	"github.com/rogerio-castellano/warehouse-ledger/internal/http/middleware"
	"github.com/rogerio-castellano/warehouse-ledger/internal/repo"
	"github.com/rogerio-castellano/warehouse-ledger/internal/session"
	"github.com/rogerio-castellano/warehouse-ledger/internal/stock"
	"go.uber.org/zap"
)

// actor is the username recorded on events produced by the request.
func actor(r *http.Request) string {
	return middleware.GetClaims(r).Username
}

// readJSON tries to read the body of a request and converts it into JSON
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	maxBytes := 1048576 // one megabyte
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}

	err = dec.Decode(&struct{}{})
	if err != io.EOF {
		return errors.New("body must have only a single json value")
	}

	return nil
}

// writeJSON takes a response status code and arbitrary data and writes a json response to the client
func writeJSON(w http.ResponseWriter, status int, data any, headers ...http.Header) error {
	out, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}

	if len(headers) > 0 {
		for key, value := range headers[0] {
			w.Header()[key] = value
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(out)
	if err != nil {
		return fmt.Errorf("failed to write to response: %w", err)
	}

	return nil
}

func respond(w http.ResponseWriter, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		logger.Warn("⚠️ Failed to write JSON response", zap.Error(err))
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var insufficient *stock.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		respond(w, http.StatusConflict, InsufficientStockResponse{
			Error:     stock.ErrInsufficientStock.Error(),
			ProductID: insufficient.ProductID,
			Location:  insufficient.Location,
			Attempted: insufficient.Attempted,
			Available: insufficient.Available,
		})
	case errors.Is(err, repo.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, stock.ErrInvalidQuantity),
		errors.Is(err, stock.ErrInvalidRequest),
		errors.Is(err, stock.ErrMalformedEntry),
		errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, catalog.ErrInvalidLocation),
		errors.Is(err, session.ErrInvalidCount),
		errors.Is(err, repo.ErrInvalidFilter):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, session.ErrSessionConflict),
		errors.Is(err, session.ErrSessionClosed),
		errors.Is(err, stock.ErrConcurrentChange),
		errors.Is(err, catalog.ErrStockRemaining),
		errors.Is(err, repo.ErrInvariantViolation),
		errors.Is(err, repo.ErrDuplicatedValueUnique):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
	default:
		logger.Error("❌ Request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// parseTime reads an RFC3339 query parameter. URL decoding turns the "+" of
// a zone offset into a space, so that is reversed first.
func parseTime(q url.Values, name string) (*time.Time, error) {
	s := q.Get(name)
	if s == "" {
		return nil, nil
	}
	if len(s) == len(time.RFC3339) && s[len(s)-6] == ' ' {
		s = s[:len(s)-6] + "+" + s[len(s)-5:]
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date format", name)
	}
	return &ts, nil
}

func parseIntPtr(q url.Values, name string) (*int, error) {
	s := q.Get(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format", name)
	}
	return &v, nil
}

// parsePage reads offset and limit, rejecting negative offsets and
// non-positive limits.
func parsePage(q url.Values) (offset, limit *int, err error) {
	if offset, err = parseIntPtr(q, "offset"); err != nil {
		return nil, nil, err
	}
	if offset != nil && *offset < 0 {
		return nil, nil, errors.New("offset must be zero or positive")
	}
	if limit, err = parseIntPtr(q, "limit"); err != nil {
		return nil, nil, err
	}
	if limit != nil && *limit <= 0 {
		return nil, nil, errors.New("limit must be greater than zero")
	}
	return offset, limit, nil
}

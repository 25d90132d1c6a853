package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"github.com/rogerio-castellano/warehouse-ledger/internal/repo"
)

func parseEventFilter(q url.Values) (repo.EventFilter, error) {
	var f repo.EventFilter
	var err error

	if s := q.Get("product"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return f, errors.New("invalid product ID")
		}
		f.ProductID = &id
	}
	f.Location = q.Get("location")
	if k := q.Get("kind"); k != "" {
		if !models.EventKind(k).Valid() {
			return f, errors.New("kind must be one of import, move, adjust, count-correction")
		}
		f.Kind = models.EventKind(k)
	}
	if f.Since, err = parseTime(q, "since"); err != nil {
		return f, err
	}
	if f.Until, err = parseTime(q, "until"); err != nil {
		return f, err
	}
	if f.Offset, f.Limit, err = parsePage(q); err != nil {
		return f, err
	}
	return f, nil
}

// GetEventsHandler godoc
// @Summary Stock event history
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param product query int false "Product ID"
// @Param location query string false "Location code (matches either leg of a move)"
// @Param kind query string false "Event kind (import, move, adjust, count-correction)"
// @Param since query string false "Filter events from this timestamp (RFC3339)"
// @Param until query string false "Filter events until this timestamp (RFC3339)"
// @Param offset query int false "Offset for pagination"
// @Param limit query int false "Limit for pagination"
// @Success 200 {object} EventsSearchResult
// @Failure 400 {string} string "Invalid input"
// @Router /events [get]
func GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	listEvents(w, r, r.URL.Query())
}

func listEvents(w http.ResponseWriter, r *http.Request, q url.Values) {
	filter, err := parseEventFilter(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	events, total, err := stockService.Events(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, EventsSearchResult{Data: events, Meta: Meta{TotalCount: total}})
}

// ExportEventsHandler godoc
// @Summary Export stock event history
// @Tags events
// @Produce text/csv, application/json
// @Security BearerAuth
// @Param format query string true "Export format (csv or json)"
// @Param product query int false "Product ID"
// @Param location query string false "Location code"
// @Param since query string false "Filter from timestamp (RFC3339)"
// @Param until query string false "Filter until timestamp (RFC3339)"
// @Success 200 {file} file
// @Failure 400 {string} string "Invalid input"
// @Failure 500 {string} string "Internal error"
// @Router /events/export [get]
func ExportEventsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format != "csv" && format != "json" {
		http.Error(w, "format must be 'csv' or 'json'", http.StatusBadRequest)
		return
	}

	filter, err := parseEventFilter(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	events, err := exportEvents(r, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="events.json"`)
		_ = json.NewEncoder(w).Encode(events)

	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="events.csv"`)

		csvWriter := csv.NewWriter(w)
		_ = csvWriter.Write([]string{"seq", "at", "kind", "product_id", "from", "to", "delta", "actor", "correlation_id", "reason"})
		for _, e := range events {
			_ = csvWriter.Write([]string{
				strconv.FormatInt(e.Seq, 10),
				e.At.Format(time.RFC3339),
				string(e.Kind),
				strconv.FormatInt(e.ProductID, 10),
				deref(e.From),
				deref(e.To),
				strconv.FormatInt(e.Delta, 10),
				e.Actor,
				e.CorrelationID,
				e.Reason,
			})
		}
		csvWriter.Flush()
	}
}

// exportEvents pages through the whole history matching f unless the
// caller asked for a single page with limit.
func exportEvents(r *http.Request, f repo.EventFilter) ([]models.StockEvent, error) {
	if f.Limit != nil {
		events, _, err := stockService.Events(r.Context(), f)
		return events, err
	}

	var events []models.StockEvent
	start := 0
	if f.Offset != nil {
		start = *f.Offset
	}
	for {
		off := start + len(events)
		f.Offset = &off
		page, total, err := stockService.Events(r.Context(), f)
		if err != nil {
			return nil, err
		}
		events = append(events, page...)
		if len(page) == 0 || off+len(page) >= total {
			return events, nil
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

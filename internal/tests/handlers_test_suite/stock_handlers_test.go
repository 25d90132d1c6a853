package handlers_test_suite

import (
	"fmt"
	"net/http"
	"testing"

	handler "github.com/rogerio-castellano/warehouse-ledger/internal/http/handlers"
	api "github.com/rogerio-castellano/warehouse-ledger/internal/http/router"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

func TestMoveHandler(t *testing.T) {
	t.Cleanup(resetState)
	r := api.NewRouter()

	id := importStock(t, r, "B-100", "Steel bolt", 10, "SKL-0")

	w := send(r, http.MethodPost, "/moves", token, handler.MoveRequest{ProductID: id, From: "SKL-0", To: "SKL-1", Quantity: 4})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 Created, got %d: %s", w.Code, w.Body.String())
	}
	ev := decode[models.StockEvent](t, w)
	if ev.Kind != models.EventMove || ev.Delta != 4 || ev.Actor != "admin" {
		t.Errorf("unexpected move event: %+v", ev)
	}
	if ev.FromQtyAfter == nil || *ev.FromQtyAfter != 6 || ev.ToQtyAfter == nil || *ev.ToQtyAfter != 4 {
		t.Errorf("expected quantities after 6/4, got %+v", ev)
	}

	if got := quantity(t, r, id, "SKL-0"); got != 6 {
		t.Errorf("expected 6 at SKL-0, got %d", got)
	}
	if got := quantity(t, r, id, "SKL-1"); got != 4 {
		t.Errorf("expected 4 at SKL-1, got %d", got)
	}

	w = send(r, http.MethodPost, "/moves", token, handler.MoveRequest{ProductID: id, From: "SKL-1", To: "HALL", Quantity: 7})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 Conflict, got %d: %s", w.Code, w.Body.String())
	}
	rejected := decode[handler.InsufficientStockResponse](t, w)
	if rejected.Location != "SKL-1" || rejected.Attempted != 7 || rejected.Available != 4 {
		t.Errorf("unexpected rejection: %+v", rejected)
	}
	if got := quantity(t, r, id, "HALL"); got != 0 {
		t.Errorf("rejected move must not change the destination, got %d", got)
	}

	events := decode[handler.EventsSearchResult](t, send(r, http.MethodGet, fmt.Sprintf("/products/%d/events", id), token, nil))
	if events.Meta.TotalCount != 2 {
		t.Errorf("expected import and move events, got %+v", events.Data)
	}
}

func TestMoveHandler_Validation(t *testing.T) {
	t.Cleanup(resetState)
	r := api.NewRouter()

	id := importStock(t, r, "B-100", "Steel bolt", 10, "SKL-0")

	tests := []struct {
		name       string
		req        handler.MoveRequest
		wantStatus int
	}{
		{"zero quantity", handler.MoveRequest{ProductID: id, From: "SKL-0", To: "SKL-1"}, http.StatusBadRequest},
		{"negative quantity", handler.MoveRequest{ProductID: id, From: "SKL-0", To: "SKL-1", Quantity: -1}, http.StatusBadRequest},
		{"same location", handler.MoveRequest{ProductID: id, From: "SKL-0", To: "SKL-0", Quantity: 1}, http.StatusBadRequest},
		{"missing destination", handler.MoveRequest{ProductID: id, From: "SKL-0", Quantity: 1}, http.StatusBadRequest},
		{"unknown location", handler.MoveRequest{ProductID: id, From: "SKL-0", To: "SKL-9", Quantity: 1}, http.StatusNotFound},
		{"unknown product", handler.MoveRequest{ProductID: 999, From: "SKL-0", To: "SKL-1", Quantity: 1}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := send(r, http.MethodPost, "/moves", token, tt.req)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}

	if got := quantity(t, r, id, "SKL-0"); got != 10 {
		t.Errorf("rejected moves must not change stock, got %d", got)
	}
}

func TestMoveHandler_Unauthorized(t *testing.T) {
	r := api.NewRouter()
	w := send(r, http.MethodPost, "/moves", "", handler.MoveRequest{ProductID: 1, From: "SKL-0", To: "SKL-1", Quantity: 1})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 Unauthorized, got %d", w.Code)
	}
}

func TestAdjustmentHandler(t *testing.T) {
	t.Cleanup(resetState)
	r := api.NewRouter()

	id := importStock(t, r, "B-100", "Steel bolt", 5, "HALL")

	w := send(r, http.MethodPost, "/adjustments", token, handler.AdjustmentRequest{ProductID: id, Location: "HALL", Delta: -6, Reason: "damaged"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 Conflict, got %d: %s", w.Code, w.Body.String())
	}
	if rejected := decode[handler.InsufficientStockResponse](t, w); rejected.Attempted != 6 || rejected.Available != 5 {
		t.Errorf("unexpected rejection: %+v", rejected)
	}

	w = send(r, http.MethodPost, "/adjustments", token, handler.AdjustmentRequest{ProductID: id, Location: "HALL", Delta: -2, Reason: "damaged"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 Created, got %d: %s", w.Code, w.Body.String())
	}
	ev := decode[models.StockEvent](t, w)
	if ev.Kind != models.EventAdjust || ev.Delta != -2 || ev.Reason != "damaged" || ev.Actor != "admin" {
		t.Errorf("unexpected adjust event: %+v", ev)
	}

	w = send(r, http.MethodPost, "/adjustments", sellerToken, handler.AdjustmentRequest{ProductID: id, Location: "HALL", Delta: 4, Reason: "found"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 Created, got %d: %s", w.Code, w.Body.String())
	}
	if ev := decode[models.StockEvent](t, w); ev.Actor != "seller" {
		t.Errorf("expected actor seller, got %q", ev.Actor)
	}

	if got := quantity(t, r, id, "HALL"); got != 7 {
		t.Errorf("expected 7 in the hall, got %d", got)
	}

	if w := send(r, http.MethodPost, "/adjustments", token, handler.AdjustmentRequest{ProductID: id, Location: "HALL"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a zero delta, got %d", w.Code)
	}
}

func TestGetStockHandler(t *testing.T) {
	t.Cleanup(resetState)
	r := api.NewRouter()
	p := createProduct(t, r, "B-100", "Steel bolt")

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"never stocked", fmt.Sprintf("/stock?product=%d&location=SKL-0", p.ID), http.StatusOK},
		{"missing location", fmt.Sprintf("/stock?product=%d", p.ID), http.StatusBadRequest},
		{"invalid product", "/stock?product=abc&location=SKL-0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := send(r, http.MethodGet, tt.path, token, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if w.Code == http.StatusOK {
				if resp := decode[handler.StockResponse](t, w); resp.Quantity != 0 {
					t.Errorf("expected 0, got %d", resp.Quantity)
				}
			}
		})
	}
}

func TestLocationHandlers(t *testing.T) {
	t.Cleanup(resetState)
	r := api.NewRouter()

	shelf := handler.LocationRequest{Code: "SKL-0-A1", Kind: "shelf", Title: "Shelf A1"}
	if w := send(r, http.MethodPost, "/locations", sellerToken, shelf); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a seller, got %d", w.Code)
	}
	if w := send(r, http.MethodPost, "/locations", token, handler.LocationRequest{Code: "X", Kind: "basement"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown kind, got %d", w.Code)
	}
	if w := send(r, http.MethodPost, "/locations", token, shelf); w.Code != http.StatusCreated {
		t.Fatalf("expected 201 Created, got %d: %s", w.Code, w.Body.String())
	}
	if w := send(r, http.MethodPost, "/locations", token, shelf); w.Code != http.StatusConflict {
		t.Errorf("expected 409 for a duplicated code, got %d", w.Code)
	}

	locations := decode[[]models.Location](t, send(r, http.MethodGet, "/locations", sellerToken, nil))
	// UNASSIGNED, SKL-0, SKL-1, HALL and the new shelf.
	if len(locations) != 5 {
		t.Errorf("expected 5 locations, got %v", locations)
	}

	id := importStock(t, r, "B-100", "Steel bolt", 3, "SKL-0-A1")
	w := send(r, http.MethodGet, "/locations/SKL-0-A1/stock", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	levels := decode[[]models.StockLevel](t, w)
	if len(levels) != 1 || levels[0].ProductID != id || levels[0].Quantity != 3 {
		t.Errorf("unexpected levels: %+v", levels)
	}

	if w := send(r, http.MethodGet, "/locations/NOPE/stock", token, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown location, got %d", w.Code)
	}
}

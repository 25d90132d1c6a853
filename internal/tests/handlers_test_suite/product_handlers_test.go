package handlers_test_suite

import (
	"fmt"
	"net/http"
	"testing"

	handler "github.com/rogerio-castellano/warehouse-ledger/internal/http/handlers"
	api "github.com/rogerio-castellano/warehouse-ledger/internal/http/router"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

func TestCreateProductHandler(t *testing.T) {
	t.Cleanup(resetState)
	r := api.NewRouter()

	tests := []struct {
		name       string
		req        handler.ProductRequest
		wantStatus int
	}{
		{"valid product", handler.ProductRequest{SKU: "B-100", Name: "Steel bolt", LocalName: "Болт"}, http.StatusCreated},
		{"missing sku", handler.ProductRequest{Name: "Nameless"}, http.StatusBadRequest},
		{"missing name", handler.ProductRequest{SKU: "N-1"}, http.StatusBadRequest},
		{"duplicated sku", handler.ProductRequest{SKU: "B-100", Name: "Another bolt"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := send(r, http.MethodPost, "/products", token, tt.req)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusBadRequest {
				if errs := decode[[]handler.ValidationError](t, w); len(errs) != 1 {
					t.Errorf("expected 1 validation error, got %v", errs)
				}
			}
		})
	}
}

func TestGetProductsHandler(t *testing.T) {
	t.Cleanup(resetState)
	r := api.NewRouter()

	for i := 1; i <= 5; i++ {
		createProduct(t, r, fmt.Sprintf("CAB-%d", i), fmt.Sprintf("Cable %d", i))
	}
	createProduct(t, r, "LMP-1", "Lamp")

	t.Run("Paginated list", func(t *testing.T) {
		w := send(r, http.MethodGet, "/products?offset=1&limit=2", token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 OK, got %d", w.Code)
		}
		resp := decode[handler.ProductsSearchResult](t, w)
		if len(resp.Data) != 2 {
			t.Errorf("expected 2 products, got %d", len(resp.Data))
		}
		if resp.Meta.TotalCount != 6 {
			t.Errorf("expected total count 6, got %d", resp.Meta.TotalCount)
		}
	})

	t.Run("Name filter", func(t *testing.T) {
		resp := decode[handler.ProductsSearchResult](t, send(r, http.MethodGet, "/products?name=lamp", token, nil))
		if len(resp.Data) != 1 || resp.Data[0].SKU != "LMP-1" {
			t.Errorf("expected only the lamp, got %v", resp.Data)
		}
	})

	t.Run("Invalid pagination", func(t *testing.T) {
		for _, q := range []string{"limit=0", "offset=-1", "limit=abc"} {
			if w := send(r, http.MethodGet, "/products?"+q, token, nil); w.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", q, w.Code)
			}
		}
	})
}

func TestSearchProducts(t *testing.T) {
	t.Cleanup(resetState)
	r := api.NewRouter()

	bolt := createProduct(t, r, "B-100", "Steel bolt")
	createProduct(t, r, "N-200", "Brass nut")
	syncSearch(t)

	resp := decode[handler.ProductsSearchResult](t, send(r, http.MethodGet, "/products?q=ste", token, nil))
	if len(resp.Data) != 1 || resp.Data[0].ID != bolt.ID {
		t.Fatalf("expected the bolt, got %v", resp.Data)
	}

	if w := send(r, http.MethodPost, fmt.Sprintf("/products/%d/archive", bolt.ID), token, nil); w.Code != http.StatusOK {
		t.Fatalf("archive failed: %d", w.Code)
	}
	syncSearch(t)

	resp = decode[handler.ProductsSearchResult](t, send(r, http.MethodGet, "/products?q=ste", token, nil))
	if len(resp.Data) != 0 {
		t.Errorf("expected archived product to disappear from search, got %v", resp.Data)
	}
}

func TestGetProductByIDHandler(t *testing.T) {
	t.Cleanup(resetState)
	r := api.NewRouter()
	p := createProduct(t, r, "B-100", "Steel bolt")

	tests := []struct {
		path       string
		wantStatus int
	}{
		{fmt.Sprintf("/products/%d", p.ID), http.StatusOK},
		{"/products/999", http.StatusNotFound},
		{"/products/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := send(r, http.MethodGet, tt.path, token, nil); w.Code != tt.wantStatus {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.wantStatus, w.Code)
		}
	}
}

func TestArchiveProductHandler(t *testing.T) {
	t.Cleanup(resetState)
	r := api.NewRouter()

	id := importStock(t, r, "B-100", "Steel bolt", 3, "SKL-0")
	path := fmt.Sprintf("/products/%d/archive", id)

	if w := send(r, http.MethodPost, path, sellerToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a seller, got %d", w.Code)
	}
	if w := send(r, http.MethodPost, path, token, nil); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while stock remains, got %d", w.Code)
	}

	w := send(r, http.MethodPost, "/adjustments", token, handler.AdjustmentRequest{
		ProductID: id, Location: "SKL-0", Delta: -3, Reason: "write-off",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("adjustment failed: %d %s", w.Code, w.Body.String())
	}

	w = send(r, http.MethodPost, path, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	if p := decode[models.Product](t, w); !p.Archived || p.ArchivedAt == nil {
		t.Errorf("expected product to be archived, got %+v", p)
	}

	list := decode[handler.ProductsSearchResult](t, send(r, http.MethodGet, "/products", token, nil))
	if list.Meta.TotalCount != 0 {
		t.Errorf("expected archived product to be hidden, got %v", list.Data)
	}
	list = decode[handler.ProductsSearchResult](t, send(r, http.MethodGet, "/products?archived=true", token, nil))
	if list.Meta.TotalCount != 1 {
		t.Errorf("expected archived product with archived=true, got %v", list.Data)
	}

	// A new supply brings the product back.
	importStock(t, r, "B-100", "Steel bolt", 1, "SKL-0")
	p := decode[models.Product](t, send(r, http.MethodGet, fmt.Sprintf("/products/%d", id), token, nil))
	if p.Archived || p.LastRestockAt == nil {
		t.Errorf("expected restock to unarchive the product, got %+v", p)
	}
}

func TestGetProductStockHandler(t *testing.T) {
	t.Cleanup(resetState)
	r := api.NewRouter()

	id := importStock(t, r, "B-100", "Steel bolt", 10, "SKL-0")
	importStock(t, r, "B-100", "Steel bolt", 5, "SKL-1")

	w := send(r, http.MethodGet, fmt.Sprintf("/products/%d/stock", id), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	resp := decode[handler.ProductStockResponse](t, w)
	if resp.Total != 15 || len(resp.Levels) != 2 {
		t.Errorf("expected 15 over 2 locations, got %+v", resp)
	}

	if w := send(r, http.MethodGet, "/products/999/stock", token, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown product, got %d", w.Code)
	}
}

package handlers_test_suite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rogerio-castellano/warehouse-ledger/internal/auth"
	"github.com/rogerio-castellano/warehouse-ledger/internal/catalog"
	handler "github.com/rogerio-castellano/warehouse-ledger/internal/http/handlers"
	rl "github.com/rogerio-castellano/warehouse-ledger/internal/http/rate_limiter"
	api "github.com/rogerio-castellano/warehouse-ledger/internal/http/router"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"github.com/rogerio-castellano/warehouse-ledger/internal/repo"
	"github.com/rogerio-castellano/warehouse-ledger/internal/search"
	"github.com/rogerio-castellano/warehouse-ledger/internal/session"
	"github.com/rogerio-castellano/warehouse-ledger/internal/stock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	token       string // admin
	sellerToken string

	catalogRepo *repo.InMemoryCatalogRepository
	ledgerRepo  *repo.InMemoryLedgerRepository
	searchIndex *search.MemoryIndex
)

func init() {
	auth.SetSecret("test-secret")
	rl.Configure(1000, 1000)
	resetState()

	r := api.NewRouter()
	var err error
	if token, err = generateToken(r, "admin", "secret"); err != nil {
		panic(fmt.Sprintf("error generating token: %v", err))
	}
	if sellerToken, err = generateToken(r, "seller", "secret"); err != nil {
		panic(fmt.Sprintf("error generating token: %v", err))
	}
}

// resetState rebuilds every repository. Tokens stay valid because they
// are stateless and the same users are recreated.
func resetState() {
	ctx := context.Background()

	catalogRepo = repo.NewInMemoryCatalogRepository()
	for _, l := range []models.Location{
		{Code: "SKL-0", Kind: models.LocationWarehouse, Title: "Warehouse 0"},
		{Code: "SKL-1", Kind: models.LocationWarehouse, Title: "Warehouse 1"},
		{Code: "HALL", Kind: models.LocationHall, Title: "Sales hall"},
	} {
		catalogRepo.CreateLocation(ctx, l)
	}
	ledgerRepo = repo.NewInMemoryLedgerRepository(catalogRepo)

	catalogService := catalog.NewService(catalogRepo, ledgerRepo, zap.NewNop())
	stockService := stock.NewService(ledgerRepo, catalogService, zap.NewNop())

	handler.SetCatalogService(catalogService)
	handler.SetStockService(stockService)
	handler.SetSessionManager(session.NewManager(repo.NewInMemorySessionRepository(), stockService, catalogService, zap.NewNop()))
	handler.SetRuleRepo(repo.NewInMemoryNotifyRuleRepository())
	handler.SetMetricsRepo(repo.NewInMemoryMetricsRepository(catalogRepo, ledgerRepo))

	searchIndex = search.NewMemoryIndex()
	handler.SetSearchIndex(searchIndex)

	userRepo := repo.NewInMemoryUserRepository()
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	userRepo.CreateUser(ctx, models.User{Username: "admin", PasswordHash: string(hash), Role: models.RoleAdmin})
	userRepo.CreateUser(ctx, models.User{Username: "seller", PasswordHash: string(hash), Role: models.RoleSeller})
	handler.SetUserRepo(userRepo)
}

// syncSearch brings the search index up to date with the catalog.
func syncSearch(t *testing.T) {
	t.Helper()
	s := search.NewSync(catalogRepo, ledgerRepo, searchIndex, 100, 0, zap.NewNop())
	if err := s.Drain(context.Background()); err != nil {
		t.Fatalf("search sync failed: %v", err)
	}
}

func generateToken(r http.Handler, username, password string) (string, error) {
	payload := handler.CredentialsRequest{Username: username, Password: password}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", w.Code)
	}
	var resp handler.LoginResult
	err := json.NewDecoder(w.Body).Decode(&resp)
	if err != nil {
		return "", fmt.Errorf("token decoding failed: %v", err)
	}
	return resp.Token, nil
}

func send(r http.Handler, method, path, bearer string, payload any) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func createProduct(t *testing.T, r http.Handler, sku, name string) models.Product {
	t.Helper()
	w := send(r, http.MethodPost, "/products", token, handler.ProductRequest{SKU: sku, Name: name})
	if w.Code != http.StatusCreated {
		t.Fatalf("product creation failed: %d %s", w.Code, w.Body.String())
	}
	return decode[models.Product](t, w)
}

// importStock receives qty units of sku at location and returns the product id.
func importStock(t *testing.T, r http.Handler, sku, name string, qty int64, location string) int64 {
	t.Helper()
	w := send(r, http.MethodPost, "/imports", token, handler.ImportRequest{
		Entries: []stock.ImportEntry{{SKU: sku, Name: name, Quantity: qty, Location: location}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("import failed: %d %s", w.Code, w.Body.String())
	}
	res := decode[stock.BatchResult](t, w)
	if res.Imported != 1 {
		t.Fatalf("expected the entry to be imported, got %+v", res)
	}
	return res.Results[0].ProductID
}

func quantity(t *testing.T, r http.Handler, productID int64, location string) int64 {
	t.Helper()
	w := send(r, http.MethodGet, fmt.Sprintf("/stock?product=%d&location=%s", productID, location), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stock lookup failed: %d %s", w.Code, w.Body.String())
	}
	return decode[handler.StockResponse](t, w).Quantity
}

func multipartCSV(csvContent string, filename string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, _ := writer.CreateFormFile("file", filename)
	part.Write([]byte(csvContent))

	writer.Close()
	return &buf, writer.FormDataContentType()
}

func uploadCSV(r http.Handler, csvContent string) *httptest.ResponseRecorder {
	body, contentType := multipartCSV(csvContent, "supply.csv")
	req := httptest.NewRequest(http.MethodPost, "/imports/csv", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

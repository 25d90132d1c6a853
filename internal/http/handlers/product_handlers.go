package handlers

import (
	"net/http"
	"strconv"

	models "github.com/rogerio-castellano/warehouse-ledger/internal/models"
	repo "github.com/rogerio-castellano/warehouse-ledger/internal/repo"
)

// CreateProductHandler godoc
// @Summary Create a new product
// @Description Adds a product to the catalog with no stock
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param product body ProductRequest true "Product to add"
// @Success 201 {object} models.Product
// @Failure 400 {array} ValidationError
// @Failure 409 {string} string "SKU already exists"
// @Router /products [post]
func CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	if validationErrors := validateProduct(req); len(validationErrors) > 0 {
		respond(w, http.StatusBadRequest, validationErrors)
		return
	}

	created, err := catalogService.CreateProduct(r.Context(), models.Product{
		SKU:       req.SKU,
		Name:      req.Name,
		LocalName: req.LocalName,
		PhotoRef:  req.PhotoRef,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	respond(w, http.StatusCreated, created)
}

// GetProductsHandler godoc
// @Summary List and search products
// @Description Without q, lists products by SKU. With q, returns full-text matches ranked by the search index.
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param q query string false "Full-text query over SKU, name and local name"
// @Param name query string false "Filter by SKU or name substring"
// @Param archived query bool false "Include archived products"
// @Param offset query int false "Offset for pagination"
// @Param limit query int false "Limit for pagination"
// @Success 200 {object} ProductsSearchResult
// @Failure 400 {string} string "Invalid query"
// @Failure 500 {string} string "Internal error"
// @Router /products [get]
func GetProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, limit, err := parsePage(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if query := q.Get("q"); query != "" && searchIndex != nil {
		searchProducts(w, r, query, limit)
		return
	}

	filter := repo.ProductFilter{
		Search:          q.Get("name"),
		IncludeArchived: q.Get("archived") == "true",
		Offset:          offset,
		Limit:           limit,
	}
	products, total, err := catalogService.ListProducts(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	respond(w, http.StatusOK, ProductsSearchResult{Data: products, Meta: Meta{TotalCount: total}})
}

func searchProducts(w http.ResponseWriter, r *http.Request, query string, limit *int) {
	n := 0
	if limit != nil {
		n = *limit
	}
	ids, err := searchIndex.Search(r.Context(), query, n)
	if err != nil {
		writeError(w, err)
		return
	}

	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		p, err := catalogService.GetProduct(r.Context(), id)
		if err != nil {
			// The index trails the catalog; skip entries it has not caught up on.
			continue
		}
		if !p.Archived {
			products = append(products, p)
		}
	}
	respond(w, http.StatusOK, ProductsSearchResult{Data: products, Meta: Meta{TotalCount: len(products)}})
}

// GetProductByIDHandler godoc
// @Summary Get a product by ID
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} models.Product
// @Failure 400 {string} string "Invalid ID"
// @Failure 404 {string} string "Product not found"
// @Router /products/{id} [get]
func GetProductByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid product ID", http.StatusBadRequest)
		return
	}

	product, err := catalogService.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, product)
}

// ArchiveProductHandler godoc
// @Summary Archive a product
// @Description Only products without stock at any location can be archived
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} models.Product
// @Failure 400 {string} string "Invalid ID"
// @Failure 404 {string} string "Product not found"
// @Failure 409 {string} string "Product still has stock"
// @Router /products/{id}/archive [post]
func ArchiveProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid product ID", http.StatusBadRequest)
		return
	}

	product, err := catalogService.Archive(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, product)
}

// UnarchiveProductHandler godoc
// @Summary Bring an archived product back to the catalog
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} models.Product
// @Failure 400 {string} string "Invalid ID"
// @Failure 404 {string} string "Product not found"
// @Router /products/{id}/unarchive [post]
func UnarchiveProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid product ID", http.StatusBadRequest)
		return
	}

	product, err := catalogService.Unarchive(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, product)
}

// GetProductStockHandler godoc
// @Summary Stock of a product at every location
// @Tags stock
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} ProductStockResponse
// @Failure 400 {string} string "Invalid ID"
// @Failure 404 {string} string "Product not found"
// @Router /products/{id}/stock [get]
func GetProductStockHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid product ID", http.StatusBadRequest)
		return
	}
	if _, err := catalogService.GetProduct(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	levels, err := stockService.StockByProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := ProductStockResponse{ProductID: id, Levels: levels}
	for _, l := range levels {
		resp.Total += l.Quantity
	}
	respond(w, http.StatusOK, resp)
}

// GetProductEventsHandler godoc
// @Summary Stock event history of a product
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param since query string false "Filter events from this timestamp (RFC3339)"
// @Param until query string false "Filter events until this timestamp (RFC3339)"
// @Param offset query int false "Offset for pagination"
// @Param limit query int false "Limit for pagination"
// @Success 200 {object} EventsSearchResult
// @Failure 400 {string} string "Invalid input"
// @Failure 404 {string} string "Product not found"
// @Router /products/{id}/events [get]
func GetProductEventsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid product ID", http.StatusBadRequest)
		return
	}
	if _, err := catalogService.GetProduct(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	q.Set("product", strconv.FormatInt(id, 10))
	listEvents(w, r, q)
}

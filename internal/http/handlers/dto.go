package handlers

import (
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"github.com/rogerio-castellano/warehouse-ledger/internal/stock"
)

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token string `json:"token"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type ProductRequest struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	LocalName string `json:"local_name,omitempty"`
	PhotoRef  string `json:"photo_ref,omitempty"`
}

type Meta struct {
	TotalCount int `json:"total_count"`
}

type ProductsSearchResult struct {
	Data []models.Product `json:"data"`
	Meta Meta             `json:"meta,omitempty"`
}

type ProductStockResponse struct {
	ProductID int64               `json:"product_id"`
	Total     int64               `json:"total"`
	Levels    []models.StockLevel `json:"levels"`
}

type LocationRequest struct {
	Code  string `json:"code"`
	Kind  string `json:"kind"`
	Title string `json:"title"`
}

type StockResponse struct {
	ProductID int64  `json:"product_id"`
	Location  string `json:"location"`
	Quantity  int64  `json:"quantity"`
}

type MoveRequest struct {
	ProductID int64  `json:"product_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Quantity  int64  `json:"quantity"`
}

type AdjustmentRequest struct {
	ProductID int64  `json:"product_id"`
	Location  string `json:"location"`
	Delta     int64  `json:"delta"` // can be positive or negative
	Reason    string `json:"reason"`
}

type ImportRequest struct {
	Entries []stock.ImportEntry `json:"entries"`
}

type DuplicateImportResponse struct {
	Error   string `json:"error"`
	BatchID string `json:"batch_id"`
}

type InsufficientStockResponse struct {
	Error     string `json:"error"`
	ProductID int64  `json:"product_id"`
	Location  string `json:"location"`
	Attempted int64  `json:"attempted"`
	Available int64  `json:"available"`
}

type EventsSearchResult struct {
	Data []models.StockEvent `json:"data"`
	Meta Meta                `json:"meta,omitempty"`
}

type OpenSessionRequest struct {
	Location string `json:"location"`
}

type CountEntry struct {
	ProductID int64 `json:"product_id"`
	Counted   int64 `json:"counted"`
}

type CountsRequest struct {
	Counts []CountEntry `json:"counts"`
}

type RuleRequest struct {
	UserID    int64  `json:"user_id"`
	ProductID *int64 `json:"product_id,omitempty"`
	Condition string `json:"condition"`
	Mode      string `json:"mode"`
	Floor     int64  `json:"floor,omitempty"`
}

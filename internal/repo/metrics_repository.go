package repo

import "context"

type MostMovedProduct struct {
	ProductID  int64  `json:"product_id"`
	Name       string `json:"name"`
	EventCount int    `json:"event_count"`
}

type Metrics struct {
	TotalProducts    int              `json:"total_products"`
	ArchivedProducts int              `json:"archived_products"`
	TotalEvents      int              `json:"total_events"`
	OutOfStockCount  int              `json:"out_of_stock_count"`
	MostMovedProduct MostMovedProduct `json:"most_moved_product"`
	LastSeq          int64            `json:"last_seq"`
}

type MetricsRepository interface {
	GetDashboardMetrics(ctx context.Context) (Metrics, error)
}

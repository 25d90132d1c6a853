package repo

import (
	"context"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

// CatalogRepository stores products, locations and the import log.
// Every product write advances a catalog-wide revision counter that
// search indexing follows.
type CatalogRepository interface {
	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	GetProductByID(ctx context.Context, id int64) (models.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (models.Product, error)
	FilterProducts(ctx context.Context, f ProductFilter) ([]models.Product, int, error)
	SetArchived(ctx context.Context, id int64, archived bool, at time.Time) (models.Product, error)
	// MarkRestock stamps the restock time. It moves the product's revision
	// only when it brings the product back from the archive.
	MarkRestock(ctx context.Context, id int64, at time.Time) (models.Product, error)
	ProductsChangedAfter(ctx context.Context, revision int64, limit int) ([]models.Product, error)

	CreateLocation(ctx context.Context, l models.Location) (models.Location, error)
	GetLocation(ctx context.Context, code string) (models.Location, error)
	ListLocations(ctx context.Context) ([]models.Location, error)

	FindImport(ctx context.Context, sourceHash string) (models.ImportLog, error)
	RecordImport(ctx context.Context, l models.ImportLog) error
}

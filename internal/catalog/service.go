package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"github.com/rogerio-castellano/warehouse-ledger/internal/repo"
	"go.uber.org/zap"
)

var (
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidLocation = errors.New("invalid location")
	ErrStockRemaining  = errors.New("product still has stock")
)

// StockTotals is the slice of the ledger the catalog needs to decide
// whether a product may be archived.
type StockTotals interface {
	TotalByProduct(ctx context.Context, productID int64) (int64, error)
}

type Service struct {
	repo   repo.CatalogRepository
	stock  StockTotals
	logger *zap.Logger
	now    func() time.Time
}

func NewService(r repo.CatalogRepository, stock StockTotals, logger *zap.Logger) *Service {
	return &Service{
		repo:   r,
		stock:  stock,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	p.SKU = strings.TrimSpace(p.SKU)
	p.Name = strings.TrimSpace(p.Name)
	if p.SKU == "" {
		return models.Product{}, fmt.Errorf("%w: sku is required", ErrInvalidProduct)
	}
	if p.Name == "" {
		p.Name = p.SKU
	}
	return s.repo.CreateProduct(ctx, p)
}

// EnsureProduct returns the product with the given SKU, creating it when
// it has never been seen.
func (s *Service) EnsureProduct(ctx context.Context, sku, name string) (models.Product, bool, error) {
	sku = strings.TrimSpace(sku)
	p, err := s.repo.GetProductBySKU(ctx, sku)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, repo.ErrProductNotFound) {
		return models.Product{}, false, err
	}

	p, err = s.CreateProduct(ctx, models.Product{SKU: sku, Name: name})
	if errors.Is(err, repo.ErrDuplicatedValueUnique) {
		// Lost a race with a concurrent import of the same SKU.
		p, err = s.repo.GetProductBySKU(ctx, sku)
		return p, false, err
	}
	if err != nil {
		return models.Product{}, false, err
	}
	s.logger.Info("🆕 product created", zap.Int64("product_id", p.ID), zap.String("sku", p.SKU))
	return p, true, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, f repo.ProductFilter) ([]models.Product, int, error) {
	return s.repo.FilterProducts(ctx, f)
}

// Archive hides a product that holds no stock anywhere.
func (s *Service) Archive(ctx context.Context, id int64) (models.Product, error) {
	total, err := s.stock.TotalByProduct(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	if total > 0 {
		return models.Product{}, fmt.Errorf("%w: %d on hand", ErrStockRemaining, total)
	}
	return s.repo.SetArchived(ctx, id, true, s.now())
}

func (s *Service) Unarchive(ctx context.Context, id int64) (models.Product, error) {
	return s.repo.SetArchived(ctx, id, false, s.now())
}

// MarkRestock stamps the product as freshly supplied and brings it back
// from the archive.
func (s *Service) MarkRestock(ctx context.Context, id int64) error {
	_, err := s.repo.MarkRestock(ctx, id, s.now())
	return err
}

// ArchiveSweep archives every active product with no stock whose last
// restock (or creation, if never restocked) is older than the given
// number of days. It returns the ids it archived.
func (s *Service) ArchiveSweep(ctx context.Context, now time.Time, days int) ([]int64, error) {
	cutoff := now.AddDate(0, 0, -days)

	var active []models.Product
	for offset := 0; ; {
		off, limit := offset, 100
		products, total, err := s.repo.FilterProducts(ctx, repo.ProductFilter{Offset: &off, Limit: &limit})
		if err != nil {
			return nil, err
		}
		active = append(active, products...)
		offset += len(products)
		if len(products) == 0 || offset >= total {
			break
		}
	}

	var archived []int64
	for _, p := range active {
		if err := ctx.Err(); err != nil {
			return archived, err
		}
		last := p.CreatedAt
		if p.LastRestockAt != nil {
			last = *p.LastRestockAt
		}
		if !last.Before(cutoff) {
			continue
		}
		qty, err := s.stock.TotalByProduct(ctx, p.ID)
		if err != nil {
			return archived, err
		}
		if qty != 0 {
			continue
		}
		if _, err := s.repo.SetArchived(ctx, p.ID, true, now); err != nil {
			return archived, err
		}
		// A supply may have landed between the check and the archive.
		if qty, err := s.stock.TotalByProduct(ctx, p.ID); err == nil && qty > 0 {
			if _, err := s.repo.SetArchived(ctx, p.ID, false, now); err != nil {
				return archived, err
			}
			continue
		}
		archived = append(archived, p.ID)
	}

	if len(archived) > 0 {
		s.logger.Info("🗄️ archive sweep finished", zap.Int("archived", len(archived)), zap.Int("days", days))
	}
	return archived, nil
}

func (s *Service) CreateLocation(ctx context.Context, l models.Location) (models.Location, error) {
	l.Code = strings.TrimSpace(l.Code)
	if l.Code == "" {
		return models.Location{}, fmt.Errorf("%w: code is required", ErrInvalidLocation)
	}
	if !l.Kind.Valid() || l.Kind == models.LocationUnassigned {
		return models.Location{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidLocation, l.Kind)
	}
	if l.Title == "" {
		l.Title = l.Code
	}
	return s.repo.CreateLocation(ctx, l)
}

func (s *Service) GetLocation(ctx context.Context, code string) (models.Location, error) {
	return s.repo.GetLocation(ctx, code)
}

func (s *Service) ListLocations(ctx context.Context) ([]models.Location, error) {
	return s.repo.ListLocations(ctx)
}

func (s *Service) FindImport(ctx context.Context, sourceHash string) (models.ImportLog, error) {
	return s.repo.FindImport(ctx, sourceHash)
}

func (s *Service) RecordImport(ctx context.Context, l models.ImportLog) error {
	return s.repo.RecordImport(ctx, l)
}

func (s *Service) ProductsChangedAfter(ctx context.Context, revision int64, limit int) ([]models.Product, error) {
	return s.repo.ProductsChangedAfter(ctx, revision, limit)
}

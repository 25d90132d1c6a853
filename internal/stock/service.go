package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"github.com/rogerio-castellano/warehouse-ledger/internal/repo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Catalog is the part of the product catalog the stock service depends on.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (models.Product, error)
	GetLocation(ctx context.Context, code string) (models.Location, error)
	EnsureProduct(ctx context.Context, sku, name string) (models.Product, bool, error)
	MarkRestock(ctx context.Context, id int64) error
}

// Service is the only writer of stock quantities. Every committed
// operation produces exactly one ledger event.
type Service struct {
	ledger  repo.LedgerRepository
	catalog Catalog
	locks   *keyLocks
	logger  *zap.Logger
	tracer  trace.Tracer
}

func NewService(ledger repo.LedgerRepository, catalog Catalog, logger *zap.Logger) *Service {
	return &Service{
		ledger:  ledger,
		catalog: catalog,
		locks:   newKeyLocks(),
		logger:  logger,
		tracer:  otel.Tracer("warehouse-ledger/stock"),
	}
}

type MoveRequest struct {
	ProductID int64
	From      string
	To        string
	Quantity  int64
	Actor     string
}

type AdjustRequest struct {
	ProductID int64
	Location  string
	Delta     int64
	Reason    string
	Actor     string
}

// CountCorrection sets a quantity to a physically counted value, provided
// the ledger still holds Expected.
type CountCorrection struct {
	ProductID int64
	Location  string
	Counted   int64
	Expected  int64
	SessionID string
	Actor     string
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Move transfers Quantity units between two locations as one event.
func (s *Service) Move(ctx context.Context, req MoveRequest) (ev models.StockEvent, err error) {
	ctx, span := s.tracer.Start(ctx, "stock.Move", trace.WithAttributes(
		attribute.Int64("product.id", req.ProductID),
		attribute.String("stock.from", req.From),
		attribute.String("stock.to", req.To),
		attribute.Int64("stock.quantity", req.Quantity),
	))
	defer func() { endSpan(span, err) }()

	if req.Quantity <= 0 {
		return models.StockEvent{}, ErrInvalidQuantity
	}
	if req.From == "" || req.To == "" || req.From == req.To {
		return models.StockEvent{}, fmt.Errorf("%w: source and destination must differ", ErrInvalidRequest)
	}
	if err := s.checkRefs(ctx, req.ProductID, req.From, req.To); err != nil {
		return models.StockEvent{}, err
	}

	unlock := s.locks.Lock(lockKey{req.ProductID, req.From}, lockKey{req.ProductID, req.To})
	defer unlock()

	available, err := s.ledger.GetQuantity(ctx, req.ProductID, req.From)
	if err != nil {
		return models.StockEvent{}, err
	}
	if available < req.Quantity {
		return models.StockEvent{}, &InsufficientStockError{
			ProductID: req.ProductID, Location: req.From, Attempted: req.Quantity, Available: available,
		}
	}

	ev, err = s.apply(ctx, models.StockEvent{
		Kind:      models.EventMove,
		ProductID: req.ProductID,
		From:      &req.From,
		To:        &req.To,
		Delta:     req.Quantity,
		Actor:     req.Actor,
	})
	if err != nil {
		return models.StockEvent{}, err
	}

	s.logger.Info("📦 stock moved",
		zap.Int64("seq", ev.Seq), zap.Int64("product_id", req.ProductID),
		zap.String("from", req.From), zap.String("to", req.To), zap.Int64("qty", req.Quantity))
	return ev, nil
}

// Adjust applies a signed correction at one location.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) (ev models.StockEvent, err error) {
	ctx, span := s.tracer.Start(ctx, "stock.Adjust", trace.WithAttributes(
		attribute.Int64("product.id", req.ProductID),
		attribute.String("stock.location", req.Location),
		attribute.Int64("stock.delta", req.Delta),
	))
	defer func() { endSpan(span, err) }()

	if req.Delta == 0 {
		return models.StockEvent{}, fmt.Errorf("%w: delta must be non-zero", ErrInvalidRequest)
	}
	if req.Location == "" {
		return models.StockEvent{}, fmt.Errorf("%w: location is required", ErrInvalidRequest)
	}
	if err := s.checkRefs(ctx, req.ProductID, req.Location); err != nil {
		return models.StockEvent{}, err
	}

	unlock := s.locks.Lock(lockKey{req.ProductID, req.Location})
	defer unlock()

	if req.Delta < 0 {
		available, err := s.ledger.GetQuantity(ctx, req.ProductID, req.Location)
		if err != nil {
			return models.StockEvent{}, err
		}
		if available+req.Delta < 0 {
			return models.StockEvent{}, &InsufficientStockError{
				ProductID: req.ProductID, Location: req.Location, Attempted: -req.Delta, Available: available,
			}
		}
	}

	ev, err = s.apply(ctx, models.StockEvent{
		Kind:      models.EventAdjust,
		ProductID: req.ProductID,
		To:        &req.Location,
		Delta:     req.Delta,
		Actor:     req.Actor,
		Reason:    req.Reason,
	})
	if err != nil {
		return models.StockEvent{}, err
	}
	if req.Delta > 0 {
		s.markRestock(ctx, req.ProductID)
	}

	s.logger.Info("✏️ stock adjusted",
		zap.Int64("seq", ev.Seq), zap.Int64("product_id", req.ProductID),
		zap.String("location", req.Location), zap.Int64("delta", req.Delta))
	return ev, nil
}

// CorrectTo records a count correction. It returns ErrConcurrentChange when
// the ledger no longer holds the expected quantity, and a zero event when
// the count already matches.
func (s *Service) CorrectTo(ctx context.Context, c CountCorrection) (ev models.StockEvent, err error) {
	ctx, span := s.tracer.Start(ctx, "stock.CorrectTo", trace.WithAttributes(
		attribute.Int64("product.id", c.ProductID),
		attribute.String("stock.location", c.Location),
		attribute.String("session.id", c.SessionID),
	))
	defer func() { endSpan(span, err) }()

	if c.Counted < 0 {
		return models.StockEvent{}, fmt.Errorf("%w: counted quantity cannot be negative", ErrInvalidRequest)
	}

	unlock := s.locks.Lock(lockKey{c.ProductID, c.Location})
	defer unlock()

	current, err := s.ledger.GetQuantity(ctx, c.ProductID, c.Location)
	if err != nil {
		return models.StockEvent{}, err
	}
	if current != c.Expected {
		return models.StockEvent{}, fmt.Errorf("%w: expected %d, ledger has %d", ErrConcurrentChange, c.Expected, current)
	}
	delta := c.Counted - current
	if delta == 0 {
		return models.StockEvent{}, nil
	}

	ev, err = s.apply(ctx, models.StockEvent{
		Kind:          models.EventCountCorrection,
		ProductID:     c.ProductID,
		To:            &c.Location,
		Delta:         delta,
		Actor:         c.Actor,
		CorrelationID: c.SessionID,
		Reason:        "inventory count",
	})
	if err != nil {
		return models.StockEvent{}, err
	}
	return ev, nil
}

// CurrentQuantity reads the committed quantity; a pair never stocked reads 0.
func (s *Service) CurrentQuantity(ctx context.Context, productID int64, location string) (int64, error) {
	return s.ledger.GetQuantity(ctx, productID, location)
}

func (s *Service) StockByProduct(ctx context.Context, productID int64) ([]models.StockLevel, error) {
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.ledger.StockByProduct(ctx, productID)
}

func (s *Service) StockByLocation(ctx context.Context, location string) ([]models.StockLevel, error) {
	if _, err := s.catalog.GetLocation(ctx, location); err != nil {
		return nil, err
	}
	return s.ledger.StockByLocation(ctx, location)
}

func (s *Service) Events(ctx context.Context, f repo.EventFilter) ([]models.StockEvent, int, error) {
	return s.ledger.Events(ctx, f)
}

func (s *Service) checkRefs(ctx context.Context, productID int64, locations ...string) error {
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return err
	}
	for _, code := range locations {
		if _, err := s.catalog.GetLocation(ctx, code); err != nil {
			return fmt.Errorf("%q: %w", code, err)
		}
	}
	return nil
}

// apply commits ev and converts a store-level invariant rejection into an
// InsufficientStockError.
func (s *Service) apply(ctx context.Context, ev models.StockEvent) (models.StockEvent, error) {
	committed, err := s.ledger.Apply(ctx, ev)
	var negErr *repo.NegativeQuantityError
	if errors.As(err, &negErr) {
		return models.StockEvent{}, &InsufficientStockError{
			ProductID: negErr.ProductID,
			Location:  negErr.Location,
			Attempted: -negErr.Delta,
			Available: negErr.Available,
		}
	}
	return committed, err
}

func (s *Service) markRestock(ctx context.Context, productID int64) {
	if err := s.catalog.MarkRestock(ctx, productID); err != nil {
		s.logger.Warn("⚠️ could not mark restock", zap.Int64("product_id", productID), zap.Error(err))
	}
}

func normalizeSKU(sku string) string {
	return strings.TrimSpace(sku)
}

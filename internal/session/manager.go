package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"github.com/rogerio-castellano/warehouse-ledger/internal/repo"
	"github.com/rogerio-castellano/warehouse-ledger/internal/stock"
	"go.uber.org/zap"
)

var (
	ErrSessionConflict = errors.New("location already has an open inventory session")
	ErrSessionClosed   = errors.New("inventory session is not open")
	ErrInvalidCount    = errors.New("counted quantity cannot be negative")
)

// Stock is what a session needs from the stock service to reconcile counts.
type Stock interface {
	CurrentQuantity(ctx context.Context, productID int64, location string) (int64, error)
	CorrectTo(ctx context.Context, c stock.CountCorrection) (models.StockEvent, error)
}

type Catalog interface {
	GetProduct(ctx context.Context, id int64) (models.Product, error)
	GetLocation(ctx context.Context, code string) (models.Location, error)
}

type Manager struct {
	repo    repo.SessionRepository
	stock   Stock
	catalog Catalog
	logger  *zap.Logger
	now     func() time.Time
}

func NewManager(r repo.SessionRepository, s Stock, c Catalog, logger *zap.Logger) *Manager {
	return &Manager{
		repo:    r,
		stock:   s,
		catalog: c,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ProductResult is the outcome of reconciling one counted product.
type ProductResult struct {
	ProductID int64  `json:"product_id"`
	Counted   int64  `json:"counted"`
	Ledger    int64  `json:"ledger"`
	Delta     int64  `json:"delta"`
	Seq       int64  `json:"seq,omitempty"`
	Error     string `json:"error,omitempty"`

	Err error `json:"-"`
}

type CommitResult struct {
	Session     models.InventorySession `json:"session"`
	Corrections int                     `json:"corrections"`
	Results     []ProductResult         `json:"results"`
}

func (m *Manager) Open(ctx context.Context, location, actor string) (models.InventorySession, error) {
	if _, err := m.catalog.GetLocation(ctx, location); err != nil {
		return models.InventorySession{}, err
	}

	s, err := m.repo.Create(ctx, models.InventorySession{
		ID:       uuid.NewString(),
		Location: location,
		OpenedBy: actor,
		OpenedAt: m.now(),
		Status:   models.SessionOpen,
		Counts:   map[int64]int64{},
	})
	if errors.Is(err, repo.ErrSessionAlreadyOpen) {
		return models.InventorySession{}, fmt.Errorf("%w: %s", ErrSessionConflict, location)
	}
	if err != nil {
		return models.InventorySession{}, err
	}

	m.logger.Info("📋 inventory session opened",
		zap.String("session_id", s.ID), zap.String("location", location), zap.String("actor", actor))
	return s, nil
}

// RecordCount stores the counted quantity for a product, replacing any
// earlier count in the same session.
func (m *Manager) RecordCount(ctx context.Context, sessionID string, productID, counted int64) error {
	if counted < 0 {
		return ErrInvalidCount
	}
	if _, err := m.catalog.GetProduct(ctx, productID); err != nil {
		return err
	}
	return closedErr(m.repo.SetCount(ctx, sessionID, productID, counted))
}

// Commit claims the session, then reconciles every counted product against
// the ledger. Once claimed the session takes no more counts and cannot be
// aborted. Products whose quantity moved underneath the count, or that
// cannot be corrected, are reported per product and listed on the closed
// session; the others stand. If ctx is cancelled the remaining products are
// left untouched and reported as failed, and the session is still closed.
func (m *Manager) Commit(ctx context.Context, sessionID, actor string) (CommitResult, error) {
	s, err := m.repo.Claim(ctx, sessionID)
	if err != nil {
		return CommitResult{}, closedErr(err)
	}

	productIDs := make([]int64, 0, len(s.Counts))
	for id := range s.Counts {
		productIDs = append(productIDs, id)
	}
	slices.Sort(productIDs)

	var (
		result CommitResult
		failed []int64
	)
	for _, id := range productIDs {
		r := ProductResult{ProductID: id, Counted: s.Counts[id]}
		if err := ctx.Err(); err != nil {
			r.Err = err
		} else {
			m.reconcile(ctx, s, actor, &r)
		}
		if r.Err != nil {
			r.Error = r.Err.Error()
			failed = append(failed, id)
		} else if r.Seq != 0 {
			result.Corrections++
		}
		result.Results = append(result.Results, r)
	}

	closed, err := m.repo.Close(context.WithoutCancel(ctx), sessionID,
		models.SessionCommitting, models.SessionCommitted, m.now(), failed)
	if err != nil {
		return result, closedErr(err)
	}
	result.Session = closed

	m.logger.Info("✅ inventory session committed",
		zap.String("session_id", sessionID), zap.String("location", s.Location),
		zap.Int("corrections", result.Corrections), zap.Int("failed", len(failed)))
	return result, ctx.Err()
}

func (m *Manager) reconcile(ctx context.Context, s models.InventorySession, actor string, r *ProductResult) {
	ledger, err := m.stock.CurrentQuantity(ctx, r.ProductID, s.Location)
	if err != nil {
		r.Err = err
		return
	}
	r.Ledger = ledger
	r.Delta = r.Counted - ledger
	if r.Delta == 0 {
		return
	}

	ev, err := m.stock.CorrectTo(ctx, stock.CountCorrection{
		ProductID: r.ProductID,
		Location:  s.Location,
		Counted:   r.Counted,
		Expected:  ledger,
		SessionID: s.ID,
		Actor:     actor,
	})
	if err != nil {
		m.logger.Warn("⚠️ count correction failed",
			zap.String("session_id", s.ID), zap.Int64("product_id", r.ProductID), zap.Error(err))
		r.Err = err
		return
	}
	r.Seq = ev.Seq
}

func (m *Manager) Abort(ctx context.Context, sessionID, actor string) (models.InventorySession, error) {
	s, err := m.repo.Close(ctx, sessionID, models.SessionOpen, models.SessionAborted, m.now(), nil)
	if err != nil {
		return models.InventorySession{}, closedErr(err)
	}
	m.logger.Info("🛑 inventory session aborted", zap.String("session_id", sessionID), zap.String("actor", actor))
	return s, nil
}

func (m *Manager) Get(ctx context.Context, sessionID string) (models.InventorySession, error) {
	return m.repo.Get(ctx, sessionID)
}

// OpenFor returns the open session for a location, or repo.ErrSessionNotFound.
func (m *Manager) OpenFor(ctx context.Context, location string) (models.InventorySession, error) {
	return m.repo.OpenForLocation(ctx, location)
}

func closedErr(err error) error {
	if errors.Is(err, repo.ErrSessionNotOpen) {
		return ErrSessionClosed
	}
	return err
}

package notify

import (
	"context"
	"errors"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"go.uber.org/zap"
)

// ErrPermanent marks a delivery failure that retrying cannot fix. Any other
// Transport error is treated as transient.
var ErrPermanent = errors.New("permanent delivery failure")

type Transport interface {
	Send(ctx context.Context, n models.Notification) error
	SendDigest(ctx context.Context, userID int64, notes []models.Notification) error
}

// LogTransport writes notifications to the log. It is used when no broker
// is configured.
type LogTransport struct {
	logger *zap.Logger
}

func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, n models.Notification) error {
	t.logger.Info("🔔 stock notification",
		zap.Int64("user_id", n.UserID),
		zap.String("condition", string(n.Condition)),
		zap.Int64("product_id", n.ProductID),
		zap.String("sku", n.SKU),
		zap.String("location", n.Location),
		zap.Int64("quantity", n.ObservedQuantity),
		zap.Int64("seq", n.EventSeq))
	return nil
}

func (t *LogTransport) SendDigest(_ context.Context, userID int64, notes []models.Notification) error {
	t.logger.Info("📨 daily stock digest", zap.Int64("user_id", userID), zap.Int("notifications", len(notes)))
	return nil
}

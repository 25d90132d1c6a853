package repo

import (
	"context"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

// SessionRepository persists inventory sessions. Create fails with
// ErrSessionAlreadyOpen while the location has an open or committing
// session. SetCount and Claim fail with ErrSessionNotOpen once the session
// left "open"; Close fails with it when the session is not in status from.
type SessionRepository interface {
	Create(ctx context.Context, s models.InventorySession) (models.InventorySession, error)
	Get(ctx context.Context, id string) (models.InventorySession, error)
	OpenForLocation(ctx context.Context, location string) (models.InventorySession, error)
	SetCount(ctx context.Context, id string, productID, counted int64) error
	// Claim moves an open session to committing and returns it with its
	// final counts.
	Claim(ctx context.Context, id string) (models.InventorySession, error)
	Close(ctx context.Context, id string, from, to models.SessionStatus, at time.Time, failed []int64) (models.InventorySession, error)
}

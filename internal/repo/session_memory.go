package repo

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

type InMemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]models.InventorySession
}

func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{sessions: map[string]models.InventorySession{}}
}

func cloneSession(s models.InventorySession) models.InventorySession {
	s.Counts = maps.Clone(s.Counts)
	s.FailedProducts = slices.Clone(s.FailedProducts)
	return s
}

func (r *InMemorySessionRepository) Create(_ context.Context, s models.InventorySession) (models.InventorySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.sessions {
		if existing.Location == s.Location && active(existing.Status) {
			return models.InventorySession{}, ErrSessionAlreadyOpen
		}
	}
	if s.Counts == nil {
		s.Counts = map[int64]int64{}
	}
	r.sessions[s.ID] = cloneSession(s)
	return s, nil
}

func (r *InMemorySessionRepository) Get(_ context.Context, id string) (models.InventorySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return models.InventorySession{}, ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (r *InMemorySessionRepository) OpenForLocation(_ context.Context, location string) (models.InventorySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.Location == location && s.Status == models.SessionOpen {
			return cloneSession(s), nil
		}
	}
	return models.InventorySession{}, ErrSessionNotFound
}

func (r *InMemorySessionRepository) SetCount(_ context.Context, id string, productID, counted int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if s.Status != models.SessionOpen {
		return ErrSessionNotOpen
	}
	s.Counts[productID] = counted
	return nil
}

func (r *InMemorySessionRepository) Claim(_ context.Context, id string) (models.InventorySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return models.InventorySession{}, ErrSessionNotFound
	}
	if s.Status != models.SessionOpen {
		return models.InventorySession{}, ErrSessionNotOpen
	}
	s.Status = models.SessionCommitting
	r.sessions[id] = s
	return cloneSession(s), nil
}

func (r *InMemorySessionRepository) Close(_ context.Context, id string, from, to models.SessionStatus, at time.Time, failed []int64) (models.InventorySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return models.InventorySession{}, ErrSessionNotFound
	}
	if s.Status != from {
		return models.InventorySession{}, ErrSessionNotOpen
	}
	s.Status = to
	s.ClosedAt = &at
	s.FailedProducts = slices.Clone(failed)
	r.sessions[id] = s
	return cloneSession(s), nil
}

func active(status models.SessionStatus) bool {
	return status == models.SessionOpen || status == models.SessionCommitting
}

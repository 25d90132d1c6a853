package handlers

import (
	"context"

	"github.com/rogerio-castellano/warehouse-ledger/internal/catalog"
	repo "github.com/rogerio-castellano/warehouse-ledger/internal/repo"
	"github.com/rogerio-castellano/warehouse-ledger/internal/session"
	"github.com/rogerio-castellano/warehouse-ledger/internal/stock"
	"go.uber.org/zap"
)

// Searcher answers full-text product queries with matching product ids.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]int64, error)
}

var (
	catalogService *catalog.Service
	stockService   *stock.Service
	sessionManager *session.Manager
	ruleRepo       repo.NotifyRuleRepository
	metricsRepo    repo.MetricsRepository
	userRepo       repo.UserRepository
	searchIndex    Searcher

	logger = zap.NewNop()
)

func SetCatalogService(s *catalog.Service) {
	catalogService = s
}

func SetStockService(s *stock.Service) {
	stockService = s
}

func SetSessionManager(m *session.Manager) {
	sessionManager = m
}

func SetRuleRepo(r repo.NotifyRuleRepository) {
	ruleRepo = r
}

func SetMetricsRepo(r repo.MetricsRepository) {
	metricsRepo = r
}

func SetUserRepo(r repo.UserRepository) {
	userRepo = r
}

func SetSearchIndex(s Searcher) {
	searchIndex = s
}

func SetLogger(l *zap.Logger) {
	logger = l
}

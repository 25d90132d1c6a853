package main

import (
	"context"
	"errors"

	"github.com/rogerio-castellano/warehouse-ledger/internal/config"
	"github.com/rogerio-castellano/warehouse-ledger/internal/db"
	"github.com/rogerio-castellano/warehouse-ledger/internal/http/handlers"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"github.com/rogerio-castellano/warehouse-ledger/internal/repo"
	"github.com/rogerio-castellano/warehouse-ledger/internal/search"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type productIndex interface {
	search.Index
	handlers.Searcher
}

type stores struct {
	catalog  repo.CatalogRepository
	ledger   repo.LedgerRepository
	cursors  repo.CursorRepository
	sessions repo.SessionRepository
	rules    repo.NotifyRuleRepository
	users    repo.UserRepository
	metrics  repo.MetricsRepository
	index    productIndex
	close    func()
}

// openStores uses Postgres when DATABASE_URL is set and falls back to
// in-memory repositories otherwise.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("⚠️ DATABASE_URL not set, using in-memory storage")
		return memoryStores(ctx)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, err
	}
	logger.Info("✅ Connected to Postgres")

	return &stores{
		catalog:  repo.NewPostgresCatalogRepository(database),
		ledger:   repo.NewPostgresLedgerRepository(database),
		cursors:  repo.NewPostgresCursorRepository(database),
		sessions: repo.NewPostgresSessionRepository(database),
		rules:    repo.NewPostgresNotifyRuleRepository(database),
		users:    repo.NewPostgresUserRepository(database),
		metrics:  repo.NewPostgresMetricsRepository(database),
		index:    search.NewPostgresIndex(database),
		close:    func() { database.Close() },
	}, nil
}

var defaultLocations = []models.Location{
	{Code: "SKL-0", Kind: models.LocationWarehouse, Title: "Warehouse 0"},
	{Code: "SKL-1", Kind: models.LocationWarehouse, Title: "Warehouse 1"},
	{Code: "SKL-2", Kind: models.LocationWarehouse, Title: "Warehouse 2"},
	{Code: "SKL-3", Kind: models.LocationWarehouse, Title: "Warehouse 3"},
	{Code: "SKL-4", Kind: models.LocationWarehouse, Title: "Warehouse 4"},
	{Code: "HALL", Kind: models.LocationHall, Title: "Sales hall"},
}

func memoryStores(ctx context.Context) (*stores, error) {
	catalog := repo.NewInMemoryCatalogRepository()
	for _, l := range defaultLocations {
		if _, err := catalog.CreateLocation(ctx, l); err != nil {
			return nil, err
		}
	}
	ledger := repo.NewInMemoryLedgerRepository(catalog)

	return &stores{
		catalog:  catalog,
		ledger:   ledger,
		cursors:  ledger,
		sessions: repo.NewInMemorySessionRepository(),
		rules:    repo.NewInMemoryNotifyRuleRepository(),
		users:    repo.NewInMemoryUserRepository(),
		metrics:  repo.NewInMemoryMetricsRepository(catalog, ledger),
		index:    search.NewMemoryIndex(),
		close:    func() {},
	}, nil
}

// seedAdmin creates the configured admin account on first start.
func seedAdmin(ctx context.Context, users repo.UserRepository, cfg *config.Config, logger *zap.Logger) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}
	_, err := users.GetByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repo.ErrUserNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := users.CreateUser(ctx, models.User{
		Username:     cfg.AdminUsername,
		PasswordHash: string(hashed),
		Role:         models.RoleAdmin,
	}); err != nil && !errors.Is(err, repo.ErrDuplicatedValueUnique) {
		return err
	}
	logger.Info("👤 admin account created", zap.String("username", cfg.AdminUsername))
	return nil
}

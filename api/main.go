package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/auth"
	"github.com/rogerio-castellano/warehouse-ledger/internal/catalog"
	"github.com/rogerio-castellano/warehouse-ledger/internal/config"
	"github.com/rogerio-castellano/warehouse-ledger/internal/http/handlers"
	rl "github.com/rogerio-castellano/warehouse-ledger/internal/http/rate_limiter"
	"github.com/rogerio-castellano/warehouse-ledger/internal/http/router"
	"github.com/rogerio-castellano/warehouse-ledger/internal/logging"
	"github.com/rogerio-castellano/warehouse-ledger/internal/notify"
	"github.com/rogerio-castellano/warehouse-ledger/internal/observability"
	"github.com/rogerio-castellano/warehouse-ledger/internal/redissvc"
	"github.com/rogerio-castellano/warehouse-ledger/internal/relay"
	"github.com/rogerio-castellano/warehouse-ledger/internal/schedule"
	"github.com/rogerio-castellano/warehouse-ledger/internal/search"
	"github.com/rogerio-castellano/warehouse-ledger/internal/session"
	"github.com/rogerio-castellano/warehouse-ledger/internal/stock"
	"go.uber.org/zap"
)

const archiveSweepJob = "archive-sweep"

type worker struct {
	name string
	run  func(context.Context) error
}

// @title Warehouse Ledger API
// @version 1.0
// @description REST API for warehouse stock, inventory sessions and stock notifications.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("❌ Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		stdlog.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		logger.Error("⚠️ Failed to set up tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("❌ Error during tracing shutdown", zap.Error(err))
		}
	}()

	auth.SetSecret(cfg.JWTSecret)

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("❌ Could not open storage", zap.Error(err))
	}
	defer st.close()

	if err := seedAdmin(ctx, st.users, cfg, logger); err != nil {
		logger.Fatal("❌ Could not seed admin account", zap.Error(err))
	}

	catalogService := catalog.NewService(st.catalog, st.ledger, logger.Named("catalog"))
	stockService := stock.NewService(st.ledger, catalogService, logger.Named("stock"))
	sessionManager := session.NewManager(st.sessions, stockService, catalogService, logger.Named("session"))

	var (
		digests    notify.DigestStore      = notify.NewMemoryDigestStore()
		watermarks schedule.WatermarkStore = schedule.NewMemoryWatermarks()
		transport  notify.Transport        = notify.NewLogTransport(logger.Named("notify"))
	)
	if cfg.RedisAddr != "" {
		rdb, err := redissvc.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal("❌ Could not connect to Redis", zap.Error(err))
		}
		defer rdb.Close()
		digests = notify.NewRedisDigestStore(rdb)
		watermarks = schedule.NewRedisWatermarks(rdb)
		logger.Info("✅ Connected to Redis", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Warn("⚠️ REDIS_ADDR not set, digests and watermarks are kept in memory")
	}
	if cfg.AMQPURL != "" {
		conn, ch, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Fatal("❌ Could not connect to RabbitMQ", zap.Error(err))
		}
		defer conn.Close()
		defer ch.Close()
		transport = notify.NewAMQPTransport(ch, cfg.AMQPExchange, logger.Named("notify"))
		logger.Info("✅ Connected to RabbitMQ", zap.String("exchange", cfg.AMQPExchange))
	}

	trigger, err := schedule.ParseTrigger(cfg.DigestTime, cfg.Location())
	if err != nil {
		logger.Fatal("❌ Invalid digest time", zap.Error(err))
	}

	engine := notify.NewEngine(notify.Deps{
		Events:     st.ledger,
		Cursors:    st.cursors,
		Rules:      st.rules,
		Products:   catalogService,
		Transport:  transport,
		Digests:    digests,
		Watermarks: watermarks,
	}, notify.Config{
		DefaultFloor: cfg.DefaultLowFloor,
		Trigger:      trigger,
		BatchSize:    cfg.BatchSize,
		PollInterval: cfg.PollInterval,
	}, logger.Named("notify"))

	searchSync := search.NewSync(catalogService, st.cursors, st.index, cfg.BatchSize, cfg.PollInterval, logger.Named("search"))

	archiveSweep := &schedule.Daily{
		Name:       archiveSweepJob,
		Trigger:    trigger,
		Watermarks: watermarks,
		Logger:     logger,
		Job: func(ctx context.Context, instant time.Time) error {
			ids, err := catalogService.ArchiveSweep(ctx, instant, cfg.ArchiveAfterDays)
			if err != nil {
				return err
			}
			logger.Info("🗄️ archive sweep finished", zap.Int("archived", len(ids)))
			return nil
		},
	}

	workers := []worker{
		{notify.ConsumerName, engine.Run},
		{search.ConsumerName, searchSync.Run},
		{"scheduler", (&schedule.Loop{
			Interval: 30 * time.Second,
			Jobs:     []*schedule.Daily{engine.DigestSchedule(), archiveSweep},
			Logger:   logger,
		}).Run},
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := relay.NewKafkaPublisher(st.ledger, st.cursors,
			relay.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic),
			cfg.BatchSize, cfg.PollInterval, logger.Named("relay"))
		defer publisher.Close()
		workers = append(workers, worker{relay.ConsumerName, publisher.Run})
		logger.Info("📡 Kafka relay enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("❌ Background worker stopped", zap.String("worker", w.name), zap.Error(err))
			}
		}()
	}
	go rl.StartVisitorCleanupLoop(ctx)

	handlers.SetLogger(logger.Named("http"))
	handlers.SetCatalogService(catalogService)
	handlers.SetStockService(stockService)
	handlers.SetSessionManager(sessionManager)
	handlers.SetRuleRepo(st.rules)
	handlers.SetUserRepo(st.users)
	handlers.SetMetricsRepo(st.metrics)
	handlers.SetSearchIndex(st.index)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("✅ Server running", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("❌ HTTP server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ HTTP server shutdown failed", zap.Error(err))
	}
	wg.Wait()
	logger.Info("👋 stopped")
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/ledger/internal/position/application"
	"github.com/wyfcoding/ledger/internal/position/domain"
	"github.com/wyfcoding/ledger/internal/position/infrastructure/catalog"
	"github.com/wyfcoding/ledger/internal/position/infrastructure/messaging"
	"github.com/wyfcoding/ledger/internal/position/infrastructure/persistence"
	"github.com/wyfcoding/ledger/internal/position/infrastructure/persistence/mysql"
	"github.com/wyfcoding/ledger/internal/position/infrastructure/persistence/redis"
	http_server "github.com/wyfcoding/ledger/internal/position/interfaces/http"
	"github.com/wyfcoding/ledger/pkg/cache"
	"github.com/wyfcoding/ledger/pkg/config"
	"github.com/wyfcoding/ledger/pkg/db"
	"github.com/wyfcoding/ledger/pkg/logger"
	"github.com/wyfcoding/ledger/pkg/metrics"
	"github.com/wyfcoding/ledger/pkg/middleware"
	"github.com/wyfcoding/ledger/pkg/mq"
	"github.com/wyfcoding/ledger/pkg/quantity"
	"github.com/wyfcoding/ledger/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/position/config.toml", "path to config file")
	flag.Parse()

	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "position: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	ctx := context.Background()
	logger.Info(ctx, "starting service", "service", cfg.ServiceName, "environment", cfg.Environment)

	// 3. Catalog
	cat, err := catalog.Load(cfg.Ledger.CatalogPath)
	if err != nil {
		return err
	}
	defaultPolicy, err := quantity.PolicyByName(cfg.Ledger.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("ledger.default_policy: %w", err)
	}

	// 4. Database
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.AutoMigrate(&mysql.PositionModel{}, &messaging.OutboxMessage{}); err != nil {
		return fmt.Errorf("migrate db failed: %w", err)
	}

	// 5. Metrics
	m := metrics.New(cfg.ServiceName)

	// 6. Infrastructure
	var (
		readRepo domain.PositionReadRepository
		limiter  ratelimit.RateLimiter
	)
	if cfg.Redis.Enabled() {
		rc, err := cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return err
		}
		defer rc.Close()
		readRepo = redis.NewPositionRedisRepository(rc, cat, time.Duration(cfg.Redis.TTL)*time.Second)
		limiter = ratelimit.NewRedisRateLimiter(rc.GetClient(), cfg.ServiceName)
	}

	repo := persistence.NewCompositePositionRepository(mysql.NewPositionRepository(database, cat), readRepo)
	publisher := messaging.NewOutboxEventPublisher(database)

	var relay *messaging.OutboxRelay
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			return err
		}
		defer producer.Close()
		relay = messaging.NewOutboxRelay(database, producer, messaging.RelayConfig{
			Topic:     cfg.Kafka.Topic,
			Interval:  time.Duration(cfg.Ledger.OutboxInterval) * time.Millisecond,
			BatchSize: cfg.Ledger.OutboxBatchSize,
			Retention: time.Duration(cfg.Ledger.OutboxRetention) * time.Hour,
		}, m)
	} else {
		logger.Warn(ctx, "kafka brokers not configured, outbox messages will accumulate")
	}

	// 7. Application
	appService := application.NewPositionService(repo, publisher, cat, application.Options{
		Collector:     m,
		DefaultPolicy: defaultPolicy,
	})

	// 8. Interfaces
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(m),
	)
	if limiter != nil {
		r.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit))
	}
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	http_server.NewPositionHandler(appService).RegisterRoutes(&r.RouterGroup)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		metricsSrv = &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
	}

	// 9. Start
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		logger.Info(gctx, "HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if metricsSrv != nil {
		g.Go(func() error {
			logger.Info(gctx, "metrics server starting", "addr", metricsSrv.Addr, "path", cfg.Metrics.Path)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	// 10. Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(context.Background(), "server exited with error", "error", err)
		return err
	}
	logger.Info(context.Background(), "server stopped")
	return nil
}

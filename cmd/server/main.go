package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/konveksi/admin-gateway/config"
	"github.com/konveksi/admin-gateway/internal/app/controller"
	"github.com/konveksi/admin-gateway/internal/app/repository"
	"github.com/konveksi/admin-gateway/internal/app/service"
	"github.com/konveksi/admin-gateway/internal/db"
	"github.com/konveksi/admin-gateway/internal/middleware"
	"github.com/konveksi/admin-gateway/internal/router"
	"github.com/konveksi/admin-gateway/internal/scheduler"
	"github.com/konveksi/admin-gateway/internal/storage"
	"github.com/konveksi/admin-gateway/internal/upstream"
	"github.com/konveksi/admin-gateway/internal/websocket"
	"github.com/konveksi/admin-gateway/pkg/logger"
	"github.com/konveksi/admin-gateway/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logger.Initialize(logger.ConfigForEnvironment(cfg.Server.Environment))

	logger.Info("Starting Konveksi admin gateway", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"upstream":    cfg.Upstream.BaseURL,
		"timezone":    cfg.Business.Timezone,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Journal database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Snapshot cache
	var snapshots repository.SnapshotRepository
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		defer redis.Close()
		snapshots = repository.NewRedisSnapshotRepository(redis.GetClient(), cfg.Redis.SnapshotTTL)
	} else {
		logger.Warn("Redis disabled, progress snapshots are kept in memory")
		snapshots = repository.NewMemorySnapshotRepository(cfg.Redis.SnapshotTTL)
	}

	loc := cfg.Business.Location()

	backend, err := upstream.NewClient(upstream.Config{
		BaseURL:    cfg.Upstream.BaseURL,
		Timeout:    cfg.Upstream.Timeout,
		RetryCount: cfg.Upstream.RetryCount,
		Location:   loc,
	})
	if err != nil {
		logger.Fatal("Failed to create upstream client", err)
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	// Repositories
	activityRepo := repository.NewActivityRepository(db.GetDB())
	reportRepo := repository.NewReportRepository(db.GetDB())

	// Services
	activityService := service.NewActivityService(activityRepo)
	progressService := service.NewProgressService(backend, snapshots, activityService, hub, service.ProgressConfig{
		ConfirmAttempts: cfg.Upstream.ConfirmAttempts,
		ConfirmBackoff:  cfg.Upstream.ConfirmBackoff,
		Location:        loc,
	})
	orderService := service.NewOrderService(backend, snapshots, activityService)
	catalogueService := service.NewCatalogueService(backend)

	var uploader service.ReportUploader
	if cfg.S3.Enabled() {
		uploader = storage.NewS3Storage(ctx, cfg.S3)
		logger.Info("Recap exports go to S3", map[string]interface{}{
			"bucket": cfg.S3.Bucket,
			"region": cfg.S3.Region,
		})
	}
	reportService := service.NewReportService(progressService, uploader, reportRepo, activityService, loc)

	// Controllers
	healthChecks := map[string]controller.HealthCheck{
		"database": func(ctx context.Context) error { return db.Ping(ctx, db.GetDB()) },
	}
	if cfg.Redis.Enabled {
		healthChecks["redis"] = redis.Ping
	}

	r := router.NewRouter(
		controller.NewOrderController(orderService),
		controller.NewProgressController(progressService, hub, cfg.CORS.AllowedOrigins, loc),
		controller.NewActivityController(activityService),
		controller.NewRecapController(reportService),
		controller.NewCatalogueController(catalogueService),
		controller.NewHealthController(healthChecks),
		middleware.NewActorMiddleware(),
		cfg,
	)

	refresher := scheduler.NewProgressRefreshScheduler(
		progressService,
		cfg.Scheduler.RefreshSpec,
		cfg.Scheduler.WatchWindow,
		cfg.Upstream.ServiceToken,
	)
	if err := refresher.Start(); err != nil {
		logger.Fatal("Failed to start progress refresh scheduler", err)
	}
	defer refresher.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down server gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", err)
	}
	logger.Info("Server stopped successfully")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/konveksi/admin-gateway/config"
	"github.com/konveksi/admin-gateway/internal/app/repository"
	"github.com/konveksi/admin-gateway/internal/app/service"
	"github.com/konveksi/admin-gateway/internal/db"
	"github.com/konveksi/admin-gateway/internal/storage"
	"github.com/konveksi/admin-gateway/internal/upstream"
	"github.com/konveksi/admin-gateway/pkg/logger"
)

func main() {
	orderID := flag.Int64("order", 0, "order id to recap")
	outDir := flag.String("out", ".", "directory the workbook is written to")
	token := flag.String("token", "", "bearer token for the backend (defaults to UPSTREAM_SERVICE_TOKEN)")
	upload := flag.Bool("upload", false, "upload to S3 and record the export instead of writing a file")
	flag.Parse()

	if *orderID <= 0 {
		log.Fatal("Usage: go run cmd/recap/main.go -order <id> [-out dir] [-upload]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.ConfigForEnvironment(cfg.Server.Environment))

	if *token == "" {
		*token = cfg.Upstream.ServiceToken
	}

	loc := cfg.Business.Location()
	backend, err := upstream.NewClient(upstream.Config{
		BaseURL:    cfg.Upstream.BaseURL,
		Timeout:    cfg.Upstream.Timeout,
		RetryCount: cfg.Upstream.RetryCount,
		Location:   loc,
	})
	if err != nil {
		log.Fatal("Failed to create upstream client:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = upstream.WithToken(ctx, *token)

	snapshots := repository.NewMemorySnapshotRepository(time.Minute)

	if !*upload {
		progressService := service.NewProgressService(backend, snapshots, nil, nil, service.ProgressConfig{Location: loc})
		reportService := service.NewReportService(progressService, nil, nil, nil, loc)

		report, err := reportService.Build(ctx, *orderID)
		if err != nil {
			log.Fatal("Failed to build recap:", err)
		}

		path := filepath.Join(*outDir, report.FileName)
		if err := os.WriteFile(path, report.Data, 0o644); err != nil {
			log.Fatal("Failed to write recap:", err)
		}
		fmt.Printf("Recap written to %s (%d bytes)\n", path, len(report.Data))
		return
	}

	if !cfg.S3.Enabled() {
		log.Fatal("S3 is not configured, set AWS_S3_BUCKET and AWS_REGION to upload")
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	activityService := service.NewActivityService(repository.NewActivityRepository(db.GetDB()))
	progressService := service.NewProgressService(backend, snapshots, activityService, nil, service.ProgressConfig{Location: loc})
	reportService := service.NewReportService(
		progressService,
		storage.NewS3Storage(ctx, cfg.S3),
		repository.NewReportRepository(db.GetDB()),
		activityService,
		loc,
	)

	export, err := reportService.Export(ctx, *orderID)
	if err != nil {
		log.Fatal("Failed to export recap:", err)
	}
	fmt.Printf("Recap uploaded: %s\n", export.URL)
}

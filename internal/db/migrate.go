package db

import (
	"github.com/konveksi/admin-gateway/internal/app/model"
	"github.com/konveksi/admin-gateway/pkg/logger"
)

// Models lists every table the gateway owns. Orders and progress live on
// the backend and are never stored here.
func Models() []interface{} {
	return []interface{}{
		&model.ProgressActivity{},
		&model.ReportExport{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

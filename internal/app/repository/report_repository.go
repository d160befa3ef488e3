package repository

import (
	"github.com/konveksi/admin-gateway/internal/app/model"
	"gorm.io/gorm"
)

type ReportRepository interface {
	Create(export *model.ReportExport) error
	ListByOrder(orderID int64, limit int) ([]model.ReportExport, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(export *model.ReportExport) error {
	return r.db.Create(export).Error
}

func (r *reportRepository) ListByOrder(orderID int64, limit int) ([]model.ReportExport, error) {
	var exports []model.ReportExport
	query := r.db.Where("order_id = ?", orderID).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&exports).Error; err != nil {
		return nil, err
	}
	return exports, nil
}

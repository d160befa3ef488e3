package repository

import (
	"github.com/konveksi/admin-gateway/internal/app/model"
	"gorm.io/gorm"
)

// ActivityFilter narrows a journal listing. Zero values match everything.
type ActivityFilter struct {
	Action  model.ActivityAction
	Outcome model.ActivityOutcome
	Limit   int
	Offset  int
}

type ActivityRepository interface {
	Create(activity *model.ProgressActivity) error
	ListByOrder(orderID int64, filter ActivityFilter) ([]model.ProgressActivity, int64, error)
	CountByOutcome(orderID int64) (map[model.ActivityOutcome]int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(activity *model.ProgressActivity) error {
	if activity.StageLabels == nil {
		activity.StageLabels = []string{}
	}
	return r.db.Create(activity).Error
}

// ListByOrder returns the newest entries first.
func (r *activityRepository) ListByOrder(orderID int64, filter ActivityFilter) ([]model.ProgressActivity, int64, error) {
	var activities []model.ProgressActivity
	var total int64

	query := r.db.Model(&model.ProgressActivity{}).Where("order_id = ?", orderID)
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Outcome != "" {
		query = query.Where("outcome = ?", filter.Outcome)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Order("created_at DESC, id DESC").Find(&activities).Error; err != nil {
		return nil, 0, err
	}
	return activities, total, nil
}

func (r *activityRepository) CountByOutcome(orderID int64) (map[model.ActivityOutcome]int64, error) {
	var rows []struct {
		Outcome model.ActivityOutcome
		Count   int64
	}
	err := r.db.Model(&model.ProgressActivity{}).
		Select("outcome, COUNT(*) AS count").
		Where("order_id = ?", orderID).
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.ActivityOutcome]int64, len(rows))
	for _, row := range rows {
		counts[row.Outcome] = row.Count
	}
	return counts, nil
}

package service

import (
	"context"

	"github.com/konveksi/admin-gateway/internal/app/model"
	"github.com/konveksi/admin-gateway/internal/app/repository"
	"github.com/konveksi/admin-gateway/pkg/logger"
)

// ActivityService writes and reads the mutation journal.
type ActivityService interface {
	Record(ctx context.Context, activity model.ProgressActivity)
	List(orderID int64, filter repository.ActivityFilter) ([]model.ProgressActivity, int64, error)
	Outcomes(orderID int64) (map[model.ActivityOutcome]int64, error)
}

type activityService struct {
	repo repository.ActivityRepository
}

func NewActivityService(repo repository.ActivityRepository) ActivityService {
	return &activityService{repo: repo}
}

// Record never fails the caller: a journal write error is logged and the
// mutation result stands.
func (s *activityService) Record(ctx context.Context, activity model.ProgressActivity) {
	actor := model.ActorFromContext(ctx)
	activity.ActorID = actor.ID
	activity.ActorName = actor.Name
	activity.RequestID = actor.RequestID

	if err := s.repo.Create(&activity); err != nil {
		logger.Error("Failed to record progress activity", err, map[string]interface{}{
			"order_id": activity.OrderID,
			"action":   activity.Action,
			"outcome":  activity.Outcome,
		})
		return
	}

	logger.Debug("Progress activity recorded", map[string]interface{}{
		"activity_id": activity.ID,
		"order_id":    activity.OrderID,
		"action":      activity.Action,
		"outcome":     activity.Outcome,
	})
}

func (s *activityService) List(orderID int64, filter repository.ActivityFilter) ([]model.ProgressActivity, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.repo.ListByOrder(orderID, filter)
}

func (s *activityService) Outcomes(orderID int64) (map[model.ActivityOutcome]int64, error) {
	return s.repo.CountByOutcome(orderID)
}

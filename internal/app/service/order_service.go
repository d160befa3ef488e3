package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/konveksi/admin-gateway/internal/app/model"
	"github.com/konveksi/admin-gateway/internal/app/repository"
	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/konveksi/admin-gateway/internal/upstream"
	"github.com/konveksi/admin-gateway/pkg/logger"
)

var (
	ErrUnknownAction        = errors.New("unknown order action")
	ErrTransitionNotAllowed = errors.New("order action not allowed in current status")
)

// OrderListQuery is the dashboard's order table filter.
type OrderListQuery struct {
	PageLimit      int
	PageNumber     int
	Search         string
	ApprovalStatus progress.ApprovalStatus
	PaymentStatus  progress.PaymentStatus
}

type OrderService interface {
	List(ctx context.Context, q OrderListQuery) (upstream.Envelope[progress.Order], error)
	Get(ctx context.Context, orderID int64) (progress.Order, error)
	Transition(ctx context.Context, orderID int64, action upstream.OrderAction) (progress.Order, error)
}

type orderService struct {
	backend    Backend
	snapshots  repository.SnapshotRepository
	activities ActivityService
}

func NewOrderService(backend Backend, snapshots repository.SnapshotRepository, activities ActivityService) OrderService {
	return &orderService{
		backend:    backend,
		snapshots:  snapshots,
		activities: activities,
	}
}

func (s *orderService) List(ctx context.Context, q OrderListQuery) (upstream.Envelope[progress.Order], error) {
	filters := map[string]string{}
	if q.ApprovalStatus != 0 {
		filters["filterApprovalStatus"] = strconv.Itoa(int(q.ApprovalStatus))
	}
	if q.PaymentStatus != 0 {
		filters["filterPaymentStatus"] = strconv.Itoa(int(q.PaymentStatus))
	}

	env, err := s.backend.ListOrders(ctx, upstream.ListQuery{
		PageLimit:  q.PageLimit,
		PageNumber: q.PageNumber,
		Search:     q.Search,
		Filters:    filters,
	})
	if err != nil {
		logger.Error("Failed to list orders", err, map[string]interface{}{
			"search": q.Search,
		})
		return upstream.Envelope[progress.Order]{}, err
	}
	return env, nil
}

func (s *orderService) Get(ctx context.Context, orderID int64) (progress.Order, error) {
	order, err := s.backend.GetOrder(ctx, orderID)
	if err != nil {
		logger.Error("Failed to get order", err, map[string]interface{}{
			"order_id": orderID,
		})
		return progress.Order{}, err
	}
	return order, nil
}

// CheckTransition reports whether action may run against order.
func CheckTransition(order progress.Order, action upstream.OrderAction) error {
	allowed := false
	switch action {
	case upstream.ActionApprove, upstream.ActionReject:
		allowed = order.ApprovalStatus == progress.ApprovalPending
	case upstream.ActionDone:
		allowed = order.ApprovalStatus == progress.ApprovalInProgress
	case upstream.ActionLockProgress:
		allowed = order.ApprovalStatus == progress.ApprovalInProgress && !order.Locked()
	case upstream.ActionUnlockProgress:
		allowed = order.ApprovalStatus == progress.ApprovalInProgress && order.Locked()
	case upstream.ActionDownPayment:
		allowed = order.PaymentStatus == progress.PaymentUnpaid
	case upstream.ActionSettlement:
		allowed = order.PaymentStatus == progress.PaymentUnpaid || order.PaymentStatus == progress.PaymentDownPayment
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if !allowed {
		return fmt.Errorf("%w: %s on order %d (approval %s, payment %s)",
			ErrTransitionNotAllowed, action, order.ID, order.ApprovalStatus, order.PaymentStatus)
	}
	return nil
}

// Transition checks the action against the live order, runs it and returns
// the order as the backend reports it afterwards.
func (s *orderService) Transition(ctx context.Context, orderID int64, action upstream.OrderAction) (progress.Order, error) {
	entry := model.ProgressActivity{
		OrderID: orderID,
		Action:  model.ActivityOrderAction,
		Message: string(action),
	}

	order, err := s.backend.GetOrder(ctx, orderID)
	if err != nil {
		return progress.Order{}, err
	}

	if err := CheckTransition(order, action); err != nil {
		logger.Warn("Order action rejected", map[string]interface{}{
			"order_id": orderID,
			"action":   action,
			"error":    err.Error(),
		})
		entry.Outcome = model.OutcomeRejected
		entry.Message = err.Error()
		s.activities.Record(ctx, entry)
		return progress.Order{}, err
	}

	if err := s.backend.TransitionOrder(ctx, orderID, action); err != nil {
		logger.Error("Failed to run order action", err, map[string]interface{}{
			"order_id": orderID,
			"action":   action,
		})
		entry.Outcome = outcomeOf(err)
		entry.Message = fmt.Sprintf("%s: %v", action, err)
		s.activities.Record(ctx, entry)
		return progress.Order{}, err
	}

	if err := s.snapshots.Invalidate(ctx, orderID); err != nil {
		logger.Warn("Failed to invalidate progress state", map[string]interface{}{
			"order_id": orderID,
			"error":    err.Error(),
		})
	}

	entry.Outcome = model.OutcomeConfirmed
	s.activities.Record(ctx, entry)

	logger.Info("Order action applied", map[string]interface{}{
		"order_id": orderID,
		"action":   action,
	})

	updated, err := s.backend.GetOrder(ctx, orderID)
	if err != nil {
		// The action went through; report the order as it was before.
		logger.Warn("Failed to reload order after action", map[string]interface{}{
			"order_id": orderID,
			"error":    err.Error(),
		})
		return order, nil
	}
	return updated, nil
}

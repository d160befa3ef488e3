package service

import (
	"context"
	"errors"

	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/konveksi/admin-gateway/internal/upstream"
)

// Backend is the part of the upstream client the services depend on.
type Backend interface {
	ListOrders(ctx context.Context, q upstream.ListQuery) (upstream.Envelope[progress.Order], error)
	GetOrder(ctx context.Context, orderID int64) (progress.Order, error)
	TransitionOrder(ctx context.Context, orderID int64, action upstream.OrderAction) error

	ListProgressMains(ctx context.Context, orderID int64) ([]progress.ProgressMain, error)
	ListProgressItems(ctx context.Context, mainID int64) ([]progress.ProgressItem, error)
	ListProgressDetails(ctx context.Context, itemID int64) ([]progress.ProgressDetail, error)
	CreateProgressItem(ctx context.Context, mainID int64, item upstream.NewProgressItem) error
	DeleteProgressItem(ctx context.Context, itemID int64) error
	CreateProgressDetail(ctx context.Context, itemID int64, detail upstream.ProgressDetailInput) error
	UpdateProgressDetail(ctx context.Context, detailID int64, detail upstream.ProgressDetailInput) error
	DeleteProgressDetail(ctx context.Context, detailID int64) error

	ListProducts(ctx context.Context, q upstream.ListQuery) (upstream.Envelope[upstream.Product], error)
	ListCategories(ctx context.Context) ([]upstream.Category, error)
	ListSubcategories(ctx context.Context) ([]upstream.Subcategory, error)
	ListUsers(ctx context.Context, q upstream.ListQuery) (upstream.Envelope[progress.User], error)
}

// ProgressPublisher receives every newly confirmed summary of an order.
type ProgressPublisher interface {
	PublishProgress(orderID int64, summary progress.Summary)
}

type noopPublisher struct{}

func (noopPublisher) PublishProgress(int64, progress.Summary) {}

// isNetworkFailure separates "backend unreachable" from "backend said no".
func isNetworkFailure(err error) bool {
	return errors.Is(err, upstream.ErrNetwork) ||
		errors.Is(err, upstream.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

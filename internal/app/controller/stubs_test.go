package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/konveksi/admin-gateway/internal/app/model"
	"github.com/konveksi/admin-gateway/internal/app/repository"
	"github.com/konveksi/admin-gateway/internal/app/service"
	"github.com/konveksi/admin-gateway/internal/middleware"
	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/konveksi/admin-gateway/internal/upstream"
)

var jakarta = time.FixedZone("WIB", 7*60*60)

// stubProgressService records the last request and answers with result/err.
type stubProgressService struct {
	service.ProgressService

	summary   progress.Summary
	sizes     *service.SizeOverview
	result    service.MutationResult
	err       error
	refreshed bool

	itemReq   progress.ItemRequest
	detailReq progress.DetailRequest
	deleted   [3]int64
	confirmed bool
}

func (s *stubProgressService) Summary(context.Context, int64) (progress.Summary, error) {
	return s.summary, s.err
}

func (s *stubProgressService) Refresh(context.Context, int64) (progress.State, error) {
	s.refreshed = true
	return progress.State{}, s.err
}

func (s *stubProgressService) Sizes(_ context.Context, _, mainID int64) (*service.SizeOverview, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.sizes, nil
}

func (s *stubProgressService) CreateItem(_ context.Context, _ int64, req progress.ItemRequest) (service.MutationResult, error) {
	s.itemReq = req
	return s.result, s.err
}

func (s *stubProgressService) DeleteItem(_ context.Context, orderID, itemID int64, confirmed bool) (service.MutationResult, error) {
	s.deleted = [3]int64{orderID, itemID, 0}
	s.confirmed = confirmed
	return s.result, s.err
}

func (s *stubProgressService) CreateDetail(_ context.Context, _ int64, req progress.DetailRequest) (service.MutationResult, error) {
	s.detailReq = req
	return s.result, s.err
}

func (s *stubProgressService) UpdateDetail(_ context.Context, _ int64, req progress.DetailRequest) (service.MutationResult, error) {
	s.detailReq = req
	return s.result, s.err
}

func (s *stubProgressService) DeleteDetail(_ context.Context, orderID, itemID, detailID int64, confirmed bool) (service.MutationResult, error) {
	s.deleted = [3]int64{orderID, itemID, detailID}
	s.confirmed = confirmed
	return s.result, s.err
}

type stubOrderService struct {
	service.OrderService

	order  progress.Order
	list   upstream.Envelope[progress.Order]
	query  service.OrderListQuery
	action upstream.OrderAction
	err    error
}

func (s *stubOrderService) List(_ context.Context, q service.OrderListQuery) (upstream.Envelope[progress.Order], error) {
	s.query = q
	return s.list, s.err
}

func (s *stubOrderService) Get(context.Context, int64) (progress.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) Transition(_ context.Context, _ int64, action upstream.OrderAction) (progress.Order, error) {
	s.action = action
	return s.order, s.err
}

type stubReportService struct {
	service.ReportService

	report  *service.RecapReport
	export  *model.ReportExport
	history []model.ReportExport
	err     error
}

func (s *stubReportService) Build(context.Context, int64) (*service.RecapReport, error) {
	return s.report, s.err
}

func (s *stubReportService) Export(context.Context, int64) (*model.ReportExport, error) {
	return s.export, s.err
}

func (s *stubReportService) History(int64) ([]model.ReportExport, error) {
	return s.history, s.err
}

type stubActivityService struct {
	service.ActivityService

	list     []model.ProgressActivity
	filter   repository.ActivityFilter
	outcomes map[model.ActivityOutcome]int64
}

func (s *stubActivityService) List(_ int64, filter repository.ActivityFilter) ([]model.ProgressActivity, int64, error) {
	s.filter = filter
	return s.list, int64(len(s.list)), nil
}

func (s *stubActivityService) Outcomes(int64) (map[model.ActivityOutcome]int64, error) {
	return s.outcomes, nil
}

type stubCatalogueService struct {
	service.CatalogueService

	products upstream.Envelope[upstream.Product]
	filters  *service.CatalogueFilters
	users    upstream.Envelope[progress.User]
	query    service.ProductListQuery
	userQ    upstream.ListQuery
}

func (s *stubCatalogueService) ListProducts(_ context.Context, q service.ProductListQuery) (upstream.Envelope[upstream.Product], error) {
	s.query = q
	return s.products, nil
}

func (s *stubCatalogueService) Filters(context.Context) (*service.CatalogueFilters, error) {
	return s.filters, nil
}

func (s *stubCatalogueService) ListUsers(_ context.Context, q upstream.ListQuery) (upstream.Envelope[progress.User], error) {
	s.userQ = q
	return s.users, nil
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	return r
}

func perform(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

package service

import (
	"context"
	"strconv"

	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/konveksi/admin-gateway/internal/upstream"
	"github.com/konveksi/admin-gateway/pkg/logger"
	"golang.org/x/sync/errgroup"
)

type ProductListQuery struct {
	PageLimit  int
	PageNumber int
	Search     string
	CategoryID int64
}

// CatalogueFilters feeds the category/subcategory dropdowns.
type CatalogueFilters struct {
	Categories    []upstream.Category    `json:"categories"`
	Subcategories []upstream.Subcategory `json:"subcategories"`
}

type CatalogueService interface {
	ListProducts(ctx context.Context, q ProductListQuery) (upstream.Envelope[upstream.Product], error)
	Filters(ctx context.Context) (*CatalogueFilters, error)
	ListUsers(ctx context.Context, q upstream.ListQuery) (upstream.Envelope[progress.User], error)
}

type catalogueService struct {
	backend Backend
}

func NewCatalogueService(backend Backend) CatalogueService {
	return &catalogueService{backend: backend}
}

func (s *catalogueService) ListProducts(ctx context.Context, q ProductListQuery) (upstream.Envelope[upstream.Product], error) {
	filters := map[string]string{}
	if q.CategoryID != 0 {
		filters["filterCategory"] = strconv.FormatInt(q.CategoryID, 10)
	}
	env, err := s.backend.ListProducts(ctx, upstream.ListQuery{
		PageLimit:  q.PageLimit,
		PageNumber: q.PageNumber,
		Search:     q.Search,
		Filters:    filters,
	})
	if err != nil {
		logger.Error("Failed to list products", err, map[string]interface{}{
			"search":      q.Search,
			"category_id": q.CategoryID,
		})
		return upstream.Envelope[upstream.Product]{}, err
	}
	return env, nil
}

// Filters loads categories and subcategories in parallel.
func (s *catalogueService) Filters(ctx context.Context) (*CatalogueFilters, error) {
	out := &CatalogueFilters{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Categories, err = s.backend.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Subcategories, err = s.backend.ListSubcategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("Failed to load catalogue filters", err)
		return nil, err
	}

	if out.Categories == nil {
		out.Categories = []upstream.Category{}
	}
	if out.Subcategories == nil {
		out.Subcategories = []upstream.Subcategory{}
	}
	return out, nil
}

func (s *catalogueService) ListUsers(ctx context.Context, q upstream.ListQuery) (upstream.Envelope[progress.User], error) {
	env, err := s.backend.ListUsers(ctx, q)
	if err != nil {
		logger.Error("Failed to list users", err, map[string]interface{}{
			"search": q.Search,
		})
		return upstream.Envelope[progress.User]{}, err
	}
	return env, nil
}

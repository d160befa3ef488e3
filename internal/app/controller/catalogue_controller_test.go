package controller

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/konveksi/admin-gateway/internal/app/service"
	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/konveksi/admin-gateway/internal/upstream"
	"github.com/stretchr/testify/assert"
)

func setupCatalogueControllerTest(t *testing.T) (*gin.Engine, *stubCatalogueService) {
	stub := &stubCatalogueService{
		filters: &service.CatalogueFilters{Categories: []upstream.Category{{ID: 1, Name: "Kaos"}}, Subcategories: []upstream.Subcategory{}},
		users:   upstream.Envelope[progress.User]{Kind: upstream.KindPlain, Items: []progress.User{{ID: 7, Name: "Sari"}}},
	}
	ctrl := NewCatalogueController(stub)

	r := newTestEngine()
	r.GET("/catalogue/products", ctrl.ListProducts)
	r.GET("/catalogue/filters", ctrl.GetFilters)
	r.GET("/users", ctrl.ListUsers)
	return r, stub
}

func TestListProducts_PassesCategory(t *testing.T) {
	r, stub := setupCatalogueControllerTest(t)

	w := perform(t, r, http.MethodGet, "/catalogue/products?filterCategory=3&search=polo", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), stub.query.CategoryID)
	assert.Equal(t, "polo", stub.query.Search)
	assert.Equal(t, 10, stub.query.PageLimit)
}

func TestGetFilters(t *testing.T) {
	r, _ := setupCatalogueControllerTest(t)

	w := perform(t, r, http.MethodGet, "/catalogue/filters", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subcategories":[]`)
}

func TestListUsers_DefaultsToAll(t *testing.T) {
	r, stub := setupCatalogueControllerTest(t)

	w := perform(t, r, http.MethodGet, "/users", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, -1, stub.userQ.PageLimit)
	assert.Contains(t, w.Body.String(), "Sari")
}

func TestHealth_Degraded(t *testing.T) {
	ctrl := NewHealthController(map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	r := newTestEngine()
	r.GET("/health", ctrl.Health)

	w := perform(t, r, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"unhealthy"`)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

package service

import (
	"context"
	"testing"

	"github.com/konveksi/admin-gateway/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogueService_Filters(t *testing.T) {
	backend := newFakeBackend()
	backend.categories = []upstream.Category{{ID: 1, Name: "Kaos"}}
	svc := NewCatalogueService(backend)

	filters, err := svc.Filters(context.Background())

	require.NoError(t, err)
	assert.Len(t, filters.Categories, 1)
	assert.NotNil(t, filters.Subcategories, "missing list becomes empty, not null")
	assert.Empty(t, filters.Subcategories)
}

func TestCatalogueService_ListProductsAndUsers(t *testing.T) {
	backend := newFakeBackend()
	backend.products = []upstream.Product{{ID: 4, Name: "Polo", CategoryID: 1}}
	svc := NewCatalogueService(backend)

	env, err := svc.ListProducts(context.Background(), ProductListQuery{CategoryID: 1})
	require.NoError(t, err)
	assert.Equal(t, "Polo", env.Items[0].Name)

	users, err := svc.ListUsers(context.Background(), upstream.All())
	require.NoError(t, err)
	assert.Len(t, users.Items, 3)
}

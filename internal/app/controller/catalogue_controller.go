package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/konveksi/admin-gateway/internal/app/service"
	"github.com/konveksi/admin-gateway/internal/upstream"
)

type CatalogueController struct {
	catalogueService service.CatalogueService
}

func NewCatalogueController(catalogueService service.CatalogueService) *CatalogueController {
	return &CatalogueController{catalogueService: catalogueService}
}

// ListProducts returns one page of catalogue products
// GET /api/v1/catalogue/products
func (ctrl *CatalogueController) ListProducts(c *gin.Context) {
	env, err := ctrl.catalogueService.ListProducts(c.Request.Context(), service.ProductListQuery{
		PageLimit:  queryInt(c, "pageLimit", 10),
		PageNumber: queryInt(c, "pageNumber", 1),
		Search:     c.Query("search"),
		CategoryID: queryInt64(c, "filterCategory"),
	})
	if err != nil {
		respondError(c, err, "products")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": env})
}

// GetFilters returns the category and subcategory lists
// GET /api/v1/catalogue/filters
func (ctrl *CatalogueController) GetFilters(c *gin.Context) {
	filters, err := ctrl.catalogueService.Filters(c.Request.Context())
	if err != nil {
		respondError(c, err, "catalogue filters")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": filters})
}

// ListUsers returns the workers that can be assigned to progress items
// GET /api/v1/users
func (ctrl *CatalogueController) ListUsers(c *gin.Context) {
	env, err := ctrl.catalogueService.ListUsers(c.Request.Context(), upstream.ListQuery{
		PageLimit:  queryInt(c, "pageLimit", -1),
		PageNumber: queryInt(c, "pageNumber", 1),
		Search:     c.Query("search"),
	})
	if err != nil {
		respondError(c, err, "users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": env})
}

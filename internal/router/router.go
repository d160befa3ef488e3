package router

import (
	"github.com/gin-gonic/gin"
	"github.com/konveksi/admin-gateway/config"
	"github.com/konveksi/admin-gateway/internal/app/controller"
	"github.com/konveksi/admin-gateway/internal/middleware"
)

type Router struct {
	orderController     *controller.OrderController
	progressController  *controller.ProgressController
	activityController  *controller.ActivityController
	recapController     *controller.RecapController
	catalogueController *controller.CatalogueController
	healthController    *controller.HealthController
	actorMiddleware     *middleware.ActorMiddleware
	config              *config.Config
}

func NewRouter(
	orderController *controller.OrderController,
	progressController *controller.ProgressController,
	activityController *controller.ActivityController,
	recapController *controller.RecapController,
	catalogueController *controller.CatalogueController,
	healthController *controller.HealthController,
	actorMiddleware *middleware.ActorMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		orderController:     orderController,
		progressController:  progressController,
		activityController:  activityController,
		recapController:     recapController,
		catalogueController: catalogueController,
		healthController:    healthController,
		actorMiddleware:     actorMiddleware,
		config:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", r.healthController.Health)

	v1 := router.Group("/api/v1")
	v1.Use(r.actorMiddleware.RequireActor())
	{
		orders := v1.Group("/orders")
		{
			orders.GET("", r.orderController.ListOrders)
			orders.GET("/:id", r.orderController.GetOrder)
			orders.PUT("/:id/:action", r.orderController.TransitionOrder)

			orders.GET("/:id/progress", r.progressController.GetProgress)
			orders.GET("/:id/progress/sizes", r.progressController.GetSizes)
			orders.GET("/:id/progress/stream", r.progressController.StreamProgress)
			orders.POST("/:id/progress/items", r.progressController.CreateItem)
			orders.DELETE("/:id/progress/items/:itemId", r.progressController.DeleteItem)
			orders.POST("/:id/progress/items/:itemId/details", r.progressController.CreateDetail)
			orders.PUT("/:id/progress/items/:itemId/details/:detailId", r.progressController.UpdateDetail)
			orders.DELETE("/:id/progress/items/:itemId/details/:detailId", r.progressController.DeleteDetail)

			orders.GET("/:id/activities", r.activityController.ListActivities)

			orders.GET("/:id/recap", r.recapController.DownloadRecap)
			orders.POST("/:id/recap/export", r.recapController.ExportRecap)
			orders.GET("/:id/recap/exports", r.recapController.ListExports)
		}

		catalogue := v1.Group("/catalogue")
		{
			catalogue.GET("/products", r.catalogueController.ListProducts)
			catalogue.GET("/filters", r.catalogueController.GetFilters)
		}

		v1.GET("/users", r.catalogueController.ListUsers)
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

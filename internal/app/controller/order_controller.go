package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/konveksi/admin-gateway/internal/app/service"
	"github.com/konveksi/admin-gateway/internal/middleware"
	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/konveksi/admin-gateway/internal/upstream"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

// ListOrders returns one page of orders
// GET /api/v1/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	q := service.OrderListQuery{
		PageLimit:      queryInt(c, "pageLimit", 10),
		PageNumber:     queryInt(c, "pageNumber", 1),
		Search:         c.Query("search"),
		ApprovalStatus: progress.ApprovalStatus(queryInt(c, "filterApprovalStatus", 0)),
		PaymentStatus:  progress.PaymentStatus(queryInt(c, "filterPaymentStatus", 0)),
	}

	env, err := ctrl.orderService.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err, "orders")
		return
	}

	log.Info("Orders listed", map[string]interface{}{
		"count":    len(env.Items),
		"envelope": env.Kind.String(),
	})
	c.JSON(http.StatusOK, gin.H{"data": env})
}

// GetOrder returns one order with its items and sizes
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.Get(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err, "order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

// TransitionOrder runs a workflow action such as approve or lock-progress
// PUT /api/v1/orders/:id/:action
func (ctrl *OrderController) TransitionOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	action := upstream.OrderAction(c.Param("action"))

	order, err := ctrl.orderService.Transition(c.Request.Context(), orderID, action)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	log.Info("Order action applied", map[string]interface{}{
		"order_id": orderID,
		"action":   action,
	})
	c.JSON(http.StatusOK, gin.H{"data": order})
}

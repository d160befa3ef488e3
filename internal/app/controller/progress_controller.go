package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/konveksi/admin-gateway/internal/app/service"
	"github.com/konveksi/admin-gateway/internal/errors"
	"github.com/konveksi/admin-gateway/internal/middleware"
	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/konveksi/admin-gateway/internal/websocket"
)

type ProgressController struct {
	progressService service.ProgressService
	hub             *websocket.Hub
	upgrader        gorillaws.Upgrader
	loc             *time.Location
}

func NewProgressController(progressService service.ProgressService, hub *websocket.Hub, allowedOrigins []string, loc *time.Location) *ProgressController {
	if loc == nil {
		loc = time.UTC
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &ProgressController{
		progressService: progressService,
		hub:             hub,
		loc:             loc,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

type CreateItemRequest struct {
	MainID          int64    `json:"opmId"`
	OrderItemSizeID int64    `json:"oisId"`
	UserID          int64    `json:"uId"`
	Amount          int      `json:"opAmount"`
	Fee             *float64 `json:"opFee"`
	DeadlineAt      string   `json:"opDeadlineAt"`
}

type DetailInput struct {
	Amount     int    `json:"opdAmount"`
	FinishedAt string `json:"opdFinishedAt"`
}

// GetProgress returns the aggregated progress of an order
// GET /api/v1/orders/:id/progress
func (ctrl *ProgressController) GetProgress(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		if _, err := ctrl.progressService.Refresh(ctx, orderID); err != nil {
			respondError(c, err, "order")
			return
		}
	}

	summary, err := ctrl.progressService.Summary(ctx, orderID)
	if err != nil {
		respondError(c, err, "order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// GetSizes backs the size picker for one stage
// GET /api/v1/orders/:id/progress/sizes?opmId=
func (ctrl *ProgressController) GetSizes(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	mainID := queryInt64(c, "opmId")
	if mainID <= 0 {
		errors.RespondWithValidationError(c, map[string]string{"opmId": "stage is required"})
		return
	}

	overview, err := ctrl.progressService.Sizes(c.Request.Context(), orderID, mainID)
	if err != nil {
		respondError(c, err, "progress stage")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": overview})
}

// CreateItem assigns work within a stage
// POST /api/v1/orders/:id/progress/items
func (ctrl *ProgressController) CreateItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid progress item request", map[string]interface{}{
			"error": err.Error(),
		})
		errors.RespondWithValidationError(c, map[string]string{"body": err.Error()})
		return
	}

	var deadline time.Time
	if req.DeadlineAt != "" {
		var err error
		deadline, err = progress.ParseDeadline(req.DeadlineAt, ctrl.loc)
		if err != nil {
			errors.RespondWithValidationError(c, map[string]string{"opDeadlineAt": err.Error()})
			return
		}
	}

	result, err := ctrl.progressService.CreateItem(c.Request.Context(), orderID, progress.ItemRequest{
		MainID:          req.MainID,
		OrderItemSizeID: req.OrderItemSizeID,
		UserID:          req.UserID,
		Amount:          req.Amount,
		Fee:             req.Fee,
		DeadlineAt:      deadline,
	})
	respondMutation(c, http.StatusCreated, result, err, "progress item")
}

// DeleteItem removes a work assignment; requires ?confirm=true
// DELETE /api/v1/orders/:id/progress/items/:itemId
func (ctrl *ProgressController) DeleteItem(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))

	result, err := ctrl.progressService.DeleteItem(c.Request.Context(), orderID, itemID, confirmed)
	respondMutation(c, http.StatusOK, result, err, "progress item")
}

// CreateDetail reports a finished quantity against an assignment
// POST /api/v1/orders/:id/progress/items/:itemId/details
func (ctrl *ProgressController) CreateDetail(c *gin.Context) {
	orderID, itemID, req, ok := ctrl.bindDetail(c)
	if !ok {
		return
	}
	req.ItemID = itemID

	result, err := ctrl.progressService.CreateDetail(c.Request.Context(), orderID, req)
	respondMutation(c, http.StatusCreated, result, err, "progress detail")
}

// UpdateDetail edits a finished-quantity report
// PUT /api/v1/orders/:id/progress/items/:itemId/details/:detailId
func (ctrl *ProgressController) UpdateDetail(c *gin.Context) {
	orderID, itemID, req, ok := ctrl.bindDetail(c)
	if !ok {
		return
	}
	detailID, ok := parseIDParam(c, "detailId")
	if !ok {
		return
	}
	req.ItemID = itemID
	req.DetailID = detailID

	result, err := ctrl.progressService.UpdateDetail(c.Request.Context(), orderID, req)
	respondMutation(c, http.StatusOK, result, err, "progress detail")
}

// DeleteDetail removes a finished-quantity report; requires ?confirm=true
// DELETE /api/v1/orders/:id/progress/items/:itemId/details/:detailId
func (ctrl *ProgressController) DeleteDetail(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}
	detailID, ok := parseIDParam(c, "detailId")
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))

	result, err := ctrl.progressService.DeleteDetail(c.Request.Context(), orderID, itemID, detailID, confirmed)
	respondMutation(c, http.StatusOK, result, err, "progress detail")
}

func (ctrl *ProgressController) bindDetail(c *gin.Context) (int64, int64, progress.DetailRequest, bool) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return 0, 0, progress.DetailRequest{}, false
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return 0, 0, progress.DetailRequest{}, false
	}

	var in DetailInput
	if err := c.ShouldBindJSON(&in); err != nil {
		errors.RespondWithValidationError(c, map[string]string{"body": err.Error()})
		return 0, 0, progress.DetailRequest{}, false
	}
	finishedAt, valid := parseDate(in.FinishedAt, ctrl.loc)
	if !valid {
		errors.RespondWithValidationError(c, map[string]string{"opdFinishedAt": "finish date must be YYYY-MM-DD or RFC3339"})
		return 0, 0, progress.DetailRequest{}, false
	}

	return orderID, itemID, progress.DetailRequest{
		Amount:     in.Amount,
		FinishedAt: finishedAt,
	}, true
}

// StreamProgress upgrades to a WebSocket that receives the order's summary
// now and after every change.
// GET /api/v1/orders/:id/progress/stream
func (ctrl *ProgressController) StreamProgress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	summary, err := ctrl.progressService.Summary(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	actorID, _ := middleware.GetActorID(c)
	client := websocket.NewClient(ctrl.hub, &websocket.Conn{Conn: conn}, orderID, actorID)

	initial, _ := json.Marshal(websocket.Event{Type: websocket.EventProgress, OrderID: orderID, Data: summary})
	if err := client.SendNow(initial); err != nil {
		log.Warn("Failed to send initial progress", map[string]interface{}{
			"order_id": orderID,
			"error":    err.Error(),
		})
		conn.Close()
		return
	}

	ctrl.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()

	log.Info("Progress stream opened", map[string]interface{}{
		"order_id": orderID,
		"actor_id": actorID,
	})
}

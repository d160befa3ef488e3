package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/konveksi/admin-gateway/internal/app/model"
	"github.com/konveksi/admin-gateway/internal/app/repository"
	"github.com/konveksi/admin-gateway/internal/app/service"
)

type ActivityController struct {
	activityService service.ActivityService
}

func NewActivityController(activityService service.ActivityService) *ActivityController {
	return &ActivityController{activityService: activityService}
}

// ListActivities returns the mutation journal of an order, newest first
// GET /api/v1/orders/:id/activities?action=&outcome=&limit=&offset=
func (ctrl *ActivityController) ListActivities(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	filter := repository.ActivityFilter{
		Action:  model.ActivityAction(c.Query("action")),
		Outcome: model.ActivityOutcome(c.Query("outcome")),
		Limit:   queryInt(c, "limit", 0),
		Offset:  queryInt(c, "offset", 0),
	}

	list, total, err := ctrl.activityService.List(orderID, filter)
	if err != nil {
		respondError(c, err, "activities")
		return
	}
	outcomes, err := ctrl.activityService.Outcomes(orderID)
	if err != nil {
		respondError(c, err, "activities")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"listData": list,
			"total":    total,
			"outcomes": outcomes,
		},
	})
}

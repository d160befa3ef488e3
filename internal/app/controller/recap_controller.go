package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/konveksi/admin-gateway/internal/app/service"
	"github.com/konveksi/admin-gateway/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type RecapController struct {
	reportService service.ReportService
}

func NewRecapController(reportService service.ReportService) *RecapController {
	return &RecapController{reportService: reportService}
}

// DownloadRecap streams the recap workbook of an order
// GET /api/v1/orders/:id/recap
func (ctrl *RecapController) DownloadRecap(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := ctrl.reportService.Build(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
	c.Data(http.StatusOK, xlsxContentType, report.Data)
}

// ExportRecap uploads the recap workbook and returns where it lives
// POST /api/v1/orders/:id/recap/export
func (ctrl *RecapController) ExportRecap(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	export, err := ctrl.reportService.Export(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	log.Info("Recap exported", map[string]interface{}{
		"order_id": orderID,
		"key":      export.ObjectKey,
	})
	c.JSON(http.StatusCreated, gin.H{"data": export})
}

// ListExports returns the latest uploaded recaps of an order
// GET /api/v1/orders/:id/recap/exports
func (ctrl *RecapController) ListExports(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	exports, err := ctrl.reportService.History(orderID)
	if err != nil {
		respondError(c, err, "recap exports")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": exports})
}

package controller

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/konveksi/admin-gateway/internal/app/model"
	"github.com/konveksi/admin-gateway/internal/app/service"
	"github.com/konveksi/admin-gateway/internal/errors"
	"github.com/stretchr/testify/assert"
)

func setupRecapControllerTest(t *testing.T) (*gin.Engine, *stubReportService) {
	stub := &stubReportService{}
	ctrl := NewRecapController(stub)

	r := newTestEngine()
	r.GET("/orders/:id/recap", ctrl.DownloadRecap)
	r.POST("/orders/:id/recap/export", ctrl.ExportRecap)
	r.GET("/orders/:id/recap/exports", ctrl.ListExports)
	return r, stub
}

func TestDownloadRecap(t *testing.T) {
	r, stub := setupRecapControllerTest(t)
	stub.report = &service.RecapReport{FileName: "Recap_PO-1_2026-10-16_090000.xlsx", Data: []byte("PK")}

	w := perform(t, r, http.MethodGet, "/orders/1/recap", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Recap_PO-1_2026-10-16_090000.xlsx")
	assert.Equal(t, "PK", w.Body.String())
}

func TestExportRecap(t *testing.T) {
	r, stub := setupRecapControllerTest(t)
	stub.export = &model.ReportExport{OrderID: 1, ObjectKey: "recaps/a.xlsx", URL: "https://cdn.example.com/recaps/a.xlsx"}

	w := perform(t, r, http.MethodPost, "/orders/1/recap/export", "")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "https://cdn.example.com/recaps/a.xlsx")
}

func TestExportRecap_StorageDisabled(t *testing.T) {
	r, stub := setupRecapControllerTest(t)
	stub.err = service.ErrStorageDisabled

	w := perform(t, r, http.MethodPost, "/orders/1/recap/export", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), errors.ReportStorageDisabled)
}

func TestListExports(t *testing.T) {
	r, stub := setupRecapControllerTest(t)
	stub.history = []model.ReportExport{{ID: 1, OrderID: 1}}

	w := perform(t, r, http.MethodGet, "/orders/1/recap/exports", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[`)
}

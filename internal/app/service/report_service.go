package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/konveksi/admin-gateway/internal/app/model"
	"github.com/konveksi/admin-gateway/internal/app/repository"
	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/konveksi/admin-gateway/pkg/logger"
	"github.com/xuri/excelize/v2"
)

var ErrStorageDisabled = errors.New("report storage is not configured")

const (
	recapSheet       = "Recap"
	assignmentsSheet = "Assignments"
)

// ReportUploader stores a rendered workbook and returns its key and URL.
type ReportUploader interface {
	UploadReport(ctx context.Context, orderCode string, data []byte) (key string, url string, err error)
}

// RecapReport is a rendered workbook ready to stream.
type RecapReport struct {
	FileName string
	Data     []byte
}

type ReportService interface {
	Build(ctx context.Context, orderID int64) (*RecapReport, error)
	Export(ctx context.Context, orderID int64) (*model.ReportExport, error)
	History(orderID int64) ([]model.ReportExport, error)
}

type reportService struct {
	progress   ProgressService
	uploader   ReportUploader
	exports    repository.ReportRepository
	activities ActivityService
	loc        *time.Location
}

// NewReportService builds the recap exporter. uploader may be nil, in which
// case only streaming is available.
func NewReportService(
	progressService ProgressService,
	uploader ReportUploader,
	exports repository.ReportRepository,
	activities ActivityService,
	loc *time.Location,
) ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &reportService{
		progress:   progressService,
		uploader:   uploader,
		exports:    exports,
		activities: activities,
		loc:        loc,
	}
}

func (s *reportService) Build(ctx context.Context, orderID int64) (*RecapReport, error) {
	report, _, err := s.build(ctx, orderID)
	return report, err
}

func (s *reportService) build(ctx context.Context, orderID int64) (*RecapReport, progress.State, error) {
	state, err := s.progress.Load(ctx, orderID)
	if err != nil {
		return nil, progress.State{}, err
	}

	data, err := RenderRecap(state, s.loc)
	if err != nil {
		logger.Error("Failed to render recap workbook", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, progress.State{}, err
	}

	return &RecapReport{
		FileName: RecapFileName(state.Order, time.Now().In(s.loc)),
		Data:     data,
	}, state, nil
}

func (s *reportService) Export(ctx context.Context, orderID int64) (*model.ReportExport, error) {
	if s.uploader == nil {
		return nil, ErrStorageDisabled
	}

	report, state, err := s.build(ctx, orderID)
	if err != nil {
		return nil, err
	}

	key, url, err := s.uploader.UploadReport(ctx, state.Order.Code, report.Data)
	if err != nil {
		logger.Error("Failed to upload recap workbook", err, map[string]interface{}{
			"order_id": orderID,
		})
		s.activities.Record(ctx, model.ProgressActivity{
			OrderID: orderID,
			Action:  model.ActivityRecapExported,
			Outcome: model.OutcomeFailed,
			Message: err.Error(),
		})
		return nil, err
	}

	export := &model.ReportExport{
		OrderID:   orderID,
		ObjectKey: key,
		URL:       url,
		SizeBytes: int64(len(report.Data)),
		ActorName: model.ActorFromContext(ctx).Name,
	}
	if err := s.exports.Create(export); err != nil {
		// The file is already uploaded; losing the record only hides it from History.
		logger.Error("Failed to record recap export", err, map[string]interface{}{
			"order_id": orderID,
			"key":      key,
		})
	}
	s.activities.Record(ctx, model.ProgressActivity{
		OrderID: orderID,
		Action:  model.ActivityRecapExported,
		Outcome: model.OutcomeConfirmed,
		Message: key,
	})

	logger.Info("Recap workbook exported", map[string]interface{}{
		"order_id":   orderID,
		"key":        key,
		"size_bytes": export.SizeBytes,
	})
	return export, nil
}

func (s *reportService) History(orderID int64) ([]model.ReportExport, error) {
	return s.exports.ListByOrder(orderID, 20)
}

// RecapFileName names a downloaded recap after the order and the export time.
func RecapFileName(order progress.Order, at time.Time) string {
	code := order.Code
	if code == "" {
		code = fmt.Sprintf("order-%d", order.ID)
	}
	return fmt.Sprintf("Recap_%s_%s.xlsx", code, at.Format("2006-01-02_150405"))
}

// RenderRecap writes the per-stage recap and the assignment list of one
// order into an xlsx workbook.
func RenderRecap(state progress.State, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recapSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(assignmentsSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		return nil, err
	}

	summary := state.Summary()

	recapHeaders := []string{"Stage", "Target", "Finished", "Percent", "Assignments"}
	writeHeader(f, recapSheet, recapHeaders, headerStyle)
	row := 2
	for _, st := range summary.Stages {
		f.SetCellValue(recapSheet, cellName(1, row), st.StageName)
		f.SetCellValue(recapSheet, cellName(2, row), st.AmountTotal)
		f.SetCellValue(recapSheet, cellName(3, row), st.AmountFinished)
		f.SetCellValue(recapSheet, cellName(4, row), st.Percent)
		f.SetCellValue(recapSheet, cellName(5, row), st.ItemCount)
		row++
	}
	f.SetCellValue(recapSheet, cellName(1, row), "Order "+state.Order.Code)
	f.SetCellValue(recapSheet, cellName(4, row), summary.Percent)
	f.SetCellStyle(recapSheet, cellName(1, row), cellName(len(recapHeaders), row), headerStyle)
	f.SetColWidth(recapSheet, "A", "A", 22)
	f.SetColWidth(recapSheet, "B", "E", 13)

	sizes := make(map[int64]progress.OrderItemSize)
	for _, size := range state.Order.Sizes() {
		sizes[size.ID] = size
	}
	names := make(map[int64]string, len(state.Roster))
	for _, u := range state.Roster {
		names[u.ID] = u.Name
	}

	assignmentHeaders := []string{"Stage", "Worker", "Size", "Quantity", "Finished", "Remaining", "Fee", "Deadline"}
	writeHeader(f, assignmentsSheet, assignmentHeaders, headerStyle)
	row = 2
	for _, st := range state.Stages {
		for _, item := range state.StageItems(st.ID) {
			finished := progress.FinishedAmount(state.Details[item.ID])
			worker := names[item.UserID]
			if item.User != nil && item.User.Name != "" {
				worker = item.User.Name
			}
			deadline := ""
			if !item.DeadlineAt.IsZero() {
				deadline = item.DeadlineAt.In(loc).Format("2006-01-02 15:04")
			}

			f.SetCellValue(assignmentsSheet, cellName(1, row), st.Stage.String())
			f.SetCellValue(assignmentsSheet, cellName(2, row), worker)
			f.SetCellValue(assignmentsSheet, cellName(3, row), sizes[item.OrderItemSizeID].Label())
			f.SetCellValue(assignmentsSheet, cellName(4, row), item.Amount)
			f.SetCellValue(assignmentsSheet, cellName(5, row), finished)
			f.SetCellValue(assignmentsSheet, cellName(6, row), progress.ItemRemaining(item, state.Details[item.ID], 0))
			f.SetCellValue(assignmentsSheet, cellName(7, row), item.Fee)
			f.SetCellValue(assignmentsSheet, cellName(8, row), deadline)
			row++
		}
	}
	f.SetColWidth(assignmentsSheet, "A", "C", 18)
	f.SetColWidth(assignmentsSheet, "D", "H", 13)

	for _, sheet := range []string{recapSheet, assignmentsSheet} {
		f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
		})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	for i, name := range headers {
		f.SetCellValue(sheet, cellName(i+1, 1), name)
	}
	f.SetCellStyle(sheet, "A1", cellName(len(headers), 1), style)
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

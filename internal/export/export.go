package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"camellia/internal/database"
	"camellia/internal/models"

	"github.com/xuri/excelize/v2"
)

// AppointmentSource is satisfied by *database.DB.
type AppointmentSource interface {
	ActiveAppointmentsByRange(ctx context.Context, start, end time.Time) ([]*models.Appointment, error)
}

// Exporter renders a month of appointments into an Excel workbook for the
// salon owner.
type Exporter struct {
	source AppointmentSource
}

func NewExporter(source AppointmentSource) *Exporter {
	return &Exporter{source: source}
}

var _ AppointmentSource = (*database.DB)(nil)

// WriteMonth streams an .xlsx with the month's non-cancelled appointments,
// ordered by start time.
func (e *Exporter) WriteMonth(ctx context.Context, w io.Writer, year int, month time.Month, loc *time.Location) error {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0)

	appointments, err := e.source.ActiveAppointmentsByRange(ctx, start, end)
	if err != nil {
		return fmt.Errorf("load appointments: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Appointments"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	title := fmt.Sprintf("Appointments %s %d", month, year)
	_ = f.SetCellValue(sheetName, "A1", title)
	_ = f.MergeCell(sheetName, "A1", "G1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headers := []string{"Date", "Time", "Client", "Phone", "Service", "Duration (min)", "Status"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 2)
	_ = f.SetCellStyle(sheetName, "A2", lastHeader, headerStyle)

	for i, a := range appointments {
		local := a.StartAt.In(loc)
		row := i + 3
		values := []any{
			local.Format("2006-01-02"),
			local.Format("15:04"),
			a.ClientName,
			a.ClientPhone,
			a.ServiceName,
			a.DurationMinutes,
			a.Status,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, value)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "B", 12)
	_ = f.SetColWidth(sheetName, "C", "E", 24)
	_ = f.SetColWidth(sheetName, "F", "G", 14)

	_ = f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

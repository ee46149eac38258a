// Package export renders the business dashboard's attendance report as
// an Excel workbook.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

// Row is one reservation line of the attendance report.
type Row struct {
	EventID       string
	EventName     string
	ReservationID string
	AttendeeName  string
	AttendeePhone string
	AttendeeEmail string
	Status        string
	CheckinTier   string
}

const sheetName = "Asistencia"

var headers = []string{"Evento", "Reserva", "Asistente", "Teléfono", "Email", "Estado", "Check-in"}

// WriteWorkbook writes the attendance rows for a business into an xlsx
// file under dir and returns the file path.
func WriteWorkbook(dir, businessName string, rows []Row, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Asistencia: %s (%s)", businessName, now.Format("02.01.2006")))
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, row := range rows {
		values := []string{
			row.EventName,
			row.ReservationID,
			row.AttendeeName,
			row.AttendeePhone,
			row.AttendeeEmail,
			row.Status,
			row.CheckinTier,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+3)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 30)
	_ = f.SetColWidth(sheetName, "B", lastCol, 22)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("asistencia_%s.xlsx", now.Format("2006-01-02_150405"))
	filePath := filepath.Join(dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return filePath, nil
}

package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"carbook/internal/daterange"
	"carbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	calendarSheet = "Calendar"
)

var bookingHeaders = []string{"ID", "From", "To", "Days", "Description", "Summary", "Pickup image", "Drop image"}

// Exporter renders car calendars as XLSX workbooks.
type Exporter struct {
	dir    string
	logger *zerolog.Logger
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Exporter{dir: dir, logger: logger}
}

// FileName is the suggested name of a car calendar workbook.
func FileName(car *models.Car) string {
	return fmt.Sprintf("car_%d_calendar.xlsx", car.ID)
}

// WriteCalendar streams the workbook for one car to w.
func (e *Exporter) WriteCalendar(w io.Writer, car *models.Car, cal *models.Calendar) error {
	f, err := buildWorkbook(car, cal)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveCalendar writes the workbook into the export directory and returns its path.
func (e *Exporter) SaveCalendar(car *models.Car, cal *models.Calendar) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := buildWorkbook(car, cal)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(e.dir, FileName(car))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", path).Int64("car_id", car.ID).Msg("Excel file created")
	return path, nil
}

func buildWorkbook(car *models.Car, cal *models.Calendar) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	if _, err := f.NewSheet(calendarSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})

	// Заголовок с названием машины
	_ = f.SetCellValue(bookingsSheet, "A1", fmt.Sprintf("%s (%s)", car.Name, car.LicensePlate))
	_ = f.SetCellStyle(bookingsSheet, "A1", "A1", titleStyle)

	for i, h := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(bookingsSheet, cell, h)
		_ = f.SetCellStyle(bookingsSheet, cell, cell, headerStyle)
	}

	row := 3
	for _, b := range cal.Bookings {
		if b == nil {
			continue
		}
		values := []interface{}{
			b.ID,
			daterange.Key(b.From),
			daterange.Key(b.To),
			daterange.Count(b.From, b.To),
			b.Description,
			b.Summary,
			b.PickupImageURL,
			b.DropImageURL,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(bookingsSheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("error writing booking %d: %w", b.ID, err)
		}
		row++
	}
	_ = f.SetColWidth(bookingsSheet, "A", "D", 12)
	_ = f.SetColWidth(bookingsSheet, "E", "H", 30)

	_ = f.SetCellValue(calendarSheet, "A1", "Date")
	_ = f.SetCellValue(calendarSheet, "B1", "Booking ID")
	_ = f.SetCellStyle(calendarSheet, "A1", "B1", headerStyle)
	for i, d := range cal.BlockedDays {
		_ = f.SetCellValue(calendarSheet, fmt.Sprintf("A%d", i+2), d.Date)
		_ = f.SetCellValue(calendarSheet, fmt.Sprintf("B%d", i+2), d.BookingID)
	}
	_ = f.SetColWidth(calendarSheet, "A", "B", 14)

	return f, nil
}

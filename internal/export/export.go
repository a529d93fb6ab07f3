// Package export renders reservations as an Excel workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName       = "Reservations"
	ContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultSheet    = "Sheet1"
	cellTimeLayout  = "2006-01-02 15:04"
	fileStampLayout = "20060102"
)

// Headers lists the column titles in order.
var Headers = []string{
	"Guest", "People", "Nationality", "Passport", "Source", "Payment", "Phone",
	"Email", "Villa", "Room", "Check in", "Check out", "Status",
}

var columnWidths = []float64{24, 8, 14, 16, 14, 14, 16, 26, 18, 14, 18, 18, 12}

// FileName returns the attachment name for a window starting at start.
func FileName(start time.Time) string {
	if start.IsZero() {
		return "reservations.xlsx"
	}
	return fmt.Sprintf("reservations_%s.xlsx", start.Format(fileStampLayout))
}

// WriteReservations writes one row per reservation. Times are shown in
// location.
func WriteReservations(writer io.Writer, reservations []villa.Reservation, location *time.Location) error {
	if location == nil {
		location = time.UTC
	}
	workbook := excelize.NewFile()
	defer workbook.Close()

	if err := workbook.SetSheetName(defaultSheet, SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for column, header := range Headers {
		cell, err := excelize.CoordinatesToCellName(column+1, 1)
		if err != nil {
			return err
		}
		if err := workbook.SetCellValue(SheetName, cell, header); err != nil {
			return fmt.Errorf("write header %s: %w", cell, err)
		}
	}
	for index, reservation := range reservations {
		if err := writeRow(workbook, index+2, reservation, location); err != nil {
			return err
		}
	}
	for column, width := range columnWidths {
		name, err := excelize.ColumnNumberToName(column + 1)
		if err != nil {
			return err
		}
		if err := workbook.SetColWidth(SheetName, name, name, width); err != nil {
			return fmt.Errorf("column width %s: %w", name, err)
		}
	}
	if err := workbook.Write(writer); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(workbook *excelize.File, row int, reservation villa.Reservation, location *time.Location) error {
	villaName, roomName := "", ""
	if reservation.Room != nil {
		villaName = reservation.Room.VillaName()
		roomName = reservation.Room.Name
	}
	values := []any{
		reservation.GuestName,
		reservation.Guest.NumGuests,
		reservation.Guest.Nationality,
		reservation.Guest.PassportNumber,
		reservation.Guest.Source,
		reservation.Guest.PaymentMethod,
		reservation.Guest.Phone,
		reservation.Guest.Email,
		villaName,
		roomName,
		reservation.Stay.CheckIn.In(location).Format(cellTimeLayout),
		reservation.Stay.CheckOut.In(location).Format(cellTimeLayout),
		reservation.Status.String(),
	}
	for column, value := range values {
		cell, err := excelize.CoordinatesToCellName(column+1, row)
		if err != nil {
			return err
		}
		if err := workbook.SetCellValue(SheetName, cell, value); err != nil {
			return fmt.Errorf("write cell %s: %w", cell, err)
		}
	}
	return nil
}

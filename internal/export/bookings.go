// Package export renders booking lists into downloadable CSV and XLSX
// files for the pro back office.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ndelacroix/culture-pass/internal/model"
	"github.com/ndelacroix/culture-pass/internal/repository"
)

var headerRow = []string{
	"token", "offer", "venue", "beneficiary_email",
	"quantity", "amount_cents", "total_cents",
	"status", "booked_at", "event_at", "used_at", "cancelled_at", "cancel_reason",
}

// StatusFunc derives the lifecycle state of a booking; the bookings
// service provides it so export stays free of policy knowledge.
type StatusFunc func(repository.BookingDetail) model.BookingStatus

func rowOf(d repository.BookingDetail, statusOf StatusFunc) []string {
	fmtTime := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	}
	reason := ""
	if d.Booking.CancellationReason != nil {
		reason = *d.Booking.CancellationReason
	}
	return []string{
		d.Booking.Token,
		d.OfferName,
		d.VenueName,
		d.UserEmail,
		fmt.Sprintf("%d", d.Booking.Quantity),
		fmt.Sprintf("%d", d.Booking.AmountCents),
		fmt.Sprintf("%d", d.Booking.TotalCents()),
		string(statusOf(d)),
		d.Booking.DateCreated.UTC().Format(time.RFC3339),
		fmtTime(d.BeginningAt),
		fmtTime(d.Booking.DateUsed),
		fmtTime(d.Booking.CancellationDate),
		reason,
	}
}

// WriteCSV streams the bookings as a CSV document.
func WriteCSV(w io.Writer, details []repository.BookingDetail, statusOf StatusFunc) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headerRow); err != nil {
		return err
	}
	for _, d := range details {
		if err := cw.Write(rowOf(d, statusOf)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX renders the bookings as a single-sheet workbook.
func WriteXLSX(w io.Writer, details []repository.BookingDetail, statusOf StatusFunc) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	header := make([]interface{}, len(headerRow))
	for i, h := range headerRow {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	row := 2
	for _, d := range details {
		values := rowOf(d, statusOf)
		excelRow := make([]interface{}, len(values))
		for i, v := range values {
			excelRow[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return err
		}
		row++
	}
	return f.Write(w)
}

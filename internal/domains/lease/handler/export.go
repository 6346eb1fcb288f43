package handler

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"library-backend/internal/domains/lease/model"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	historySheet    = "Leases"
)

var historyHeader = []interface{}{"Lease ID", "Book ID", "Holder", "Leased At", "Returned At", "Status"}

// BuildHistoryWorkbook renders a book's ledger as a single-sheet workbook,
// one row per record in ledger order.
func BuildHistoryWorkbook(bookID int64, records []model.LeaseRecord) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(historySheet, "A1", &historyHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}

		returned := ""
		if rec.ReturnedAt != nil {
			returned = rec.ReturnedAt.UTC().Format(time.RFC3339)
		}

		row := []interface{}{
			rec.ID,
			bookID,
			rec.HolderID,
			rec.LeasedAt.UTC().Format(time.RFC3339),
			returned,
			string(rec.Status()),
		}
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(historySheet, "C", "E", 24); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

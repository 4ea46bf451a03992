/*
Package sheets moves the ledger in and out of XLSX workbooks.

  WriteLedger       export of the log for offline auditing
  ReadLegacyLedger  parser for the old ten-column loan sheet, feeding
                    inventory.Engine.ImportLegacy

Dates are written as "dd.mm.yyyy hh:mm", the format the legacy sheet used.
*/
package sheets

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/warp/toolroom/inventory"
)

// DateLayout is the human date format in exported and legacy sheets.
const DateLayout = "02.01.2006 15:04"

// LedgerSheet is the sheet name of exports.
const LedgerSheet = "Ledger"

var ledgerHeader = []interface{}{
	"operation_id",
	"issued_at",
	"status",
	"holder_id",
	"holder_name",
	"system_name",
	"display_name",
	"serial",
	"quantity",
	"category",
	"returned_at",
	"damage_description",
	"issue_photo",
	"return_photo",
}

// WriteLedger renders entries, one per row, in the given order. Times are
// shown in loc (UTC when nil).
func WriteLedger(w io.Writer, entries []inventory.LedgerEntry, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), LedgerSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(LedgerSheet, "A1", &ledgerHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		returned := ""
		if e.ReturnedAt != nil {
			returned = e.ReturnedAt.In(loc).Format(DateLayout)
		}
		row := []interface{}{
			e.OperationID,
			e.IssuedAt.In(loc).Format(DateLayout),
			string(e.Status),
			e.HolderID,
			e.HolderName,
			e.SystemName,
			e.DisplayName,
			e.Serial,
			e.Quantity,
			string(e.Category),
			returned,
			e.DamageDescription,
			e.IssuePhotoRef,
			e.ReturnPhotoRef,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(LedgerSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}

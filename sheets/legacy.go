package sheets

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/warp/toolroom/inventory"
)

// Legacy loan sheet columns.
const (
	colID = iota
	colCode
	colName
	colDescription
	colHolderID
	colHolderName
	colPhone
	colIssued
	colReturned
	colQuantity
	legacyColumns
)

var legacyLayouts = []string{
	DateLayout,
	"02.01.2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// RowError explains why a legacy row was not parsed.
type RowError struct {
	Row    int // 1-based sheet row
	Reason string
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %s", e.Row, e.Reason) }

// ReadLegacyLedger parses the first sheet of a legacy workbook. The first
// row is a header. Blank rows are ignored; rows with unreadable dates are
// reported in the second return value and left out. Naive dates are read in
// loc (UTC when nil).
func ReadLegacyLedger(r io.Reader, loc *time.Location) ([]inventory.LegacyRow, []RowError, error) {
	if loc == nil {
		loc = time.UTC
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var out []inventory.LegacyRow
	var bad []RowError
	for i := 1; i < len(rows); i++ {
		cells := make([]string, legacyColumns)
		for c := 0; c < legacyColumns && c < len(rows[i]); c++ {
			cells[c] = strings.TrimSpace(rows[i][c])
		}
		if strings.Join(cells, "") == "" {
			continue
		}

		issued, err := parseLegacyTime(cells[colIssued], loc)
		if err != nil {
			bad = append(bad, RowError{Row: i + 1, Reason: "issued: " + err.Error()})
			continue
		}
		row := inventory.LegacyRow{
			OperationID: cells[colID],
			SystemName:  cells[colCode],
			DisplayName: cells[colName],
			Description: cells[colDescription],
			HolderID:    cells[colHolderID],
			HolderName:  cells[colHolderName],
			Phone:       cells[colPhone],
			IssuedAt:    issued,
			Quantity:    1,
		}
		if cells[colReturned] != "" {
			returned, err := parseLegacyTime(cells[colReturned], loc)
			if err != nil {
				bad = append(bad, RowError{Row: i + 1, Reason: "returned: " + err.Error()})
				continue
			}
			row.ReturnedAt = &returned
		}
		if q, err := strconv.Atoi(cells[colQuantity]); err == nil && q > 0 {
			row.Quantity = q
		}
		out = append(out, row)
	}
	return out, bad, nil
}

// parseLegacyTime accepts the human layouts, RFC 3339 and raw Excel serial
// dates. An empty string is the zero time.
func parseLegacyTime(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range legacyLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		// Serial dates carry wall-clock fields only.
		wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
		return wall.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

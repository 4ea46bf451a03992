package sheets_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/toolroom/inventory"
	"github.com/warp/toolroom/sheets"
)

func TestWriteLedger(t *testing.T) {
	// GIVEN: One open and one returned loan
	issued := time.Date(2025, time.March, 4, 9, 15, 0, 0, time.UTC)
	returned := issued.Add(26 * time.Hour)
	entries := []inventory.LedgerEntry{
		{OperationID: "op-2", IssuedAt: issued, HolderName: "Ada", SystemName: "drill", DisplayName: "Drill",
			Quantity: 1, Category: inventory.CategoryReusable, Status: inventory.StatusReturned, ReturnedAt: &returned},
		{OperationID: "op-1", IssuedAt: issued, HolderName: "Bo", SystemName: "tape", DisplayName: "Tape",
			Quantity: 3, Category: inventory.CategoryConsumable, Status: inventory.StatusConsumed},
	}

	// WHEN: Exporting
	var buf bytes.Buffer
	require.NoError(t, sheets.WriteLedger(&buf, entries, nil))

	// THEN: Header plus one row per entry, dates in the human layout
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheets.LedgerSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "operation_id", rows[0][0])
	assert.Equal(t, "op-2", rows[1][0])
	assert.Equal(t, "04.03.2025 09:15", rows[1][1])
	assert.Equal(t, "returned", rows[1][2])
	assert.Equal(t, "05.03.2025 11:15", rows[1][10])
	assert.Equal(t, "3", rows[2][8])
}

func legacyWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	header := []interface{}{"id", "code", "name", "description", "person_id", "person", "phone", "issued", "returned", "qty"}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, r := range rows {
		row := r
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf := &bytes.Buffer{}
	require.NoError(t, f.Write(buf))
	return buf
}

func TestReadLegacyLedger(t *testing.T) {
	// GIVEN: A legacy sheet with an open loan, a returned loan, a blank row and a bad date
	buf := legacyWorkbook(t, [][]interface{}{
		{"W1", "drill", "Drill", "Bosch S/N: AB-1", "P1", "Ada", "555", "04.03.2025 09:15", "", "2"},
		{"W2", "saw", "Saw", "", "P2", "Bo", "", "2025-03-01T10:00:00Z", "02.03.2025 12:30", ""},
		{"", "", "", "", "", "", "", "", "", ""},
		{"W3", "saw", "Saw", "", "P2", "Bo", "", "yesterday", "", "1"},
	})

	// WHEN: Reading it
	rows, bad, err := sheets.ReadLegacyLedger(buf, nil)
	require.NoError(t, err)

	// THEN: Two rows parsed, the bad date reported with its sheet row
	require.Len(t, rows, 2)
	assert.Equal(t, "W1", rows[0].OperationID)
	assert.Equal(t, "drill", rows[0].SystemName)
	assert.Equal(t, 2, rows[0].Quantity)
	assert.Nil(t, rows[0].ReturnedAt)
	assert.Equal(t, time.Date(2025, time.March, 4, 9, 15, 0, 0, time.UTC), rows[0].IssuedAt)

	assert.Equal(t, 1, rows[1].Quantity)
	require.NotNil(t, rows[1].ReturnedAt)
	assert.Equal(t, time.Date(2025, time.March, 2, 12, 30, 0, 0, time.UTC), *rows[1].ReturnedAt)

	require.Len(t, bad, 1)
	assert.Equal(t, 5, bad[0].Row)
}

func TestReadLegacyLedger_NotAWorkbook(t *testing.T) {
	_, _, err := sheets.ReadLegacyLedger(bytes.NewBufferString("id,code\n"), nil)
	assert.Error(t, err)
}

package testutil

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// LedgerHeader is the canonical trade ledger header row.
var LedgerHeader = []interface{}{
	"Bought Code", "Bought Name", "Bought Quantity",
	"Sold Code", "Sold Name", "Sold Quantity", "Scrip Name", "Mkt. Value",
}

// NewWorkbook builds an in-memory workbook with rows written from A1 on a
// single sheet. The caller owns the returned file.
func NewWorkbook(t *testing.T, sheetName string, rows [][]interface{}) *excelize.File {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheetName))

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheetName, cell, &r))
	}
	return f
}

// WriteWorkbook saves a single-sheet workbook under t.TempDir and returns
// its path.
func WriteWorkbook(t *testing.T, sheetName string, rows [][]interface{}) string {
	t.Helper()

	f := NewWorkbook(t, sheetName, rows)
	defer f.Close()

	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

// WorkbookBytes returns the serialized .xlsx content of a single-sheet
// workbook, suitable for multipart upload bodies.
func WorkbookBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := NewWorkbook(t, "Sheet1", rows)
	defer f.Close()

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

// SampleLedger returns a ledger whose only material group is
// Alpha, ALPHA, A1 with quantity 10000 and value 42000.
func SampleLedger() [][]interface{} {
	return [][]interface{}{
		LedgerHeader,
		{"A1", "Alpha", 12000, nil, nil, nil, "ALPHA", 50000},
		{nil, nil, nil, "A1", "Alpha", 2000, "ALPHA", 8000},
		{"B1", "Beta", 10, nil, nil, nil, "BETA", 100},
	}
}

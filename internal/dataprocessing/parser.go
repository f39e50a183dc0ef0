package dataprocessing

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"tradeledger/internal/errors"
)

// ParseFile reads one worksheet of a ledger workbook. An empty sheetName
// selects the first sheet in the workbook.
func ParseFile(filePath, sheetName string) (*Sheet, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, errors.NewMalformedInputError("failed to open workbook", err).
			WithContext("file", filePath)
	}
	defer f.Close()

	return readSheet(f, sheetName)
}

// ParseReader is ParseFile for an in-memory or streamed workbook.
func ParseReader(r io.Reader, sheetName string) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.NewMalformedInputError("failed to open workbook", err)
	}
	defer f.Close()

	return readSheet(f, sheetName)
}

func readSheet(f *excelize.File, sheetName string) (*Sheet, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewMalformedInputError("workbook has no worksheets", nil)
	}

	if sheetName == "" {
		sheetName = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheetName); idx < 0 {
		return nil, errors.NewMalformedInputError(fmt.Sprintf("worksheet %q not found", sheetName), nil).
			WithContext("available_sheets", sheets)
	}

	// Raw values keep numbers free of display formatting such as
	// thousands separators or rounded decimals.
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.NewMalformedInputError(fmt.Sprintf("failed to read worksheet %q", sheetName), err)
	}

	slog.Debug("Loaded worksheet",
		slog.String("sheet_name", sheetName),
		slog.Int("total_rows", len(rows)))

	return &Sheet{Name: sheetName, Rows: rows}, nil
}

// Normalize drops blank rows, takes the header from the non-blank row at
// headerRow and normalizes column names. It fails when no data rows remain
// or when the header carries none of the ledger identity columns.
func Normalize(sheet *Sheet, headerRow int) (*Table, error) {
	if sheet == nil {
		return nil, errors.NewMalformedInputError("no worksheet to normalize", nil)
	}
	if headerRow < 0 {
		return nil, errors.NewMalformedInputError(fmt.Sprintf("invalid header row %d", headerRow), nil)
	}

	var header []string
	headerFound := false
	seen := 0
	data := make([]Row, 0, len(sheet.Rows))

	for i, cells := range sheet.Rows {
		if isBlankRow(cells) {
			continue
		}
		switch {
		case seen < headerRow:
			// leading noise above the header
		case seen == headerRow:
			header = cells
			headerFound = true
		default:
			data = append(data, Row{Line: i + 1, Cells: cells})
		}
		seen++
	}

	if !headerFound {
		return nil, errors.NewMalformedInputError(
			fmt.Sprintf("header row %d is beyond the %d non-blank rows of sheet %q", headerRow, seen, sheet.Name), nil)
	}

	table := newTable(header, data)

	if len(table.Rows) == 0 {
		return nil, errors.NewMalformedInputError("ledger has no data rows after the header", nil).
			WithContext("sheet", sheet.Name).
			WithContext("header_row", headerRow)
	}

	if !table.HasAny(identityColumns...) {
		return nil, errors.NewMalformedInputError("ledger has none of the required identity columns", nil).
			WithContext("required_any", identityColumns).
			WithContext("columns", table.Columns)
	}

	return table, nil
}

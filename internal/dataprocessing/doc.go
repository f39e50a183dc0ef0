// Package dataprocessing turns a broker trade ledger workbook into a list of
// material net positions. It is the only package that knows the ledger's
// column conventions and sign rules.
//
// # Architecture
//
// Four stages run strictly in order:
//
// 1. Parser/Normalize: reads a worksheet with excelize, drops blank rows,
// takes the header from a configured row offset and collapses whitespace in
// column names.
// 2. Cleaner: removes deny-listed columns, parses quantities and market value,
// scrubs excluded system codes (SYS18, SYS27) and applies the sold-side sign
// convention.
// 3. Merger: coalesces bought and sold identity and sums both quantities.
// 4. Aggregator: groups by (name, scrip, code), sums quantity and value, and
// keeps groups whose absolute quantity or value meets a threshold.
//
// # Usage
//
//	proc, err := dataprocessing.NewLedgerProcessor(logger, dataprocessing.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	result, err := proc.ProcessFile(ctx, "ledger.xlsx")
//	if err != nil {
//	    return err
//	}
//	summary := result.Summary(5)
//
// # Missing Values
//
// Blank text cells become NullText and blank or unparseable numeric cells
// become NullAmount. Unparseable cells are also reported as
// CellCoercionWarning values; they never fail a run. Aggregation treats
// missing amounts as zero and missing identity fields as their own key.
//
// # Error Handling
//
// Document-level problems (unreadable workbook, header offset past the end,
// no data rows, no identity columns) are returned as malformed input errors
// from internal/errors. There is no partial result.
//
// # Numeric Precision
//
// All quantities and values are shopspring/decimal values, so sums over large
// ledgers are exact.
package dataprocessing

// Package exporter provides CSV export functionality for aggregated ledgers.
//
// CSVWriter: streaming CSV writing with headers and an optional UTF-8 BOM
// for Excel compatibility. Relative paths resolve against the scratch
// directory.
//
// Ledger export: WriteLedger and WriteLedgerTo render domain.LedgerRow values
// under the fixed header
//
//	Bought Name,Scrip Name,Bought Code,Sum of Bought Quantity,Sum of Value
//
// Example usage:
//
//	writer := exporter.NewCSVWriter(paths)
//	n, err := writer.WriteLedger(outPath, result.Rows, exporter.DefaultLedgerOptions())
package exporter

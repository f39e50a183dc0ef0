package exporter

import (
	"fmt"
	"io"

	"tradeledger/pkg/contracts/domain"
)

// LedgerOptions controls how aggregated ledger rows are rendered.
type LedgerOptions struct {
	// BOMPrefix adds a UTF-8 BOM so Excel detects the encoding.
	BOMPrefix bool
	// EscapeFormulas quotes identity text starting with a formula character.
	EscapeFormulas bool
	// DecimalPlaces fixes numeric precision; negative keeps full precision.
	DecimalPlaces int32
}

// DefaultLedgerOptions returns options that reproduce values exactly.
func DefaultLedgerOptions() LedgerOptions {
	return LedgerOptions{DecimalPlaces: -1}
}

// LedgerRecord renders one row in domain.LedgerColumns order. Missing
// identity values are written as empty strings.
func LedgerRecord(row domain.LedgerRow, opts LedgerOptions) []string {
	record := row.Values()
	if opts.EscapeFormulas {
		for i := 0; i < 3; i++ {
			record[i] = escapeFormula(record[i])
		}
	}
	record[3] = formatDecimal(row.SumOfBoughtQuantity, opts.DecimalPlaces)
	record[4] = formatDecimal(row.SumOfValue, opts.DecimalPlaces)
	return record
}

// WriteLedger streams rows to filePath with the fixed ledger header and
// returns the number of rows written.
func (w *CSVWriter) WriteLedger(filePath string, rows []domain.LedgerRow, opts LedgerOptions) (int, error) {
	stream, err := w.CreateStreamWriter(filePath, domain.LedgerColumns(), opts.BOMPrefix)
	if err != nil {
		return 0, err
	}

	for i, row := range rows {
		if err := stream.WriteRecord(LedgerRecord(row, opts)); err != nil {
			stream.Close()
			return stream.Count(), fmt.Errorf("failed to write ledger row %d: %w", i, err)
		}
	}

	if err := stream.Close(); err != nil {
		return stream.Count(), fmt.Errorf("failed to flush ledger csv: %w", err)
	}
	return stream.Count(), nil
}

// WriteLedgerTo writes the ledger CSV to an arbitrary writer, such as stdout.
func WriteLedgerTo(dst io.Writer, rows []domain.LedgerRow, opts LedgerOptions) error {
	if opts.BOMPrefix {
		if _, err := dst.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	records := make([][]string, len(rows))
	for i, row := range rows {
		records[i] = LedgerRecord(row, opts)
	}
	return writeRecords(dst, domain.LedgerColumns(), records)
}

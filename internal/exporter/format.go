package exporter

import (
	"strings"

	"github.com/shopspring/decimal"
)

// formatDecimal renders d for CSV output. A negative places keeps every
// significant digit; otherwise the value is fixed to that many places.
func formatDecimal(d decimal.Decimal, places int32) string {
	if places < 0 {
		return d.String()
	}
	return d.StringFixed(places)
}

// escapeFormula prefixes text that a spreadsheet would evaluate as a formula
// with a single quote.
func escapeFormula(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Output column names of an aggregated ledger. Preview UIs and CSV
// consumers key on these exact strings.
const (
	ColumnBoughtName  = "Bought Name"
	ColumnScripName   = "Scrip Name"
	ColumnBoughtCode  = "Bought Code"
	ColumnSumQuantity = "Sum of Bought Quantity"
	ColumnSumValue    = "Sum of Value"
)

// LedgerColumns returns the output header in order.
func LedgerColumns() []string {
	return []string{ColumnBoughtName, ColumnScripName, ColumnBoughtCode, ColumnSumQuantity, ColumnSumValue}
}

// LedgerRow is one material position: an instrument identity with its net
// quantity and net value. Nil identity fields are missing in the source.
type LedgerRow struct {
	BoughtName          *string         `json:"bought_name"`
	ScripName           *string         `json:"scrip_name"`
	BoughtCode          *string         `json:"bought_code"`
	SumOfBoughtQuantity decimal.Decimal `json:"sum_of_bought_quantity"`
	SumOfValue          decimal.Decimal `json:"sum_of_value"`
}

// Values returns the row in LedgerColumns order with missing values as "".
func (r LedgerRow) Values() []string {
	return []string{
		deref(r.BoughtName),
		deref(r.ScripName),
		deref(r.BoughtCode),
		r.SumOfBoughtQuantity.String(),
		r.SumOfValue.String(),
	}
}

// PreviewRecord renders the row keyed by output column name. Missing
// identity values become "" and sums stay JSON numbers.
func (r LedgerRow) PreviewRecord() map[string]interface{} {
	return map[string]interface{}{
		ColumnBoughtName:  deref(r.BoughtName),
		ColumnScripName:   deref(r.ScripName),
		ColumnBoughtCode:  deref(r.BoughtCode),
		ColumnSumQuantity: json.Number(r.SumOfBoughtQuantity.String()),
		ColumnSumValue:    json.Number(r.SumOfValue.String()),
	}
}

// LedgerSummary is the metadata a caller needs to render and persist a run.
type LedgerSummary struct {
	TotalRecords int                      `json:"total_records"`
	Columns      []string                 `json:"columns"`
	Preview      []map[string]interface{} `json:"preview"`
	Rows         []LedgerRow              `json:"-"`
}

// NewLedgerSummary builds a summary with at most previewRows preview records.
func NewLedgerSummary(rows []LedgerRow, previewRows int) LedgerSummary {
	n := len(rows)
	if previewRows < n {
		n = previewRows
	}
	if n < 0 {
		n = 0
	}

	preview := make([]map[string]interface{}, n)
	for i := 0; i < n; i++ {
		preview[i] = rows[i].PreviewRecord()
	}

	return LedgerSummary{
		TotalRecords: len(rows),
		Columns:      LedgerColumns(),
		Preview:      preview,
		Rows:         rows,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

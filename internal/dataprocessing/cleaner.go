package dataprocessing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TradeLeg is one cleaned ledger row. Either side may be empty, and a row
// may legitimately carry both.
type TradeLeg struct {
	Line int

	BoughtCode     Text
	BoughtName     Text
	BoughtQuantity Amount

	SoldCode     Text
	SoldName     Text
	SoldQuantity Amount

	ScripName   Text
	MarketValue Amount
}

// CellCoercionWarning records a numeric cell that could not be parsed. The
// cell is treated as missing and processing continues.
type CellCoercionWarning struct {
	Line   int    `json:"line"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

func (w CellCoercionWarning) String() string {
	return fmt.Sprintf("line %d: %s: cannot parse %q as a number", w.Line, w.Column, w.Value)
}

// CleanStats summarizes what the cleaner changed.
type CleanStats struct {
	DroppedColumns   []string
	DefaultedColumns []string
	ScrubbedLegs     int
	DroppedRows      int
}

// Cleaner turns normalized rows into TradeLegs.
type Cleaner struct {
	dropColumns []string
	excluded    map[string]struct{}
	mode        ScrubMode
}

// NewCleaner creates a cleaner from the pipeline options
func NewCleaner(opts ProcessingOptions) *Cleaner {
	mode := opts.ScrubMode
	if mode == "" {
		mode = ScrubIdentity
	}
	return &Cleaner{
		dropColumns: opts.DropColumns,
		excluded:    opts.excludedSet(),
		mode:        mode,
	}
}

// Clean prunes the deny-listed columns from t and converts each row. Cell
// coercion problems are returned as warnings, never as errors.
func (c *Cleaner) Clean(t *Table) ([]TradeLeg, []CellCoercionWarning, CleanStats) {
	var stats CleanStats
	var warnings []CellCoercionWarning

	stats.DroppedColumns = t.Drop(c.dropColumns...)

	for _, col := range []string{ColBoughtQuantity, ColSoldQuantity, ColScripName, ColMarketValue} {
		if !t.Has(col) {
			stats.DefaultedColumns = append(stats.DefaultedColumns, col)
		}
	}

	amount := func(row Row, col string) Amount {
		raw := t.Cell(row, col)
		v, ok := ParseAmount(raw)
		if !ok {
			warnings = append(warnings, CellCoercionWarning{Line: row.Line, Column: col, Value: raw})
		}
		return v
	}

	legs := make([]TradeLeg, 0, len(t.Rows))
	for _, row := range t.Rows {
		leg := TradeLeg{
			Line:           row.Line,
			BoughtCode:     NewText(t.Cell(row, ColBoughtCode)),
			BoughtName:     NewText(t.Cell(row, ColBoughtName)),
			BoughtQuantity: amount(row, ColBoughtQuantity),
			SoldCode:       NewText(t.Cell(row, ColSoldCode)),
			SoldName:       NewText(t.Cell(row, ColSoldName)),
			SoldQuantity:   amount(row, ColSoldQuantity),
			ScripName:      NewText(t.Cell(row, ColScripName)),
			MarketValue:    amount(row, ColMarketValue),
		}

		scrubbed, keep := c.scrub(&leg)
		if !keep {
			stats.DroppedRows++
			continue
		}
		stats.ScrubbedLegs += scrubbed

		legs = append(legs, NormalizeSigns(leg))
	}

	return legs, warnings, stats
}

// scrub applies the excluded-code rule to both sides. It returns how many
// sides were scrubbed and whether the row survives.
func (c *Cleaner) scrub(leg *TradeLeg) (int, bool) {
	boughtHit := c.isExcluded(leg.BoughtCode)
	soldHit := c.isExcluded(leg.SoldCode)
	if !boughtHit && !soldHit {
		return 0, true
	}

	if c.mode == ScrubDropRow {
		return 0, false
	}

	n := 0
	if boughtHit {
		leg.BoughtCode, leg.BoughtName = NullText, NullText
		n++
	}
	if soldHit {
		leg.SoldCode, leg.SoldName = NullText, NullText
		n++
	}
	return n, true
}

func (c *Cleaner) isExcluded(code Text) bool {
	if !code.Valid {
		return false
	}
	_, ok := c.excluded[code.Value]
	return ok
}

// NormalizeSigns forces a present sold quantity to -|q| and, on rows with a
// sold quantity, the market value to -|mv|. Applying it twice is a no-op.
func NormalizeSigns(leg TradeLeg) TradeLeg {
	leg.SoldQuantity = leg.SoldQuantity.NegAbs()
	if leg.SoldQuantity.Valid {
		leg.MarketValue = leg.MarketValue.NegAbs()
	}
	return leg
}

// numberReplacer strips grouping separators commonly found in exported ledgers.
var numberReplacer = strings.NewReplacer(",", "", "_", "", " ", "", "\u00a0", "", "\u202f", "", "'", "")

// ParseAmount parses a numeric cell. A blank cell is missing and ok. A cell
// that cannot be parsed is missing and not ok. Accounting negatives such as
// "(1,250)" are accepted.
func ParseAmount(raw string) (Amount, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return NullAmount, true
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.TrimPrefix(numberReplacer.Replace(s), "+")
	if s == "" {
		return NullAmount, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return NullAmount, false
	}
	if negative {
		d = d.Abs().Neg()
	}
	return NewAmount(d), true
}

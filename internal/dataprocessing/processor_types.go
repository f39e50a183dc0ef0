package dataprocessing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Canonical ledger column names, after header normalization.
const (
	ColBoughtCode     = "Bought Code"
	ColBoughtName     = "Bought Name"
	ColBoughtQuantity = "Bought Quantity"
	ColSoldCode       = "Sold Code"
	ColSoldName       = "Sold Name"
	ColSoldQuantity   = "Sold Quantity"
	ColScripName      = "Scrip Name"
	ColMarketValue    = "Mkt. Value"
)

// identityColumns are the structural columns a ledger must carry at least
// one of. Quantity and value columns can be defaulted, these cannot.
var identityColumns = []string{ColBoughtCode, ColBoughtName, ColSoldCode, ColSoldName, ColScripName}

// DefaultDropColumns returns the columns removed before cleaning. None of
// them feed the aggregation.
func DefaultDropColumns() []string {
	return []string{
		"Exch", "Book Type", "Settlement", "Transaction Date",
		"Order #", "Order Time", "Trade #", "Trade Time",
		"Terminal #", "CTCL Terminal #", "Txn Type",
		"Scrip Code", "*", "Expiry Date", "Strike Price",
		"O.T.", "Market Rate", "Bought Branch Code",
		"Bought Rate", "Sold Branch Code", "Sold Rate",
		"Brok-Cont", "Value-Brok",
	}
}

// ScrubMode selects what happens to a leg whose code is an excluded system code.
type ScrubMode string

const (
	// ScrubIdentity nulls the leg's code and name and keeps its quantity.
	ScrubIdentity ScrubMode = "scrub-identity"
	// ScrubDropRow removes the whole row.
	ScrubDropRow ScrubMode = "drop-row"
)

// ParseScrubMode validates a configured mode. Empty selects ScrubIdentity.
func ParseScrubMode(s string) (ScrubMode, error) {
	switch ScrubMode(s) {
	case "", ScrubIdentity:
		return ScrubIdentity, nil
	case ScrubDropRow:
		return ScrubDropRow, nil
	default:
		return "", fmt.Errorf("unknown scrub mode %q (want %q or %q)", s, ScrubIdentity, ScrubDropRow)
	}
}

// ProcessingOptions configures the ledger pipeline
type ProcessingOptions struct {
	// SheetName selects the worksheet; empty means the first sheet.
	SheetName string

	// HeaderRow is the 0-based index of the header among the sheet's
	// non-blank rows. Rows above it are discarded.
	HeaderRow int

	// DropColumns are removed from the table before cleaning.
	DropColumns []string

	// ExcludedCodes are system codes whose identity is scrubbed.
	ExcludedCodes []string

	// ScrubMode decides between scrubbing identity and dropping the row.
	ScrubMode ScrubMode

	// QuantityThreshold and ValueThreshold are inclusive absolute minimums;
	// a group survives when either is met.
	QuantityThreshold decimal.Decimal
	ValueThreshold    decimal.Decimal

	// PreviewRows limits the preview payload.
	PreviewRows int
}

// DefaultOptions returns default processing options
func DefaultOptions() ProcessingOptions {
	return ProcessingOptions{
		HeaderRow:         0,
		DropColumns:       DefaultDropColumns(),
		ExcludedCodes:     []string{"SYS18", "SYS27"},
		ScrubMode:         ScrubIdentity,
		QuantityThreshold: decimal.NewFromInt(10000),
		ValueThreshold:    decimal.NewFromInt(1000000),
		PreviewRows:       5,
	}
}

// Validate reports option values the pipeline cannot run with.
func (o ProcessingOptions) Validate() error {
	if o.HeaderRow < 0 {
		return fmt.Errorf("header row must not be negative: %d", o.HeaderRow)
	}
	if _, err := ParseScrubMode(string(o.ScrubMode)); err != nil {
		return err
	}
	if o.QuantityThreshold.IsNegative() || o.ValueThreshold.IsNegative() {
		return fmt.Errorf("thresholds must not be negative")
	}
	if o.PreviewRows < 0 {
		return fmt.Errorf("preview rows must not be negative: %d", o.PreviewRows)
	}
	return nil
}

func (o ProcessingOptions) excludedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(o.ExcludedCodes))
	for _, code := range o.ExcludedCodes {
		set[code] = struct{}{}
	}
	return set
}

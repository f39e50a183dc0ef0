package dataprocessing

import (
	"github.com/shopspring/decimal"

	"tradeledger/pkg/contracts/domain"
)

// GroupKey identifies an instrument position. A missing component is a
// distinct key value, so rows without identity still form a group.
type GroupKey struct {
	Name  Text
	Scrip Text
	Code  Text
}

// Group is the signed total of every merged record sharing a key.
type Group struct {
	Key         GroupKey
	SumQuantity decimal.Decimal
	SumValue    decimal.Decimal
	Records     int
}

// Aggregator groups merged records and applies the materiality filter.
type Aggregator struct {
	quantityThreshold decimal.Decimal
	valueThreshold    decimal.Decimal
}

// NewAggregator creates an aggregator with inclusive thresholds.
func NewAggregator(quantityThreshold, valueThreshold decimal.Decimal) *Aggregator {
	return &Aggregator{
		quantityThreshold: quantityThreshold,
		valueThreshold:    valueThreshold,
	}
}

// Group sums quantity and value per key in a single pass. Groups are returned
// in order of the first appearance of their key. Missing amounts add zero.
func (a *Aggregator) Group(records []MergedRecord) []Group {
	index := make(map[GroupKey]int)
	groups := make([]Group, 0)

	for _, rec := range records {
		key := GroupKey{Name: rec.FinalName, Scrip: rec.ScripName, Code: rec.FinalCode}

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key, SumQuantity: decimal.Zero, SumValue: decimal.Zero})
		}

		g := &groups[i]
		g.SumQuantity = g.SumQuantity.Add(rec.FinalQuantity.OrZero())
		g.SumValue = g.SumValue.Add(rec.MarketValue.OrZero())
		g.Records++
	}

	return groups
}

// IsMaterial reports whether a group meets either threshold.
func (a *Aggregator) IsMaterial(g Group) bool {
	return g.SumQuantity.Abs().GreaterThanOrEqual(a.quantityThreshold) ||
		g.SumValue.Abs().GreaterThanOrEqual(a.valueThreshold)
}

// Filter keeps material groups, preserving order.
func (a *Aggregator) Filter(groups []Group) []Group {
	kept := make([]Group, 0, len(groups))
	for _, g := range groups {
		if a.IsMaterial(g) {
			kept = append(kept, g)
		}
	}
	return kept
}

// ToLedgerRow converts a group to its output shape.
func (g Group) ToLedgerRow() domain.LedgerRow {
	return domain.LedgerRow{
		BoughtName:          g.Key.Name.Ptr(),
		ScripName:           g.Key.Scrip.Ptr(),
		BoughtCode:          g.Key.Code.Ptr(),
		SumOfBoughtQuantity: g.SumQuantity,
		SumOfValue:          g.SumValue,
	}
}

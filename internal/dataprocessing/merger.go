package dataprocessing

// MergedRecord is a TradeLeg collapsed to a single identity and net quantity.
type MergedRecord struct {
	Line          int
	FinalCode     Text
	FinalName     Text
	ScripName     Text
	FinalQuantity Amount
	MarketValue   Amount
}

// MergeLeg prefers the bought identity and sums both quantities, so a row
// carrying a bought and a sold leg contributes its net position.
func MergeLeg(leg TradeLeg) MergedRecord {
	return MergedRecord{
		Line:          leg.Line,
		FinalCode:     leg.BoughtCode.Coalesce(leg.SoldCode),
		FinalName:     leg.BoughtName.Coalesce(leg.SoldName),
		ScripName:     leg.ScripName,
		FinalQuantity: leg.BoughtQuantity.Plus(leg.SoldQuantity),
		MarketValue:   leg.MarketValue,
	}
}

// Merge applies MergeLeg to every cleaned leg, preserving order.
func Merge(legs []TradeLeg) []MergedRecord {
	merged := make([]MergedRecord, len(legs))
	for i, leg := range legs {
		merged[i] = MergeLeg(leg)
	}
	return merged
}

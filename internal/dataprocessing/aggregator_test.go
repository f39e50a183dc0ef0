package dataprocessing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultAggregator() *Aggregator {
	opts := DefaultOptions()
	return NewAggregator(opts.QuantityThreshold, opts.ValueThreshold)
}

func merged(name, scrip, code string, qty, value Amount) MergedRecord {
	return MergedRecord{
		FinalName:     NewText(name),
		ScripName:     NewText(scrip),
		FinalCode:     NewText(code),
		FinalQuantity: qty,
		MarketValue:   value,
	}
}

func TestMergeLeg(t *testing.T) {
	tests := []struct {
		name     string
		leg      TradeLeg
		wantCode string
		wantName string
		wantQty  Amount
	}{
		{
			name:     "bought only",
			leg:      TradeLeg{BoughtCode: NewText("A1"), BoughtName: NewText("Alpha"), BoughtQuantity: AmountFromInt(12000)},
			wantCode: "A1", wantName: "Alpha", wantQty: AmountFromInt(12000),
		},
		{
			name:     "sold only",
			leg:      TradeLeg{SoldCode: NewText("A1"), SoldName: NewText("Alpha"), SoldQuantity: AmountFromInt(-2000)},
			wantCode: "A1", wantName: "Alpha", wantQty: AmountFromInt(-2000),
		},
		{
			name: "both sides sum and prefer bought identity",
			leg: TradeLeg{
				BoughtCode: NewText("B1"), BoughtName: NewText("Beta"), BoughtQuantity: AmountFromInt(700),
				SoldCode: NewText("S1"), SoldName: NewText("Sigma"), SoldQuantity: AmountFromInt(-200),
			},
			wantCode: "B1", wantName: "Beta", wantQty: AmountFromInt(500),
		},
		{
			name:     "mixed identity sources",
			leg:      TradeLeg{BoughtName: NewText("Beta"), SoldCode: NewText("S1"), SoldQuantity: AmountFromInt(-1)},
			wantCode: "S1", wantName: "Beta", wantQty: AmountFromInt(-1),
		},
		{
			name:     "no quantities",
			leg:      TradeLeg{BoughtCode: NewText("A1")},
			wantCode: "A1", wantQty: NullAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := MergeLeg(tt.leg)
			assert.Equal(t, tt.wantCode, rec.FinalCode.Value)
			assert.Equal(t, tt.wantName, rec.FinalName.Value)
			assert.True(t, tt.wantQty.Equal(rec.FinalQuantity), "want %q got %q", tt.wantQty, rec.FinalQuantity)
		})
	}
}

func TestAggregatorGroupsInFirstAppearanceOrder(t *testing.T) {
	groups := defaultAggregator().Group([]MergedRecord{
		merged("Beta", "BETA", "B1", AmountFromInt(1), AmountFromInt(10)),
		merged("Alpha", "ALPHA", "A1", AmountFromInt(2), AmountFromInt(20)),
		merged("Beta", "BETA", "B1", AmountFromInt(3), AmountFromInt(30)),
		merged("Alpha", "ALPHA", "A2", AmountFromInt(4), AmountFromInt(40)),
	})

	require.Len(t, groups, 3)
	assert.Equal(t, "B1", groups[0].Key.Code.Value)
	assert.Equal(t, "A1", groups[1].Key.Code.Value)
	assert.Equal(t, "A2", groups[2].Key.Code.Value)
	assert.True(t, decimal.NewFromInt(4).Equal(groups[0].SumQuantity))
	assert.True(t, decimal.NewFromInt(40).Equal(groups[0].SumValue))
	assert.Equal(t, 2, groups[0].Records)
}

func TestAggregatorNullIdentityGroupSurvives(t *testing.T) {
	agg := defaultAggregator()
	groups := agg.Group([]MergedRecord{
		merged("", "", "", AmountFromInt(15000), AmountFromInt(10)),
		merged("Alpha", "ALPHA", "A1", AmountFromInt(20000), NullAmount),
		merged("", "", "", AmountFromInt(5000), NullAmount),
	})

	require.Len(t, groups, 2)
	null := groups[0]
	assert.Equal(t, GroupKey{}, null.Key)
	assert.True(t, decimal.NewFromInt(20000).Equal(null.SumQuantity))

	kept := agg.Filter(groups)
	require.Len(t, kept, 2)

	row := kept[0].ToLedgerRow()
	assert.Nil(t, row.BoughtName)
	assert.Nil(t, row.ScripName)
	assert.Nil(t, row.BoughtCode)
	assert.Equal(t, []string{"", "", "", "20000", "10"}, row.Values())
}

func TestAggregatorNullIsDistinctFromValue(t *testing.T) {
	groups := defaultAggregator().Group([]MergedRecord{
		merged("Alpha", "", "A1", AmountFromInt(1), NullAmount),
		merged("Alpha", "ALPHA", "A1", AmountFromInt(1), NullAmount),
	})
	assert.Len(t, groups, 2)
}

func TestAggregatorAllMissingSumsToZero(t *testing.T) {
	groups := defaultAggregator().Group([]MergedRecord{
		merged("Alpha", "ALPHA", "A1", NullAmount, NullAmount),
		merged("Alpha", "ALPHA", "A1", NullAmount, NullAmount),
	})

	require.Len(t, groups, 1)
	assert.True(t, groups[0].SumQuantity.IsZero())
	assert.True(t, groups[0].SumValue.IsZero())
	assert.Equal(t, "0", groups[0].SumQuantity.String())
}

func TestAggregatorThresholdBoundary(t *testing.T) {
	tests := []struct {
		name  string
		qty   int64
		value int64
		want  bool
	}{
		{"quantity exactly at threshold", 10000, 0, true},
		{"negative quantity at threshold", -10000, 0, true},
		{"value exactly at threshold", 0, 1000000, true},
		{"negative value at threshold", 0, -1000000, true},
		{"both just below", 9999, 999999, false},
		{"quantity above value below", 10001, 1, true},
		{"zero", 0, 0, false},
	}

	agg := defaultAggregator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Group{SumQuantity: decimal.NewFromInt(tt.qty), SumValue: decimal.NewFromInt(tt.value)}
			assert.Equal(t, tt.want, agg.IsMaterial(g))
		})
	}
}

func TestAggregatorCustomThresholds(t *testing.T) {
	agg := NewAggregator(decimal.NewFromInt(100), decimal.NewFromInt(5000))
	kept := agg.Filter([]Group{
		{Key: GroupKey{Code: NewText("A")}, SumQuantity: decimal.NewFromInt(100)},
		{Key: GroupKey{Code: NewText("B")}, SumQuantity: decimal.NewFromInt(99), SumValue: decimal.NewFromInt(4999)},
		{Key: GroupKey{Code: NewText("C")}, SumValue: decimal.NewFromInt(5000)},
	})

	require.Len(t, kept, 2)
	assert.Equal(t, "A", kept[0].Key.Code.Value)
	assert.Equal(t, "C", kept[1].Key.Code.Value)
}

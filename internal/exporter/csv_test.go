package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/config"
	"tradeledger/pkg/contracts/domain"
)

func setupTestEnv(t *testing.T) (*config.Paths, func()) {
	t.Helper()
	tempDir := t.TempDir()
	paths := &config.Paths{ScratchDir: tempDir}
	return paths, func() {}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func strPtr(s string) *string { return &s }

func TestWriteLedger_Destinations(t *testing.T) {
	paths, cleanup := setupTestEnv(t)
	defer cleanup()

	writer := NewCSVWriter(paths)
	rows := []domain.LedgerRow{{
		BoughtName:          strPtr("Alpha, Inc"),
		SumOfBoughtQuantity: decimal.NewFromInt(10000),
		SumOfValue:          decimal.Zero,
	}}
	absolute := filepath.Join(t.TempDir(), "abs.csv")

	tests := []struct {
		name     string
		filePath string
		opts     LedgerOptions
		fullPath string
		validate func(t *testing.T, data []byte)
	}{
		{
			name:     "nested directory is created",
			filePath: filepath.Join("req", "out", "nested.csv"),
			opts:     DefaultLedgerOptions(),
			fullPath: filepath.Join(paths.ScratchDir, "req", "out", "nested.csv"),
			validate: func(t *testing.T, data []byte) {
				assert.True(t, bytes.HasPrefix(data, []byte("Bought Name,")))
			},
		},
		{
			name:     "bom prefix",
			filePath: "bom.csv",
			opts:     LedgerOptions{BOMPrefix: true, DecimalPlaces: -1},
			fullPath: filepath.Join(paths.ScratchDir, "bom.csv"),
			validate: func(t *testing.T, data []byte) {
				assert.True(t, bytes.HasPrefix(data, utf8BOM))
			},
		},
		{
			name:     "quotes embedded separators",
			filePath: "quoted.csv",
			opts:     DefaultLedgerOptions(),
			fullPath: filepath.Join(paths.ScratchDir, "quoted.csv"),
			validate: func(t *testing.T, data []byte) {
				assert.Contains(t, string(data), `"Alpha, Inc"`)
			},
		},
		{
			name:     "absolute path ignores scratch",
			filePath: absolute,
			opts:     DefaultLedgerOptions(),
			fullPath: absolute,
			validate: func(t *testing.T, data []byte) {
				assert.NoFileExists(t, filepath.Join(paths.ScratchDir, "abs.csv"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := writer.WriteLedger(tt.filePath, rows, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			data, err := os.ReadFile(tt.fullPath)
			require.NoError(t, err)
			tt.validate(t, data)
		})
	}
}

func TestStreamWriter(t *testing.T) {
	paths, cleanup := setupTestEnv(t)
	defer cleanup()

	writer := NewCSVWriter(paths)
	stream, err := writer.CreateStreamWriter("stream.csv", []string{"n"}, false)
	require.NoError(t, err)

	for _, v := range []string{"1", "2", "3"} {
		require.NoError(t, stream.WriteRecord([]string{v}))
	}
	assert.Equal(t, 3, stream.Count())
	require.NoError(t, stream.Close())

	assert.Len(t, readCSV(t, filepath.Join(paths.ScratchDir, "stream.csv")), 4)
}

func TestWriteLedger(t *testing.T) {
	paths, cleanup := setupTestEnv(t)
	defer cleanup()

	rows := []domain.LedgerRow{
		{
			BoughtName:          strPtr("Alpha"),
			ScripName:           strPtr("ALPHA"),
			BoughtCode:          strPtr("A1"),
			SumOfBoughtQuantity: decimal.NewFromInt(10000),
			SumOfValue:          decimal.NewFromInt(42000),
		},
		{
			ScripName:           strPtr("BETA"),
			SumOfBoughtQuantity: decimal.RequireFromString("-12000.5"),
			SumOfValue:          decimal.Zero,
		},
	}

	n, err := NewCSVWriter(paths).WriteLedger("req/processed_trades.csv", rows, DefaultLedgerOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records := readCSV(t, filepath.Join(paths.ScratchDir, "req", "processed_trades.csv"))
	assert.Equal(t, [][]string{
		{"Bought Name", "Scrip Name", "Bought Code", "Sum of Bought Quantity", "Sum of Value"},
		{"Alpha", "ALPHA", "A1", "10000", "42000"},
		{"", "BETA", "", "-12000.5", "0"},
	}, records)
}

func TestWriteLedgerTo(t *testing.T) {
	rows := []domain.LedgerRow{{
		BoughtName:          strPtr("=HYPERLINK()"),
		ScripName:           strPtr("ALPHA"),
		BoughtCode:          strPtr("A1"),
		SumOfBoughtQuantity: decimal.NewFromInt(-15000),
		SumOfValue:          decimal.RequireFromString("2.5"),
	}}

	tests := []struct {
		name string
		opts LedgerOptions
		want string
	}{
		{
			name: "defaults",
			opts: DefaultLedgerOptions(),
			want: "Bought Name,Scrip Name,Bought Code,Sum of Bought Quantity,Sum of Value\n" +
				"=HYPERLINK(),ALPHA,A1,-15000,2.5\n",
		},
		{
			name: "escape formulas leaves sums alone",
			opts: LedgerOptions{EscapeFormulas: true, DecimalPlaces: -1},
			want: "Bought Name,Scrip Name,Bought Code,Sum of Bought Quantity,Sum of Value\n" +
				"'=HYPERLINK(),ALPHA,A1,-15000,2.5\n",
		},
		{
			name: "fixed places",
			opts: LedgerOptions{DecimalPlaces: 2},
			want: "Bought Name,Scrip Name,Bought Code,Sum of Bought Quantity,Sum of Value\n" +
				"=HYPERLINK(),ALPHA,A1,-15000.00,2.50\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteLedgerTo(&buf, rows, tt.opts))
			assert.Equal(t, tt.want, buf.String())
		})
	}

	t.Run("bom", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteLedgerTo(&buf, nil, LedgerOptions{BOMPrefix: true, DecimalPlaces: -1}))
		assert.True(t, strings.HasPrefix(buf.String(), string(utf8BOM)+"Bought Name"))
	})
}

func TestEscapeFormula(t *testing.T) {
	tests := map[string]string{
		"":      "",
		"Alpha": "Alpha",
		"=1+1":  "'=1+1",
		"+CMD":  "'+CMD",
		"-2":    "'-2",
		"@SUM":  "'@SUM",
		"  =A1": "'  =A1",
		"A=B":   "A=B",
		"   ":   "   ",
	}
	for in, want := range tests {
		assert.Equal(t, want, escapeFormula(in), "input %q", in)
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/shared/testutil"
)

const wantCSV = "Bought Name,Scrip Name,Bought Code,Sum of Bought Quantity,Sum of Value\n" +
	"Alpha,ALPHA,A1,10000,42000\n"

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	return runCLIWithInput(t, bytes.NewReader(nil), args...)
}

func runCLIWithInput(t *testing.T, stdin io.Reader, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, stdin, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_WritesCSVAndSummary(t *testing.T) {
	in := testutil.WriteWorkbook(t, "Trades", testutil.SampleLedger())
	out := filepath.Join(t.TempDir(), "summary.csv")

	code, stdout, stderr := runCLI(t, "-in", in, "-out", out)
	require.Equal(t, exitOK, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, wantCSV, string(data))

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, float64(1), summary["total_records"])
	assert.Equal(t, float64(3), summary["data_rows"])
	assert.Equal(t, "Trades", summary["sheet"])
	assert.Equal(t, out, summary["output"])
	assert.Len(t, summary["preview"], 1)
}

func TestRun_CSVToStdout(t *testing.T) {
	in := testutil.WriteWorkbook(t, "Sheet1", testutil.SampleLedger())

	code, stdout, stderr := runCLI(t, "-in", in, "-out", "-", "-preview", "0")
	require.Equal(t, exitOK, code, stderr)

	assert.Equal(t, wantCSV, stdout)
	assert.Contains(t, stderr, `"total_records": 1`)
	assert.Contains(t, stderr, `"preview": []`)
}

func TestRun_SummaryOnly(t *testing.T) {
	in := testutil.WriteWorkbook(t, "Sheet1", testutil.SampleLedger())

	code, stdout, _ := runCLI(t, "-in", in)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, `"columns"`)
	assert.NotContains(t, stdout, `"output"`)
}

func TestRun_Errors(t *testing.T) {
	junk := filepath.Join(t.TempDir(), "junk.xlsx")
	require.NoError(t, os.WriteFile(junk, []byte("not a workbook"), 0o644))
	valid := testutil.WriteWorkbook(t, "Sheet1", testutil.SampleLedger())

	tests := []struct {
		name     string
		args     []string
		env      map[string]string
		wantCode int
		wantErr  string
	}{
		{"missing input", nil, nil, exitUsage, "-in is required"},
		{"unknown flag", []string{"-nope"}, nil, exitUsage, "flag provided but not defined"},
		{"bad scrub mode", []string{"-in", valid, "-scrub-mode", "shred"}, nil, exitUsage, "unknown scrub mode"},
		{"bad scrub mode from environment", []string{"-in", valid}, map[string]string{"LEDGER_PIPELINE_SCRUB_MODE": "shred"}, exitUsage, "ScrubMode"},
		{"wrong extension", []string{"-in", filepath.Join(t.TempDir(), "ledger.csv")}, nil, exitFailure, "Only .xlsx files are allowed"},
		{"not a workbook", []string{"-in", junk}, nil, exitFailure, "ledgeragg:"},
		{"missing file", []string{"-in", filepath.Join(t.TempDir(), "absent.xlsx")}, nil, exitFailure, "does not exist"},
		{"stdin not a workbook", []string{"-in", "-"}, nil, exitFailure, "Only .xlsx files are allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, stderr, tt.wantErr)
		})
	}
}

func TestRun_StdinInput(t *testing.T) {
	workbook := testutil.WorkbookBytes(t, testutil.SampleLedger())

	code, stdout, stderr := runCLIWithInput(t, bytes.NewReader(workbook), "-in", "-", "-out", "-")
	require.Equal(t, exitOK, code, stderr)

	assert.Equal(t, wantCSV, stdout)
	assert.Contains(t, stderr, `"input": "-"`)
	assert.Contains(t, stderr, `"sheet": "Sheet1"`)
}

func TestRun_StdinTooLarge(t *testing.T) {
	t.Setenv("LEDGER_SECURITY_MAX_UPLOAD_BYTES", "16")
	workbook := testutil.WorkbookBytes(t, testutil.SampleLedger())

	code, _, stderr := runCLIWithInput(t, bytes.NewReader(workbook), "-in", "-")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "exceeds the maximum allowed size")
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "-version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "3.0.0")
}

// Package shared holds code used across layers that belongs to no single
// domain package.
//
// The testutil subpackage provides a capturing slog handler and builders
// for .xlsx trade ledger fixtures:
//
//	logger, logs := testutil.NewTestLogger(t)
//	path := testutil.WriteWorkbook(t, "Sheet1", testutil.SampleLedger())
package shared

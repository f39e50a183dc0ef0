// Package services implements the business logic behind the HTTP handlers.
//
// LedgerService owns the upload flow: it validates the upload, stores it in
// a private request directory, runs the ledger pipeline, writes the CSV
// artifact and registers it for download. HealthService answers the health,
// liveness and readiness probes.
//
// Handlers depend on small interfaces rather than on these types, so the
// services can be replaced with testify mocks in handler tests.
package services

// Package app wires the trade ledger service together and owns its
// lifecycle.
//
// NewApplication resolves the scratch directories, initializes telemetry
// when the caller did not, and builds the artifact store, the ledger
// pipeline, the services and the chi router in that order. Nothing is
// started until Run is called.
//
// # Middleware order
//
//	RequestID → RealIP → StripSlashes → Telemetry → StructuredLogger → Recovery → SecurityHeaders → CORS
//
// Routes below /api additionally get a JSON content type and a request
// timeout. The upload route is rate limited when enabled in configuration.
//
// # Lifecycle
//
// Run serves HTTP and runs the artifact janitor in one errgroup. SIGINT,
// SIGTERM or cancellation of the parent context triggers Stop, which drains
// in-flight requests within the shutdown timeout and flushes telemetry.
// Errors are returned to the caller; the package never calls os.Exit.
package app

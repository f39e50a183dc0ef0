// Package http implements the HTTP handlers of the ledger service. Handlers
// only deal with HTTP concerns: they parse the request, call a service
// interface and render the result. Every failure goes through
// errors.ErrorHandler and is answered as an RFC 7807 problem.
//
// Routes served:
//
//	POST /api/upload                    multipart field "file", .xlsx only
//	GET  /api/download/{id}/{filename}  CSV artifact of one upload
//	GET  /api/download/{filename}       most recent artifact with that name
//	GET  /api/health                    {"status":"healthy","backend":"Go",...}
//	GET  /api/version                   build information
//	GET  /healthz, /readyz              liveness and readiness probes
package http

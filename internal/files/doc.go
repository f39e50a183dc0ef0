// Package files owns the scratch area where uploads and generated ledgers
// live between the upload and the download request.
//
// Store hands every upload a private directory named by a random UUID,
// registers the CSV written into it and resolves download requests either
// by (id, name) or, for the legacy route, by name alone. A janitor removes
// request directories once they outlive the configured TTL.
//
// Discovery lists request directories and finds artifacts by name; the
// store falls back to it when the in-memory index is cold.
//
//	store, err := files.NewStore(paths, time.Hour, 10*time.Minute, logger)
//	req, err := store.NewRequest()
//	defer store.Discard(req) // on failure
//	artifact, err := store.Register(req, "processed_trades.csv")
package files

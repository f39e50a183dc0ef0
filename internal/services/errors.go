package services

import "errors"

// Service errors
var (
	// Upload errors
	ErrNoProcessor = errors.New("no ledger processor configured")
	ErrNoStore     = errors.New("no artifact store configured")

	// Readiness errors
	ErrScratchNotWritable = errors.New("scratch directory is not writable")
)

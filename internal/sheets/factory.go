package sheets

import (
	"context"
	"fmt"
)

// Options selects and configures a Workbook backend.
type Options struct {
	// Backend is "google" or "memory".
	Backend string
	// SpreadsheetID identifies the workbook (google backend only).
	SpreadsheetID string
	// CredentialsFile is a path to a service-account key file (optional).
	CredentialsFile string
	// CredentialsJSON is the service-account key as a string, useful when the
	// key arrives through an environment variable (optional).
	CredentialsJSON string
}

// New creates the configured Workbook backend. The memory backend holds no
// data across restarts and exists for tests and credential-free local runs.
func New(ctx context.Context, opts Options) (Workbook, error) {
	switch opts.Backend {
	case "google":
		return NewGoogleWorkbook(ctx, opts.SpreadsheetID, opts.CredentialsFile, opts.CredentialsJSON)
	case "memory":
		return NewMemoryWorkbook(), nil
	default:
		return nil, fmt.Errorf("sheets: unknown backend %q (must be google or memory)", opts.Backend)
	}
}

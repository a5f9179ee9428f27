// Package domain defines the core entities for layerpull.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ConnectionProfile: which portal, item and credential mode to use
//   - Item, ExportJob, ExportResult: the platform objects an export touches
//   - Table, TableSet: the loaded tabular data returned to callers
//   - LogEntry: a message destined for the diagnostic sink
//   - Credentials: cached OAuth tokens for app-registered sessions
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain

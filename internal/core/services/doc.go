// Package services implements the driving ports: connection, export,
// the export-and-load workflow, cached sign-ins and settings.
//
// Services depend only on domain and the driven ports. Every stage records
// its own outcome in the diagnostic sink, tagged with the run ID carried in
// the context.
package services

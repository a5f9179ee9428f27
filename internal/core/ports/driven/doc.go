// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - PortalSession: An authenticated ArcGIS portal connection
//   - Authenticator / AuthenticatorFactory: Session creation per credential mode
//   - ArchiveExtractor: Unpacks downloaded export archives
//   - TableImporter: Loads extracted files into tables
//   - DiagnosticSink / MessageLog: Persistent operator message log
//   - CredentialsStore: Cached OAuth tokens
//   - ConfigStore: Application configuration file
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven

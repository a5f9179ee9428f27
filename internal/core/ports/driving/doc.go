// Package driving defines the interfaces the CLI calls into.
//
//   - LayerWorkflow: export an item and load its tables
//   - ConnectionEstablisher / LayerExporter: the workflow's stages
//   - CredentialsManager: cached app-registered sign-ins
//   - SettingsService: the configuration file
//
// Implementations live in internal/core/services.
package driving

package driving

import "github.com/custodia-labs/layerpull/internal/core/domain"

// SettingsService reads and writes the configuration file.
type SettingsService interface {
	// Get returns the stored value of key.
	Get(key string) (any, bool)

	// Set parses value according to the key's type, validates it and persists it.
	// Unknown keys and invalid values return an error wrapping
	// domain.ErrInvalidInput.
	Set(key, value string) error

	// Unset removes key so its default applies again.
	Unset(key string) error

	// List returns every stored key and value.
	List() map[string]any

	// Known returns the settable keys.
	Known() []domain.Setting

	// Path returns the configuration file path.
	Path() string
}

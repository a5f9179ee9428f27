package driven

// ConfigStore provides access to the persisted configuration file.
// Keys use dot notation ("export.timeout"); implementations map them to
// nested tables on disk.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// All returns every key with its value, using dot-notation keys.
	All() map[string]any

	// Set stores a configuration value.
	// The value is persisted immediately.
	Set(key string, value any) error

	// Unset removes a key and persists the change.
	// Returns domain.ErrNotFound if the key is not set.
	Unset(key string) error

	// Path returns the configuration file path.
	Path() string
}

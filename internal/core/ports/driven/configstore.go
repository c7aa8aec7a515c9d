package driven

// ConfigStore provides access to application configuration.
// Keys use dot notation matching the TOML sections, e.g. "cache.ttl_seconds".
// Typed getters return the zero value when a key is missing or has the wrong type;
// use Get to tell an explicit zero from an unset key.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	GetInt(key string) int

	// GetFloat retrieves a floating point configuration value.
	// Integer values are widened.
	GetFloat(key string) float64

	// GetBool retrieves a boolean configuration value.
	GetBool(key string) bool

	// Set stores a configuration value.
	// The value is persisted immediately.
	Set(key string, value any) error

	// Load re-reads configuration from storage, discarding unsaved state.
	Load() error

	// Path returns the configuration file path.
	Path() string
}

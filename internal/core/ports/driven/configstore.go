package driven

// ConfigStore holds flat settings addressed by dotted keys such as
// "retrieval.top_k". Typed getters return the zero value when a key is
// missing or holds another type; use Get to tell the two apart.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool

	// Set stores one value and persists it.
	Set(key string, value any) error

	// Update stores several values and persists them together, so a
	// failure leaves none of them written.
	Update(values map[string]any) error

	// Path names where the settings live, for display.
	Path() string
}

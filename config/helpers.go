package config

// GetInt reads an integer from a loosely typed map, such as decoded module
// parameters, returning defaultVal when the key is missing or mistyped.
// Floats are truncated.
func GetInt(cfg map[string]any, key string, defaultVal int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	}
	return defaultVal
}

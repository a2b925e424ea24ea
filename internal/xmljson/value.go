package xmljson

// AsArray returns `value` as a slice: nil becomes an empty slice, a slice is returned
// as is, and any other value becomes a one-element slice.
func AsArray(value interface{}) []interface{} {
	switch v := value.(type) {
	case nil:
		return []interface{}{}
	case []interface{}:
		return v
	default:
		return []interface{}{v}
	}
}

// Lookup walks nested maps along `path`. The second result is false when an
// intermediate value is missing or not a map.
func Lookup(value interface{}, path ...string) (interface{}, bool) {
	current := value
	for _, key := range path {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if current, ok = m[key]; !ok {
			return nil, false
		}
	}
	return current, true
}

// Text returns the character data of a decoded element.
func Text(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]interface{}:
		if s, ok := v[TextKey].(string); ok {
			return s
		}
	case []interface{}:
		if len(v) > 0 {
			return Text(v[0])
		}
	}
	return ""
}

// Find reports whether any map nested in `value` holds `key` with text `text`.
func Find(value interface{}, key, text string) bool {
	switch v := value.(type) {
	case map[string]interface{}:
		for k, child := range v {
			if k == key && Text(child) == text {
				return true
			}
			if Find(child, key, text) {
				return true
			}
		}
	case []interface{}:
		for _, child := range v {
			if Find(child, key, text) {
				return true
			}
		}
	}
	return false
}

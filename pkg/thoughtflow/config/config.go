package config

import (
	"sort"
)

// Config is a flow configuration: a parameter bag mapping names to
// scalar values (int/float/string/bool). All accessor methods return
// default values if the key is missing or the value cannot be
// converted to the requested type. There is no coercion across
// types; numeric widening (int -> float64, whole float64 -> int) is
// the only conversion performed, since JSON decoding turns every
// number into a float64.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map.
// If data is nil, an empty Config is returned.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// Has reports whether key is present, regardless of its type.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Len returns the number of parameters.
func (c Config) Len() int {
	return len(c.data)
}

// Keys returns the parameter names in sorted order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Raw returns a copy of the underlying map, suitable for persistence.
func (c Config) Raw() map[string]any {
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// String returns the string value for key, or defaultVal if missing or not a string.
func (c Config) String(key, defaultVal string) string {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	if s, ok := v.(string); ok {
		return s
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal if missing or not a bool.
func (c Config) Bool(key string, defaultVal bool) bool {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal if missing or not convertible.
//
// Accepts:
//   - int: used directly
//   - int64: converted to int
//   - float64: converted to int (only if no fractional part)
func (c Config) Int(key string, defaultVal int) int {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Float returns the float64 value for key, or defaultVal if missing or not convertible.
//
// Accepts:
//   - float64: used directly
//   - int: converted to float64
//   - int64: converted to float64
func (c Config) Float(key string, defaultVal float64) float64 {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	}
	return defaultVal
}

// IntInRange reports whether key (when present) holds an integer in
// [min, max]. A missing key is valid: the caller's default applies.
// A present key of the wrong type or outside the range is invalid.
func (c Config) IntInRange(key string, min, max int) bool {
	v, ok := c.data[key]
	if !ok {
		return true
	}
	var n int
	switch val := v.(type) {
	case int:
		n = val
	case int64:
		n = int(val)
	case float64:
		if val != float64(int(val)) {
			return false
		}
		n = int(val)
	default:
		return false
	}
	return n >= min && n <= max
}

// StringInSet reports whether key (when present) holds one of the
// allowed strings. A missing key is valid: the caller's default applies.
func (c Config) StringInSet(key string, allowed ...string) bool {
	v, ok := c.data[key]
	if !ok {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

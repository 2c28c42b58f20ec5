package doc

import (
	"reflect"
	"strconv"
)

// Attrs is the attribute map of a node. Attribute maps are treated as
// immutable; use With/Without to derive changed copies.
type Attrs map[string]any

// Clone returns a shallow copy of the map.
func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// With returns a copy with key set to value.
func (a Attrs) With(key string, value any) Attrs {
	out := a.Clone()
	out[key] = value
	return out
}

// Without returns a copy with key removed.
func (a Attrs) Without(key string) Attrs {
	out := a.Clone()
	delete(out, key)
	return out
}

// String returns the string value of key, or "" when absent or not a string.
func (a Attrs) String(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the integer value of key. JSON numbers decode as float64;
// both forms and numeric strings are accepted.
func (a Attrs) Int(key string, fallback int) int {
	switch v := a[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// Bool returns the boolean value of key.
func (a Attrs) Bool(key string) bool {
	v, _ := a[key].(bool)
	return v
}

// Ints returns an integer list attribute such as colwidth.
func (a Attrs) Ints(key string) []int {
	switch v := a[key].(type) {
	case []int:
		return v
	case []any:
		out := make([]int, 0, len(v))
		for _, item := range v {
			switch n := item.(type) {
			case float64:
				out = append(out, int(n))
			case int:
				out = append(out, n)
			default:
				return nil
			}
		}
		return out
	}
	return nil
}

// Equal compares two attribute maps, treating nil values as absent.
func (a Attrs) Equal(other Attrs) bool {
	for k, v := range a {
		if v == nil {
			if other[k] != nil {
				return false
			}
			continue
		}
		if !attrValueEqual(v, other[k]) {
			return false
		}
	}
	for k, v := range other {
		if v != nil && a[k] == nil {
			return false
		}
	}
	return true
}

func attrValueEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

package model

import "strings"

// Data is the open per-task field bag. Values are one of: string, []string
// (or []any of strings after JSON decoding), float64, bool, map[string]any,
// []any, or nil.
type Data map[string]any

// Clone returns a shallow copy. Nested slices and maps are shared.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// String returns the value at key if it is a string, else "".
func (d Data) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Strings returns the value at key as a list of strings. A plain string
// becomes a one-element list; non-string array members are dropped.
func (d Data) Strings(key string) []string {
	return AsStrings(d[key])
}

func AsStrings(v any) []string {
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		return []string{x}
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

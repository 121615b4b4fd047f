package config

import "fmt"

// Options is a loosely-typed option bag decoded from JSON. Accessors apply
// defaults and tolerate the usual JSON number/string looseness so parser
// and extractor options stay declarative in the pipeline file.
type Options map[string]any

// Bool returns the boolean option for key, or def when absent/mistyped.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the integer option for key, or def when absent/mistyped.
// JSON numbers decode as float64; they are truncated here.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// Int64 returns the 64-bit integer option for key, or def.
func (o Options) Int64(key string, def int64) int64 {
	switch v := o[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return def
	}
}

// String returns the string option for key, or def when absent/mistyped.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Rune returns the first rune of the string option for key, or def.
func (o Options) Rune(key string, def rune) rune {
	if s := o.String(key, ""); s != "" {
		for _, r := range s {
			return r
		}
	}
	return def
}

// StringMap returns the string-to-string map option for key, or an empty map.
func (o Options) StringMap(key string) map[string]string {
	out := map[string]string{}
	m, ok := o[key].(map[string]any)
	if !ok {
		return out
	}
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// Any returns the raw option value for key, or nil.
func (o Options) Any(key string) any { return o[key] }

// Require returns the string option for key or an error naming it. Used for
// options that have no sensible default.
func (o Options) Require(key string) (string, error) {
	s := o.String(key, "")
	if s == "" {
		return "", fmt.Errorf("option %q is required", key)
	}
	return s, nil
}

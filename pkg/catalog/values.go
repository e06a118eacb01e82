package catalog

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var digitsPattern = regexp.MustCompile(`\d+`)

// String converts a property value to a trimmed string. Integral floats
// print without a fraction.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// FirstString returns the first non-empty string among the keys of props.
func FirstString(props map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := String(props[k]); s != "" {
			return s
		}
	}
	return ""
}

// Int converts a property value to an int. Strings yield their first run of
// digits, so "全10巻" is 10.
func Int(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case int32:
		return int(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case string:
		m := digitsPattern.FindString(t)
		if m == "" {
			return 0, false
		}
		n, err := strconv.Atoi(m)
		return n, err == nil
	}
	return 0, false
}

// Float converts a numeric property value to a float64.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// StringList converts a list property, or a comma separated string, to a
// list of non-empty trimmed strings.
func StringList(v any) []string {
	var out []string
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			if s := String(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := String(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// appendUnique appends the values of add missing from list.
func appendUnique(list []string, add ...string) []string {
	for _, a := range add {
		if a == "" {
			continue
		}
		found := false
		for _, l := range list {
			if l == a {
				found = true
				break
			}
		}
		if !found {
			list = append(list, a)
		}
	}
	return list
}

// printable reports whether v can be carried as a passthrough property.
// Vectors and nested maps are dropped.
func printable(v any) bool {
	switch t := v.(type) {
	case string, bool, int, int64, float64:
		return true
	case []string:
		return true
	case []any:
		for _, item := range t {
			if _, ok := item.(string); !ok {
				return false
			}
		}
		return true
	}
	return false
}

package converter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueType selects the coercion applied by convertValue
type ValueType int

const (
	TypeString ValueType = iota
	TypeInteger
	TypeFloat
	TypeBoolean
	TypeDateTime
)

// Source date layouts seen in legacy shop exports, tried in order
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// convertValue copies source[oldKey] into target[newKey] applying the typed
// coercion. An absent or nil source value is skipped silently; the consumed
// key is removed from source so leftover fields can be reported.
func convertValue(target map[string]any, newKey string, source map[string]any, oldKey string, valueType ValueType) {
	value, ok := source[oldKey]
	if !ok || value == nil {
		delete(source, oldKey)
		return
	}
	delete(source, oldKey)

	switch valueType {
	case TypeString:
		target[newKey] = toString(value)
	case TypeInteger:
		if n, ok := toInt(value); ok {
			target[newKey] = n
		}
	case TypeFloat:
		if f, ok := toFloat(value); ok {
			target[newKey] = f
		}
	case TypeBoolean:
		target[newKey] = toBool(value)
	case TypeDateTime:
		if t, ok := toDateTime(value); ok {
			target[newKey] = t
		}
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return v == "1"
		}
		return b
	}
	return false
}

func toDateTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// clonePayload deep-copies a raw payload. Conversion consumes its working
// copy key by key, so the staged original must stay untouched for rejections
// and later reconversion.
func clonePayload(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = cloneValue(value)
	}
	return dst
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return clonePayload(v)
	case []map[string]any:
		cloned := make([]map[string]any, len(v))
		for i, item := range v {
			cloned[i] = clonePayload(item)
		}
		return cloned
	case []any:
		cloned := make([]any, len(v))
		for i, item := range v {
			cloned[i] = cloneValue(item)
		}
		return cloned
	default:
		return value
	}
}

// checkForEmptyRequiredFields returns the required field names whose values
// are absent or empty in the raw record
func checkForEmptyRequiredFields(data map[string]any, required []string) []string {
	var missing []string
	for _, field := range required {
		value, ok := data[field]
		if !ok || value == nil {
			missing = append(missing, field)
			continue
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// mapValue digs a nested map out of a raw record
func mapValue(data map[string]any, key string) (map[string]any, bool) {
	nested, ok := data[key].(map[string]any)
	return nested, ok
}

// sliceValue digs a slice of nested maps out of a raw record
func sliceValue(data map[string]any, key string) ([]map[string]any, bool) {
	switch v := data[key].(type) {
	case []map[string]any:
		return v, true
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for _, item := range v {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			rows = append(rows, row)
		}
		return rows, true
	}
	return nil, false
}

// stringValue reads a string field, coercing scalars
func stringValue(data map[string]any, key string) string {
	value, ok := data[key]
	if !ok || value == nil {
		return ""
	}
	return toString(value)
}

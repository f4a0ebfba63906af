package doc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Value is a normalized document value.
type Value = any

// Object is a normalized JSON object.
type Object = map[string]any

// ErrUnsupportedValue is returned for host values with no JSON form.
var ErrUnsupportedValue = errors.New("unsupported document value")

// Normalize converts v into the normalized value set. Integers of every
// width become int64, floats become float64 and json.Number is parsed.
// Maps with non-string keys, NaN, infinities and other host types are
// rejected.
func Normalize(v any) (Value, error) {
	switch val := v.(type) {
	case nil, bool, int64, float64, string:
		if f, ok := val.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return nil, fmt.Errorf("%v: %w", f, ErrUnsupportedValue)
		}
		return val, nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint:
		return normalizeUint(uint64(val))
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return normalizeUint(val)
	case float32:
		return Normalize(float64(val))
	case json.Number:
		return parseNumber(val)
	case []any:
		arr := make([]any, len(val))
		for i, elem := range val {
			n, err := Normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = n
		}
		return arr, nil
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			n, err := Normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = n
		}
		return obj, nil
	case map[any]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v (%T): %w", k, k, ErrUnsupportedValue)
			}
			n, err := Normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", key, err)
			}
			obj[key] = n
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("%T: %w", v, ErrUnsupportedValue)
	}
}

// NormalizeObject is Normalize for values that must be objects.
func NormalizeObject(v any) (Object, error) {
	n, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	obj, ok := n.(Object)
	if !ok {
		return nil, fmt.Errorf("document must be an object, got %s", TypeName(n))
	}
	return obj, nil
}

func normalizeUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("%d overflows int64: %w", u, ErrUnsupportedValue)
	}
	return int64(u), nil
}

// parseNumber keeps integer literals exact and turns everything else into
// float64.
func parseNumber(n json.Number) (Value, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("number %s: %w", s, err)
	}
	return f, nil
}

// Decode parses a single JSON value into its normalized form.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return Normalize(raw)
}

// DecodeObject parses a JSON object.
func DecodeObject(data []byte) (Object, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(Object)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %s", TypeName(v))
	}
	return obj, nil
}

// TypeName returns the JSON type name of a normalized value.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case []any:
		return "array"
	case Object:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

// Clone returns a deep copy of a normalized value.
func Clone(v Value) Value {
	switch val := v.(type) {
	case []any:
		arr := make([]any, len(val))
		for i, e := range val {
			arr[i] = Clone(e)
		}
		return arr
	case Object:
		obj := make(Object, len(val))
		for k, e := range val {
			obj[k] = Clone(e)
		}
		return obj
	}
	return v
}

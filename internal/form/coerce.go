package form

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// coerce converts loosely-typed input (decoded JSON, form strings) into the
// concrete type of the addressed field.
func coerce[T any](in any) (T, error) {
	var zero T
	if v, ok := in.(T); ok {
		return v, nil
	}
	var (
		out any
		ok  bool
	)
	switch any(zero).(type) {
	case string:
		out, ok = toString(in)
	case int:
		out, ok = toInt(in)
	case float64:
		out, ok = toFloat(in)
	case bool:
		out, ok = toBool(in)
	case *float64:
		if in == nil {
			return zero, nil
		}
		var f float64
		if f, ok = toFloat(in); ok {
			out = &f
		}
	default:
		// composite values (structs, lists) arrive as decoded JSON
		b, err := json.Marshal(in)
		if err != nil {
			return zero, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return zero, fmt.Errorf("%w: want %T: %v", ErrTypeMismatch, zero, err)
		}
		return v, nil
	}
	if !ok {
		return zero, fmt.Errorf("%w: want %T, got %T", ErrTypeMismatch, zero, in)
	}
	return out.(T), nil
}

func toString(in any) (string, bool) {
	switch v := in.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case nil:
		return "", true
	}
	return "", false
}

func toInt(in any) (int, bool) {
	switch v := in.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, true
		}
		n, err := strconv.Atoi(s)
		return n, err == nil
	case nil:
		return 0, true
	}
	return 0, false
}

// toFloat mirrors the numeric inputs of the cost screen: "1,20,000" and
// " 450.5 " are accepted, an empty box is zero.
func toFloat(in any) (float64, bool) {
	switch v := in.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	case nil:
		return 0, true
	}
	return 0, false
}

func toBool(in any) (bool, bool) {
	switch v := in.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	case nil:
		return false, true
	}
	return false, false
}

package setting

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType is the declared kind of a setting value.
type ValueType string

const (
	TypeBoolean ValueType = "boolean"
	TypeInteger ValueType = "int"
	TypeFloat   ValueType = "float"
	TypeString  ValueType = "string"
	TypeText    ValueType = "text"
	TypeHTML    ValueType = "html"
)

// Bounds of the int64 range as float64; 2^63 itself is not representable as int64.
const (
	minInt64Float = -(1 << 63)
	maxInt64Float = 1 << 63
)

var valueTypes = []ValueType{TypeBoolean, TypeInteger, TypeFloat, TypeString, TypeText, TypeHTML}

var labels = map[ValueType]string{
	TypeBoolean: "Boolean",
	TypeInteger: "Integer",
	TypeFloat:   "Float",
	TypeString:  "String",
	TypeText:    "Text",
	TypeHTML:    "Html",
}

// Values returns every permitted value type in declaration order.
func Values() []ValueType {
	out := make([]ValueType, len(valueTypes))
	copy(out, valueTypes)
	return out
}

// ParseValueType returns the ValueType named by s or an error wrapping ErrInvalidType.
func ParseValueType(s string) (ValueType, error) {
	t := ValueType(s)
	if !t.IsValid() {
		return "", invalidTypeError(s)
	}
	return t, nil
}

func invalidTypeError(s string) error {
	names := make([]string, len(valueTypes))
	for i, t := range valueTypes {
		names[i] = string(t)
	}
	return fmt.Errorf("%w %q: type must be one of %s", ErrInvalidType, s, strings.Join(names, ", "))
}

func (t ValueType) IsValid() bool {
	_, ok := labels[t]
	return ok
}

// Label returns the human readable name of the type, or "" for unknown types.
func (t ValueType) Label() string {
	return labels[t]
}

func (t ValueType) String() string {
	return string(t)
}

// Normalize coerces v into the canonical Go representation for t:
// bool, int64, float64 or string. A nil value stays nil.
func (t ValueType) Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TypeBoolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			return parseBool(x), nil
		case int, int32, int64, float64, json.Number:
			n, err := TypeInteger.Normalize(x)
			if err != nil {
				return nil, err
			}
			return n.(int64) != 0, nil
		}
	case TypeInteger:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case int64:
			return x, nil
		case float32:
			return TypeInteger.Normalize(float64(x))
		case float64:
			if x != math.Trunc(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, x)
			}
			if x < minInt64Float || x >= maxInt64Float {
				return nil, fmt.Errorf("%w: %v overflows a 64-bit integer", ErrInvalidValue, x)
			}
			return int64(x), nil
		case json.Number:
			if n, err := x.Int64(); err == nil {
				return n, nil
			}
			f, err := x.Float64()
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, x.String())
			}
			return TypeInteger.Normalize(f)
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, x)
			}
			return n, nil
		}
	case TypeFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case json.Number:
			f, err := x.Float64()
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, x.String())
			}
			return f, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, x)
			}
			return f, nil
		}
	case TypeString, TypeText, TypeHTML:
		switch x := v.(type) {
		case string:
			return x, nil
		case bool:
			return strconv.FormatBool(x), nil
		case int:
			return strconv.Itoa(x), nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		case json.Number:
			return x.String(), nil
		}
	default:
		return nil, invalidTypeError(string(t))
	}
	return nil, fmt.Errorf("%w: cannot use %T as %s", ErrInvalidValue, v, t)
}

// parseBool treats the usual false spellings and the empty string as false
// and any other text as true.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "false", "no", "off", "":
		return false
	}
	return true
}

// Encode renders a normalized value into its stored text form.
// nil encodes to the empty string.
func (t ValueType) Encode(v any) (string, error) {
	n, err := t.Normalize(v)
	if err != nil {
		return "", err
	}
	switch x := n.(type) {
	case nil:
		return "", nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case string:
		return x, nil
	}
	return "", fmt.Errorf("%w: cannot encode %T", ErrInvalidValue, n)
}

// Decode parses a stored text value. An empty raw value decodes to ""
// for every type so that an unset value never reads as false or zero.
func (t ValueType) Decode(raw string) (any, error) {
	if raw == "" {
		return "", nil
	}
	switch t {
	case TypeString, TypeText, TypeHTML:
		return raw, nil
	case "":
		return raw, nil
	}
	return t.Normalize(raw)
}

package notion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedType marks slave property types the sync does not write.
var ErrUnsupportedType = errors.New("notion: unsupported property type")

// IsEmpty reports whether a property value counts as missing: nil, an
// empty string, or an empty list. Zero numbers and false checkboxes are
// values.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	default:
		return false
	}
}

// BuildProperty converts a master value into a property of the slave's
// type. Types the sync cannot write return ErrUnsupportedType.
func BuildProperty(value any, target PropertyType) (Property, error) {
	switch target {
	case TypeTitle, TypeRichText, TypeSelect, TypeURL:
		return Property{Type: target, Value: Stringify(value)}, nil

	case TypeDate:
		s, ok := value.(string)
		if !ok {
			return Property{}, fmt.Errorf("notion: %s value %v is not a date", target, value)
		}
		return Property{Type: target, Value: s}, nil

	case TypeNumber:
		switch v := value.(type) {
		case float64:
			return Property{Type: target, Value: v}, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return Property{}, fmt.Errorf("notion: %q is not a number", v)
			}
			return Property{Type: target, Value: f}, nil
		}
		return Property{}, fmt.Errorf("notion: %v is not a number", value)

	case TypeMultiSelect:
		switch v := value.(type) {
		case []string:
			return Property{Type: target, Value: append([]string(nil), v...)}, nil
		case string:
			return Property{Type: target, Value: []string{v}}, nil
		}
		return Property{}, fmt.Errorf("notion: %v cannot be a multi_select", value)

	case TypeCheckbox:
		b, ok := value.(bool)
		if !ok {
			return Property{}, fmt.Errorf("notion: %v is not a checkbox value", value)
		}
		return Property{Type: target, Value: b}, nil
	}

	return Property{}, fmt.Errorf("%w: %s", ErrUnsupportedType, target)
}

// Stringify renders a decoded value as text.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "True"
		}
		return "False"
	case []string:
		return strings.Join(val, ", ")
	default:
		return fmt.Sprint(val)
	}
}

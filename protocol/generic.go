package protocol

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// UnsupportedGenericTypeError reports a Java type name outside the generic
// call conversion table.
type UnsupportedGenericTypeError string

func (e UnsupportedGenericTypeError) Error() string {
	return fmt.Sprintf("protocol: unsupported generic type %q", string(e))
}

// ConvertTyped maps a (Java type name, raw value) pair of a generic call to
// a concrete value. Generic callers pass arguments as strings or loosely
// typed data, so each target kind accepts the obvious coercions.
func ConvertTyped(typeName string, v any) (any, error) {
	switch typeName {
	case "boolean", "java.lang.Boolean":
		return toBool(v)
	case "short", "int", "java.lang.Short", "java.lang.Integer":
		return toInt32(v)
	case "float", "double", "java.lang.Float", "java.lang.Double":
		return toFloat64(v)
	case "java.lang.Long":
		return toInt64(v)
	case "java.lang.String":
		return toString(v)
	}
	return nil, UnsupportedGenericTypeError(typeName)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return x == "true", nil
	case int32:
		return x != 0, nil
	case int64:
		return x != 0, nil
	}
	return false, errors.Errorf("protocol: cannot convert %T to bool", v)
}

func toInt32(v any) (int32, error) {
	switch x := v.(type) {
	case int32:
		return x, nil
	case int64:
		return int32(x), nil
	case float64:
		return int32(x), nil
	case string:
		n, err := strconv.ParseInt(x, 10, 32)
		if err != nil {
			return 0, errors.Wrap(err, "protocol: generic int argument")
		}
		return int32(n), nil
	}
	return 0, errors.Errorf("protocol: cannot convert %T to int32", v)
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, errors.Wrap(err, "protocol: generic long argument")
		}
		return n, nil
	}
	return 0, errors.Errorf("protocol: cannot convert %T to int64", v)
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, errors.Wrap(err, "protocol: generic float argument")
		}
		return f, nil
	}
	return 0, errors.Errorf("protocol: cannot convert %T to float64", v)
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	}
	return fmt.Sprint(v), nil
}

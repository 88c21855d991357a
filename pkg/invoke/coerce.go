package invoke

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies one of the supported parameter types. The set is closed:
// methods with parameters outside it cannot be registered.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindString
	KindIntSlice
	KindFloatSlice
	KindBoolSlice
	KindStringSlice
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float64"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindIntSlice:
		return "[]int"
	case KindFloatSlice:
		return "[]float64"
	case KindBoolSlice:
		return "[]bool"
	case KindStringSlice:
		return "[]string"
	default:
		return "invalid"
	}
}

func (k Kind) valid() bool {
	return k >= KindInt && k <= KindStringSlice
}

// coerceAll converts every argument token to the Go value its declared kind
// requires. The first failure aborts the whole conversion: a method is only
// called when every parameter coerces.
func coerceAll(args []string, params []Kind) ([]any, error) {
	values := make([]any, len(args))
	for i, arg := range args {
		v, err := coerce(arg, params[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

func coerce(arg string, kind Kind) (any, error) {
	switch kind {
	case KindInt:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("%q is not an int", arg)
		}
		return n, nil

	case KindFloat:
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a float64", arg)
		}
		return f, nil

	case KindBool:
		b, err := strconv.ParseBool(arg)
		if err != nil {
			return nil, fmt.Errorf("%q is not a bool", arg)
		}
		return b, nil

	case KindString:
		return arg, nil

	case KindIntSlice:
		out := make([]int, 0)
		for _, part := range splitElems(arg) {
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("element %q is not an int", part)
			}
			out = append(out, n)
		}
		return out, nil

	case KindFloatSlice:
		out := make([]float64, 0)
		for _, part := range splitElems(arg) {
			f, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("element %q is not a float64", part)
			}
			out = append(out, f)
		}
		return out, nil

	case KindBoolSlice:
		out := make([]bool, 0)
		for _, part := range splitElems(arg) {
			b, err := strconv.ParseBool(part)
			if err != nil {
				return nil, fmt.Errorf("element %q is not a bool", part)
			}
			out = append(out, b)
		}
		return out, nil

	case KindStringSlice:
		return splitElems(arg), nil
	}

	return nil, fmt.Errorf("unsupported parameter kind %d", kind)
}

// splitElems splits a comma-separated list token into trimmed elements. An
// empty token yields an empty slice, not a single empty element.
func splitElems(arg string) []string {
	if strings.TrimSpace(arg) == "" {
		return []string{}
	}
	parts := strings.Split(arg, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

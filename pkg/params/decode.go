package params

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Parameter access and decoding errors.
var (
	// ErrMissingParam is returned when a required parameter is absent.
	ErrMissingParam = errors.New("parameter not found")

	// ErrDecode is returned when a value cannot be parsed as the
	// requested kind and no default was supplied.
	ErrDecode = errors.New("cannot decode parameter")

	// ErrTypeMismatch is returned when a value is well-formed but not a
	// valid representation of the requested kind (e.g. "maybe" as bool).
	ErrTypeMismatch = errors.New("parameter type mismatch")
)

// Kind selects the decode strategy for a parameter value.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindInt64
	KindFloat64
	KindBool
	KindTime
	KindDuration
	KindURL
)

// String returns the kind name, used in cache keys and error messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindDuration:
		return "duration"
	case KindURL:
		return "url"
	default:
		return "unknown"
	}
}

// DefaultListSeparator separates elements in list-valued parameters.
const DefaultListSeparator = ","

// Decode converts a raw string value to the given kind.
//
// An empty value decodes to nil (absent) for every kind before any
// kind-specific parsing runs. Parse failures return an error wrapping
// ErrDecode; a malformed boolean wraps ErrTypeMismatch.
func Decode(kind Kind, value string) (any, error) {
	if value == "" {
		return nil, nil
	}

	switch kind {
	case KindString:
		return value, nil
	case KindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q as int", ErrDecode, value)
		}
		return n, nil
	case KindInt64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q as int64", ErrDecode, value)
		}
		return n, nil
	case KindFloat64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q as float64", ErrDecode, value)
		}
		return f, nil
	case KindBool:
		return decodeBool(value)
	case KindTime:
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q as RFC 3339 time", ErrDecode, value)
		}
		return t, nil
	case KindDuration:
		// Durations travel as integer milliseconds.
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q as duration milliseconds", ErrDecode, value)
		}
		return time.Duration(ms) * time.Millisecond, nil
	case KindURL:
		u, err := url.Parse(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q as URL", ErrDecode, value)
		}
		return u, nil
	default:
		return nil, fmt.Errorf("%w: unsupported kind %d", ErrDecode, kind)
	}
}

// DecodeDefault is like Decode but swallows all failures: a parse error
// or an empty value yields def instead.
func DecodeDefault(kind Kind, value string, def any) any {
	v, err := Decode(kind, value)
	if err != nil || v == nil {
		return def
	}
	return v
}

// DecodeList splits value on sep and decodes each element. An empty
// value yields an empty slice. Empty elements are skipped; a failing
// element fails the whole list.
func DecodeList(kind Kind, value, sep string) ([]any, error) {
	if sep == "" {
		sep = DefaultListSeparator
	}
	if value == "" {
		return []any{}, nil
	}

	parts := strings.Split(value, sep)
	out := make([]any, 0, len(parts))
	for _, part := range parts {
		v, err := Decode(kind, part)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeBool(value string) (any, error) {
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return nil, fmt.Errorf("%w: %q is not a boolean", ErrTypeMismatch, value)
	}
}

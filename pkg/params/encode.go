package params

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Encode converts a typed value to its canonical string representation,
// the inverse of Decode. nil encodes to the empty string; booleans to
// "true"/"false"; times to RFC 3339; durations to integer milliseconds.
// Anything outside the supported set falls back to fmt formatting.
func Encode(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	case time.Duration:
		return strconv.FormatInt(v.Milliseconds(), 10)
	case *url.URL:
		if v == nil {
			return ""
		}
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// EncodeList encodes each element and joins them with sep.
func EncodeList(values []any, sep string) string {
	if sep == "" {
		sep = DefaultListSeparator
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = Encode(v)
	}
	return strings.Join(parts, sep)
}

package routepath

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Result contains the result of path canonicalization.
type Result struct {
	// Path is the canonicalized path (without query string).
	Path string

	// Query is the query string (without leading "?").
	Query string

	// Changed indicates if the path was modified during canonicalization.
	Changed bool
}

// Path canonicalization errors.
var (
	ErrInvalidPath           = errors.New("invalid path")
	ErrBackslashInPath       = errors.New("path contains backslash")
	ErrNullByteInPath        = errors.New("path contains null byte")
	ErrInvalidPercentEscape  = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot       = errors.New("path escapes root via ..")
	ErrEncodedSlashInSegment = errors.New("encoded slash (%2F) in path segment")
)

// Canonicalize normalizes a raw path according to the routing contract:
//   - ensure exactly one leading slash
//   - remove trailing slash (except for root "/")
//   - collapse repeated slashes (/blog//post → /blog/post)
//   - remove "." segments and resolve ".." segments
//
// The following inputs are rejected with an error:
//   - paths containing backslash or NUL
//   - invalid percent-escapes (e.g. %GG, %2)
//   - ".." that would escape root
//
// The input may include a query string, which is split off but not
// canonicalized.
func Canonicalize(input string) (Result, error) {
	if input == "" {
		return Result{Path: "/", Changed: true}, nil
	}

	path, query, _ := strings.Cut(input, "?")

	// SECURITY: reject backslash and NUL (literal or encoded).
	if strings.Contains(path, "\\") {
		return Result{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Result{}, ErrNullByteInPath
	}

	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return Result{}, err
		}
	}

	original := path

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}

	segments := strings.Split(path, "/")
	var kept []string
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(kept) == 0 {
				return Result{}, ErrPathEscapesRoot
			}
			kept = kept[:len(kept)-1]
		default:
			kept = append(kept, seg)
		}
	}

	path = "/" + strings.Join(kept, "/")
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}

	return Result{
		Path:    path,
		Query:   query,
		Changed: path != original,
	}, nil
}

// Normalize is the total, best-effort form of Canonicalize. Malformed
// input degrades to the closest canonical form instead of failing:
// rejected characters are stripped, a root-escaping ".." clamps at root.
func Normalize(path string) string {
	path = strings.ReplaceAll(path, "\\", "")
	path = strings.ReplaceAll(path, "\x00", "")

	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	segments := strings.Split(path, "/")
	var kept []string
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(kept) > 0 {
				kept = kept[:len(kept)-1]
			}
		default:
			kept = append(kept, seg)
		}
	}

	return "/" + strings.Join(kept, "/")
}

// SplitPathAndQuery splits a raw target on the first "?".
// The query is returned without the leading "?".
func SplitPathAndQuery(input string) (path, query string) {
	path, query, _ = strings.Cut(input, "?")
	return path, query
}

// ParseQuery decodes a query string into a flat key/value map. Both keys
// and values are percent-decoded; a key that fails to decode is skipped.
// When a key repeats, the last value wins. An empty query yields an
// empty, non-nil map.
func ParseQuery(query string) map[string]string {
	params := make(map[string]string)
	if query == "" {
		return params
	}

	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		decodedKey, err := url.QueryUnescape(key)
		if err != nil || decodedKey == "" {
			continue
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		params[decodedKey] = decodedValue
	}
	return params
}

// BuildQuery is the inverse of ParseQuery. Entries with nil values are
// omitted; everything else is stringified and percent-encoded. Keys are
// emitted in sorted order so output is deterministic.
func BuildQuery(values map[string]any) string {
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k, v := range values {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(fmt.Sprintf("%v", values[k])))
	}
	return b.String()
}

// Segments splits a path on "/" and filters empty segments, so the root
// path yields an empty slice.
func Segments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// DecodeSegment percent-decodes a single path segment. Decoding that
// produces "/" (i.e. %2F was present) is rejected as path smuggling.
func DecodeSegment(segment string) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if strings.Contains(decoded, "/") {
		return "", ErrEncodedSlashInSegment
	}
	return decoded, nil
}

// validatePercentEscapes checks that all percent-escapes are valid.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); {
		if path[i] != '%' {
			i++
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 3
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Package glob implements segment-level glob matching for route paths.
//
// Patterns are slash-delimited. A "*" segment matches exactly one path
// segment; a "**" segment matches zero or more segments. All other
// segments must match literally (case-sensitive).
package glob

import "strings"

// Match reports whether path matches the glob pattern.
func Match(pattern, path string) bool {
	return matchSegments(split(pattern), split(path))
}

// MatchAny reports whether path matches any of the glob patterns.
func MatchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if Match(p, path) {
			return true
		}
	}
	return false
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}

	switch pattern[0] {
	case "**":
		// Zero segments, or consume one and retry.
		if matchSegments(pattern[1:], path) {
			return true
		}
		if len(path) == 0 {
			return false
		}
		return matchSegments(pattern, path[1:])
	case "*":
		if len(path) == 0 {
			return false
		}
		return matchSegments(pattern[1:], path[1:])
	default:
		if len(path) == 0 || pattern[0] != path[0] {
			return false
		}
		return matchSegments(pattern[1:], path[1:])
	}
}

func split(s string) []string {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

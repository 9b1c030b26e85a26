package route

import (
	"fmt"
	"strings"

	"github.com/waypoint-dev/waypoint/v2/pkg/routepath"
)

// MatchResult is the outcome of matching one pattern against one path.
type MatchResult struct {
	// OK reports whether the pattern matched.
	OK bool

	// Params holds the values bound by ":"-prefixed pattern segments,
	// percent-decoded where possible.
	Params map[string]string
}

// Match compares pattern and path segment by segment. Segment counts
// must be equal; a literal pattern segment must equal the path segment
// exactly (case-sensitive); a ":"-prefixed segment matches any
// non-empty path segment and binds its decoded value.
func Match(pattern, path string) MatchResult {
	patSegs := routepath.Segments(pattern)
	pathSegs := routepath.Segments(path)
	if len(patSegs) != len(pathSegs) {
		return MatchResult{}
	}
	return matchSegments(patSegs, pathSegs)
}

// MatchPrefix is like Match but succeeds when the path has at least as
// many segments as the pattern. It recovers a parent route's own
// parameters from a path that targets one of its descendants.
func MatchPrefix(pattern, path string) MatchResult {
	patSegs := routepath.Segments(pattern)
	pathSegs := routepath.Segments(path)
	if len(pathSegs) < len(patSegs) {
		return MatchResult{}
	}
	return matchSegments(patSegs, pathSegs[:len(patSegs)])
}

func matchSegments(patSegs, pathSegs []string) MatchResult {
	params := make(map[string]string)
	for i, pat := range patSegs {
		got := pathSegs[i]
		if strings.HasPrefix(pat, ":") {
			if got == "" {
				return MatchResult{}
			}
			value := got
			if decoded, err := routepath.DecodeSegment(got); err == nil {
				value = decoded
			}
			params[pat[1:]] = value
			continue
		}
		if pat != got {
			return MatchResult{}
		}
	}
	return MatchResult{OK: true, Params: params}
}

// FindBestMatch tries every pattern, in order, against the path. When
// several match, the one with the fewest dynamic segments wins, so a
// fully static pattern always beats a parameterized one. Ties keep the
// earlier pattern.
func FindBestMatch(patterns []string, path string) (string, MatchResult, bool) {
	var (
		bestPattern string
		bestResult  MatchResult
		bestDynamic = -1
	)

	for _, pattern := range patterns {
		result := Match(pattern, path)
		if !result.OK {
			continue
		}
		dynamic := dynamicSegmentCount(pattern)
		if bestDynamic == -1 || dynamic < bestDynamic {
			bestPattern = pattern
			bestResult = result
			bestDynamic = dynamic
		}
	}

	return bestPattern, bestResult, bestDynamic != -1
}

// BuildPath substitutes ":name" tokens in pattern with values from
// pathParams. Redirect rules use it to materialize a concrete target
// while preserving captured dynamic segments.
func BuildPath(pattern string, pathParams map[string]string) (string, error) {
	segs := routepath.Segments(pattern)
	if len(segs) == 0 {
		return "/", nil
	}

	out := make([]string, len(segs))
	for i, seg := range segs {
		if !strings.HasPrefix(seg, ":") {
			out[i] = seg
			continue
		}
		name := seg[1:]
		value, ok := pathParams[name]
		if !ok || value == "" {
			return "", fmt.Errorf("%w: %q in pattern %q", ErrMissingPatternParam, name, pattern)
		}
		out[i] = value
	}
	return "/" + strings.Join(out, "/"), nil
}

// dynamicSegmentCount counts the ":"-prefixed segments in pattern.
func dynamicSegmentCount(pattern string) int {
	n := 0
	for _, seg := range routepath.Segments(pattern) {
		if strings.HasPrefix(seg, ":") {
			n++
		}
	}
	return n
}

// paramNames returns the parameter names declared by pattern, in order.
func paramNames(pattern string) []string {
	var names []string
	for _, seg := range routepath.Segments(pattern) {
		if strings.HasPrefix(seg, ":") {
			names = append(names, seg[1:])
		}
	}
	return names
}

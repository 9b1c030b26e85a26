package route

import "errors"

// Registry and matcher errors.
var (
	// ErrDuplicateRoute is returned when a pattern is registered twice.
	// This indicates a programming error in route setup and should
	// abort startup.
	ErrDuplicateRoute = errors.New("route pattern already registered")

	// ErrRouteNotFound is returned when no registered pattern matches a
	// path and no not-found fallback is configured.
	ErrRouteNotFound = errors.New("no route matches path")

	// ErrInvalidPattern is returned for malformed patterns, e.g. a
	// pattern declaring the same parameter name twice.
	ErrInvalidPattern = errors.New("invalid route pattern")

	// ErrMissingPatternParam is returned by BuildPath when the value
	// for a ":"-prefixed token is absent.
	ErrMissingPatternParam = errors.New("missing value for pattern parameter")
)

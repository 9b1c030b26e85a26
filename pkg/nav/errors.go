package nav

import (
	"errors"
	"fmt"
	"strings"
)

// MaxRedirectHops bounds the redirect chain of one logical navigation.
// Registry rewrites, middleware diverts, and guard redirects all count
// against it.
const MaxRedirectHops = 8

var (
	// ErrNotInitialized is returned when a Navigator is used before it
	// was constructed with New.
	ErrNotInitialized = errors.New("navigator not initialized")

	// ErrNoInitialRoute is returned by Start when no registered entry is
	// marked Initial.
	ErrNoInitialRoute = errors.New("no initial route registered")

	// errCancelled marks a navigation stopped by a guard deny or a
	// middleware abort. It never escapes the package: callers observe a
	// nil Navigation with a nil error.
	errCancelled = errors.New("navigation cancelled")
)

// RedirectLoopError is returned when one logical navigation exceeds
// MaxRedirectHops. Chain holds every path visited, original target
// first.
type RedirectLoopError struct {
	Chain []string
}

func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("redirect loop after %d hops: %s",
		len(e.Chain)-1, strings.Join(e.Chain, " -> "))
}

// Package middleware runs cross-cutting interceptors around navigation.
//
// Middleware is registered once on a Pipeline and selected per path:
// an exclude glob list is checked first (any match disables the
// middleware for that path), then the allow list (absent means all
// paths). Selected middleware runs sequentially in descending priority
// order; the first non-Continue result stops the run. After a run in
// which every middleware continued, AfterNavigation hooks are
// dispatched on detached goroutines so slow observers cannot delay the
// navigation itself.
//
// Stock implementations are provided for structured logging (slog),
// Prometheus metrics, and OpenTelemetry tracing.
package middleware

import (
	"context"

	"github.com/waypoint-dev/waypoint/v2/pkg/route"
)

// HandleFunc is the function form of a middleware step.
type HandleFunc func(ctx context.Context, mc *route.MiddlewareContext) (route.MiddlewareResult, error)

// AfterFunc observes a completed navigation.
type AfterFunc func(ctx context.Context, mc *route.MiddlewareContext)

// AbortedFunc observes an aborted pipeline run.
type AbortedFunc func(reason string)

type funcMiddleware struct {
	name     string
	priority int
	routes   []string
	exclude  []string
	handle   HandleFunc
	after    AfterFunc
	aborted  AbortedFunc
}

// FuncOption configures a function-based middleware.
type FuncOption func(*funcMiddleware)

// WithRoutes sets the glob allow-list.
func WithRoutes(globs ...string) FuncOption {
	return func(m *funcMiddleware) { m.routes = globs }
}

// WithExcludeRoutes sets the glob deny-list; it wins over the allow-list.
func WithExcludeRoutes(globs ...string) FuncOption {
	return func(m *funcMiddleware) { m.exclude = globs }
}

// WithAfter sets the post-navigation hook.
func WithAfter(fn AfterFunc) FuncOption {
	return func(m *funcMiddleware) { m.after = fn }
}

// WithOnAborted sets the abort notification hook.
func WithOnAborted(fn AbortedFunc) FuncOption {
	return func(m *funcMiddleware) { m.aborted = fn }
}

// New adapts a function into a route.Middleware.
func New(name string, priority int, handle HandleFunc, opts ...FuncOption) route.Middleware {
	m := &funcMiddleware{name: name, priority: priority, handle: handle}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *funcMiddleware) Name() string            { return m.name }
func (m *funcMiddleware) Priority() int           { return m.priority }
func (m *funcMiddleware) Routes() []string        { return m.routes }
func (m *funcMiddleware) ExcludeRoutes() []string { return m.exclude }

func (m *funcMiddleware) Handle(ctx context.Context, mc *route.MiddlewareContext) (route.MiddlewareResult, error) {
	if m.handle == nil {
		return route.Next(), nil
	}
	return m.handle(ctx, mc)
}

func (m *funcMiddleware) AfterNavigation(ctx context.Context, mc *route.MiddlewareContext) {
	if m.after != nil {
		m.after(ctx, mc)
	}
}

func (m *funcMiddleware) OnAborted(reason string) {
	if m.aborted != nil {
		m.aborted(reason)
	}
}

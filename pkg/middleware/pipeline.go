package middleware

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/waypoint-dev/waypoint/v2/internal/glob"
	"github.com/waypoint-dev/waypoint/v2/pkg/route"
)

// Pipeline holds the registered middleware and executes per-path runs.
type Pipeline struct {
	logger *slog.Logger

	mu         sync.RWMutex
	middleware []route.Middleware
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// NewPipeline creates an empty middleware pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Use registers middleware with the pipeline.
func (p *Pipeline) Use(mw ...route.Middleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, mw...)
}

// ShouldRun reports whether mw applies to path: the exclude list is
// checked first and wins; without an allow-list the middleware runs for
// all paths, otherwise some allow glob must match.
func ShouldRun(mw route.Middleware, path string) bool {
	scoped, ok := mw.(route.RouteScoped)
	if !ok {
		return true
	}
	if glob.MatchAny(scoped.ExcludeRoutes(), path) {
		return false
	}
	allow := scoped.Routes()
	if len(allow) == 0 {
		return true
	}
	return glob.MatchAny(allow, path)
}

// ForPath returns the middleware applicable to path, stable-sorted by
// descending priority.
func (p *Pipeline) ForPath(path string) []route.Middleware {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var selected []route.Middleware
	for _, mw := range p.middleware {
		if ShouldRun(mw, path) {
			selected = append(selected, mw)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Priority() > selected[j].Priority()
	})
	return selected
}

// Select returns the middleware applicable to path drawn from both the
// pipeline and the given route-local middleware, stable-sorted by
// descending priority. Pipeline middleware precedes route-local
// middleware of equal priority.
func (p *Pipeline) Select(path string, local ...route.Middleware) []route.Middleware {
	selected := p.ForPath(path)
	for _, mw := range local {
		if ShouldRun(mw, path) {
			selected = append(selected, mw)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Priority() > selected[j].Priority()
	})
	return selected
}

// Run executes the selected middleware sequentially. A Continue result
// carrying a modified context swaps the context seen by the rest of
// the run. The first Abort or Redirect stops the run and is returned
// together with the context in effect at that point. On Abort, every
// selected middleware (run or not) implementing route.AbortObserver is
// notified. After an all-Continue run, AfterNavigation hooks fire on
// detached goroutines; their panics are logged and never surface.
func (p *Pipeline) Run(ctx context.Context, selected []route.Middleware, mc *route.MiddlewareContext) (route.MiddlewareResult, *route.MiddlewareContext, error) {
	for _, mw := range selected {
		result, err := mw.Handle(ctx, mc)
		if err != nil {
			p.logger.Error("middleware failed",
				"middleware", mw.Name(), "path", targetPath(mc), "error", err)
			return route.MiddlewareResult{}, mc, err
		}

		switch result.Decision {
		case route.MiddlewareContinue:
			if result.Modified != nil {
				mc = result.Modified
			}
		case route.MiddlewareAbort:
			p.logger.Info("navigation aborted",
				"middleware", mw.Name(), "path", targetPath(mc), "reason", result.Reason)
			p.notifyAborted(selected, result.Reason)
			return result, mc, nil
		case route.MiddlewareRedirect:
			p.logger.Info("navigation redirected by middleware",
				"middleware", mw.Name(), "path", targetPath(mc), "to", result.Redirect.To)
			return result, mc, nil
		}
	}

	return route.Next(), mc, nil
}

// DispatchAfter fires AfterNavigation for every selected middleware on
// its own goroutine. The navigation caller is never blocked on it.
func (p *Pipeline) DispatchAfter(ctx context.Context, selected []route.Middleware, mc *route.MiddlewareContext) {
	for _, mw := range selected {
		hook, ok := mw.(route.AfterHook)
		if !ok {
			continue
		}
		go func(mw route.Middleware, hook route.AfterHook) {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("after-navigation hook panicked",
						"middleware", mw.Name(), "path", targetPath(mc), "panic", r)
				}
			}()
			hook.AfterNavigation(ctx, mc)
		}(mw, hook)
	}
}

func (p *Pipeline) notifyAborted(selected []route.Middleware, reason string) {
	for _, mw := range selected {
		if obs, ok := mw.(route.AbortObserver); ok {
			obs.OnAborted(reason)
		}
	}
}

func targetPath(mc *route.MiddlewareContext) string {
	if mc == nil || mc.Target == nil {
		return ""
	}
	return mc.Target.Path
}

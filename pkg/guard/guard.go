// Package guard runs pre-navigation access-control checks.
//
// The pipeline assembles the guards for a target route from three
// sources: the route's own guards, the guards of its parent chain, and
// globally registered guards whose route globs match the target path.
// The union is deduplicated and sorted by descending priority, then run
// strictly sequentially; the first Deny or Redirect stops the run.
package guard

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/waypoint-dev/waypoint/v2/internal/glob"
	"github.com/waypoint-dev/waypoint/v2/pkg/route"
)

// CheckFunc is the function form of a guard check.
type CheckFunc func(ctx context.Context, gc *route.GuardContext) (route.GuardResult, error)

type funcGuard struct {
	name     string
	priority int
	check    CheckFunc
}

// New adapts a function into a route.Guard.
func New(name string, priority int, check CheckFunc) route.Guard {
	return &funcGuard{name: name, priority: priority, check: check}
}

func (g *funcGuard) Name() string  { return g.name }
func (g *funcGuard) Priority() int { return g.priority }

func (g *funcGuard) Check(ctx context.Context, gc *route.GuardContext) (route.GuardResult, error) {
	return g.check(ctx, gc)
}

type globalGuard struct {
	guard  route.Guard
	routes []string
}

// Pipeline owns the globally registered guards and assembles per-route
// guard chains against a registry.
type Pipeline struct {
	registry *route.Registry
	logger   *slog.Logger

	mu      sync.RWMutex
	globals []globalGuard
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// NewPipeline creates a guard pipeline backed by the given registry.
func NewPipeline(registry *route.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// UseGlobal registers a guard for every route whose path matches one of
// the given globs. With no globs the guard applies to all routes.
func (p *Pipeline) UseGlobal(g route.Guard, routes ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.globals = append(p.globals, globalGuard{guard: g, routes: routes})
}

// Collect returns the guards that apply to a navigation targeting the
// given entry and concrete path: the entry's own guards, the guards of
// its ancestors (walked with a visited set), and matching globals. The
// union is deduplicated and stable-sorted by descending priority, so
// equal priorities keep union order.
func (p *Pipeline) Collect(entry *route.Entry, path string) []route.Guard {
	var union []route.Guard
	seen := map[route.Guard]bool{}

	add := func(g route.Guard) {
		if g == nil || seen[g] {
			return
		}
		seen[g] = true
		union = append(union, g)
	}

	if entry != nil {
		for _, g := range entry.Guards {
			add(g)
		}
		for _, ancestor := range p.registry.Ancestors(entry.Pattern) {
			for _, g := range ancestor.Guards {
				add(g)
			}
		}
	}

	p.mu.RLock()
	for _, gg := range p.globals {
		if len(gg.routes) == 0 || glob.MatchAny(gg.routes, path) {
			add(gg.guard)
		}
	}
	p.mu.RUnlock()

	sort.SliceStable(union, func(i, j int) bool {
		return union[i].Priority() > union[j].Priority()
	})
	return union
}

// Run executes the guards sequentially. The first Deny or Redirect
// short-circuits the remaining guards and is returned; a guard error
// stops the run and propagates. An empty chain allows.
func (p *Pipeline) Run(ctx context.Context, guards []route.Guard, gc *route.GuardContext) (route.GuardResult, error) {
	for _, g := range guards {
		result, err := g.Check(ctx, gc)
		if err != nil {
			p.logger.Error("guard check failed",
				"guard", g.Name(), "path", targetPath(gc), "error", err)
			return route.GuardResult{}, err
		}

		switch result.Decision {
		case route.GuardAllow:
			if obs, ok := g.(route.GuardObserver); ok {
				obs.OnActivated(gc)
			}
		case route.GuardDeny:
			p.logger.Info("navigation denied",
				"guard", g.Name(), "path", targetPath(gc), "reason", result.Reason)
			if obs, ok := g.(route.GuardObserver); ok {
				obs.OnDenied(gc, result.Reason)
			}
			return result, nil
		case route.GuardRedirect:
			p.logger.Info("navigation redirected by guard",
				"guard", g.Name(), "path", targetPath(gc), "to", result.Redirect.To)
			return result, nil
		}
	}
	return route.Allow(), nil
}

func targetPath(gc *route.GuardContext) string {
	if gc == nil || gc.Target == nil {
		return ""
	}
	return gc.Target.Path
}

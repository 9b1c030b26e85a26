package nav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/waypoint-dev/waypoint/v2/pkg/guard"
	"github.com/waypoint-dev/waypoint/v2/pkg/middleware"
	"github.com/waypoint-dev/waypoint/v2/pkg/params"
	"github.com/waypoint-dev/waypoint/v2/pkg/route"
	"github.com/waypoint-dev/waypoint/v2/pkg/routepath"
)

// Navigator resolves navigation targets against a route registry and
// maintains the history stacks. One Navigator serves one application;
// all methods are safe for concurrent use.
type Navigator struct {
	registry   *route.Registry
	guards     *guard.Pipeline
	middleware *middleware.Pipeline
	logger     *slog.Logger

	notFound          route.Builder
	defaultTransition string
	historyLimit      int

	history *History

	mu             sync.Mutex
	shellHistories map[string]*History
	active         *History

	idCounter atomic.Int64

	// Registrations buffered by options until the pipelines exist.
	pendingMiddleware []route.Middleware
	pendingGuards     []pendingGuard
}

type pendingGuard struct {
	guard  route.Guard
	routes []string
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithLogger sets the navigator's logger; the guard and middleware
// pipelines inherit it.
func WithLogger(logger *slog.Logger) Option {
	return func(nv *Navigator) { nv.logger = logger }
}

// WithMiddleware registers pipeline-global middleware.
func WithMiddleware(mw ...route.Middleware) Option {
	return func(nv *Navigator) {
		nv.pendingMiddleware = append(nv.pendingMiddleware, mw...)
	}
}

// WithGlobalGuard registers a guard for every route whose path matches
// one of the globs; with no globs it applies to all routes.
func WithGlobalGuard(g route.Guard, routes ...string) Option {
	return func(nv *Navigator) {
		nv.pendingGuards = append(nv.pendingGuards, pendingGuard{guard: g, routes: routes})
	}
}

// WithHistoryLimit bounds every history stack the navigator creates.
func WithHistoryLimit(limit int) Option {
	return func(nv *Navigator) { nv.historyLimit = limit }
}

// WithNotFound sets the builder used when a target matches no route.
// Without it, an unmatched target fails with route.ErrRouteNotFound.
func WithNotFound(b route.Builder) Option {
	return func(nv *Navigator) { nv.notFound = b }
}

// WithDefaultTransition sets the transition used when neither the call
// nor the matched entry specifies one.
func WithDefaultTransition(key string) Option {
	return func(nv *Navigator) { nv.defaultTransition = key }
}

// New creates a Navigator over a registry.
func New(registry *route.Registry, opts ...Option) *Navigator {
	nv := &Navigator{
		registry:       registry,
		logger:         slog.Default(),
		historyLimit:   DefaultHistoryLimit,
		shellHistories: make(map[string]*History),
	}
	for _, opt := range opts {
		opt(nv)
	}

	nv.guards = guard.NewPipeline(registry, guard.WithLogger(nv.logger))
	nv.middleware = middleware.NewPipeline(middleware.WithLogger(nv.logger))
	for _, pg := range nv.pendingGuards {
		nv.guards.UseGlobal(pg.guard, pg.routes...)
	}
	nv.middleware.Use(nv.pendingMiddleware...)
	nv.pendingGuards, nv.pendingMiddleware = nil, nil

	nv.history = NewHistory(nv.historyLimit)
	return nv
}

// PushOption configures one navigation call.
type PushOption func(*pushConfig)

type pushConfig struct {
	body       map[string]any
	extra      any
	transition string
}

// WithBody attaches structured body parameters to the navigation.
func WithBody(body map[string]any) PushOption {
	return func(c *pushConfig) { c.body = body }
}

// WithExtra attaches an opaque payload that guards, middleware, and the
// parameter resolver's Arguments all see.
func WithExtra(extra any) PushOption {
	return func(c *pushConfig) { c.extra = extra }
}

// WithTransition overrides the transition for this navigation only.
func WithTransition(key string) PushOption {
	return func(c *pushConfig) { c.transition = key }
}

// resolution is the outcome of one successful resolve.
type resolution struct {
	data     *route.Data
	entry    *route.Entry
	selected []route.Middleware
	mc       *route.MiddlewareContext
}

// Start pushes the route marked Initial. Registration order decides
// when several entries carry the flag.
func (nv *Navigator) Start(ctx context.Context) (*Navigation, error) {
	if nv == nil || nv.registry == nil {
		return nil, ErrNotInitialized
	}
	for _, pattern := range nv.registry.Patterns() {
		entry, _ := nv.registry.Lookup(pattern)
		if entry != nil && entry.Initial {
			return nv.Push(ctx, pattern)
		}
	}
	return nil, ErrNoInitialRoute
}

// Push resolves target and commits it onto the appropriate history
// stack. A navigation stopped by a guard deny or middleware abort
// returns (nil, nil): stopped, but not a failure.
func (nv *Navigator) Push(ctx context.Context, target string, opts ...PushOption) (*Navigation, error) {
	return nv.navigate(ctx, target, opts, func(h *History, n *Navigation) {
		h.Push(n)
	})
}

// PushReplacement resolves target and swaps it for the current entry.
// The replaced navigation's result channel is closed without a value.
func (nv *Navigator) PushReplacement(ctx context.Context, target string, opts ...PushOption) (*Navigation, error) {
	return nv.navigate(ctx, target, opts, func(h *History, n *Navigation) {
		if replaced, ok := h.ReplaceCurrent(n); ok {
			replaced.deliver(nil)
		} else {
			h.Push(n)
		}
	})
}

// PopAndPush pops the current entry from whichever stack hosts it,
// delivering result to it, then pushes target.
func (nv *Navigator) PopAndPush(ctx context.Context, target string, result any, opts ...PushOption) (*Navigation, error) {
	return nv.navigate(ctx, target, opts, func(h *History, n *Navigation) {
		if popped, ok := nv.activeHistory().Pop(); ok {
			popped.deliver(result)
		}
		h.Push(n)
	})
}

// PushAndRemoveUntil pops entries until pred holds (or one remains),
// then pushes target. A nil pred removes everything down to the last
// entry.
func (nv *Navigator) PushAndRemoveUntil(ctx context.Context, target string, pred func(*Navigation) bool, opts ...PushOption) (*Navigation, error) {
	if pred == nil {
		pred = func(*Navigation) bool { return false }
	}
	return nv.navigate(ctx, target, opts, func(h *History, n *Navigation) {
		for _, popped := range h.PopUntil(pred) {
			popped.deliver(nil)
		}
		h.Push(n)
	})
}

func (nv *Navigator) navigate(ctx context.Context, target string, opts []PushOption, commit func(*History, *Navigation)) (*Navigation, error) {
	if nv == nil || nv.registry == nil {
		return nil, ErrNotInitialized
	}
	var cfg pushConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	res, err := nv.resolve(ctx, target, cfg)
	switch {
	case errors.Is(err, errCancelled):
		return nil, nil
	case errors.Is(err, route.ErrRouteNotFound) && nv.notFound != nil:
		n := nv.notFoundNavigation(target, cfg)
		commit(nv.history, n)
		nv.setActive(nv.history)
		return n, nil
	case err != nil:
		return nil, err
	}

	transition := cfg.transition
	if transition == "" {
		transition = res.entry.TransitionKey
	}
	if transition == "" {
		transition = nv.defaultTransition
	}

	n := newNavigation(res.data, res.entry, transition)
	if res.entry.Build != nil {
		n.View = res.entry.Build(res.entry, res.data)
	}

	h := nv.historyForPath(res.data.Path)
	commit(h, n)
	nv.setActive(h)
	nv.middleware.DispatchAfter(ctx, res.selected, res.mc)
	nv.logger.Info("navigated",
		"path", res.data.Path, "pattern", res.data.Pattern, "id", res.data.ID)
	return n, nil
}

// resolve runs the full pre-navigation pipeline for one logical
// navigation, following redirect hops from registry rules, middleware,
// and guards up to MaxRedirectHops.
func (nv *Navigator) resolve(ctx context.Context, target string, cfg pushConfig) (*resolution, error) {
	var chain []string
	extra := cfg.extra
	current := nv.currentData()
	attemptID := uuid.NewString()
	start := time.Now()

	hop := func(to string) error {
		if len(chain) > MaxRedirectHops {
			return &RedirectLoopError{Chain: append(chain, to)}
		}
		middleware.RecordRedirect()
		return nil
	}

	for {
		canonical, err := routepath.Canonicalize(target)
		if err != nil {
			return nil, fmt.Errorf("canonicalize %q: %w", target, err)
		}
		path := canonical.Path
		chain = append(chain, path)

		if rewritten, ok := nv.registry.ApplyRedirects(path); ok {
			if err := hop(rewritten); err != nil {
				return nil, err
			}
			nv.logger.Debug("redirect rule applied",
				"from", path, "to", rewritten, "attempt", attemptID)
			target = rewritten
			if canonical.Query != "" {
				target = rewritten + "?" + canonical.Query
			}
			continue
		}

		entry, match, ok := nv.registry.FindBestMatch(path)
		if !ok {
			return nil, fmt.Errorf("%w: %s", route.ErrRouteNotFound, path)
		}
		if entry.ParentPattern != "" {
			if _, ok := nv.registry.Lookup(entry.ParentPattern); !ok {
				return nil, fmt.Errorf("%w: parent %s of %s",
					route.ErrRouteNotFound, entry.ParentPattern, entry.Pattern)
			}
		}

		data := nv.buildData(entry, match.Params, path, canonical.Query, cfg.body, extra)

		mc := &route.MiddlewareContext{
			Target:    data,
			Current:   current,
			Extra:     extra,
			AttemptID: attemptID,
			StartTime: start,
			Values:    map[string]any{},
		}
		selected := nv.middleware.Select(path, entry.Middleware...)
		mwResult, mcFinal, err := nv.middleware.Run(ctx, selected, mc)
		if err != nil {
			return nil, err
		}
		switch mwResult.Decision {
		case route.MiddlewareAbort:
			return nil, errCancelled
		case route.MiddlewareRedirect:
			if err := hop(mwResult.Redirect.To); err != nil {
				return nil, err
			}
			target = redirectTarget(mwResult.Redirect)
			if mwResult.Redirect.Extra != nil {
				extra = mwResult.Redirect.Extra
			}
			continue
		}

		guards := nv.guards.Collect(entry, path)
		gc := &route.GuardContext{
			Target:    data,
			Current:   current,
			Extra:     extra,
			AttemptID: attemptID,
		}
		guardResult, err := nv.guards.Run(ctx, guards, gc)
		if err != nil {
			return nil, err
		}
		switch guardResult.Decision {
		case route.GuardDeny:
			return nil, errCancelled
		case route.GuardRedirect:
			if err := hop(guardResult.Redirect.To); err != nil {
				return nil, err
			}
			target = redirectTarget(guardResult.Redirect)
			if guardResult.Redirect.Extra != nil {
				extra = guardResult.Redirect.Extra
			}
			continue
		}

		return &resolution{data: data, entry: entry, selected: selected, mc: mcFinal}, nil
	}
}

func (nv *Navigator) buildData(entry *route.Entry, pathParams map[string]string, path, rawQuery string, body map[string]any, extra any) *route.Data {
	full := path
	if rawQuery != "" {
		full = path + "?" + rawQuery
	}
	p := params.New(pathParams, routepath.ParseQuery(rawQuery), body)
	return &route.Data{
		Pattern:       entry.Pattern,
		Path:          path,
		FullPath:      full,
		Name:          entry.Name,
		Params:        params.NewResolver(p, extra),
		Initial:       entry.Initial,
		ParentPattern: entry.ParentPattern,
		ChildPatterns: nv.registry.Children(entry.Pattern),
		Metadata:      entry.Metadata,
		CreatedAt:     time.Now(),
		ID:            nv.nextID(),
	}
}

// notFoundNavigation builds the fallback entry for an unmatched target.
func (nv *Navigator) notFoundNavigation(target string, cfg pushConfig) *Navigation {
	path, rawQuery := routepath.SplitPathAndQuery(target)
	path = routepath.Normalize(path)
	full := path
	if rawQuery != "" {
		full = path + "?" + rawQuery
	}
	p := params.New(nil, routepath.ParseQuery(rawQuery), cfg.body)
	data := &route.Data{
		Path:      path,
		FullPath:  full,
		Name:      "not-found",
		Params:    params.NewResolver(p, cfg.extra),
		CreatedAt: time.Now(),
		ID:        nv.nextID(),
	}
	n := newNavigation(data, nil, nv.defaultTransition)
	n.View = nv.notFound(nil, data)
	nv.logger.Warn("route not found", "path", path)
	return n
}

// Pop removes the current entry from whichever stack hosts it (the
// nested stack of a shell, or the root stack), delivering result on
// the popped navigation's channel.
func (nv *Navigator) Pop(result any) (*Navigation, bool) {
	popped, ok := nv.activeHistory().Pop()
	if ok {
		popped.deliver(result)
	}
	return popped, ok
}

// PopUntil pops entries from the current navigation's stack until pred
// holds for the current one.
func (nv *Navigator) PopUntil(pred func(*Navigation) bool) []*Navigation {
	popped := nv.activeHistory().PopUntil(pred)
	for _, n := range popped {
		n.deliver(nil)
	}
	return popped
}

// CanPop reports whether the current navigation's stack has an entry
// to return to.
func (nv *Navigator) CanPop() bool { return nv.activeHistory().CanPop() }

// Current returns the current navigation, from whichever stack hosts
// it.
func (nv *Navigator) Current() (*Navigation, bool) { return nv.activeHistory().Current() }

// History returns the root history stack.
func (nv *Navigator) History() *History { return nv.history }

// ShellHistory returns the nested history for a shell route pattern, if
// any navigation has targeted it yet.
func (nv *Navigator) ShellHistory(pattern string) (*History, bool) {
	nv.mu.Lock()
	defer nv.mu.Unlock()
	h, ok := nv.shellHistories[pattern]
	return h, ok
}

// PreviousPath returns the path behind the cursor in the current
// navigation's stack.
func (nv *Navigator) PreviousPath() (string, bool) {
	h := nv.activeHistory()
	return pathAt(h, h.Index()-1)
}

// NextPath returns the path of the forward branch entry, if a Back left
// one.
func (nv *Navigator) NextPath() (string, bool) {
	h := nv.activeHistory()
	return pathAt(h, h.Index()+1)
}

func pathAt(h *History, i int) (string, bool) {
	entries := h.Entries()
	if i < 0 || i >= len(entries) {
		return "", false
	}
	return entries[i].Data.Path, true
}

// Registry returns the navigator's route registry.
func (nv *Navigator) Registry() *route.Registry { return nv.registry }

// historyForPath returns the history stack a path commits to: the
// nested stack of the shell it falls under, or the root stack.
func (nv *Navigator) historyForPath(path string) *History {
	shell, ok := nv.registry.FindShellForPath(path)
	if !ok {
		return nv.history
	}
	nv.mu.Lock()
	defer nv.mu.Unlock()
	h, ok := nv.shellHistories[shell]
	if !ok {
		h = NewHistory(nv.historyLimit)
		nv.shellHistories[shell] = h
	}
	return h
}

func (nv *Navigator) currentData() *route.Data {
	if n, ok := nv.activeHistory().Current(); ok {
		return n.Data
	}
	return nil
}

// activeHistory returns the stack hosting the current navigation: the
// stack the last navigation committed to, or the root stack before any
// navigation happened.
func (nv *Navigator) activeHistory() *History {
	nv.mu.Lock()
	defer nv.mu.Unlock()
	if nv.active != nil {
		return nv.active
	}
	return nv.history
}

func (nv *Navigator) setActive(h *History) {
	nv.mu.Lock()
	nv.active = h
	nv.mu.Unlock()
}

// nextID combines the resolution timestamp with a process-unique
// counter; collisions are impossible within one process.
func (nv *Navigator) nextID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" +
		strconv.FormatInt(nv.idCounter.Inc(), 10)
}

func redirectTarget(r *route.Redirection) string {
	if len(r.Query) == 0 {
		return r.To
	}
	values := make(map[string]any, len(r.Query))
	for k, v := range r.Query {
		values[k] = v
	}
	return r.To + "?" + routepath.BuildQuery(values)
}

package route

import (
	"context"
	"time"

	"github.com/waypoint-dev/waypoint/v2/pkg/params"
)

// View is whatever the rendering layer produces; the engine only passes
// it through.
type View = any

// Builder produces the renderable view for a resolved route.
type Builder func(entry *Entry, data *Data) View

// ShellBuilder wraps a child view in a shell route's persistent UI.
type ShellBuilder func(entry *Entry, data *Data, child View) View

// Entry is one registered route. Entries are registered at startup and
// must not be mutated afterwards; the registry hands out the same
// pointer for the process lifetime.
type Entry struct {
	// Pattern is the canonical route pattern, unique per registry.
	Pattern string

	// Name is an optional human-readable route name.
	Name string

	// ParentPattern nests this route under a shell route. Validated at
	// resolution time, not registration time, so parents can be
	// registered in any order.
	ParentPattern string

	// Guards run before navigation to this route, after the guards of
	// its parent chain.
	Guards []Guard

	// Middleware runs for this route in addition to pipeline-global
	// middleware.
	Middleware []Middleware

	// TransitionKey selects a per-route transition descriptor; it is
	// opaque to the engine.
	TransitionKey string

	// Shell marks this entry as a shell route hosting a nested
	// navigation stack.
	Shell bool

	// Initial marks the route the application starts on.
	Initial bool

	// FullscreenDialog and MaintainState are presentation flags passed
	// through to the rendering layer.
	FullscreenDialog bool
	MaintainState    bool

	// Metadata is arbitrary per-route data.
	Metadata map[string]any

	// Build produces the route's view; BuildShell wraps nested content
	// for shell entries.
	Build      Builder
	BuildShell ShellBuilder
}

// RedirectRule rewrites a matching path before route matching. Rules
// are evaluated in registration order; the first applicable one wins.
type RedirectRule struct {
	// From is the pattern the incoming path must match.
	From string

	// To is the target pattern; parameters captured by From are
	// substituted into it.
	To string

	// Permanent distinguishes permanent from temporary redirects; the
	// engine treats both identically and merely records the flag.
	Permanent bool

	// Condition, when set, must also hold for the rule to apply.
	Condition func(path string) bool
}

// Data describes one successful route resolution. It is created once
// per navigation, is read-only afterwards, and is referenced by history
// entries and by its parameter resolver.
type Data struct {
	// Pattern is the matched route pattern; Path the concrete path;
	// FullPath the path including the query string.
	Pattern  string
	Path     string
	FullPath string

	// Name is the matched entry's name.
	Name string

	// Params resolves this navigation's typed parameters.
	Params *params.Resolver

	// Initial reports whether this is the application's initial route.
	Initial bool

	// ParentPattern and ChildPatterns mirror the registry's parent and
	// children relations at resolution time.
	ParentPattern string
	ChildPatterns []string

	// Metadata is the matched entry's metadata.
	Metadata map[string]any

	// CreatedAt is the resolution timestamp. ID is a process-unique
	// monotonic identifier combined with that timestamp; it exists for
	// tracing only and plays no part in equality.
	CreatedAt time.Time
	ID        string
}

// ---------------------------------------------------------------------
// Guard contract
// ---------------------------------------------------------------------

// GuardDecision is the outcome category of one guard check.
type GuardDecision int

const (
	GuardAllow GuardDecision = iota
	GuardDeny
	GuardRedirect
)

// Redirection is a redirect request emitted by a guard or middleware.
type Redirection struct {
	To    string
	Query map[string]string
	Extra any
}

// GuardResult is the value returned by a guard check.
type GuardResult struct {
	Decision GuardDecision
	Reason   string
	Redirect *Redirection
}

// Allow lets navigation proceed to the next guard.
func Allow() GuardResult { return GuardResult{Decision: GuardAllow} }

// Deny cancels the navigation.
func Deny(reason string) GuardResult {
	return GuardResult{Decision: GuardDeny, Reason: reason}
}

// Redirect diverts the navigation to another path.
func Redirect(to string, query map[string]string, extra any) GuardResult {
	return GuardResult{
		Decision: GuardRedirect,
		Redirect: &Redirection{To: to, Query: query, Extra: extra},
	}
}

// GuardContext is created per pre-navigation attempt (or redirect hop)
// and carries what a guard may inspect.
type GuardContext struct {
	// Target is the route being navigated to; Current the route the
	// application is on, if any.
	Target  *Data
	Current *Data

	// Extra is the caller-supplied navigation payload.
	Extra any

	// AttemptID correlates all hops of one logical navigation attempt.
	AttemptID string
}

// Guard is a pre-navigation access-control check.
type Guard interface {
	// Name identifies the guard in logs and deduplication.
	Name() string

	// Priority orders guards; higher runs first.
	Priority() int

	// Check decides whether navigation may proceed. Guards may await
	// external work (an auth lookup) and should honor ctx.
	Check(ctx context.Context, gc *GuardContext) (GuardResult, error)
}

// GuardObserver is an optional interface for guards that want
// activation and denial notifications.
type GuardObserver interface {
	// OnActivated fires after this guard allowed the navigation.
	OnActivated(gc *GuardContext)

	// OnDenied fires after this guard denied the navigation.
	OnDenied(gc *GuardContext, reason string)
}

// ---------------------------------------------------------------------
// Middleware contract
// ---------------------------------------------------------------------

// MiddlewareDecision is the outcome category of one middleware step.
type MiddlewareDecision int

const (
	MiddlewareContinue MiddlewareDecision = iota
	MiddlewareAbort
	MiddlewareRedirect
)

// MiddlewareResult is the value returned by a middleware step.
type MiddlewareResult struct {
	Decision MiddlewareDecision
	Reason   string
	Redirect *Redirection

	// Modified, when set on a Continue result, replaces the context
	// seen by subsequent middleware in the same pipeline run.
	Modified *MiddlewareContext
}

// Next continues the pipeline unchanged.
func Next() MiddlewareResult { return MiddlewareResult{Decision: MiddlewareContinue} }

// NextWith continues the pipeline with a modified context.
func NextWith(mc *MiddlewareContext) MiddlewareResult {
	return MiddlewareResult{Decision: MiddlewareContinue, Modified: mc}
}

// Abort stops the pipeline and cancels the navigation.
func Abort(reason string) MiddlewareResult {
	return MiddlewareResult{Decision: MiddlewareAbort, Reason: reason}
}

// Divert stops the pipeline and redirects the navigation.
func Divert(to string, query map[string]string, extra any) MiddlewareResult {
	return MiddlewareResult{
		Decision: MiddlewareRedirect,
		Redirect: &Redirection{To: to, Query: query, Extra: extra},
	}
}

// MiddlewareContext is created per pre-navigation attempt and carries
// the target plus a scratch area for inter-middleware communication
// within one pipeline run.
type MiddlewareContext struct {
	Target  *Data
	Current *Data
	Extra   any

	// AttemptID correlates all hops of one logical navigation attempt.
	AttemptID string

	// StartTime is when the attempt began, for elapsed-time measurement.
	StartTime time.Time

	// Values is a free-form scratch map scoped to one pipeline run.
	Values map[string]any
}

// Clone returns a shallow copy with its own Values map, for middleware
// that wants to hand a modified context to the rest of the pipeline.
func (mc *MiddlewareContext) Clone() *MiddlewareContext {
	out := *mc
	out.Values = make(map[string]any, len(mc.Values))
	for k, v := range mc.Values {
		out.Values[k] = v
	}
	return &out
}

// Middleware is a pre-navigation interceptor for cross-cutting
// concerns.
type Middleware interface {
	// Name identifies the middleware in logs.
	Name() string

	// Priority orders middleware; higher runs first.
	Priority() int

	// Handle inspects and possibly diverts the navigation.
	Handle(ctx context.Context, mc *MiddlewareContext) (MiddlewareResult, error)
}

// RouteScoped is an optional interface limiting a middleware to glob-
// matched routes. ExcludeRoutes wins over Routes; an absent or empty
// allow-list means all paths.
type RouteScoped interface {
	Routes() []string
	ExcludeRoutes() []string
}

// AfterHook is an optional interface for middleware that observes
// completed navigations. It runs detached from the navigation and must
// not assume the caller is still waiting.
type AfterHook interface {
	AfterNavigation(ctx context.Context, mc *MiddlewareContext)
}

// AbortObserver is an optional interface notified when any middleware
// aborts the pipeline the observer belongs to.
type AbortObserver interface {
	OnAborted(reason string)
}

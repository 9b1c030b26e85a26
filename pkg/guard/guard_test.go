package guard

import (
	"context"
	"testing"

	"github.com/waypoint-dev/waypoint/v2/pkg/route"
)

// recordingGuard counts invocations and returns a fixed result.
type recordingGuard struct {
	name      string
	priority  int
	result    route.GuardResult
	calls     int
	activated int
	denied    int
}

func (g *recordingGuard) Name() string  { return g.name }
func (g *recordingGuard) Priority() int { return g.priority }

func (g *recordingGuard) Check(ctx context.Context, gc *route.GuardContext) (route.GuardResult, error) {
	g.calls++
	return g.result, nil
}

func (g *recordingGuard) OnActivated(gc *route.GuardContext)            { g.activated++ }
func (g *recordingGuard) OnDenied(gc *route.GuardContext, reason string) { g.denied++ }

func testContext() *route.GuardContext {
	return &route.GuardContext{Target: &route.Data{Path: "/secure"}}
}

func TestRunShortCircuitsOnDeny(t *testing.T) {
	high := &recordingGuard{name: "high", priority: 10, result: route.Deny("no access")}
	mid := &recordingGuard{name: "mid", priority: 5, result: route.Allow()}
	low := &recordingGuard{name: "low", priority: 1, result: route.Allow()}

	p := NewPipeline(route.NewRegistry())
	guards := p.Collect(&route.Entry{Pattern: "/secure", Guards: []route.Guard{low, high, mid}}, "/secure")

	result, err := p.Run(context.Background(), guards, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if result.Decision != route.GuardDeny {
		t.Errorf("decision = %v, want deny", result.Decision)
	}
	if high.calls != 1 || mid.calls != 0 || low.calls != 0 {
		t.Errorf("calls = %d/%d/%d, want 1/0/0", high.calls, mid.calls, low.calls)
	}
	if high.denied != 1 {
		t.Errorf("OnDenied fired %d times, want 1", high.denied)
	}
}

func TestRunActivationHooks(t *testing.T) {
	a := &recordingGuard{name: "a", priority: 2, result: route.Allow()}
	b := &recordingGuard{name: "b", priority: 1, result: route.Allow()}

	p := NewPipeline(route.NewRegistry())
	result, err := p.Run(context.Background(), []route.Guard{a, b}, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if result.Decision != route.GuardAllow {
		t.Errorf("decision = %v, want allow", result.Decision)
	}
	if a.activated != 1 || b.activated != 1 {
		t.Errorf("activations = %d/%d, want 1/1", a.activated, b.activated)
	}
}

func TestRunRedirectStops(t *testing.T) {
	first := &recordingGuard{name: "first", priority: 5, result: route.Redirect("/login", nil, nil)}
	second := &recordingGuard{name: "second", priority: 1, result: route.Allow()}

	p := NewPipeline(route.NewRegistry())
	result, err := p.Run(context.Background(), []route.Guard{first, second}, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if result.Decision != route.GuardRedirect || result.Redirect.To != "/login" {
		t.Errorf("result = %+v", result)
	}
	if second.calls != 0 {
		t.Error("guard after redirect must not run")
	}
}

func TestCollectParentChainAndDedup(t *testing.T) {
	shared := &recordingGuard{name: "shared", priority: 3, result: route.Allow()}
	parentOnly := &recordingGuard{name: "parent", priority: 9, result: route.Allow()}

	reg := route.NewRegistry()
	reg.MustRegister(&route.Entry{Pattern: "/app", Shell: true, Guards: []route.Guard{parentOnly, shared}})
	child := &route.Entry{Pattern: "/app/user/:id", ParentPattern: "/app", Guards: []route.Guard{shared}}
	reg.MustRegister(child)

	p := NewPipeline(reg)
	guards := p.Collect(child, "/app/user/42")

	if len(guards) != 2 {
		t.Fatalf("len(guards) = %d, want 2 (deduplicated)", len(guards))
	}
	// Sorted by descending priority.
	if guards[0].Name() != "parent" || guards[1].Name() != "shared" {
		t.Errorf("order = %s, %s", guards[0].Name(), guards[1].Name())
	}
}

func TestCollectGlobalsWithGlobs(t *testing.T) {
	admin := &recordingGuard{name: "admin", priority: 1, result: route.Allow()}
	everywhere := &recordingGuard{name: "everywhere", priority: 2, result: route.Allow()}

	reg := route.NewRegistry()
	entry := &route.Entry{Pattern: "/admin/users/:id"}
	reg.MustRegister(entry)

	p := NewPipeline(reg)
	p.UseGlobal(admin, "/admin/**")
	p.UseGlobal(everywhere)

	guards := p.Collect(entry, "/admin/users/5")
	if len(guards) != 2 {
		t.Fatalf("len(guards) = %d, want 2", len(guards))
	}

	guards = p.Collect(&route.Entry{Pattern: "/public"}, "/public")
	if len(guards) != 1 || guards[0].Name() != "everywhere" {
		t.Errorf("public route guards = %v", len(guards))
	}
}

func TestCollectStableOnEqualPriority(t *testing.T) {
	a := &recordingGuard{name: "a", priority: 5, result: route.Allow()}
	b := &recordingGuard{name: "b", priority: 5, result: route.Allow()}

	p := NewPipeline(route.NewRegistry())
	guards := p.Collect(&route.Entry{Pattern: "/x", Guards: []route.Guard{a, b}}, "/x")
	if guards[0].Name() != "a" || guards[1].Name() != "b" {
		t.Errorf("equal priorities must keep union order, got %s, %s",
			guards[0].Name(), guards[1].Name())
	}
}

func TestFuncGuard(t *testing.T) {
	called := false
	g := New("fn", 7, func(ctx context.Context, gc *route.GuardContext) (route.GuardResult, error) {
		called = true
		return route.Allow(), nil
	})

	if g.Name() != "fn" || g.Priority() != 7 {
		t.Errorf("metadata = %s/%d", g.Name(), g.Priority())
	}
	if _, err := g.Check(context.Background(), testContext()); err != nil || !called {
		t.Error("check not invoked")
	}
}

package nav

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waypoint-dev/waypoint/v2/pkg/guard"
	"github.com/waypoint-dev/waypoint/v2/pkg/middleware"
	"github.com/waypoint-dev/waypoint/v2/pkg/route"
)

func testRegistry(t *testing.T) *route.Registry {
	t.Helper()
	reg := route.NewRegistry()
	reg.MustRegister(&route.Entry{Pattern: "/", Name: "home", Initial: true})
	reg.MustRegister(&route.Entry{Pattern: "/login", Name: "login"})
	reg.MustRegister(&route.Entry{
		Pattern: "/app",
		Name:    "app-shell",
		Shell:   true,
		BuildShell: func(entry *route.Entry, data *route.Data, child route.View) route.View {
			return child
		},
	})
	reg.MustRegister(&route.Entry{
		Pattern:       "/app/user/:id",
		Name:          "user-detail",
		ParentPattern: "/app",
		TransitionKey: "slide",
		Build: func(entry *route.Entry, data *route.Data) route.View {
			return "user-view"
		},
	})
	return reg
}

func TestPushResolvesTypedParams(t *testing.T) {
	nv := New(testRegistry(t))

	n, err := nv.Push(context.Background(), "/app/user/42?tab=profile")
	require.NoError(t, err)
	require.NotNil(t, n)

	assert.Equal(t, "/app/user/:id", n.Data.Pattern)
	assert.Equal(t, "/app/user/42", n.Data.Path)
	assert.Equal(t, "/app/user/42?tab=profile", n.Data.FullPath)
	assert.Equal(t, "user-view", n.View)
	assert.Equal(t, "slide", n.Transition)

	id, err := n.Data.Params.PathInt("id")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	tab, err := n.Data.Params.QueryString("tab")
	require.NoError(t, err)
	assert.Equal(t, "profile", tab)
}

func TestPushCommitsToShellHistory(t *testing.T) {
	nv := New(testRegistry(t))

	n, err := nv.Push(context.Background(), "/app/user/42")
	require.NoError(t, err)
	require.NotNil(t, n)

	h, ok := nv.ShellHistory("/app")
	require.True(t, ok, "shell history not created")
	cur, ok := h.Current()
	require.True(t, ok)
	assert.Equal(t, "/app/user/42", cur.Data.Path)

	// The root history stays untouched.
	assert.Equal(t, 0, nv.History().Len())
}

func TestRedirectRuleChainBounded(t *testing.T) {
	reg := testRegistry(t)
	reg.RegisterRedirect(route.RedirectRule{From: "/a", To: "/b"})
	reg.RegisterRedirect(route.RedirectRule{From: "/b", To: "/a"})
	nv := New(reg)

	_, err := nv.Push(context.Background(), "/a")
	var loopErr *RedirectLoopError
	require.ErrorAs(t, err, &loopErr)
	assert.GreaterOrEqual(t, len(loopErr.Chain), MaxRedirectHops)
	assert.Equal(t, "/a", loopErr.Chain[0])
}

func TestRedirectRuleRewrites(t *testing.T) {
	reg := testRegistry(t)
	reg.RegisterRedirect(route.RedirectRule{From: "/u/:id", To: "/app/user/:id"})
	nv := New(reg)

	n, err := nv.Push(context.Background(), "/u/7?tab=posts")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "/app/user/7", n.Data.Path)

	// The query string survives the rewrite.
	tab, err := n.Data.Params.QueryString("tab")
	require.NoError(t, err)
	assert.Equal(t, "posts", tab)
}

func TestGuardDenyCancels(t *testing.T) {
	reg := testRegistry(t)
	denied := 0
	deny := guard.New("deny-all", 0, func(ctx context.Context, gc *route.GuardContext) (route.GuardResult, error) {
		denied++
		return route.Deny("nope"), nil
	})
	nv := New(reg, WithGlobalGuard(deny, "/app/**"))

	n, err := nv.Push(context.Background(), "/app/user/42")
	require.NoError(t, err)
	assert.Nil(t, n, "denied navigation must not commit")
	assert.Equal(t, 1, denied)
	_, ok := nv.ShellHistory("/app")
	assert.False(t, ok, "denied navigation created a history")
}

func TestGuardRedirectFollowed(t *testing.T) {
	reg := testRegistry(t)
	toLogin := guard.New("auth", 0, func(ctx context.Context, gc *route.GuardContext) (route.GuardResult, error) {
		if gc.Target.Path == "/login" {
			return route.Allow(), nil
		}
		return route.Redirect("/login", map[string]string{"from": gc.Target.Path}, nil), nil
	})
	nv := New(reg, WithGlobalGuard(toLogin))

	n, err := nv.Push(context.Background(), "/app/user/42")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "/login", n.Data.Path)

	from, err := n.Data.Params.QueryString("from")
	require.NoError(t, err)
	assert.Equal(t, "/app/user/42", from)
}

func TestMiddlewareAbortCancels(t *testing.T) {
	reg := testRegistry(t)
	mw := middleware.New("maintenance", 0, func(ctx context.Context, mc *route.MiddlewareContext) (route.MiddlewareResult, error) {
		return route.Abort("maintenance window"), nil
	})
	nv := New(reg, WithMiddleware(mw))

	n, err := nv.Push(context.Background(), "/login")
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestMiddlewareRedirectLoopBounded(t *testing.T) {
	reg := testRegistry(t)
	bounce := middleware.New("bounce", 0, func(ctx context.Context, mc *route.MiddlewareContext) (route.MiddlewareResult, error) {
		if mc.Target.Path == "/login" {
			return route.Divert("/", nil, nil), nil
		}
		return route.Divert("/login", nil, nil), nil
	})
	nv := New(reg, WithMiddleware(bounce))

	_, err := nv.Push(context.Background(), "/login")
	var loopErr *RedirectLoopError
	require.ErrorAs(t, err, &loopErr)
}

func TestNotFoundFallback(t *testing.T) {
	nv := New(testRegistry(t), WithNotFound(func(entry *route.Entry, data *route.Data) route.View {
		return "not-found-view"
	}))

	n, err := nv.Push(context.Background(), "/nowhere")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "not-found-view", n.View)
	assert.Equal(t, "not-found", n.Data.Name)
	assert.Nil(t, n.Entry)
}

func TestNotFoundWithoutFallback(t *testing.T) {
	nv := New(testRegistry(t))
	_, err := nv.Push(context.Background(), "/nowhere")
	assert.True(t, errors.Is(err, route.ErrRouteNotFound))
}

func TestTransitionPrecedence(t *testing.T) {
	nv := New(testRegistry(t), WithDefaultTransition("fade"))

	// Per-call override wins over the entry's key.
	n, err := nv.Push(context.Background(), "/app/user/1", WithTransition("zoom"))
	require.NoError(t, err)
	assert.Equal(t, "zoom", n.Transition)

	// Entry key wins over the navigator default.
	n, err = nv.Push(context.Background(), "/app/user/2")
	require.NoError(t, err)
	assert.Equal(t, "slide", n.Transition)

	// Navigator default applies when nothing else is set.
	n, err = nv.Push(context.Background(), "/login")
	require.NoError(t, err)
	assert.Equal(t, "fade", n.Transition)
}

func TestPopDeliversResult(t *testing.T) {
	nv := New(testRegistry(t))
	_, err := nv.Push(context.Background(), "/")
	require.NoError(t, err)
	n, err := nv.Push(context.Background(), "/login")
	require.NoError(t, err)

	require.True(t, nv.CanPop())
	popped, ok := nv.Pop("credentials")
	require.True(t, ok)
	assert.Same(t, n, popped)

	select {
	case v := <-n.Result():
		assert.Equal(t, "credentials", v)
	default:
		t.Fatal("result not delivered")
	}
}

func TestPushReplacement(t *testing.T) {
	nv := New(testRegistry(t))
	_, err := nv.Push(context.Background(), "/")
	require.NoError(t, err)
	first, err := nv.Push(context.Background(), "/login")
	require.NoError(t, err)

	_, err = nv.PushReplacement(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, 2, nv.History().Len())

	// The replaced navigation completes without a value.
	_, open := <-first.Result()
	assert.False(t, open)
}

func TestPushAndRemoveUntil(t *testing.T) {
	nv := New(testRegistry(t))
	ctx := context.Background()
	_, err := nv.Push(ctx, "/")
	require.NoError(t, err)
	_, err = nv.Push(ctx, "/login")
	require.NoError(t, err)

	_, err = nv.PushAndRemoveUntil(ctx, "/login", func(n *Navigation) bool {
		return n.Data.Path == "/"
	})
	require.NoError(t, err)

	entries := nv.History().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "/", entries[0].Data.Path)
	assert.Equal(t, "/login", entries[1].Data.Path)
}

func TestStartPushesInitialRoute(t *testing.T) {
	nv := New(testRegistry(t))
	n, err := nv.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/", n.Data.Path)
	assert.True(t, n.Data.Initial)
}

func TestStartWithoutInitialRoute(t *testing.T) {
	reg := route.NewRegistry()
	reg.MustRegister(&route.Entry{Pattern: "/x"})
	nv := New(reg)
	_, err := nv.Start(context.Background())
	assert.ErrorIs(t, err, ErrNoInitialRoute)
}

func TestShellNavigationPopsAndCompletes(t *testing.T) {
	reg := testRegistry(t)
	reg.MustRegister(&route.Entry{
		Pattern:       "/app/home",
		Name:          "app-home",
		ParentPattern: "/app",
	})
	nv := New(reg)
	ctx := context.Background()

	_, err := nv.Push(ctx, "/app/home")
	require.NoError(t, err)
	second, err := nv.Push(ctx, "/app/user/42")
	require.NoError(t, err)

	// Both navigations live on the shell's nested stack, and the
	// navigator's surface follows them there.
	cur, ok := nv.Current()
	require.True(t, ok, "Current must see the shell-stack navigation")
	assert.Equal(t, "/app/user/42", cur.Data.Path)
	require.True(t, nv.CanPop(), "CanPop must consult the shell stack")

	prev, ok := nv.PreviousPath()
	require.True(t, ok)
	assert.Equal(t, "/app/home", prev)

	popped, ok := nv.Pop("selection")
	require.True(t, ok)
	assert.Same(t, second, popped)

	select {
	case v := <-second.Result():
		assert.Equal(t, "selection", v)
	default:
		t.Fatal("shell-popped navigation's result not delivered")
	}

	cur, ok = nv.Current()
	require.True(t, ok)
	assert.Equal(t, "/app/home", cur.Data.Path)
}

func TestShellCurrentVisibleToGuards(t *testing.T) {
	reg := testRegistry(t)
	reg.MustRegister(&route.Entry{
		Pattern:       "/app/home",
		ParentPattern: "/app",
	})
	var currents []string
	capture := guard.New("capture", 0, func(ctx context.Context, gc *route.GuardContext) (route.GuardResult, error) {
		if gc.Current == nil {
			currents = append(currents, "")
		} else {
			currents = append(currents, gc.Current.Path)
		}
		return route.Allow(), nil
	})
	nv := New(reg, WithGlobalGuard(capture))
	ctx := context.Background()

	_, err := nv.Push(ctx, "/app/home")
	require.NoError(t, err)
	_, err = nv.Push(ctx, "/app/user/42")
	require.NoError(t, err)

	require.Len(t, currents, 2)
	assert.Equal(t, "", currents[0])
	assert.Equal(t, "/app/home", currents[1],
		"second shell push must see the first as Current")
}

func TestPopAndPushAcrossStacks(t *testing.T) {
	reg := testRegistry(t)
	reg.MustRegister(&route.Entry{
		Pattern:       "/app/home",
		ParentPattern: "/app",
	})
	nv := New(reg)
	ctx := context.Background()

	_, err := nv.Push(ctx, "/app/home")
	require.NoError(t, err)
	dialog, err := nv.Push(ctx, "/app/user/7")
	require.NoError(t, err)

	// The pop half acts on the shell stack hosting the current entry,
	// not on the stack receiving the push.
	_, err = nv.PopAndPush(ctx, "/login", "done")
	require.NoError(t, err)

	shell, ok := nv.ShellHistory("/app")
	require.True(t, ok)
	assert.Equal(t, 1, shell.Len())

	select {
	case v := <-dialog.Result():
		assert.Equal(t, "done", v)
	default:
		t.Fatal("popped navigation's result not delivered")
	}

	cur, ok := nv.Current()
	require.True(t, ok)
	assert.Equal(t, "/login", cur.Data.Path)
}

func TestExtraReachesGuardsAndResolver(t *testing.T) {
	reg := testRegistry(t)
	var seen any
	capture := guard.New("capture", 0, func(ctx context.Context, gc *route.GuardContext) (route.GuardResult, error) {
		seen = gc.Extra
		return route.Allow(), nil
	})
	nv := New(reg, WithGlobalGuard(capture))

	payload := map[string]string{"origin": "deeplink"}
	n, err := nv.Push(context.Background(), "/login", WithExtra(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, seen)
	assert.Equal(t, payload, n.Data.Params.Arguments())
}

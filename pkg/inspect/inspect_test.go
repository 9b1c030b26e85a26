package inspect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waypoint-dev/waypoint/v2/pkg/nav"
	"github.com/waypoint-dev/waypoint/v2/pkg/route"
)

func testNavigator(t *testing.T) *nav.Navigator {
	t.Helper()
	reg := route.NewRegistry()
	reg.MustRegister(&route.Entry{Pattern: "/", Name: "home", Initial: true})
	reg.MustRegister(&route.Entry{Pattern: "/app", Name: "shell", Shell: true})
	reg.MustRegister(&route.Entry{
		Pattern:       "/app/user/:id",
		Name:          "user",
		ParentPattern: "/app",
	})
	reg.RegisterRedirect(route.RedirectRule{From: "/u/:id", To: "/app/user/:id"})
	return nav.New(reg)
}

func getJSON(t *testing.T, handler http.Handler, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestRoutesEndpoint(t *testing.T) {
	handler := Handler(testNavigator(t))

	var routes []RouteInfo
	rec := getJSON(t, handler, "/routes", &routes)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, routes, 3)

	assert.Equal(t, "/", routes[0].Pattern)
	assert.True(t, routes[0].Initial)

	assert.Equal(t, "/app", routes[1].Pattern)
	assert.True(t, routes[1].Shell)
	assert.Equal(t, []string{"/app/user/:id"}, routes[1].Children)

	assert.Equal(t, "/app", routes[2].ParentPattern)
}

func TestRedirectsEndpoint(t *testing.T) {
	handler := Handler(testNavigator(t))

	var redirects []RedirectInfo
	rec := getJSON(t, handler, "/redirects", &redirects)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, redirects, 1)
	assert.Equal(t, "/u/:id", redirects[0].From)
	assert.Equal(t, "/app/user/:id", redirects[0].To)
	assert.False(t, redirects[0].Conditional)
}

func TestHistoryEndpoint(t *testing.T) {
	nv := testNavigator(t)
	handler := Handler(nv)

	_, err := nv.Push(context.Background(), "/")
	require.NoError(t, err)
	_, err = nv.Push(context.Background(), "/app/user/7")
	require.NoError(t, err)

	var histories []HistoryInfo
	rec := getJSON(t, handler, "/history", &histories)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, histories, 2)

	assert.Equal(t, "root", histories[0].Stack)
	require.Len(t, histories[0].Entries, 1)
	assert.Equal(t, "/", histories[0].Entries[0].Path)
	assert.True(t, histories[0].Entries[0].Current)

	assert.Equal(t, "/app", histories[1].Stack)
	require.Len(t, histories[1].Entries, 1)
	assert.Equal(t, "/app/user/7", histories[1].Entries[0].Path)
}

func TestResolveEndpoint(t *testing.T) {
	handler := Handler(testNavigator(t))

	var info ResolveInfo
	rec := getJSON(t, handler, "/resolve?path=/app/user/42", &info)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, info.Matched)
	assert.Equal(t, "/app/user/:id", info.Pattern)
	assert.Equal(t, "42", info.Params["id"])

	rec = getJSON(t, handler, "/resolve?path=/nowhere", &info)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, info.Matched)

	rec = getJSON(t, handler, "/resolve", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	handler := Handler(testNavigator(t))
	rec := getJSON(t, handler, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

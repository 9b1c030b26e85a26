package glob

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/api/*", "/api/users", true},
		{"/api/*", "/api/users/5", false},
		{"/api/*", "/api", false},
		{"/admin/**", "/admin", true},
		{"/admin/**", "/admin/users", true},
		{"/admin/**", "/admin/users/5", true},
		{"/admin/**", "/public", false},
		{"/**", "/", true},
		{"/**", "/anything/at/all", true},
		{"/a/*/c", "/a/b/c", true},
		{"/a/*/c", "/a/b/d", false},
		{"/a/**/z", "/a/z", true},
		{"/a/**/z", "/a/b/c/z", true},
		{"/a/**/z", "/a/b/c", false},
		{"/exact", "/exact", true},
		{"/exact", "/Exact", false},
	}

	for _, tt := range tests {
		if got := Match(tt.pattern, tt.path); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestMatchAny(t *testing.T) {
	patterns := []string{"/api/*", "/admin/**"}

	if !MatchAny(patterns, "/admin/users/5") {
		t.Error("expected /admin/users/5 to match")
	}
	if MatchAny(patterns, "/public/home") {
		t.Error("expected /public/home not to match")
	}
	if MatchAny(nil, "/anything") {
		t.Error("empty pattern list should match nothing")
	}
}

package routepath

import (
	"errors"
	"reflect"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		query   string
		changed bool
	}{
		{"", "/", "", true},
		{"/", "/", "", false},
		{"/users", "/users", "", false},
		{"/users/", "/users", "", true},
		{"users", "/users", "", true},
		{"/blog//post", "/blog/post", "", true},
		{"/blog/./post", "/blog/post", "", true},
		{"/blog/../other", "/other", "", true},
		{"/a/b/c?x=1&y=2", "/a/b/c", "x=1&y=2", false},
		{"///", "/", "", true},
	}

	for _, tt := range tests {
		got, err := Canonicalize(tt.input)
		if err != nil {
			t.Errorf("Canonicalize(%q) error: %v", tt.input, err)
			continue
		}
		if got.Path != tt.want || got.Query != tt.query || got.Changed != tt.changed {
			t.Errorf("Canonicalize(%q) = %+v, want path=%q query=%q changed=%v",
				tt.input, got, tt.want, tt.query, tt.changed)
		}
	}
}

func TestCanonicalizeRejects(t *testing.T) {
	tests := []struct {
		input string
		err   error
	}{
		{"/a\\b", ErrBackslashInPath},
		{"/a\x00b", ErrNullByteInPath},
		{"/a%00b", ErrNullByteInPath},
		{"/a%GGb", ErrInvalidPercentEscape},
		{"/a%2", ErrInvalidPercentEscape},
		{"/../secret", ErrPathEscapesRoot},
	}

	for _, tt := range tests {
		_, err := Canonicalize(tt.input)
		if !errors.Is(err, tt.err) {
			t.Errorf("Canonicalize(%q) error = %v, want %v", tt.input, err, tt.err)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "/"},
		{"/", "/"},
		{"users", "/users"},
		{"/users/", "/users"},
		{"//a///b//", "/a/b"},
		{"/../up", "/up"},
		{"/a\\b", "/ab"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSplitPathAndQuery(t *testing.T) {
	path, query := SplitPathAndQuery("/users/5?tab=profile&x=1")
	if path != "/users/5" || query != "tab=profile&x=1" {
		t.Errorf("got (%q, %q)", path, query)
	}

	path, query = SplitPathAndQuery("/users")
	if path != "/users" || query != "" {
		t.Errorf("got (%q, %q)", path, query)
	}
}

func TestParseQuery(t *testing.T) {
	got := ParseQuery("a=1&b=two&c=%20spaced%20&empty=")
	want := map[string]string{"a": "1", "b": "two", "c": " spaced ", "empty": ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseQuery = %v, want %v", got, want)
	}

	got = ParseQuery("")
	if got == nil || len(got) != 0 {
		t.Errorf("empty query should yield empty map, got %v", got)
	}
}

func TestBuildQuery(t *testing.T) {
	got := BuildQuery(map[string]any{"b": 2, "a": "one", "skip": nil})
	if got != "a=one&b=2" {
		t.Errorf("BuildQuery = %q", got)
	}

	if got := BuildQuery(nil); got != "" {
		t.Errorf("BuildQuery(nil) = %q, want empty", got)
	}
}

func TestBuildQueryRoundTrip(t *testing.T) {
	in := map[string]any{"q": "hello world", "page": 3}
	parsed := ParseQuery(BuildQuery(in))
	if parsed["q"] != "hello world" || parsed["page"] != "3" {
		t.Errorf("round trip lost data: %v", parsed)
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"/", nil},
		{"", nil},
		{"/users", []string{"users"}},
		{"/users/5/posts", []string{"users", "5", "posts"}},
	}

	for _, tt := range tests {
		if got := Segments(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Segments(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDecodeSegment(t *testing.T) {
	got, err := DecodeSegment("hello%20world")
	if err != nil || got != "hello world" {
		t.Errorf("DecodeSegment = %q, %v", got, err)
	}

	if _, err := DecodeSegment("a%2Fb"); !errors.Is(err, ErrEncodedSlashInSegment) {
		t.Errorf("expected ErrEncodedSlashInSegment, got %v", err)
	}
	if _, err := DecodeSegment("a%GG"); !errors.Is(err, ErrInvalidPercentEscape) {
		t.Errorf("expected ErrInvalidPercentEscape, got %v", err)
	}
}

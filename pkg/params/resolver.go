package params

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Resolver provides typed, cached access to one navigation's parameters.
//
// A Resolver is created alongside its RouteData and shares its lifetime.
// Decoded values are memoized keyed by (namespace, name, kind, default);
// since the underlying Params never change, the cache can never go stale.
// The cache is the only mutable state and it is invisible to callers
// beyond performance.
type Resolver struct {
	params Params
	args   any

	mu    sync.Mutex
	cache map[string]any
}

// NewResolver wraps a Params value and an opaque arguments payload.
func NewResolver(p Params, args any) *Resolver {
	return &Resolver{
		params: p,
		args:   args,
		cache:  make(map[string]any),
	}
}

// Params returns the wrapped raw parameter set.
func (r *Resolver) Params() Params { return r.params }

// Arguments returns the opaque payload passed at navigation time, for
// callers that need structured multi-value bodies not modeled as a map.
func (r *Resolver) Arguments() any { return r.args }

// ClearCache drops all memoized decoded values.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]any)
}

// ---------------------------------------------------------------------
// Path parameters. Required: absence is an error.
// ---------------------------------------------------------------------

// PathString returns a path parameter as-is.
func (r *Resolver) PathString(name string) (string, error) {
	v, err := r.pathValue(name, KindString)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// PathInt decodes a path parameter as an int.
func (r *Resolver) PathInt(name string) (int, error) {
	v, err := r.pathValue(name, KindInt)
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// PathInt64 decodes a path parameter as an int64.
func (r *Resolver) PathInt64(name string) (int64, error) {
	v, err := r.pathValue(name, KindInt64)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// PathFloat64 decodes a path parameter as a float64.
func (r *Resolver) PathFloat64(name string) (float64, error) {
	v, err := r.pathValue(name, KindFloat64)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// PathBool decodes a path parameter as a bool.
func (r *Resolver) PathBool(name string) (bool, error) {
	v, err := r.pathValue(name, KindBool)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// PathTime decodes a path parameter as an RFC 3339 time.
func (r *Resolver) PathTime(name string) (time.Time, error) {
	v, err := r.pathValue(name, KindTime)
	if err != nil {
		return time.Time{}, err
	}
	return v.(time.Time), nil
}

func (r *Resolver) pathValue(name string, kind Kind) (any, error) {
	key := cacheKey("path", name, kind, nil)
	if v, ok := r.cached(key); ok {
		return v, nil
	}

	raw, ok := r.params.Path(name)
	if !ok {
		return nil, fmt.Errorf("%w: path parameter %q", ErrMissingParam, name)
	}
	v, err := Decode(kind, raw)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: path parameter %q is empty", ErrMissingParam, name)
	}
	r.store(key, v)
	return v, nil
}

// ---------------------------------------------------------------------
// Query parameters. Optional: the Default variants swallow absence and
// decode failures; the plain variants report absence as ErrMissingParam.
// ---------------------------------------------------------------------

// QueryString returns a query parameter, or ErrMissingParam if absent.
func (r *Resolver) QueryString(name string) (string, error) {
	v, err := r.queryValue(name, KindString)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// QueryStringDefault returns a query parameter or def when absent.
func (r *Resolver) QueryStringDefault(name, def string) string {
	return r.queryDefault(name, KindString, def).(string)
}

// QueryInt decodes a query parameter as an int.
func (r *Resolver) QueryInt(name string) (int, error) {
	v, err := r.queryValue(name, KindInt)
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// QueryIntDefault decodes a query parameter as an int, falling back to
// def on absence or parse failure.
func (r *Resolver) QueryIntDefault(name string, def int) int {
	return r.queryDefault(name, KindInt, def).(int)
}

// QueryInt64 decodes a query parameter as an int64.
func (r *Resolver) QueryInt64(name string) (int64, error) {
	v, err := r.queryValue(name, KindInt64)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// QueryFloat64 decodes a query parameter as a float64.
func (r *Resolver) QueryFloat64(name string) (float64, error) {
	v, err := r.queryValue(name, KindFloat64)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// QueryFloat64Default decodes a query parameter as a float64 with fallback.
func (r *Resolver) QueryFloat64Default(name string, def float64) float64 {
	return r.queryDefault(name, KindFloat64, def).(float64)
}

// QueryBool decodes a query parameter as a bool.
func (r *Resolver) QueryBool(name string) (bool, error) {
	v, err := r.queryValue(name, KindBool)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// QueryBoolDefault decodes a query parameter as a bool with fallback.
func (r *Resolver) QueryBoolDefault(name string, def bool) bool {
	return r.queryDefault(name, KindBool, def).(bool)
}

// QueryTime decodes a query parameter as an RFC 3339 time.
func (r *Resolver) QueryTime(name string) (time.Time, error) {
	v, err := r.queryValue(name, KindTime)
	if err != nil {
		return time.Time{}, err
	}
	return v.(time.Time), nil
}

// QueryDuration decodes a query parameter as millisecond duration.
func (r *Resolver) QueryDuration(name string) (time.Duration, error) {
	v, err := r.queryValue(name, KindDuration)
	if err != nil {
		return 0, err
	}
	return v.(time.Duration), nil
}

// QueryURL decodes a query parameter as a URL.
func (r *Resolver) QueryURL(name string) (*url.URL, error) {
	v, err := r.queryValue(name, KindURL)
	if err != nil {
		return nil, err
	}
	return v.(*url.URL), nil
}

// QueryStringList decodes a separator-joined query parameter into a
// string slice. An absent or empty parameter yields an empty slice.
func (r *Resolver) QueryStringList(name, sep string) []string {
	raw, _ := r.params.Query(name)
	vals, err := DecodeList(KindString, raw, sep)
	if err != nil {
		return []string{}
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.(string)
	}
	return out
}

// QueryIntList decodes a separator-joined query parameter into an int
// slice. A failing element fails the whole list.
func (r *Resolver) QueryIntList(name, sep string) ([]int, error) {
	raw, _ := r.params.Query(name)
	vals, err := DecodeList(KindInt, raw, sep)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = v.(int)
	}
	return out, nil
}

func (r *Resolver) queryValue(name string, kind Kind) (any, error) {
	key := cacheKey("query", name, kind, nil)
	if v, ok := r.cached(key); ok {
		return v, nil
	}

	raw, ok := r.params.Query(name)
	if !ok {
		return nil, fmt.Errorf("%w: query parameter %q", ErrMissingParam, name)
	}
	v, err := Decode(kind, raw)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: query parameter %q is empty", ErrMissingParam, name)
	}
	r.store(key, v)
	return v, nil
}

func (r *Resolver) queryDefault(name string, kind Kind, def any) any {
	key := cacheKey("query", name, kind, def)
	if v, ok := r.cached(key); ok {
		return v
	}

	raw, ok := r.params.Query(name)
	if !ok {
		return def
	}
	v := DecodeDefault(kind, raw, def)
	r.store(key, v)
	return v
}

// ---------------------------------------------------------------------
// Body parameters. Already typed: a matching value is returned directly,
// a string value is decoded, anything else is reported absent. Body
// access never fails.
// ---------------------------------------------------------------------

// BodyString returns a body value as a string.
func (r *Resolver) BodyString(name string) (string, bool) {
	v, ok := r.bodyValue(name, KindString)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// BodyInt returns a body value as an int.
func (r *Resolver) BodyInt(name string) (int, bool) {
	v, ok := r.bodyValue(name, KindInt)
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}

// BodyFloat64 returns a body value as a float64.
func (r *Resolver) BodyFloat64(name string) (float64, bool) {
	v, ok := r.bodyValue(name, KindFloat64)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// BodyBool returns a body value as a bool.
func (r *Resolver) BodyBool(name string) (bool, bool) {
	v, ok := r.bodyValue(name, KindBool)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// BodyTime returns a body value as a time.Time.
func (r *Resolver) BodyTime(name string) (time.Time, bool) {
	v, ok := r.bodyValue(name, KindTime)
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	return t, ok
}

// BodyAny returns the raw body value without decoding.
func (r *Resolver) BodyAny(name string) (any, bool) {
	return r.params.Body(name)
}

func (r *Resolver) bodyValue(name string, kind Kind) (any, bool) {
	raw, ok := r.params.Body(name)
	if !ok || raw == nil {
		return nil, false
	}

	// Stored strings get the same decoding as query parameters.
	if s, isStr := raw.(string); isStr && kind != KindString {
		key := cacheKey("body", name, kind, nil)
		if v, hit := r.cached(key); hit {
			return v, true
		}
		v, err := Decode(kind, s)
		if err != nil || v == nil {
			return nil, false
		}
		r.store(key, v)
		return v, true
	}

	return raw, true
}

// ---------------------------------------------------------------------

func cacheKey(ns, name string, kind Kind, def any) string {
	return fmt.Sprintf("%s:%s:%s:%v", ns, name, kind, def)
}

func (r *Resolver) cached(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.cache[key]
	return v, ok
}

func (r *Resolver) store(key string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = v
}

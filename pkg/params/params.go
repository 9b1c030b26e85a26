package params

import (
	"maps"
	"reflect"
)

// Params carries the raw parameters extracted for one navigation:
// path parameters bound by the matcher, decoded query parameters, and
// caller-supplied body values. It is an immutable value type; New
// copies its inputs so later mutation of the source maps cannot leak in.
type Params struct {
	path  map[string]string
	query map[string]string
	body  map[string]any
}

// New builds a Params value from raw maps. nil maps are allowed.
func New(path, query map[string]string, body map[string]any) Params {
	return Params{
		path:  cloneStringMap(path),
		query: cloneStringMap(query),
		body:  cloneBodyMap(body),
	}
}

// Path returns the raw path parameter and whether it was present.
func (p Params) Path(name string) (string, bool) {
	v, ok := p.path[name]
	return v, ok
}

// Query returns the raw query parameter and whether it was present.
func (p Params) Query(name string) (string, bool) {
	v, ok := p.query[name]
	return v, ok
}

// Body returns the raw body value and whether it was present.
func (p Params) Body(name string) (any, bool) {
	v, ok := p.body[name]
	return v, ok
}

// PathMap returns a copy of the path parameter map.
func (p Params) PathMap() map[string]string { return cloneStringMap(p.path) }

// QueryMap returns a copy of the query parameter map.
func (p Params) QueryMap() map[string]string { return cloneStringMap(p.query) }

// BodyMap returns a copy of the body parameter map.
func (p Params) BodyMap() map[string]any { return cloneBodyMap(p.body) }

// Equal reports deep equality of the three parameter maps.
func (p Params) Equal(other Params) bool {
	return maps.Equal(p.path, other.path) &&
		maps.Equal(p.query, other.query) &&
		reflect.DeepEqual(p.body, other.body)
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	maps.Copy(out, m)
	return out
}

func cloneBodyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	maps.Copy(out, m)
	return out
}

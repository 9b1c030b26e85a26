package route

import (
	"fmt"
	"sync"

	"github.com/waypoint-dev/waypoint/v2/pkg/routepath"
)

// Registry stores route entries keyed by canonical pattern, the
// parent→children relation between them, and the ordered redirect
// rules. It is written at startup and read for the process lifetime;
// registration order is preserved for matcher tie-breaking.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*Entry
	order     []string
	children  map[string][]string
	redirects []RedirectRule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[string]*Entry),
		children: make(map[string][]string),
	}
}

// Register adds an entry under its normalized pattern. Registering the
// same pattern twice fails with ErrDuplicateRoute; a pattern declaring
// duplicate parameter names fails with ErrInvalidPattern. When the
// entry names a parent, the entry is appended to that parent's children
// list, whether or not the parent is registered yet.
func (r *Registry) Register(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: nil entry", ErrInvalidPattern)
	}

	pattern := routepath.Normalize(entry.Pattern)
	if err := validateParamNames(pattern); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[pattern]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, pattern)
	}

	entry.Pattern = pattern
	if entry.ParentPattern != "" {
		entry.ParentPattern = routepath.Normalize(entry.ParentPattern)
		r.children[entry.ParentPattern] = append(r.children[entry.ParentPattern], pattern)
	}

	r.entries[pattern] = entry
	r.order = append(r.order, pattern)
	return nil
}

// MustRegister is Register that panics on error, for static route
// tables built at startup.
func (r *Registry) MustRegister(entry *Entry) {
	if err := r.Register(entry); err != nil {
		panic(err)
	}
}

// RegisterRedirect appends a redirect rule. Rules are not unique; the
// first applicable rule wins at resolution time.
func (r *Registry) RegisterRedirect(rule RedirectRule) {
	rule.From = routepath.Normalize(rule.From)
	rule.To = routepath.Normalize(rule.To)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirects = append(r.redirects, rule)
}

// Lookup returns the entry registered under the normalized pattern.
func (r *Registry) Lookup(pattern string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[routepath.Normalize(pattern)]
	return e, ok
}

// Patterns returns all registered patterns in registration order.
func (r *Registry) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Redirects returns a snapshot of the redirect rules in evaluation
// order.
func (r *Registry) Redirects() []RedirectRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RedirectRule, len(r.redirects))
	copy(out, r.redirects)
	return out
}

// Children returns the registered child patterns of pattern.
func (r *Registry) Children(pattern string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kids := r.children[routepath.Normalize(pattern)]
	out := make([]string, len(kids))
	copy(out, kids)
	return out
}

// Ancestors walks the parent chain of pattern, nearest parent first.
// The walk carries a visited set so a misconfigured cyclic chain
// terminates instead of looping.
func (r *Registry) Ancestors(pattern string) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chain []*Entry
	visited := map[string]bool{}
	current := routepath.Normalize(pattern)

	for {
		entry, ok := r.entries[current]
		if !ok || entry.ParentPattern == "" {
			return chain
		}
		parent := entry.ParentPattern
		if visited[parent] {
			return chain
		}
		visited[parent] = true

		parentEntry, ok := r.entries[parent]
		if !ok {
			return chain
		}
		chain = append(chain, parentEntry)
		current = parent
	}
}

// ApplyRedirects evaluates the redirect rules against path in
// registration order and rewrites it using the first applicable rule,
// substituting any parameters captured by the rule's From pattern.
// It performs a single rewrite step; following chains (and bounding
// them) is the navigation orchestrator's job.
func (r *Registry) ApplyRedirects(path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.redirects {
		m := Match(rule.From, path)
		if !m.OK {
			continue
		}
		if rule.Condition != nil && !rule.Condition(path) {
			continue
		}
		target, err := BuildPath(rule.To, m.Params)
		if err != nil {
			continue
		}
		return target, true
	}
	return path, false
}

// FindShellForPath returns the first registered shell pattern that the
// path falls under: the shell must prefix-match the path and one of the
// shell's registered children must match it. A path that targets the
// shell itself does not count as falling under it.
func (r *Registry) FindShellForPath(path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, pattern := range r.order {
		entry := r.entries[pattern]
		if !entry.Shell {
			continue
		}
		if !MatchPrefix(pattern, path).OK {
			continue
		}
		for _, child := range r.children[pattern] {
			if Match(child, path).OK || MatchPrefix(child, path).OK {
				return pattern, true
			}
		}
	}
	return "", false
}

// FindBestMatch resolves path against all registered patterns using the
// static-over-dynamic priority rule.
func (r *Registry) FindBestMatch(path string) (*Entry, MatchResult, bool) {
	pattern, result, ok := FindBestMatch(r.Patterns(), path)
	if !ok {
		return nil, MatchResult{}, false
	}
	entry, _ := r.Lookup(pattern)
	return entry, result, true
}

func validateParamNames(pattern string) error {
	seen := map[string]bool{}
	for _, name := range paramNames(pattern) {
		if seen[name] {
			return fmt.Errorf("%w: duplicate parameter %q in %s", ErrInvalidPattern, name, pattern)
		}
		seen[name] = true
	}
	return nil
}

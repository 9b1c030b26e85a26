// Package inspect exposes a navigator's state over HTTP for debugging:
// the route table, redirect rules, history stacks, and a dry-run
// resolver, plus the Prometheus metrics endpoint.
//
// The handler is meant for a development or internal port, not for
// public exposure.
package inspect

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/waypoint-dev/waypoint/v2/pkg/nav"
	"github.com/waypoint-dev/waypoint/v2/pkg/route"
)

// RouteInfo is the wire form of one registered route.
type RouteInfo struct {
	Pattern       string   `json:"pattern"`
	Name          string   `json:"name,omitempty"`
	ParentPattern string   `json:"parent,omitempty"`
	Children      []string `json:"children,omitempty"`
	Shell         bool     `json:"shell,omitempty"`
	Initial       bool     `json:"initial,omitempty"`
	TransitionKey string   `json:"transition,omitempty"`
	Guards        int      `json:"guards"`
	Middleware    int      `json:"middleware"`
}

// RedirectInfo is the wire form of one redirect rule.
type RedirectInfo struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Permanent   bool   `json:"permanent"`
	Conditional bool   `json:"conditional"`
}

// HistoryEntryInfo is the wire form of one history entry.
type HistoryEntryInfo struct {
	Path      string    `json:"path"`
	Pattern   string    `json:"pattern,omitempty"`
	Name      string    `json:"name,omitempty"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Current   bool      `json:"current,omitempty"`
}

// HistoryInfo is the wire form of one history stack.
type HistoryInfo struct {
	Stack   string             `json:"stack"`
	Index   int                `json:"index"`
	Entries []HistoryEntryInfo `json:"entries"`
}

// ResolveInfo is the wire form of a dry-run match.
type ResolveInfo struct {
	Path    string            `json:"path"`
	Matched bool              `json:"matched"`
	Pattern string            `json:"pattern,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
}

// Handler builds the inspection router for a navigator.
func Handler(nv *nav.Navigator) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.NoCache)

	r.Get("/routes", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, routesInfo(nv.Registry()))
	})
	r.Get("/redirects", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, redirectsInfo(nv.Registry()))
	})
	r.Get("/history", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, historiesInfo(nv))
	})
	r.Get("/resolve", func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Query().Get("path")
		if path == "" {
			http.Error(w, "missing path parameter", http.StatusBadRequest)
			return
		}
		writeJSON(w, resolveInfo(nv.Registry(), path))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func routesInfo(reg *route.Registry) []RouteInfo {
	patterns := reg.Patterns()
	out := make([]RouteInfo, 0, len(patterns))
	for _, pattern := range patterns {
		entry, ok := reg.Lookup(pattern)
		if !ok {
			continue
		}
		out = append(out, RouteInfo{
			Pattern:       entry.Pattern,
			Name:          entry.Name,
			ParentPattern: entry.ParentPattern,
			Children:      reg.Children(pattern),
			Shell:         entry.Shell,
			Initial:       entry.Initial,
			TransitionKey: entry.TransitionKey,
			Guards:        len(entry.Guards),
			Middleware:    len(entry.Middleware),
		})
	}
	return out
}

func redirectsInfo(reg *route.Registry) []RedirectInfo {
	rules := reg.Redirects()
	out := make([]RedirectInfo, 0, len(rules))
	for _, rule := range rules {
		out = append(out, RedirectInfo{
			From:        rule.From,
			To:          rule.To,
			Permanent:   rule.Permanent,
			Conditional: rule.Condition != nil,
		})
	}
	return out
}

func historiesInfo(nv *nav.Navigator) []HistoryInfo {
	out := []HistoryInfo{historyInfo("root", nv.History())}
	for _, pattern := range nv.Registry().Patterns() {
		entry, ok := nv.Registry().Lookup(pattern)
		if !ok || !entry.Shell {
			continue
		}
		if h, ok := nv.ShellHistory(pattern); ok {
			out = append(out, historyInfo(pattern, h))
		}
	}
	return out
}

func historyInfo(name string, h *nav.History) HistoryInfo {
	index := h.Index()
	entries := h.Entries()
	info := HistoryInfo{
		Stack:   name,
		Index:   index,
		Entries: make([]HistoryEntryInfo, 0, len(entries)),
	}
	for i, n := range entries {
		info.Entries = append(info.Entries, HistoryEntryInfo{
			Path:      n.Data.Path,
			Pattern:   n.Data.Pattern,
			Name:      n.Data.Name,
			ID:        n.Data.ID,
			CreatedAt: n.Data.CreatedAt,
			Current:   i == index,
		})
	}
	return info
}

func resolveInfo(reg *route.Registry, path string) ResolveInfo {
	entry, match, ok := reg.FindBestMatch(path)
	if !ok {
		return ResolveInfo{Path: path}
	}
	return ResolveInfo{
		Path:    path,
		Matched: true,
		Pattern: entry.Pattern,
		Params:  match.Params,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

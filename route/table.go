package route

import (
	"cmp"
	"slices"
	"sync"

	"go.lsp.dev/uri"
)

// Table is the route table shared between the scanners and the language
// server handlers. Routes are grouped by path; a path can carry several
// methods (and, for malformed sources, the same method twice).
//
// Thread-safety: all methods are safe for concurrent use.
type Table struct {
	mu     sync.RWMutex
	byPath map[string][]Route
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{byPath: make(map[string][]Route, 32)}
}

// Add inserts routes into the table.
func (t *Table) Add(routes ...Route) {
	t.mu.Lock()
	for _, r := range routes {
		t.byPath[r.Path] = append(t.byPath[r.Path], r)
	}
	t.mu.Unlock()
}

// Replace drops every route declared in source and inserts routes in their
// place. It is used when a single resource file is rescanned after a save.
func (t *Table) Replace(source uri.URI, routes []Route) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for path, existing := range t.byPath {
		kept := existing[:0]
		for _, r := range existing {
			if r.Source() != source {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			delete(t.byPath, path)
		} else {
			t.byPath[path] = kept
		}
	}

	for _, r := range routes {
		t.byPath[r.Path] = append(t.byPath[r.Path], r)
	}
}

// ReplaceAll swaps the whole content of the table in one step, so readers
// never observe a half-filled table during a full rescan.
func (t *Table) ReplaceAll(routes []Route) {
	byPath := make(map[string][]Route, max(len(routes), 32))
	for _, r := range routes {
		byPath[r.Path] = append(byPath[r.Path], r)
	}
	t.mu.Lock()
	t.byPath = byPath
	t.mu.Unlock()
}

// Len returns the number of routes.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, rs := range t.byPath {
		n += len(rs)
	}
	return n
}

// All returns a snapshot of all routes sorted by path, then method.
func (t *Table) All() []Route {
	t.mu.RLock()
	out := make([]Route, 0, len(t.byPath))
	for _, rs := range t.byPath {
		out = append(out, rs...)
	}
	t.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b Route) int {
		if c := cmp.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return cmp.Compare(a.Method, b.Method)
	})
	return out
}

// Paths returns the distinct route paths in sorted order.
func (t *Table) Paths() []string {
	t.mu.RLock()
	out := make([]string, 0, len(t.byPath))
	for p := range t.byPath {
		out = append(out, p)
	}
	t.mu.RUnlock()

	slices.Sort(out)
	return out
}

// Get returns the routes registered for an exact path.
func (t *Table) Get(path string) []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.byPath[path])
}

// Lookup finds the first route (in path order) whose path matches url once
// variables are removed from both sides. The boolean is false when nothing
// matches.
func (t *Table) Lookup(url string) (Route, bool) {
	want := WithoutVars(url)
	for _, r := range t.All() {
		if WithoutVars(r.Path) == want {
			return r, true
		}
	}
	return Route{}, false
}

// LookupImplemented is like Lookup but only considers routes that carry an
// implementation location.
func (t *Table) LookupImplemented(url string) (Route, bool) {
	want := WithoutVars(url)
	for _, r := range t.All() {
		if r.Implementation != nil && WithoutVars(r.Path) == want {
			return r, true
		}
	}
	return Route{}, false
}

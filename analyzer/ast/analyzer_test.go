package ast

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/abiiranathan/qute-lsp/route"
)

const routerSource = `package main

type Context struct{}

func (c *Context) HTML(code int, name string, data any) {}

type HandlerFunc func(*Context)

type Router struct{}

func (r *Router) GET(path string, h ...HandlerFunc)            {}
func (r *Router) PUT(path string, h ...HandlerFunc)            {}
func (r *Router) Handle(method, path string, h ...HandlerFunc) {}
func (r *Router) Group(prefix string) *Router                  { return r }

const helloTemplate = "hello.html"

type Hello struct{}

func (h *Hello) Index(c *Context) {
	c.HTML(200, helloTemplate, nil)
}

func (h *Hello) Customer(c *Context) {}

func (h *Hello) Update(c *Context) {}

func detail() HandlerFunc {
	return func(c *Context) {
		c.HTML(200, "detail.html", nil)
	}
}

func auth(c *Context) {}

func main() {
	r := &Router{}
	h := &Hello{}
	r.GET("/hello", h.Index)

	api := r.Group("/hello")
	customer := api.Group("/customer")
	customer.GET("/:name", auth, h.Customer)
	customer.PUT("/:name/:sufix", h.Update)

	base := "/items"
	r.Handle("post", base+"/new", func(c *Context) {
		c.HTML(201, "item.html", nil)
	})

	r.Group("/admin").GET("/detail", detail())
}
`

func writeModule(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/app\n\ngo 1.21\n"), 0644); err != nil {
		t.Fatalf("failed to write go.mod: %v", err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

type routeSummary struct {
	Method    string
	Path      string
	Handler   string
	Templates []string
}

func summarize(routes []route.Route) []routeSummary {
	out := make([]routeSummary, 0, len(routes))
	for _, r := range routes {
		out = append(out, routeSummary{r.Method, r.Path, r.Handler, r.Templates})
	}
	return out
}

// TestAnalyzeDirRoutes verifies registrations, group prefixes and handler resolution.
func TestAnalyzeDirRoutes(t *testing.T) {
	t.Cleanup(ClearCache)
	dir := writeModule(t, map[string]string{"main.go": routerSource})

	result := AnalyzeDir(dir, DefaultConfig)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	want := []routeSummary{
		{"GET", "/hello", "Hello.Index", []string{"hello.html"}},
		{"GET", "/hello/customer/{name}", "Hello.Customer", nil},
		{"PUT", "/hello/customer/{name}/{sufix}", "Hello.Update", nil},
		{"POST", "/items/new", "func", []string{"item.html"}},
		{"GET", "/admin/detail", "detail", []string{"detail.html"}},
	}
	sortOpt := cmpopts.SortSlices(func(a, b routeSummary) bool {
		return a.Method+a.Path < b.Method+b.Path
	})
	if diff := cmp.Diff(want, summarize(result.Routes), sortOpt, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}
}

// TestAnalyzeDirImplementation verifies the implementation location points at the method name.
func TestAnalyzeDirImplementation(t *testing.T) {
	t.Cleanup(ClearCache)
	dir := writeModule(t, map[string]string{"main.go": routerSource})

	result := AnalyzeDir(dir, DefaultConfig)

	var hello *route.Route
	for i := range result.Routes {
		if result.Routes[i].Path == "/hello" {
			hello = &result.Routes[i]
		}
	}
	if hello == nil || hello.Implementation == nil {
		t.Fatalf("GET /hello not found or without implementation: %+v", result.Routes)
	}

	wantLine, wantChar := -1, -1
	for i, line := range strings.Split(routerSource, "\n") {
		if strings.HasPrefix(line, "func (h *Hello) Index") {
			wantLine = i
			wantChar = strings.Index(line, "Index")
		}
	}

	got := hello.Implementation
	if got.Range.Start.Line != wantLine || got.Range.Start.Character != wantChar {
		t.Errorf("implementation start = %+v, want line %d char %d", got.Range.Start, wantLine, wantChar)
	}
	if got.Range.End.Character != wantChar+len("Index") {
		t.Errorf("implementation end = %d, want %d", got.Range.End.Character, wantChar+len("Index"))
	}
	if u := string(got.URI); !strings.HasSuffix(u, "/main.go") || !strings.HasPrefix(u, "file://") {
		t.Errorf("implementation uri = %q", got.URI)
	}
}

// TestAnalyzeDirPathParams verifies path variables become string params.
func TestAnalyzeDirPathParams(t *testing.T) {
	t.Cleanup(ClearCache)
	dir := writeModule(t, map[string]string{"main.go": routerSource})

	result := AnalyzeDir(dir, DefaultConfig)
	for _, r := range result.Routes {
		if r.Method != "PUT" {
			continue
		}
		want := []route.Param{
			{Name: "name", Type: route.TypeOf("string"), Source: "path"},
			{Name: "sufix", Type: route.TypeOf("string"), Source: "path"},
		}
		if diff := cmp.Diff(want, r.Params); diff != "" {
			t.Errorf("params mismatch (-want +got):\n%s", diff)
		}
		return
	}
	t.Fatal("PUT route not found")
}

// TestAnalyzeDirRenderCalls verifies render calls are collected with relative paths.
func TestAnalyzeDirRenderCalls(t *testing.T) {
	t.Cleanup(ClearCache)
	dir := writeModule(t, map[string]string{"main.go": routerSource})

	result := AnalyzeDir(dir, DefaultConfig)

	found := map[string]bool{"hello.html": false, "item.html": false, "detail.html": false}
	for _, rc := range result.RenderCalls {
		if rc.File != "main.go" {
			t.Errorf("render call file = %q, want main.go", rc.File)
		}
		if _, ok := found[rc.Template]; ok {
			found[rc.Template] = true
		}
	}
	for tpl, ok := range found {
		if !ok {
			t.Errorf("expected to find render call for template %q", tpl)
		}
	}
}

// TestAnalyzeDirCacheInvalidate verifies cached results survive file changes until invalidated.
func TestAnalyzeDirCacheInvalidate(t *testing.T) {
	t.Cleanup(ClearCache)
	dir := writeModule(t, map[string]string{"main.go": routerSource})

	first := AnalyzeDir(dir, DefaultConfig)

	extra := `package main

func ping(c *Context) {}

func init() {
	(&Router{}).GET("/ping", ping)
}
`
	if err := os.WriteFile(filepath.Join(dir, "ping.go"), []byte(extra), 0644); err != nil {
		t.Fatalf("failed to write ping.go: %v", err)
	}

	cached := AnalyzeDir(dir, DefaultConfig)
	if len(cached.Routes) != len(first.Routes) {
		t.Fatalf("expected cached result with %d routes, got %d", len(first.Routes), len(cached.Routes))
	}

	Invalidate(dir)
	fresh := AnalyzeDir(dir, DefaultConfig)
	if len(fresh.Routes) != len(first.Routes)+1 {
		t.Fatalf("expected %d routes after invalidation, got %d", len(first.Routes)+1, len(fresh.Routes))
	}
}

// TestAnalyzeDirOutsideModule verifies a folder without go.mod is skipped
// without errors.
func TestAnalyzeDirOutsideModule(t *testing.T) {
	t.Cleanup(ClearCache)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte(routerSource), 0644); err != nil {
		t.Fatalf("failed to write main.go: %v", err)
	}

	result := AnalyzeDir(dir, DefaultConfig)
	if len(result.Errors) > 0 || len(result.Routes) > 0 {
		t.Errorf("expected an empty result, got routes %v errors %v", result.Routes, result.Errors)
	}
}

func TestInModule(t *testing.T) {
	dir := writeModule(t, nil)
	sub := filepath.Join(dir, "internal", "web")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("failed to create %s: %v", sub, err)
	}

	if !InModule(dir) {
		t.Error("module root not detected")
	}
	if !InModule(sub) {
		t.Error("module not detected from a nested folder")
	}
	if InModule(t.TempDir()) {
		t.Error("folder without go.mod reported as module")
	}
}

func TestJoinPrefix(t *testing.T) {
	tests := []struct {
		prefix, path, want string
	}{
		{"", "/hello", "/hello"},
		{"/api", "/hello", "/api/hello"},
		{"/api/", "hello", "/api/hello"},
		{"/api", "", "/api"},
	}
	for _, tt := range tests {
		if got := joinPrefix(tt.prefix, tt.path); got != tt.want {
			t.Errorf("joinPrefix(%q, %q) = %q, want %q", tt.prefix, tt.path, got, tt.want)
		}
	}
}

func TestResolveStringWithoutTypeInfo(t *testing.T) {
	assignments := map[string][]string{"base": {"/items"}}
	tests := []struct {
		expr string
		want []string
	}{
		{`"/hello"`, []string{"/hello"}},
		{`base + "/new"`, []string{"/items/new"}},
		{`(base)`, []string{"/items"}},
		{`200`, nil},
		{`unknown`, nil},
	}
	for _, tt := range tests {
		expr, err := parser.ParseExprFrom(token.NewFileSet(), "", tt.expr, 0)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.expr, err)
		}
		got := resolveString(expr, nil, assignments)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("resolveString(%s) mismatch (-want +got):\n%s", tt.expr, diff)
		}
	}
}

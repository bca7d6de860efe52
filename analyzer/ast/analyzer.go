// Package ast performs static analysis on Go source code to extract:
// 1. Route registrations on gin/echo/rex style routers, with group prefixes
// 2. The handler behind every route and its declaration site
// 3. Template render calls made by those handlers
package ast

import (
	"cmp"
	"fmt"
	goast "go/ast"
	"go/token"
	"go/types"
	"slices"
	"strings"

	"go.lsp.dev/uri"
	"golang.org/x/tools/go/packages"

	"github.com/abiiranathan/qute-lsp/route"
)

// AnalyzeDir loads the Go packages below dir and reports their routes.
//
// The analysis proceeds in phases:
// - Load and type-check packages
// - Index every function declaration with the templates it renders
// - Collect route registrations per function scope (concurrent)
// - Resolve each registration's handler against the index
//
// Results are cached per directory; see ClearCache and Invalidate. A dir
// outside any Go module or workspace yields an empty result.
func AnalyzeDir(dir string, config AnalysisConfig) AnalysisResult {
	if cached, ok := cacheGet(dir); ok {
		return cached
	}

	result := AnalysisResult{}
	if !InModule(dir) {
		return result
	}
	fset := token.NewFileSet()

	// Phase 1: load packages
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
			packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports,
		Dir:   dir,
		Fset:  fset,
		Tests: false,
	}

	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("load error: %v", err))
		return result
	}

	info, allFiles := mergeTypeInfo(pkgs, &result)

	// Phase 2: handler index
	index := buildHandlerIndex(allFiles, info, fset, dir, config)

	// Phase 3: route registrations (concurrent)
	scopes := collectFuncScopes(allFiles, info, config)

	// Phase 4: resolve handlers and emit routes
	result.Routes = generateRoutes(scopes, index, info, fset, dir, config)
	result.RenderCalls = aggregateRenderCalls(index)

	cachePut(dir, result)
	return result
}

// generateRoutes turns registrations into routes. Each route's
// implementation is the handler declaration when it can be resolved, and
// the registration call otherwise.
func generateRoutes(
	scopes []FuncScope,
	index map[types.Object]*handlerInfo,
	info *types.Info,
	fset *token.FileSet,
	dir string,
	config AnalysisConfig,
) []route.Route {
	total := 0
	for _, scope := range scopes {
		total += len(scope.Registrations)
	}
	routes := make([]route.Route, 0, total)

	for _, scope := range scopes {
		for _, reg := range scope.Registrations {
			path := route.NormalizeVars(reg.path)

			r := route.Route{
				Method: reg.method,
				Path:   path,
				Params: pathParams(path),
			}

			var implPos token.Pos
			var implName string
			if h := resolveHandler(reg.handler, index, info, fset, dir, config); h != nil {
				r.Handler = h.name
				r.Templates = h.templates
				if h.obj != nil {
					implPos = h.obj.Pos()
					implName = h.obj.Name()
				}
			}
			if !implPos.IsValid() {
				implPos = reg.call.Pos()
				implName = ""
			}

			r.Implementation = locationOf(fset, implPos, len(implName))
			routes = append(routes, r)
		}
	}

	// Workers finish in any order; keep output stable.
	slices.SortStableFunc(routes, func(a, b route.Route) int {
		if c := cmp.Compare(a.Implementation.URI, b.Implementation.URI); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Implementation.Range.Start.Line, b.Implementation.Range.Start.Line); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})

	return routes
}

// pathParams builds string path parameters from the variables of a
// brace-style path.
func pathParams(path string) []route.Param {
	var params []route.Param
	for {
		open := strings.IndexByte(path, '{')
		if open < 0 {
			return params
		}
		end := strings.IndexByte(path[open:], '}')
		if end < 0 {
			return params
		}
		params = append(params, route.Param{
			Name:   path[open+1 : open+end],
			Type:   route.TypeOf("string"),
			Source: "path",
		})
		path = path[open+end+1:]
	}
}

// locationOf converts a token position into a zero-based route.Location
// spanning width characters.
func locationOf(fset *token.FileSet, pos token.Pos, width int) *route.Location {
	p := fset.Position(pos)
	line := max(p.Line-1, 0)
	col := max(p.Column-1, 0)
	return &route.Location{
		URI: uri.File(p.Filename),
		Range: route.Range{
			Start: route.Position{Line: line, Character: col},
			End:   route.Position{Line: line, Character: col + width},
		},
	}
}

// aggregateRenderCalls flattens the render calls of all indexed handlers,
// deduplicated by location and template.
func aggregateRenderCalls(index map[types.Object]*handlerInfo) []RenderCall {
	seen := make(map[RenderCall]bool)
	var calls []RenderCall
	for _, h := range index {
		for _, rc := range h.renders {
			if !seen[rc] {
				seen[rc] = true
				calls = append(calls, rc)
			}
		}
	}
	slices.SortFunc(calls, func(a, b RenderCall) int {
		if c := strings.Compare(a.File, b.File); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Line, b.Line); c != 0 {
			return c
		}
		return strings.Compare(a.Template, b.Template)
	})
	return calls
}

// unparen strips redundant parentheses.
func unparen(e goast.Expr) goast.Expr {
	for {
		p, ok := e.(*goast.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}

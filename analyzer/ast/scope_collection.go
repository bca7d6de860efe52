package ast

import (
	goast "go/ast"
	"go/types"
	"runtime"
	"slices"
	"strings"
	"sync"
)

// collectFuncScopes collects route registrations from all function
// declarations using concurrent processing.
//
// Algorithm:
// 1. Identify all function declarations
// 2. Process them concurrently, one chunk per worker
// 3. Each worker tracks string variables and group prefixes per function
// 4. Results are aggregated from all workers
//
// Concurrency model:
// - One worker per CPU core
// - Work distribution via chunk-based partitioning
// - Workers only read the shared type info
func collectFuncScopes(files []*goast.File, info *types.Info, config AnalysisConfig) []FuncScope {
	funcNodes := identifyFuncNodes(files)
	if len(funcNodes) == 0 {
		return nil
	}
	return processNodesConcurrently(funcNodes, info, config)
}

// identifyFuncNodes returns every function declaration with a body.
// Function literals are visited as part of their enclosing declaration so
// that group prefixes assigned outside a closure stay visible inside it.
func identifyFuncNodes(files []*goast.File) []funcWorkUnit {
	// Estimate capacity: ~8 functions per file is typical
	funcNodes := make([]funcWorkUnit, 0, len(files)*8)
	for _, f := range files {
		for _, decl := range f.Decls {
			if fd, ok := decl.(*goast.FuncDecl); ok && fd.Body != nil {
				funcNodes = append(funcNodes, funcWorkUnit{node: fd})
			}
		}
	}
	return funcNodes
}

// processNodesConcurrently distributes work units across workers and
// aggregates their results.
func processNodesConcurrently(funcNodes []funcWorkUnit, info *types.Info, config AnalysisConfig) []FuncScope {
	numWorkers := max(runtime.NumCPU(), 1)
	chunkSize := (len(funcNodes) + numWorkers - 1) / numWorkers

	resultChan := make(chan []FuncScope, numWorkers)
	var wg sync.WaitGroup

	for w := range numWorkers {
		start := w * chunkSize
		if start >= len(funcNodes) {
			break
		}
		end := min(start+chunkSize, len(funcNodes))
		chunk := funcNodes[start:end]

		wg.Go(func() {
			resultChan <- processChunk(chunk, info, config)
		})
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var allScopes []FuncScope
	for scopes := range resultChan {
		allScopes = append(allScopes, scopes...)
	}
	return allScopes
}

// processChunk is the worker function for a chunk of declarations.
func processChunk(chunk []funcWorkUnit, info *types.Info, config AnalysisConfig) []FuncScope {
	localScopes := make([]FuncScope, 0, len(chunk)/2)
	for _, unit := range chunk {
		scope := processFunc(unit.node, info, config)
		if len(scope.Registrations) > 0 {
			localScopes = append(localScopes, scope)
		}
	}
	return localScopes
}

// scopeState is the per-function bookkeeping of a worker.
type scopeState struct {
	info    *types.Info
	config  AnalysisConfig
	strings map[string][]string // variable name -> string values
	groups  map[string]string   // variable name -> path prefix
}

// processFunc walks one function in source order. Assignments are seen
// before the calls that follow them, so the following all resolve:
//
//	api := r.Group("/api")
//	v1 := api.Group("/v1")
//	v1.GET("/users/:id", h.User)
//	r.Group("/admin").POST("/login", h.Login)
//	r.Handle("GET", base+"/ping", ping)
func processFunc(node goast.Node, info *types.Info, config AnalysisConfig) FuncScope {
	st := &scopeState{
		info:    info,
		config:  config,
		strings: make(map[string][]string),
		groups:  make(map[string]string),
	}

	var scope FuncScope
	goast.Inspect(node, func(n goast.Node) bool {
		switch x := n.(type) {
		case *goast.AssignStmt:
			st.recordAssign(x.Lhs, x.Rhs)
		case *goast.ValueSpec:
			lhs := make([]goast.Expr, len(x.Names))
			for i, name := range x.Names {
				lhs[i] = name
			}
			st.recordAssign(lhs, x.Values)
		case *goast.CallExpr:
			scope.Registrations = append(scope.Registrations, st.registrations(x)...)
		}
		return true
	})
	return scope
}

// recordAssign tracks string values and router groups bound to names.
func (st *scopeState) recordAssign(lhs, rhs []goast.Expr) {
	if len(lhs) != len(rhs) {
		return
	}
	for i, l := range lhs {
		ident, ok := l.(*goast.Ident)
		if !ok || ident.Name == "_" {
			continue
		}
		if prefix, ok := st.groupPrefix(rhs[i]); ok {
			st.groups[ident.Name] = prefix
			continue
		}
		if vals := resolveString(rhs[i], st.info, st.strings); len(vals) > 0 {
			st.strings[ident.Name] = vals
		}
	}
}

// groupPrefix reports the prefix of a Group call expression.
func (st *scopeState) groupPrefix(expr goast.Expr) (string, bool) {
	call, ok := unparen(expr).(*goast.CallExpr)
	if !ok || len(call.Args) == 0 {
		return "", false
	}
	sel, ok := call.Fun.(*goast.SelectorExpr)
	if !ok || sel.Sel.Name != st.config.GroupFunctionName {
		return "", false
	}
	vals := resolveString(call.Args[0], st.info, st.strings)
	if len(vals) == 0 {
		return "", false
	}
	return joinPrefix(st.receiverPrefix(sel.X), vals[0]), true
}

// receiverPrefix is the accumulated prefix of a router expression.
func (st *scopeState) receiverPrefix(expr goast.Expr) string {
	expr = unparen(expr)
	if ident, ok := expr.(*goast.Ident); ok {
		return st.groups[ident.Name]
	}
	if prefix, ok := st.groupPrefix(expr); ok {
		return prefix
	}
	return ""
}

// registrations recognises r.METHOD(path, handlers...) and
// r.Handle(method, path, handlers...).
func (st *scopeState) registrations(call *goast.CallExpr) []registration {
	sel, ok := call.Fun.(*goast.SelectorExpr)
	if !ok {
		return nil
	}

	var method string
	var pathArg goast.Expr
	var handlers []goast.Expr

	switch name := sel.Sel.Name; {
	case slices.Contains(st.config.RouteMethods, name):
		if len(call.Args) < 2 {
			return nil
		}
		method = name
		pathArg = call.Args[0]
		handlers = call.Args[1:]
	case name == st.config.HandleFunctionName && name != "":
		if len(call.Args) < 3 {
			return nil
		}
		methods := resolveString(call.Args[0], st.info, st.strings)
		if len(methods) == 0 {
			return nil
		}
		method = strings.ToUpper(methods[0])
		pathArg = call.Args[1]
		handlers = call.Args[2:]
	default:
		return nil
	}

	if !st.isRouter(sel.X) {
		return nil
	}

	paths := resolveString(pathArg, st.info, st.strings)
	if len(paths) == 0 {
		return nil
	}

	prefix := st.receiverPrefix(sel.X)
	regs := make([]registration, 0, len(paths))
	for _, p := range paths {
		regs = append(regs, registration{
			call:    call,
			method:  method,
			path:    joinPrefix(prefix, p),
			handler: handlers[len(handlers)-1],
		})
	}
	return regs
}

// isRouter reports whether expr may be a router. Package qualifiers such as
// http.Get are rejected; receivers without type information are accepted.
func (st *scopeState) isRouter(expr goast.Expr) bool {
	expr = unparen(expr)
	if st.info == nil {
		return true
	}

	if ident, ok := expr.(*goast.Ident); ok {
		if _, isPkg := st.info.Uses[ident].(*types.PkgName); isPkg {
			return false
		}
	}

	tv, ok := st.info.Types[expr]
	if !ok || tv.Type == nil {
		return true
	}
	t := types.Unalias(tv.Type)
	if basic, ok := t.(*types.Basic); ok && basic.Kind() == types.Invalid {
		return true
	}
	if ptr, ok := t.(*types.Pointer); ok {
		t = types.Unalias(ptr.Elem())
	}
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	return slices.Contains(st.config.RouterTypeNames, named.Obj().Name())
}

// joinPrefix joins a group prefix and a route path without doubling slashes.
func joinPrefix(prefix, p string) string {
	if prefix == "" {
		return p
	}
	if p == "" {
		return prefix
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(p, "/")
}

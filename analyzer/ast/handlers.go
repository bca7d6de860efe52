package ast

import (
	goast "go/ast"
	"go/token"
	"go/types"
	"slices"
)

// buildHandlerIndex indexes every function and method declaration by its
// type-checker object, together with the templates its body renders.
// Render calls inside closures count toward the enclosing declaration, so a
// handler factory returning a closure carries the closure's templates.
func buildHandlerIndex(
	files []*goast.File,
	info *types.Info,
	fset *token.FileSet,
	dir string,
	config AnalysisConfig,
) map[types.Object]*handlerInfo {
	index := make(map[types.Object]*handlerInfo)
	for _, f := range files {
		for _, decl := range f.Decls {
			fd, ok := decl.(*goast.FuncDecl)
			if !ok || fd.Body == nil {
				continue
			}
			obj := info.Defs[fd.Name]
			if obj == nil {
				continue
			}

			name := fd.Name.Name
			if fd.Recv != nil && len(fd.Recv.List) > 0 {
				if recv := recvTypeName(fd.Recv.List[0].Type); recv != "" {
					name = recv + "." + name
				}
			}

			renders := findRenders(fd.Body, info, fset, dir, config)
			index[obj] = &handlerInfo{
				name:      name,
				obj:       obj,
				templates: templateNames(renders),
				renders:   renders,
			}
		}
	}
	return index
}

// findRenders finds template render calls below node. The template is the
// first argument that resolves to a string:
//
//	c.HTML(http.StatusOK, "hello.html", data)
//	tmpl.ExecuteTemplate(w, "hello.html", data)
func findRenders(node goast.Node, info *types.Info, fset *token.FileSet, dir string, config AnalysisConfig) []RenderCall {
	assignments := make(map[string][]string)
	var calls []RenderCall

	goast.Inspect(node, func(n goast.Node) bool {
		switch x := n.(type) {
		case *goast.AssignStmt:
			if len(x.Lhs) == len(x.Rhs) {
				for i, l := range x.Lhs {
					if ident, ok := l.(*goast.Ident); ok {
						if vals := resolveString(x.Rhs[i], info, assignments); len(vals) > 0 {
							assignments[ident.Name] = vals
						}
					}
				}
			}
		case *goast.CallExpr:
			sel, ok := x.Fun.(*goast.SelectorExpr)
			if !ok || !slices.Contains(config.RenderFunctionNames, sel.Sel.Name) {
				return true
			}
			for _, arg := range x.Args {
				vals := resolveString(arg, info, assignments)
				if len(vals) == 0 {
					continue
				}
				pos := fset.Position(x.Pos())
				for _, v := range vals {
					if v == "" {
						continue
					}
					calls = append(calls, RenderCall{
						File:     resolveRelativePath(pos.Filename, dir),
						Line:     pos.Line,
						Template: v,
					})
				}
				break
			}
		}
		return true
	})
	return calls
}

// templateNames returns the distinct templates of calls in call order.
func templateNames(calls []RenderCall) []string {
	var names []string
	for _, c := range calls {
		if !slices.Contains(names, c.Template) {
			names = append(names, c.Template)
		}
	}
	return names
}

// resolveHandler resolves the handler argument of a registration.
//
// Supported forms:
// - Functions and method values: hello, h.Hello, pkg.Hello
// - Handler factories: h.Hello(db), newHandler()
// - Function literals: func(c *gin.Context) { ... }
//
// Handlers declared outside the loaded packages resolve to a name only.
func resolveHandler(
	expr goast.Expr,
	index map[types.Object]*handlerInfo,
	info *types.Info,
	fset *token.FileSet,
	dir string,
	config AnalysisConfig,
) *handlerInfo {
	if expr == nil {
		return nil
	}

	switch e := unparen(expr).(type) {
	case *goast.FuncLit:
		renders := findRenders(e.Body, info, fset, dir, config)
		return &handlerInfo{
			name:      "func",
			templates: templateNames(renders),
			renders:   renders,
		}

	case *goast.CallExpr:
		return resolveHandler(e.Fun, index, info, fset, dir, config)

	case *goast.Ident:
		return lookupHandler(e, index, info)

	case *goast.SelectorExpr:
		return lookupHandler(e.Sel, index, info)
	}
	return nil
}

func lookupHandler(ident *goast.Ident, index map[types.Object]*handlerInfo, info *types.Info) *handlerInfo {
	obj := info.Uses[ident]
	fn, ok := obj.(*types.Func)
	if !ok {
		return nil
	}
	fn = fn.Origin()
	if h, ok := index[fn]; ok {
		return h
	}
	return &handlerInfo{name: funcName(fn)}
}

// funcName formats a function as Name or Recv.Name.
func funcName(fn *types.Func) string {
	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Recv() == nil {
		return fn.Name()
	}
	t := types.Unalias(sig.Recv().Type())
	if ptr, ok := t.(*types.Pointer); ok {
		t = types.Unalias(ptr.Elem())
	}
	if named, ok := t.(*types.Named); ok {
		return named.Obj().Name() + "." + fn.Name()
	}
	return fn.Name()
}

// recvTypeName returns the type name of a method receiver expression.
func recvTypeName(expr goast.Expr) string {
	switch t := expr.(type) {
	case *goast.StarExpr:
		return recvTypeName(t.X)
	case *goast.Ident:
		return t.Name
	case *goast.IndexExpr:
		return recvTypeName(t.X)
	case *goast.IndexListExpr:
		return recvTypeName(t.X)
	case *goast.ParenExpr:
		return recvTypeName(t.X)
	}
	return ""
}

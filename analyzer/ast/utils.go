package ast

import (
	goast "go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"path/filepath"
	"strconv"
)

// extractString returns the value of a string literal, or "".
func extractString(expr goast.Expr) string {
	lit, ok := unparen(expr).(*goast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return ""
	}
	s, err := strconv.Unquote(lit.Value)
	if err != nil {
		return ""
	}
	return s
}

// resolveString resolves an argument to the string values it may hold.
//
// Values can come from:
// 1. String literals: r.GET("/hello", h)
// 2. Constants: r.GET(HelloPath, h)
// 3. Local variables: p := "/hello"; r.GET(p, h)
// 4. Concatenations of the above: r.GET(base+"/customer", h)
func resolveString(arg goast.Expr, info *types.Info, stringAssignments map[string][]string) []string {
	arg = unparen(arg)

	if lit, ok := arg.(*goast.BasicLit); ok {
		if s := extractString(lit); s != "" || lit.Value == `""` || lit.Value == "``" {
			return []string{s}
		}
		return nil
	}

	if bin, ok := arg.(*goast.BinaryExpr); ok && bin.Op == token.ADD {
		left := resolveString(bin.X, info, stringAssignments)
		right := resolveString(bin.Y, info, stringAssignments)
		var out []string
		for _, l := range left {
			for _, r := range right {
				out = append(out, l+r)
			}
		}
		return out
	}

	var ident *goast.Ident
	switch e := arg.(type) {
	case *goast.Ident:
		ident = e
	case *goast.SelectorExpr:
		ident = e.Sel
	default:
		return nil
	}

	if info != nil {
		if obj := info.ObjectOf(ident); obj != nil {
			if c, ok := obj.(*types.Const); ok && c.Val().Kind() == constant.String {
				return []string{constant.StringVal(c.Val())}
			}
		}
	}

	if vals, ok := stringAssignments[ident.Name]; ok {
		return vals
	}
	return nil
}

// resolveRelativePath converts an absolute path to a path relative to
// baseDir, falling back to the original path.
func resolveRelativePath(absPath, baseDir string) string {
	if abs, err := filepath.Abs(absPath); err == nil {
		if rel, err := filepath.Rel(baseDir, abs); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return absPath
}

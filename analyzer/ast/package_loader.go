package ast

import (
	"fmt"
	goast "go/ast"
	"go/types"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"
)

// mergeTypeInfo consolidates type information from all loaded packages into
// a single unified types.Info structure. This enables cross-package handler
// resolution (a route registered in one package, its handler in another).
//
// Also collects all AST files and non-import-related errors.
func mergeTypeInfo(pkgs []*packages.Package, result *AnalysisResult) (*types.Info, []*goast.File) {
	// Pre-calculate total sizes to avoid map growth
	totalTypes, totalDefs, totalUses := 0, 0, 0
	for _, pkg := range pkgs {
		if shouldSkipPackage(pkg.PkgPath) || pkg.TypesInfo == nil {
			continue
		}
		totalTypes += len(pkg.TypesInfo.Types)
		totalDefs += len(pkg.TypesInfo.Defs)
		totalUses += len(pkg.TypesInfo.Uses)
	}

	info := &types.Info{
		Types: make(map[goast.Expr]types.TypeAndValue, totalTypes),
		Defs:  make(map[*goast.Ident]types.Object, totalDefs),
		Uses:  make(map[*goast.Ident]types.Object, totalUses),
	}

	var allFiles []*goast.File
	for _, pkg := range pkgs {
		if shouldSkipPackage(pkg.PkgPath) {
			continue
		}

		for _, e := range pkg.Errors {
			if !isImportRelatedError(e.Msg) {
				result.Errors = append(result.Errors, fmt.Sprintf("type error: %v", e.Msg))
			}
		}

		allFiles = append(allFiles, pkg.Syntax...)

		if pkg.TypesInfo != nil {
			maps.Copy(info.Types, pkg.TypesInfo.Types)
			maps.Copy(info.Defs, pkg.TypesInfo.Defs)
			maps.Copy(info.Uses, pkg.TypesInfo.Uses)
		}
	}

	return info, allFiles
}

// InModule reports whether dir lies in a Go module or workspace, i.e.
// whether go.mod or go.work exists in dir or one of its parents. Loading
// "./..." anywhere else fails with "does not contain main module".
func InModule(dir string) bool {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	for {
		for _, name := range []string{"go.mod", "go.work"} {
			if fi, err := os.Stat(filepath.Join(dir, name)); err == nil && !fi.IsDir() {
				return true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}

// shouldSkipPackage skips vendored and generated packages.
func shouldSkipPackage(pkgPath string) bool {
	lower := strings.ToLower(pkgPath)

	if strings.Contains(lower, "/vendor/") || strings.HasPrefix(lower, "vendor/") {
		return true
	}
	if strings.Contains(lower, "/generated/") {
		return true
	}
	if strings.HasSuffix(lower, "_generated") || strings.HasSuffix(lower, ".pb") {
		return true
	}
	return strings.HasSuffix(lower, "_test")
}

// isImportRelatedError checks if an error message is about import resolution.
// A workspace whose dependencies are not downloaded still yields syntax and
// most of the routes, so these are not worth reporting.
func isImportRelatedError(msg string) bool {
	lower := strings.ToLower(msg)
	for _, phrase := range []string{
		"could not import",
		"can't find import",
		"cannot find package",
		"no required module provides",
		"build constraints exclude all go files",
	} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

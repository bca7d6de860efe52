// Package analyzer scans a workspace for HTTP routes. JAX-RS resources are
// read by analyzer/java and Go router registrations by analyzer/ast; this
// package runs both and merges their output.
package analyzer

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/abiiranathan/qute-lsp/analyzer/ast"
	"github.com/abiiranathan/qute-lsp/analyzer/java"
	"github.com/abiiranathan/qute-lsp/config"
	"github.com/abiiranathan/qute-lsp/route"
)

// Result is the merged route scan of a workspace.
type Result struct {
	// Routes are sorted by path, then method.
	Routes []route.Route `json:"routes" yaml:"routes"`
	// RenderCalls are the template renders found in Go handlers.
	RenderCalls []ast.RenderCall `json:"renderCalls,omitempty" yaml:"renderCalls,omitempty"`
	// Errors contains non-fatal problems of both scanners.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// ScanRoutes scans ws.Dir with the scanners enabled in ws. The scanners
// run concurrently; the only error returned is the context's.
//
// Go results are cached per directory by analyzer/ast; call
// ast.Invalidate(ws.Dir) after Go sources change.
func ScanRoutes(ctx context.Context, ws config.Workspace) (Result, error) {
	var (
		wg      sync.WaitGroup
		javaRes java.Result
		javaErr error
		goRes   ast.AnalysisResult
	)

	if ws.Java {
		wg.Go(func() {
			javaRes, javaErr = java.ScanDir(ctx, ws.Dir)
		})
	}
	if ws.Go {
		wg.Go(func() {
			goRes = ast.AnalyzeDir(ws.Dir, ast.DefaultConfig)
		})
	}
	wg.Wait()

	if javaErr != nil {
		return Result{}, javaErr
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var result Result
	result.Routes = append(javaRes.Routes(), goRes.Routes...)
	result.RenderCalls = goRes.RenderCalls

	// File errors already carry their location.
	result.Errors = append(result.Errors, javaRes.Errors...)
	for _, f := range javaRes.Files {
		result.Errors = append(result.Errors, f.Errors...)
	}
	result.Errors = append(result.Errors, goRes.Errors...)

	slices.SortStableFunc(result.Routes, func(a, b route.Route) int {
		return cmp.Or(cmp.Compare(a.Path, b.Path), cmp.Compare(a.Method, b.Method))
	})
	return result, nil
}

package ast

import (
	"path/filepath"
	"sync"
)

// Package-level cache of analysis results, keyed by absolute directory.
// Loading and type-checking packages dominates the cost of a scan, and the
// language server asks for the same directory on every rescan that was not
// triggered by a Go file change.
var (
	resultCacheMu sync.RWMutex
	resultCache   = make(map[string]AnalysisResult)
)

func cacheKey(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// cacheGet retrieves a cached result with a read lock.
func cacheGet(dir string) (AnalysisResult, bool) {
	resultCacheMu.RLock()
	v, ok := resultCache[cacheKey(dir)]
	resultCacheMu.RUnlock()
	return v, ok
}

// cachePut stores a result. Results with load errors are not cached so that
// a broken workspace is retried once it is fixed.
func cachePut(dir string, r AnalysisResult) {
	if len(r.Errors) > 0 {
		return
	}
	resultCacheMu.Lock()
	resultCache[cacheKey(dir)] = r
	resultCacheMu.Unlock()
}

// Invalidate drops the cached result for dir.
func Invalidate(dir string) {
	resultCacheMu.Lock()
	delete(resultCache, cacheKey(dir))
	resultCacheMu.Unlock()
}

// ClearCache clears the result cache. Useful for testing or when analyzing
// the same directory multiple times with different configurations.
func ClearCache() {
	resultCacheMu.Lock()
	resultCache = make(map[string]AnalysisResult)
	resultCacheMu.Unlock()
}

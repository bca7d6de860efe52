package java

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"go.lsp.dev/uri"

	"github.com/abiiranathan/qute-lsp/route"
)

// Result aggregates the scan of a source tree.
type Result struct {
	// Files holds one entry per scanned file that declared at least one
	// route or produced an error.
	Files []FileRoutes `json:"files"`
	// Errors contains walk and read failures.
	Errors []string `json:"errors,omitempty"`
}

// Routes flattens the routes of all files.
func (r Result) Routes() []route.Route {
	n := 0
	for _, f := range r.Files {
		n += len(f.Routes)
	}
	out := make([]route.Route, 0, n)
	for _, f := range r.Files {
		out = append(out, f.Routes...)
	}
	return out
}

// ScanDir scans every .java file below root.
//
// The algorithm mirrors the template registry scan:
//  1. Walk the tree and collect candidate files
//  2. Feed them to one worker per CPU through a buffered channel
//  3. Collect per-file results on a result channel
//
// A cancelled context stops feeding new files; files already handed to a
// worker are still scanned.
func ScanDir(ctx context.Context, root string) (Result, error) {
	var result Result

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("walk %s: %v", path, err))
			return nil
		}
		if d.IsDir() {
			if skipDir(d.Name()) && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".java") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("scan %s: %w", root, err)
	}

	if len(files) == 0 {
		return result, nil
	}

	numWorkers := max(min(runtime.NumCPU(), len(files)), 1)
	fileChan := make(chan string, len(files))
	resultChan := make(chan scanOutcome, len(files))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Go(func() {
			scanWorker(fileChan, resultChan)
		})
	}

feed:
	for _, path := range files {
		select {
		case <-ctx.Done():
			break feed
		case fileChan <- path:
		}
	}
	close(fileChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for outcome := range resultChan {
		if outcome.err != nil {
			result.Errors = append(result.Errors, outcome.err.Error())
			continue
		}
		if len(outcome.file.Routes) > 0 || len(outcome.file.Errors) > 0 {
			result.Files = append(result.Files, outcome.file)
		}
	}

	// Workers finish in any order; keep output stable.
	sortFiles(result.Files)

	return result, ctx.Err()
}

type scanOutcome struct {
	file FileRoutes
	err  error
}

// scanWorker reads and scans files until fileChan is closed.
func scanWorker(fileChan <-chan string, resultChan chan<- scanOutcome) {
	for path := range fileChan {
		content, err := os.ReadFile(path)
		if err != nil {
			resultChan <- scanOutcome{err: fmt.Errorf("read %s: %w", path, err)}
			continue
		}
		resultChan <- scanOutcome{file: ScanSource(uri.File(path), string(content))}
	}
}

// ScanFile scans a single file from disk.
func ScanFile(path string) (FileRoutes, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileRoutes{}, fmt.Errorf("read %s: %w", path, err)
	}
	return ScanSource(uri.File(path), string(content)), nil
}

// skipDir reports build output and VCS directories that never hold sources.
func skipDir(name string) bool {
	switch name {
	case ".git", ".idea", ".vscode", "target", "build", "node_modules", ".gradle", ".mvn":
		return true
	}
	return false
}

func sortFiles(files []FileRoutes) {
	slices.SortFunc(files, func(a, b FileRoutes) int {
		return cmp.Compare(a.URI, b.URI)
	})
}

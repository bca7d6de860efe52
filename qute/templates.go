package qute

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
)

// Document is a template file below the templates folder.
type Document struct {
	// Path is the filesystem path of the template.
	Path string `json:"path" yaml:"path"`
	// ID is the template id used by includes, e.g. items/select.
	ID string `json:"id" yaml:"id"`
	// Fragments lists the fragments declared in the template, in file order.
	Fragments []Fragment `json:"fragments" yaml:"fragments"`
}

// Fragment returns the fragment with the given id.
func (d Document) Fragment(id string) (Fragment, bool) {
	for _, f := range d.Fragments {
		if f.ID == id {
			return f, true
		}
	}
	return Fragment{}, false
}

// FragmentID returns the include id of a fragment of d: folder/file$id.
func (d Document) FragmentID(f Fragment) string {
	return d.ID + FragmentSeparator + f.ID
}

// Index is the scanned templates folder.
type Index struct {
	// Root is the templates folder.
	Root string `json:"root" yaml:"root"`
	// Documents are sorted by id.
	Documents []Document `json:"documents" yaml:"documents"`
	// Errors contains non-fatal problems such as duplicate fragment ids.
	Errors []string `json:"errors" yaml:"errors"`
}

// Document returns the template with the given id.
func (x *Index) Document(id string) (Document, bool) {
	if x == nil {
		return Document{}, false
	}
	i, ok := slices.BinarySearchFunc(x.Documents, id, func(d Document, id string) int {
		return strings.Compare(d.ID, id)
	})
	if !ok {
		return Document{}, false
	}
	return x.Documents[i], true
}

// Resolve finds the template an include points at. The returned fragment
// is the zero value for whole-template includes.
func (x *Index) Resolve(inc Include) (Document, Fragment, bool) {
	doc, ok := x.Document(inc.Template)
	if !ok {
		return Document{}, Fragment{}, false
	}
	if !inc.IsFragment() {
		return doc, Fragment{}, true
	}
	f, ok := doc.Fragment(inc.Fragment)
	if !ok {
		return Document{}, Fragment{}, false
	}
	return doc, f, true
}

// IDs returns every includable id: template ids and fragment ids.
func (x *Index) IDs() []string {
	if x == nil {
		return nil
	}
	var ids []string
	for _, d := range x.Documents {
		ids = append(ids, d.ID)
		for _, f := range d.Fragments {
			ids = append(ids, d.FragmentID(f))
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// ScanTemplates reads every template below root and indexes its fragments.
//
// The scan proceeds in phases:
//  1. Collect all template file paths (hidden files and folders skipped)
//  2. Read and scan files concurrently
//  3. Detect duplicate fragment ids per template
//
// Concurrency: one worker per CPU core reading from a shared file channel,
// results collected via sync.Map.
func ScanTemplates(ctx context.Context, root string) (*Index, error) {
	root = filepath.Clean(root)

	// Phase 1: collect template file paths
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk templates %s: %w", root, err)
	}

	// Phase 2: scan files concurrently
	docs := scanFilesConcurrently(ctx, files, root)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 3: duplicates
	index := &Index{Root: root, Documents: docs}
	index.Errors = detectDuplicateFragments(docs)
	return index, nil
}

// scanFilesConcurrently scans template files with a worker pool.
//
// Thread-safety: workers only write to the sync.Map; the result slice is
// built after all workers complete.
func scanFilesConcurrently(ctx context.Context, files []string, root string) []Document {
	if len(files) == 0 {
		return nil
	}

	var registry sync.Map // path -> Document
	numWorkers := max(runtime.NumCPU(), 1)
	fileChan := make(chan string, len(files))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Go(func() {
			scanFileWorker(ctx, fileChan, root, &registry)
		})
	}

	for _, path := range files {
		fileChan <- path
	}
	close(fileChan)

	wg.Wait()

	docs := make([]Document, 0, len(files))
	registry.Range(func(_, value any) bool {
		docs = append(docs, value.(Document))
		return true
	})
	slices.SortFunc(docs, func(a, b Document) int {
		return cmp.Or(strings.Compare(a.ID, b.ID), strings.Compare(a.Path, b.Path))
	})
	return docs
}

// scanFileWorker drains fileChan until it is closed or ctx is done.
func scanFileWorker(ctx context.Context, fileChan <-chan string, root string, registry *sync.Map) {
	for path := range fileChan {
		if ctx.Err() != nil {
			continue
		}
		doc, err := ScanTemplateFile(path, root)
		if err != nil {
			continue // Skip files we can't read
		}
		registry.Store(path, doc)
	}
}

// ScanTemplateFile reads a single template.
func ScanTemplateFile(path, root string) (Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read template: %w", err)
	}
	return Document{
		Path:      path,
		ID:        FragmentPrefix(path, root),
		Fragments: ScanFragments(string(content)),
	}, nil
}

// detectDuplicateFragments reports fragment ids declared more than once in
// the same template; includes of such ids are ambiguous.
func detectDuplicateFragments(docs []Document) []string {
	var errs []string
	for _, d := range docs {
		seen := make(map[string]int, len(d.Fragments))
		for _, f := range d.Fragments {
			if prev, ok := seen[f.ID]; ok {
				errs = append(errs, fmt.Sprintf(`duplicate fragment "%s" in %s (lines %d and %d)`, f.ID, d.ID, prev+1, f.Line+1))
				continue
			}
			seen[f.ID] = f.Line
		}
	}
	return errs
}

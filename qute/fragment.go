package qute

import (
	"path/filepath"
	"slices"
	"strings"
)

// Fragment is a {#fragment} section declared in a template.
type Fragment struct {
	// ID is the fragment id, the part after $ in an include.
	ID string `json:"id" yaml:"id"`
	// Line is the 0-based line of the {#fragment} tag.
	Line int `json:"line" yaml:"line"`
	// Col is the 0-based column of the {#fragment} tag.
	Col int `json:"col" yaml:"col"`
	// Content is the raw content between the tags. It is omitted from encoded output.
	Content string `json:"-" yaml:"-"`
}

const (
	fragmentOpen  = "{#fragment"
	fragmentClose = "{/fragment}"
)

// ScanFragments finds the fragments declared in a template.
//
// Algorithm:
//  1. Scans content for {#fragment ...} and {/fragment} tags
//  2. Keeps a stack of open fragments so nested fragments close in order
//  3. Extracts content between each open tag and its matching close tag
//  4. Records the 0-based position of every open tag
//
// Supported syntax:
//   - {#fragment id=item}...{/fragment}
//   - {#fragment item}...{/fragment}
//
// A fragment that is never closed keeps the rest of the file as content.
// Thread-safety: Pure function, safe for concurrent calls.
func ScanFragments(content string) []Fragment {
	var out []Fragment
	var stack []int // indexes into out
	var starts []int

	line, lineStart := 0, 0
	for cur := 0; cur < len(content); {
		next := strings.IndexAny(content[cur:], "{\n")
		if next < 0 {
			break
		}
		idx := cur + next

		if content[idx] == '\n' {
			line++
			lineStart = idx + 1
			cur = idx + 1
			continue
		}

		rest := content[idx:]
		switch {
		case strings.HasPrefix(rest, fragmentOpen) && len(rest) > len(fragmentOpen) &&
			(rest[len(fragmentOpen)] == ' ' || rest[len(fragmentOpen)] == '\t' || rest[len(fragmentOpen)] == '}'):
			closeRel := strings.IndexByte(rest, '}')
			if closeRel < 0 {
				return closeOpen(out, stack, starts, content)
			}
			id := fragmentID(rest[len(fragmentOpen):closeRel])
			if id != "" {
				out = append(out, Fragment{ID: id, Line: line, Col: idx - lineStart})
				stack = append(stack, len(out)-1)
				starts = append(starts, idx+closeRel+1)
			}
			cur = idx + closeRel + 1

		case strings.HasPrefix(rest, fragmentClose):
			if n := len(stack); n > 0 {
				out[stack[n-1]].Content = content[starts[n-1]:idx]
				stack, starts = stack[:n-1], starts[:n-1]
			}
			cur = idx + len(fragmentClose)

		default:
			cur = idx + 1
		}
	}

	return closeOpen(out, stack, starts, content)
}

// closeOpen gives fragments left open the rest of the content.
func closeOpen(out []Fragment, stack, starts []int, content string) []Fragment {
	for i, idx := range stack {
		out[idx].Content = content[starts[i]:]
	}
	return out
}

// fragmentID extracts the id from the parameters of a fragment tag:
// either id=value or the first positional parameter.
func fragmentID(params string) string {
	fields := strings.Fields(params)
	for _, f := range fields {
		if v, ok := strings.CutPrefix(f, "id="); ok {
			return strings.Trim(v, `"'`)
		}
	}
	for _, f := range fields {
		if !strings.Contains(f, "=") {
			return strings.Trim(f, `"'`)
		}
	}
	return ""
}

// TemplatesFolderName is the folder that roots template ids.
const TemplatesFolderName = "templates"

// maxPrefixDepth bounds how many folders a template id may have.
const maxPrefixDepth = 5

// FragmentPrefix returns the template id of path: its folders below the
// templates folder and its file name without extension, joined by "/".
//
//	templates/hello.html        -> hello
//	templates/items/select.html -> items/select
//
// The walk stops at a folder named templates, at templatesRoot, or after
// five folders.
func FragmentPrefix(path, templatesRoot string) string {
	parts := []string{stripExt(filepath.Base(path))}
	root := ""
	if templatesRoot != "" {
		root = filepath.Clean(templatesRoot)
	}

	dir := filepath.Dir(filepath.Clean(path))
	for range maxPrefixDepth {
		name := filepath.Base(dir)
		if dir == root || name == TemplatesFolderName || name == "." || dir == filepath.Dir(dir) {
			break
		}
		parts = append(parts, name)
		dir = filepath.Dir(dir)
	}

	slices.Reverse(parts)
	return strings.Join(parts, "/")
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// TemplatesFolder returns the closest ancestor of path named templates.
func TemplatesFolder(path string) (string, bool) {
	dir := filepath.Dir(filepath.Clean(path))
	for {
		if filepath.Base(dir) == TemplatesFolderName {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

package qute

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"
)

// Severity of a Problem.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Problem is a diagnostic found in a template.
type Problem struct {
	// Template is the id of the template where the issue was found.
	Template string `json:"template" yaml:"template"`
	// Line is the 0-based line of the issue.
	Line int `json:"line" yaml:"line"`
	// Column and EndColumn are the 0-based byte columns of the issue.
	Column    int `json:"column" yaml:"column"`
	EndColumn int `json:"endColumn" yaml:"endColumn"`
	// Target is the include target that caused the issue.
	Target string `json:"target" yaml:"target"`
	// Message is a human-readable description of the issue.
	Message string `json:"message" yaml:"message"`
	// Severity is SeverityError or SeverityWarning.
	Severity string `json:"severity" yaml:"severity"`
}

// ValidateIncludes checks that every include of a template resolves.
// Includes of the template's own fragments ({#include $id /}) are checked
// against content; other includes need x and are skipped when x is nil.
func (x *Index) ValidateIncludes(templateID, content string) []Problem {
	var problems []Problem
	var local []Fragment
	localScanned := false

	for _, ref := range FindIncludes(content) {
		p := Problem{
			Template:  templateID,
			Line:      ref.Line,
			Column:    ref.Col,
			EndColumn: ref.Col + len(includeTag) + len(ref.ID()),
			Target:    ref.ID(),
			Severity:  SeverityError,
		}

		switch {
		case ref.IsLocal():
			if !localScanned {
				local, localScanned = ScanFragments(content), true
			}
			if !slices.ContainsFunc(local, func(f Fragment) bool { return f.ID == ref.Fragment }) {
				p.Message = fmt.Sprintf("fragment %q not found in this template", ref.Fragment)
				problems = append(problems, p)
			}

		case x != nil:
			doc, ok := x.Document(ref.Template)
			if !ok {
				p.Message = fmt.Sprintf("template %q not found", ref.Template)
				problems = append(problems, p)
				continue
			}
			if ref.IsFragment() {
				if _, ok := doc.Fragment(ref.Fragment); !ok {
					p.Message = fmt.Sprintf("fragment %q not found in %s", ref.Fragment, doc.ID)
					problems = append(problems, p)
				}
			}
		}
	}
	return problems
}

// Validate checks the includes of every template in the index.
//
// Concurrency: one worker per CPU core reading documents from a shared
// channel. Problems are sorted by template, then line.
func (x *Index) Validate(ctx context.Context) ([]Problem, error) {
	docs := make(chan Document)
	results := make(chan []Problem)

	var wg sync.WaitGroup
	for range max(runtime.NumCPU(), 1) {
		wg.Go(func() {
			for d := range docs {
				content, err := os.ReadFile(d.Path)
				if err != nil {
					results <- []Problem{{Template: d.ID, Message: err.Error(), Severity: SeverityError}}
					continue
				}
				results <- x.ValidateIncludes(d.ID, string(content))
			}
		})
	}

	go func() {
		defer close(docs)
		for _, d := range x.Documents {
			select {
			case docs <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var problems []Problem
	for ps := range results {
		problems = append(problems, ps...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(problems, func(a, b Problem) int {
		if c := strings.Compare(a.Template, b.Template); c != 0 {
			return c
		}
		return a.Line - b.Line
	})
	return problems, nil
}

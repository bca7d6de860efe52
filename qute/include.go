// Package qute reads the parts of Qute templates the language server needs:
// include sections, fragment declarations, the templates folder layout and
// the section keyword snippets offered during completion.
package qute

import "strings"

// Include is the target of an {#include} section. Fragment is empty for a
// whole-template include.
type Include struct {
	Template string `json:"template" yaml:"template"`
	Fragment string `json:"fragment,omitempty" yaml:"fragment,omitempty"`
}

// IsFragment reports whether the include targets a fragment ({#include file$id /}).
func (i Include) IsFragment() bool {
	return i.Fragment != ""
}

// IsLocal reports whether the include targets a fragment of the including
// template ({#include $id /}).
func (i Include) IsLocal() bool {
	return i.Template == "" && i.Fragment != ""
}

// ID returns the include target the way it is written in a template.
func (i Include) ID() string {
	if i.IsFragment() {
		return i.Template + FragmentSeparator + i.Fragment
	}
	return i.Template
}

// FragmentSeparator joins a template id and a fragment id.
const FragmentSeparator = "$"

const includeTag = "{#include "

// ParseInclude returns the template named by the first include section on
// line.
//
//	{#include foo limit=10 /}              -> foo
//	{#include snippets/tailwind /}         -> snippets/tailwind
//	{#include select$user target=target /} -> select, fragment user
//	{#include $user /}                     -> fragment user of the same template
//	{#include detail}                      -> detail
func ParseInclude(line string) (Include, bool) {
	_, rest, ok := strings.Cut(line, includeTag)
	if !ok {
		return Include{}, false
	}
	return parseTarget(rest)
}

// parseTarget reads the include target at the start of rest.
func parseTarget(rest string) (Include, bool) {
	rest = strings.TrimLeft(rest, " \t")

	end := strings.IndexAny(rest, " \t}")
	if end < 0 {
		end = len(rest)
	}
	name := strings.TrimSuffix(rest[:end], "/")
	if name == "" || name == FragmentSeparator {
		return Include{}, false
	}

	template, fragment, ok := strings.Cut(name, FragmentSeparator)
	if !ok {
		return Include{Template: name}, true
	}
	// foo$ names the whole template.
	return Include{Template: template, Fragment: fragment}, true
}

// IncludeRef is an include section found in a template.
type IncludeRef struct {
	Include
	// Line and Col are the 0-based position of the {#include tag.
	Line int `json:"line" yaml:"line"`
	Col  int `json:"col" yaml:"col"`
}

// FindIncludes returns every include section of content in document order.
func FindIncludes(content string) []IncludeRef {
	var refs []IncludeRef
	for n, line := range strings.Split(content, "\n") {
		for off := 0; ; {
			i := strings.Index(line[off:], includeTag)
			if i < 0 {
				break
			}
			start := off + i
			off = start + len(includeTag)
			if inc, ok := parseTarget(line[off:]); ok {
				refs = append(refs, IncludeRef{Include: inc, Line: n, Col: start})
			}
		}
	}
	return refs
}

// IncludePrefix reports whether the cursor at char sits in the template
// name of an unfinished include section, and returns the part of the name
// written so far.
func IncludePrefix(line string, char int) (string, bool) {
	before := line[:clamp(char, len(line))]
	open := strings.LastIndex(before, includeTag)
	if open < 0 {
		return "", false
	}
	written := before[open+len(includeTag):]
	if strings.ContainsAny(written, " \t}") {
		return "", false
	}
	return written, true
}

func clamp(n, hi int) int {
	return max(0, min(n, hi))
}

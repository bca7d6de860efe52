package qute

import "strings"

// Keyword is a Qute construct offered as a completion snippet.
type Keyword string

const (
	KeywordComment        Keyword = "comment"
	KeywordVariable       Keyword = "variable"
	KeywordDoubleVariable Keyword = "variable2"
	KeywordFor            Keyword = "for"
	KeywordEach           Keyword = "each"
	KeywordLet            Keyword = "let"
	KeywordIf             Keyword = "if"
	KeywordWhen           Keyword = "when"
	KeywordSwitch         Keyword = "switch"
	KeywordWith           Keyword = "with"
	KeywordInclude        Keyword = "include"
	KeywordFragment       Keyword = "fragment"
	KeywordCached         Keyword = "cached"
)

// AllKeywords lists every keyword in completion order.
var AllKeywords = []Keyword{
	KeywordComment, KeywordVariable, KeywordDoubleVariable,
	KeywordFor, KeywordEach, KeywordLet, KeywordIf, KeywordWhen,
	KeywordSwitch, KeywordWith, KeywordInclude, KeywordFragment, KeywordCached,
}

var snippets = map[Keyword]string{
	KeywordComment:        "{! !}",
	KeywordVariable:       "{ }",
	KeywordDoubleVariable: "{{ }}",
	KeywordFor:            "{#for item in items} {/for}",
	KeywordEach:           "{#each items} {/each}",
	KeywordLet:            "{#let key=value} {/let}",
	KeywordIf:             "{#if condition} {/if}",
	KeywordWhen: `{#when items.size}
  {#is 1}
    There is exactly one item!
  {#is > 10}
    There are more than 10 items!
  {#else}
    There are 2 -10 items!
{/when}`,
	KeywordSwitch: `{#switch person.name}
  {#case 'John'}
    Hey John!
  {#case 'Mary'}
    Hey Mary!
{/switch}`,
	KeywordWith:     "{#with item.parent} {name} {/with}",
	KeywordInclude:  "{#include base /}",
	KeywordFragment: "{#fragment id=item} {/fragment}",
	KeywordCached:   "{#cached} {/cached}",
}

// Snippet returns the text inserted for k.
func (k Keyword) Snippet() string {
	return snippets[k]
}

// IsSection reports whether k opens a {#section}.
func (k Keyword) IsSection() bool {
	return strings.HasPrefix(k.Snippet(), "{#")
}

// Complete returns the snippet with the already written text removed.
func (k Keyword) Complete(written string) string {
	return strings.TrimPrefix(k.Snippet(), written)
}

// Keywords returns the section keywords whose name starts with prefix.
func Keywords(prefix string) []Keyword {
	var out []Keyword
	for _, k := range AllKeywords {
		if k.IsSection() && strings.HasPrefix(string(k), prefix) {
			out = append(out, k)
		}
	}
	return out
}

// SectionPrefix reports whether the cursor at char follows an unfinished
// section start such as "{#fo", and returns the written name ("fo").
func SectionPrefix(line string, char int) (string, bool) {
	before := line[:clamp(char, len(line))]
	open := strings.LastIndex(before, "{#")
	if open < 0 {
		return "", false
	}
	written := before[open+2:]
	for _, r := range written {
		if r < 'a' || r > 'z' {
			return "", false
		}
	}
	return written, true
}

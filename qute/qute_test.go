package qute

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestParseInclude(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Include
		ok   bool
	}{
		{"basic", "{#include foo limit=10 /}", Include{Template: "foo"}, true},
		{"basic folder", "{#include snippets/tailwind /}", Include{Template: "snippets/tailwind"}, true},
		{"fragment", "{#include select$user target=target /}", Include{Template: "select", Fragment: "user"}, true},
		{"detail", "{#include detail}", Include{Template: "detail"}, true},
		{"indented", "\t\t{#include base /}", Include{Template: "base"}, true},
		{"local fragment", "{#include $user /}", Include{Fragment: "user"}, true},
		{"after markup", "<li>{#include row /}</li>", Include{Template: "row"}, true},
		{"not an include", "<div>{name}</div>", Include{}, false},
		{"empty name", "{#include }", Include{}, false},
		{"bare separator", "{#include $ /}", Include{}, false},
		{"empty fragment", "{#include foo$ /}", Include{Template: "foo"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseInclude(tt.line)
			if ok != tt.ok {
				t.Fatalf("ParseInclude(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseInclude(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestIncludeID(t *testing.T) {
	if got := (Include{Template: "select", Fragment: "user"}).ID(); got != "select$user" {
		t.Errorf("ID() = %q, want select$user", got)
	}
	if got := (Include{Template: "detail"}).ID(); got != "detail" {
		t.Errorf("ID() = %q, want detail", got)
	}
}

func TestIncludePrefix(t *testing.T) {
	line := "{#include snip"
	got, ok := IncludePrefix(line, len(line))
	if !ok || got != "snip" {
		t.Errorf("IncludePrefix = %q, %v; want snip, true", got, ok)
	}
	if _, ok := IncludePrefix("{#include foo /}", 16); ok {
		t.Error("expected no include prefix after the closed tag")
	}
	if _, ok := IncludePrefix("<div>", 3); ok {
		t.Error("expected no include prefix outside an include")
	}
}

func TestScanFragmentsBasic(t *testing.T) {
	content := "<h1>Items</h1>\n<ol>\n    {#for item in items}\n    {#fragment id=item}   \n    <li>{item.name}</li>  \n    {/fragment}\n    {/for}\n</ol>\n"

	got := ScanFragments(content)
	want := []Fragment{{ID: "item", Line: 3, Col: 4}}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Fragment{}, "Content")); diff != "" {
		t.Errorf("fragments mismatch (-want +got):\n%s", diff)
	}
	require.Contains(t, got[0].Content, "<li>{item.name}</li>")
}

func TestScanFragmentsNested(t *testing.T) {
	content := `{#fragment id=outer}
<div>{#fragment inner}<b>x</b>{/fragment}</div>
{/fragment}
{#fragment id="open"}never closed`

	got := ScanFragments(content)
	require.Len(t, got, 3)

	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	if diff := cmp.Diff([]string{"outer", "inner", "open"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if got[1].Content != "<b>x</b>" {
		t.Errorf("inner content = %q", got[1].Content)
	}
	require.Contains(t, got[0].Content, "{#fragment inner}")
	if got[2].Content != "never closed" {
		t.Errorf("open content = %q", got[2].Content)
	}
	if got[1].Line != 1 || got[1].Col != 5 {
		t.Errorf("inner position = %d:%d, want 1:5", got[1].Line, got[1].Col)
	}
}

func TestScanFragmentsIgnoresLookalikes(t *testing.T) {
	if got := ScanFragments("{#fragments id=x}{/fragment}"); len(got) != 0 {
		t.Errorf("expected no fragments, got %+v", got)
	}
}

func TestFragmentPrefix(t *testing.T) {
	tests := []struct {
		path, root, want string
	}{
		{"/app/src/main/resources/templates/hello.html", "", "hello"},
		{"/app/src/main/resources/templates/items/select.html", "", "items/select"},
		{"/app/templates/a/b/c.txt", "/app/templates", "a/b/c"},
		{"/app/views/a/page.html", "/app/views", "a/page"},
		{"/x/a/b/c/d/e/f/g.html", "", "b/c/d/e/f/g"},
	}
	for _, tt := range tests {
		if got := FragmentPrefix(filepath.FromSlash(tt.path), filepath.FromSlash(tt.root)); got != tt.want {
			t.Errorf("FragmentPrefix(%q, %q) = %q, want %q", tt.path, tt.root, got, tt.want)
		}
	}
}

func TestTemplatesFolder(t *testing.T) {
	dir, ok := TemplatesFolder(filepath.FromSlash("/app/src/main/resources/templates/items/select.html"))
	require.True(t, ok)
	require.Equal(t, filepath.FromSlash("/app/src/main/resources/templates"), dir)

	_, ok = TemplatesFolder(filepath.FromSlash("/app/src/Main.java"))
	require.False(t, ok)
}

func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "templates")
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestScanTemplates(t *testing.T) {
	root := writeTemplates(t, map[string]string{
		"hello.html":        "<p>Hello {name}</p>",
		"items/select.html": "{#fragment id=user}<li>{user}</li>{/fragment}\n{#fragment id=user}dup{/fragment}",
		"base.txt":          "{#insert /}",
		".hidden/skip.html": "{#fragment id=nope}{/fragment}",
	})

	index, err := ScanTemplates(context.Background(), root)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"base", "hello", "items/select", "items/select$user"}, index.IDs()); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, index.Errors, 1)
	require.Contains(t, index.Errors[0], `duplicate fragment "user" in items/select`)

	doc, frag, ok := index.Resolve(Include{Template: "items/select", Fragment: "user"})
	require.True(t, ok)
	require.Equal(t, filepath.Join(root, "items", "select.html"), doc.Path)
	require.Equal(t, 0, frag.Line)

	_, _, ok = index.Resolve(Include{Template: "items/select", Fragment: "missing"})
	require.False(t, ok)

	doc, _, ok = index.Resolve(Include{Template: "hello"})
	require.True(t, ok)
	require.Equal(t, filepath.Join(root, "hello.html"), doc.Path)
}

func TestScanTemplatesMissingRoot(t *testing.T) {
	_, err := ScanTemplates(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestScanTemplatesCancelled(t *testing.T) {
	root := writeTemplates(t, map[string]string{"a.html": "", "b.html": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ScanTemplates(ctx, root)
	require.ErrorIs(t, err, context.Canceled)
}

func TestKeywords(t *testing.T) {
	got := Keywords("f")
	if diff := cmp.Diff([]Keyword{KeywordFor, KeywordFragment}, got); diff != "" {
		t.Errorf("Keywords(f) mismatch (-want +got):\n%s", diff)
	}

	all := Keywords("")
	for _, k := range all {
		require.True(t, k.IsSection(), "%s is not a section", k)
	}
	require.NotContains(t, all, KeywordComment)

	require.Equal(t, "or item in items} {/for}", KeywordFor.Complete("{#f"))
	require.Equal(t, "{#each items} {/each}", KeywordEach.Snippet())
}

func TestSectionPrefix(t *testing.T) {
	line := "<div>{#fo"
	got, ok := SectionPrefix(line, len(line))
	require.True(t, ok)
	require.Equal(t, "fo", got)

	_, ok = SectionPrefix("{#for item in items}", 20)
	require.False(t, ok)
}

func TestFindIncludes(t *testing.T) {
	content := "<ul>\n  {#include row /}{#include row$cell /}\n</ul>\n{#include $local}"
	want := []IncludeRef{
		{Include: Include{Template: "row"}, Line: 1, Col: 2},
		{Include: Include{Template: "row", Fragment: "cell"}, Line: 1, Col: 18},
		{Include: Include{Fragment: "local"}, Line: 3, Col: 0},
	}
	if diff := cmp.Diff(want, FindIncludes(content)); diff != "" {
		t.Errorf("FindIncludes mismatch (-want +got):\n%s", diff)
	}
	require.True(t, want[2].IsLocal())
	require.False(t, want[1].IsLocal())
}

func TestValidateIncludes(t *testing.T) {
	root := writeTemplates(t, map[string]string{
		"row.html":  "{#fragment id=cell}<td></td>{/fragment}",
		"page.html": "{#include row /}\n{#include row$cell /}\n{#include row$gone /}\n{#include nope /}\n{#include $mine /}\n{#include $here /}\n{#fragment here}{/fragment}",
	})
	index, err := ScanTemplates(context.Background(), root)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(root, "page.html"))
	require.NoError(t, err)

	got := index.ValidateIncludes("page", string(content))
	want := []Problem{
		{Template: "page", Line: 2, Column: 0, EndColumn: 18, Target: "row$gone", Message: `fragment "gone" not found in row`, Severity: SeverityError},
		{Template: "page", Line: 3, Column: 0, EndColumn: 14, Target: "nope", Message: `template "nope" not found`, Severity: SeverityError},
		{Template: "page", Line: 4, Column: 0, EndColumn: 15, Target: "$mine", Message: `fragment "mine" not found in this template`, Severity: SeverityError},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ValidateIncludes mismatch (-want +got):\n%s", diff)
	}

	var none *Index
	require.Len(t, none.ValidateIncludes("page", string(content)), 1, "only local includes are checked without an index")

	all, err := index.Validate(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("Validate mismatch (-want +got):\n%s", diff)
	}
}

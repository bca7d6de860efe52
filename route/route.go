// Package route models HTTP routes discovered in resource sources and the
// table the language server completes and resolves against.
package route

import (
	"fmt"
	"strings"

	"go.lsp.dev/uri"
)

// ParameterType classifies a route parameter. Known scalar kinds are
// recognised; anything else keeps its declared type name.
type ParameterType struct {
	Kind ParamKind `json:"kind" yaml:"kind"`
	// Name is the declared type when Kind is Unknown (e.g. "UUID", "Color").
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// ParamKind enumerates the supported parameter kinds.
type ParamKind string

const (
	String  ParamKind = "string"
	Int     ParamKind = "int"
	Long    ParamKind = "long"
	Boolean ParamKind = "boolean"
	Unknown ParamKind = "unknown"
)

// TypeOf maps a declared Java or Go type name to a ParameterType.
func TypeOf(declared string) ParameterType {
	switch strings.TrimSpace(declared) {
	case "String", "java.lang.String", "string":
		return ParameterType{Kind: String}
	case "int", "Integer", "java.lang.Integer", "short", "Short",
		"int8", "int16", "int32", "uint", "uint8", "uint16", "uint32":
		return ParameterType{Kind: Int}
	case "long", "Long", "java.lang.Long", "int64", "uint64":
		return ParameterType{Kind: Long}
	case "boolean", "Boolean", "java.lang.Boolean", "bool":
		return ParameterType{Kind: Boolean}
	}
	return ParameterType{Kind: Unknown, Name: declared}
}

// String renders the type the way it is shown in completion details.
func (p ParameterType) String() string {
	if p.Kind == Unknown {
		return p.Name
	}
	return string(p.Kind)
}

// Param is a single route parameter.
type Param struct {
	Name string        `json:"name" yaml:"name"`
	Type ParameterType `json:"type" yaml:"type"`
	// Source is where the value is bound from: "path", "query", "form",
	// "header" or "" when the parameter carries no binding annotation.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Position is a zero-based line/character offset, as used by LSP.
type Position struct {
	Line      int `json:"line" yaml:"line"`
	Character int `json:"character" yaml:"character"`
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// Location points into a source document.
type Location struct {
	URI   uri.URI `json:"uri" yaml:"uri"`
	Range Range   `json:"range" yaml:"range"`
}

// Route is one endpoint: an HTTP method bound to a path and a handler.
type Route struct {
	Method   string  `json:"method" yaml:"method"`
	Path     string  `json:"path" yaml:"path"`
	Produces string  `json:"produces,omitempty" yaml:"produces,omitempty"`
	Handler  string  `json:"handler,omitempty" yaml:"handler,omitempty"`
	Params   []Param `json:"params,omitempty" yaml:"params,omitempty"`
	// Templates lists templates the handler renders, when known.
	Templates []string `json:"templates,omitempty" yaml:"templates,omitempty"`
	// Implementation is the location of the handler declaration.
	Implementation *Location `json:"implementation,omitempty" yaml:"implementation,omitempty"`
}

// Detail renders the completion detail for a route:
//
//	GET:
//	name: string
func (r Route) Detail() string {
	var b strings.Builder
	method := r.Method
	if method == "" {
		method = "GET"
	}
	fmt.Fprintf(&b, "%s: \n", method)
	for _, p := range r.Params {
		fmt.Fprintf(&b, "%s: %s\n", p.Name, p.Type)
	}
	return b.String()
}

// Source returns the URI of the file that declared the route, or "".
func (r Route) Source() uri.URI {
	if r.Implementation == nil {
		return ""
	}
	return r.Implementation.URI
}

// JoinPath joins a class or group prefix with a member path, normalising
// slashes. An empty member path yields the prefix itself.
func JoinPath(prefix, path string) string {
	prefix = strings.TrimSpace(prefix)
	path = strings.TrimSpace(path)

	switch {
	case prefix == "" && path == "":
		return "/"
	case prefix == "":
		return ensureLeadingSlash(path)
	case path == "" || path == "/":
		return ensureLeadingSlash(strings.TrimSuffix(prefix, "/"))
	}

	return ensureLeadingSlash(strings.TrimSuffix(prefix, "/")) + ensureLeadingSlash(path)
}

func ensureLeadingSlash(s string) string {
	if s == "" {
		return "/"
	}
	if s[0] != '/' {
		return "/" + s
	}
	return s
}

// NormalizeVars rewrites gin/httprouter style segments (":name", "*name")
// into the brace form used by JAX-RS and Qute ("{name}").
func NormalizeVars(path string) string {
	if !strings.ContainsAny(path, ":*") {
		return path
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if len(seg) > 1 && (seg[0] == ':' || seg[0] == '*') {
			segments[i] = "{" + seg[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}

// WithoutVars removes every "{...}" variable from a URL so that a template
// URL such as "/{id}/select/{participant.uuid}" can be matched against a
// declared route "/{first}/select/{second}". Both sides reduce to
// "//select/".
func WithoutVars(url string) string {
	url = NormalizeVars(url)

	var b strings.Builder
	b.Grow(len(url))

	open := false
	for _, c := range url {
		switch c {
		case '{':
			open = true
		case '}':
			open = false
		default:
			if !open {
				b.WriteRune(c)
			}
		}
	}
	return b.String()
}

// Package java extracts JAX-RS endpoints from Java resource classes.
//
// The scanner works on a comment-free token stream rather than a full Java
// grammar. It only needs to understand annotations, class headers and
// member declarations, which makes it tolerant of sources that would not
// compile (undefined supertypes, duplicate parameter names, empty bodies
// of non-void methods).
package java

import (
	"fmt"
	"strings"

	"go.lsp.dev/uri"

	"github.com/abiiranathan/qute-lsp/route"
)

// httpMethods are the JAX-RS request method designators.
var httpMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"PATCH":   true,
	"HEAD":    true,
	"OPTIONS": true,
}

// classKeywords open a type declaration.
var classKeywords = map[string]bool{
	"class":     true,
	"interface": true,
	"enum":      true,
	"record":    true,
}

// paramSources maps binding annotations to route.Param sources.
var paramSources = map[string]string{
	"PathParam":   "path",
	"RestPath":    "path",
	"QueryParam":  "query",
	"RestQuery":   "query",
	"FormParam":   "form",
	"RestForm":    "form",
	"HeaderParam": "header",
	"RestHeader":  "header",
	"CookieParam": "cookie",
	"RestCookie":  "cookie",
}

// mediaTypes maps jakarta.ws.rs.core.MediaType constants to their values.
var mediaTypes = map[string]string{
	"TEXT_HTML":                   "text/html",
	"TEXT_PLAIN":                  "text/plain",
	"TEXT_XML":                    "text/xml",
	"APPLICATION_JSON":            "application/json",
	"APPLICATION_XML":             "application/xml",
	"APPLICATION_OCTET_STREAM":    "application/octet-stream",
	"APPLICATION_FORM_URLENCODED": "application/x-www-form-urlencoded",
	"MULTIPART_FORM_DATA":         "multipart/form-data",
	"SERVER_SENT_EVENTS":          "text/event-stream",
	"WILDCARD":                    "*/*",
}

// annotation is a parsed "@Name(args)" occurrence.
type annotation struct {
	name string  // simple name, qualifier stripped
	args []token // tokens between the parentheses, nil when absent
	at   token   // the '@' token
}

// classScope tracks the type declaration whose body is being scanned.
type classScope struct {
	name      string
	prefix    string // class-level @Path
	produces  string // class-level @Produces
	bodyDepth int    // brace depth inside the class body
}

// FileRoutes is the scan result for one source file.
type FileRoutes struct {
	// URI identifies the scanned file.
	URI uri.URI `json:"uri"`
	// Routes lists the endpoints in declaration order.
	Routes []route.Route `json:"routes"`
	// Errors holds non-fatal findings (duplicate parameters, unbound path
	// variables, duplicated endpoints).
	Errors []string `json:"errors,omitempty"`
}

// ScanSource extracts the endpoints declared in a single Java source.
func ScanSource(file uri.URI, src string) FileRoutes {
	s := &scanner{uri: file, toks: tokenize(src)}
	s.run()
	s.checkDuplicates()
	return FileRoutes{URI: file, Routes: s.routes, Errors: s.errors}
}

type scanner struct {
	uri     uri.URI
	toks    []token
	pos     int
	depth   int
	classes []classScope
	pending []annotation

	// pendingClass is set between a class keyword and its opening brace.
	pendingClass *classScope

	routes []route.Route
	errors []string
}

func (s *scanner) peek(off int) (token, bool) {
	if s.pos+off < 0 || s.pos+off >= len(s.toks) {
		return token{}, false
	}
	return s.toks[s.pos+off], true
}

func (s *scanner) errorf(t token, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.errors = append(s.errors, fmt.Sprintf("%s:%d:%d: %s", s.uri, t.line+1, t.col+1, msg))
}

// atMemberDepth reports whether the cursor sits directly in a class body.
func (s *scanner) atMemberDepth() bool {
	return s.pendingClass == nil && len(s.classes) > 0 &&
		s.depth == s.classes[len(s.classes)-1].bodyDepth
}

func (s *scanner) run() {
	for s.pos < len(s.toks) {
		t := s.toks[s.pos]

		switch {
		case t.is("@"):
			if next, ok := s.peek(1); ok && next.is("interface") {
				// annotation type declaration: treat like a class
				s.pos++
				continue
			}
			s.pending = append(s.pending, s.readAnnotation())
			continue

		case t.kind == tokIdent && classKeywords[t.text]:
			if name, ok := s.peek(1); ok && name.kind == tokIdent {
				scope := s.newClassScope(name.text)
				s.pendingClass = &scope
				s.pos += 2
				continue
			}

		case t.is("{"):
			s.depth++
			if s.pendingClass != nil {
				s.pendingClass.bodyDepth = s.depth
				s.classes = append(s.classes, *s.pendingClass)
				s.pendingClass = nil
			}
			s.pending = s.pending[:0]

		case t.is("}"):
			if len(s.classes) > 0 && s.depth == s.classes[len(s.classes)-1].bodyDepth {
				s.classes = s.classes[:len(s.classes)-1]
			}
			s.depth--
			s.pending = s.pending[:0]

		case t.is(";"):
			if s.atMemberDepth() {
				s.pending = s.pending[:0]
			}

		case t.kind == tokIdent && s.atMemberDepth() && s.isMethodStart():
			s.readMethod()
			continue
		}

		s.pos++
	}
}

// newClassScope consumes the pending annotations as class annotations.
func (s *scanner) newClassScope(name string) classScope {
	scope := classScope{name: name}
	for _, a := range s.pending {
		switch a.name {
		case "Path":
			scope.prefix = cleanPath(firstString(a.args))
		case "Produces":
			scope.produces = mediaType(a.args)
		}
	}
	s.pending = s.pending[:0]
	return scope
}

// readAnnotation reads "@a.b.Name" with optional balanced "(...)".
func (s *scanner) readAnnotation() annotation {
	a := annotation{at: s.toks[s.pos]}
	s.pos++ // '@'

	for s.pos < len(s.toks) {
		t := s.toks[s.pos]
		if t.kind != tokIdent {
			break
		}
		a.name = t.text
		s.pos++
		if next, ok := s.peek(0); ok && next.is(".") {
			if after, ok := s.peek(1); ok && after.kind == tokIdent {
				s.pos++
				continue
			}
		}
		break
	}

	if next, ok := s.peek(0); ok && next.is("(") {
		a.args = s.readBalanced("(", ")")
	}
	return a
}

// readBalanced consumes tokens from an opening delimiter up to its match
// and returns the inner tokens.
func (s *scanner) readBalanced(open, close string) []token {
	start := s.pos + 1
	depth := 0
	for s.pos < len(s.toks) {
		t := s.toks[s.pos]
		switch {
		case t.is(open):
			depth++
		case t.is(close):
			depth--
			if depth == 0 {
				inner := s.toks[start:s.pos]
				s.pos++
				return inner
			}
		}
		s.pos++
	}
	if start > len(s.toks) {
		return nil
	}
	return s.toks[start:]
}

// isMethodStart reports whether the identifier under the cursor names a
// method or constructor declaration: it is followed by '(' and preceded by
// a type (identifier, generic close or array brackets) or nothing at all.
func (s *scanner) isMethodStart() bool {
	next, ok := s.peek(1)
	if !ok || !next.is("(") {
		return false
	}
	prev, ok := s.peek(-1)
	if !ok {
		return true
	}
	switch {
	case prev.kind == tokIdent:
		switch prev.text {
		case "new", "return", "throw", "else", "case":
			return false
		}
		return true
	case prev.is(">"), prev.is("]"), prev.is("{"), prev.is("}"), prev.is(";"), prev.is(")"):
		return true
	}
	return false
}

// readMethod parses a member declaration starting at its name and emits a
// route when it carries a request method designator.
func (s *scanner) readMethod() {
	nameTok := s.toks[s.pos]
	s.pos++ // name
	paramToks := s.readBalanced("(", ")")

	// A declaration continues with a body, ';', 'throws' or 'default'.
	next, ok := s.peek(0)
	if !ok || !(next.is("{") || next.is(";") || next.is("throws") || next.is("default")) {
		s.pending = s.pending[:0]
		return
	}
	for s.pos < len(s.toks) && !s.toks[s.pos].is("{") && !s.toks[s.pos].is(";") {
		s.pos++
	}
	if s.pos < len(s.toks) && s.toks[s.pos].is("{") {
		s.readBalanced("{", "}") // method body is skipped
	} else {
		s.pos++ // ';'
	}

	annotations := s.pending
	s.pending = nil

	var method, path, produces string
	hasPath := false
	for _, a := range annotations {
		switch {
		case httpMethods[a.name]:
			if method != "" && method != a.name {
				s.errorf(a.at, "method %s declares both @%s and @%s", nameTok.text, method, a.name)
			}
			method = a.name
		case a.name == "Path":
			path = cleanPath(firstString(a.args))
			hasPath = true
		case a.name == "Produces":
			produces = mediaType(a.args)
		}
	}
	if method == "" {
		if hasPath {
			s.errorf(nameTok, "sub-resource locator %s is not followed", nameTok.text)
		}
		return
	}

	class := s.classes[len(s.classes)-1]
	if produces == "" {
		produces = class.produces
	}

	params := s.parseParams(nameTok, paramToks)
	full := route.JoinPath(class.prefix, path)
	s.checkPathBindings(nameTok, full, params)

	s.routes = append(s.routes, route.Route{
		Method:   method,
		Path:     full,
		Produces: produces,
		Handler:  class.name + "." + nameTok.text,
		Params:   params,
		Implementation: &route.Location{
			URI: s.uri,
			Range: route.Range{
				Start: route.Position{Line: nameTok.line, Character: nameTok.col},
				End:   route.Position{Line: nameTok.line, Character: nameTok.col + utf16Len(nameTok.text)},
			},
		},
	})
}

// parseParams splits the parameter list at top-level commas and reads each
// parameter's binding annotation, type and name.
func (s *scanner) parseParams(method token, toks []token) []route.Param {
	var params []route.Param
	seen := make(map[string]bool)

	for _, group := range splitTopLevel(toks) {
		p, ident, ok := parseParam(group)
		if !ok {
			continue
		}
		if seen[ident] {
			s.errorf(method, "duplicate parameter %q in %s", ident, method.text)
		}
		seen[ident] = true
		params = append(params, p)
	}
	return params
}

// parseParam reads "[@Binding("x")] [final] Type name". The returned
// identifier is the Java parameter name; the route parameter name prefers
// the binding annotation's value.
func parseParam(toks []token) (route.Param, string, bool) {
	var p route.Param
	var boundName string
	var rest []token

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if !t.is("@") {
			rest = append(rest, t)
			continue
		}
		// inline annotation
		i++
		var name string
		for i < len(toks) && toks[i].kind == tokIdent {
			name = toks[i].text
			if i+1 < len(toks) && toks[i+1].is(".") {
				i += 2
				continue
			}
			break
		}
		var args []token
		if i+1 < len(toks) && toks[i+1].is("(") {
			depth := 0
			j := i + 1
			for ; j < len(toks); j++ {
				if toks[j].is("(") {
					depth++
				} else if toks[j].is(")") {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			args = toks[i+2 : min(j, len(toks))]
			i = j
		}
		if src, ok := paramSources[name]; ok {
			p.Source = src
			boundName = firstString(args)
		}
	}

	// drop modifiers
	filtered := rest[:0]
	for _, t := range rest {
		if t.is("final") {
			continue
		}
		filtered = append(filtered, t)
	}
	if len(filtered) < 2 || filtered[len(filtered)-1].kind != tokIdent {
		return p, "", false
	}

	ident := filtered[len(filtered)-1].text
	p.Name = ident
	if boundName != "" {
		p.Name = boundName
	}

	var typ strings.Builder
	for _, t := range filtered[:len(filtered)-1] {
		typ.WriteString(t.text)
	}
	p.Type = route.TypeOf(typ.String())
	return p, ident, true
}

// checkPathBindings reports path variables without a matching path
// parameter.
func (s *scanner) checkPathBindings(method token, path string, params []route.Param) {
	bound := make(map[string]bool, len(params))
	for _, p := range params {
		if p.Source == "path" {
			bound[p.Name] = true
		}
	}
	for _, v := range pathVars(path) {
		if !bound[v] {
			s.errorf(method, "path variable {%s} of %s has no @PathParam binding", v, method.text)
		}
	}
}

// checkDuplicates reports endpoints declared more than once.
func (s *scanner) checkDuplicates() {
	seen := make(map[string]string, len(s.routes))
	for _, r := range s.routes {
		key := r.Method + " " + route.WithoutVars(r.Path)
		if first, ok := seen[key]; ok {
			s.errors = append(s.errors, fmt.Sprintf("%s: %s %s is declared by both %s and %s",
				s.uri, r.Method, r.Path, first, r.Handler))
			continue
		}
		seen[key] = r.Handler
	}
}

// splitTopLevel splits tokens at commas outside (), <> and {}.
func splitTopLevel(toks []token) [][]token {
	var groups [][]token
	depth := 0
	start := 0
	for i, t := range toks {
		switch {
		case t.is("("), t.is("<"), t.is("{"):
			depth++
		case t.is(")"), t.is(">"), t.is("}"):
			depth--
		case t.is(",") && depth == 0:
			groups = append(groups, toks[start:i])
			start = i + 1
		}
	}
	if start < len(toks) {
		groups = append(groups, toks[start:])
	}
	return groups
}

// firstString returns the first string literal value among toks.
func firstString(toks []token) string {
	for _, t := range toks {
		if t.kind == tokString {
			return t.stringValue()
		}
	}
	return ""
}

// mediaType resolves the first media type in an @Produces argument list:
// a string literal or a MediaType constant.
func mediaType(toks []token) string {
	for _, t := range toks {
		if t.kind == tokString {
			return t.stringValue()
		}
		if v, ok := mediaTypes[t.text]; ok && t.kind == tokIdent {
			return v
		}
	}
	return ""
}

// cleanPath strips regular expressions from template variables:
// "/{id: [0-9]+}" becomes "/{id}".
func cleanPath(p string) string {
	if !strings.Contains(p, ":") {
		return p
	}

	var b strings.Builder
	depth := 0
	skipping := false
	for _, c := range p {
		switch c {
		case '{':
			depth++
			if depth == 1 {
				b.WriteRune(c)
			}
			continue
		case '}':
			depth--
			if depth == 0 {
				skipping = false
				b.WriteRune(c)
			}
			continue
		case ':':
			if depth == 1 {
				skipping = true
				continue
			}
		}
		if depth == 0 || (!skipping && c != ' ') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// pathVars lists the variable names of a brace-style path.
func pathVars(p string) []string {
	var vars []string
	for {
		open := strings.IndexByte(p, '{')
		if open < 0 {
			return vars
		}
		end := strings.IndexByte(p[open:], '}')
		if end < 0 {
			return vars
		}
		vars = append(vars, strings.TrimSpace(p[open+1:open+end]))
		p = p[open+end+1:]
	}
}

package lsp

import (
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/abiiranathan/qute-lsp/htmlx"
	"github.com/abiiranathan/qute-lsp/qute"
	"github.com/abiiranathan/qute-lsp/route"
)

// Definition returns the location the symbol at pos refers to, or nil.
//
// A route URL in an attribute value resolves to its handler; path
// variables are ignored when matching, so hx-get="/items/{item.id}"
// finds the route /items/{id}. An include line resolves to the included
// template, at the fragment tag when it names a fragment; {#include $id /}
// resolves within the document itself.
func (s *Server) Definition(doc protocol.DocumentURI, pos protocol.Position) *protocol.Location {
	text, ok := s.docs.Get(doc)
	if !ok {
		return nil
	}
	line, ok := lineAt(text, int(pos.Line))
	if !ok {
		return nil
	}
	char := byteOffset(line, int(pos.Character))

	if attr, ok := htmlx.AttributeAt(line, char); ok && attr.CanCompleteRoute(s.cfg.Completion.Attributes) {
		r, ok := s.routes.LookupImplemented(attr.Value)
		if !ok {
			return nil
		}
		loc := toLocation(*r.Implementation)
		return &loc
	}

	inc, ok := qute.ParseInclude(line)
	if !ok {
		return nil
	}
	if inc.IsLocal() {
		for _, f := range qute.ScanFragments(text) {
			if f.ID == inc.Fragment {
				at := toPosition(text, htmlx.Point{Line: f.Line, Col: f.Col})
				return &protocol.Location{URI: doc, Range: protocol.Range{Start: at, End: at}}
			}
		}
		return nil
	}
	target, frag, ok := s.templates.Load().Resolve(inc)
	if !ok {
		return nil
	}
	at := protocol.Position{}
	if inc.IsFragment() {
		at = protocol.Position{Line: uint32(frag.Line), Character: uint32(frag.Col)}
	}
	return &protocol.Location{
		URI:   uri.File(target.Path),
		Range: protocol.Range{Start: at, End: at},
	}
}

// toLocation converts a route implementation site to a protocol location.
func toLocation(l route.Location) protocol.Location {
	return protocol.Location{
		URI: l.URI,
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(l.Range.Start.Line), Character: uint32(l.Range.Start.Character)},
			End:   protocol.Position{Line: uint32(l.Range.End.Line), Character: uint32(l.Range.End.Character)},
		},
	}
}

package lsp

import (
	"strings"

	"go.lsp.dev/protocol"

	"github.com/abiiranathan/qute-lsp/htmlx"
	"github.com/abiiranathan/qute-lsp/qute"
)

// previewLimit bounds fragment previews shown as completion documentation.
const previewLimit = 200

// Completion returns the completion items at pos in the document uri.
//
// Three contexts are recognised, first match wins:
//  1. A route attribute value (hx-get="/he|"): one item per route
//  2. An include section ({#include it|): template and fragment ids
//  3. A section start ({#fo|): section keyword snippets
//
// Anything else yields an empty list.
func (s *Server) Completion(doc protocol.DocumentURI, pos protocol.Position) []protocol.CompletionItem {
	items := []protocol.CompletionItem{}

	text, ok := s.docs.Get(doc)
	if !ok {
		return items
	}
	line, ok := lineAt(text, int(pos.Line))
	if !ok {
		return items
	}
	char := byteOffset(line, int(pos.Character))

	if attr, ok := htmlx.AttributeAt(line, char); ok && attr.CanCompleteRoute(s.cfg.Completion.Attributes) {
		return s.routeItems(attr.Written)
	}
	if written, ok := qute.IncludePrefix(line, char); ok {
		return s.includeItems(written)
	}
	if written, ok := qute.SectionPrefix(line, char); ok {
		for _, k := range qute.Keywords(written) {
			items = append(items, protocol.CompletionItem{
				Label:      string(k),
				Kind:       protocol.CompletionItemKindSnippet,
				Detail:     k.Snippet(),
				InsertText: k.Complete("{#" + written),
			})
		}
	}
	return items
}

// routeItems offers the routes whose path extends written. The insert
// text is the rest of the path.
func (s *Server) routeItems(written string) []protocol.CompletionItem {
	items := []protocol.CompletionItem{}
	for _, r := range s.routes.All() {
		if !strings.HasPrefix(r.Path, written) {
			continue
		}
		items = append(items, protocol.CompletionItem{
			Label:      r.Path,
			Kind:       protocol.CompletionItemKindReference,
			Detail:     r.Detail(),
			InsertText: strings.TrimPrefix(r.Path, written),
		})
	}
	return items
}

// includeItems offers template and fragment ids extending written.
// Fragment items carry a plain text preview of their content.
func (s *Server) includeItems(written string) []protocol.CompletionItem {
	items := []protocol.CompletionItem{}
	index := s.templates.Load()
	if index == nil {
		return items
	}

	for _, doc := range index.Documents {
		if strings.HasPrefix(doc.ID, written) {
			items = append(items, protocol.CompletionItem{
				Label:      doc.ID,
				Kind:       protocol.CompletionItemKindFile,
				Detail:     "template",
				InsertText: strings.TrimPrefix(doc.ID, written),
			})
		}
		for _, f := range doc.Fragments {
			id := doc.FragmentID(f)
			if !strings.HasPrefix(id, written) {
				continue
			}
			item := protocol.CompletionItem{
				Label:      id,
				Kind:       protocol.CompletionItemKindReference,
				Detail:     "fragment",
				InsertText: strings.TrimPrefix(id, written),
			}
			if preview := htmlx.TextPreview(f.Content, previewLimit); preview != "" {
				item.Documentation = &protocol.MarkupContent{Kind: protocol.PlainText, Value: preview}
			}
			items = append(items, item)
		}
	}
	return items
}

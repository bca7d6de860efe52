package lsp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/abiiranathan/qute-lsp/htmlx"
	"github.com/abiiranathan/qute-lsp/qute"
)

var (
	commandKinds = map[string]htmlx.ExtractionKind{
		CommandAddFragment:       htmlx.AddFragment,
		CommandExtractAsFile:     htmlx.ExtractAsFile,
		CommandExtractAsFragment: htmlx.ExtractAsFragment,
	}
	kindCommands = map[htmlx.ExtractionKind]string{
		htmlx.AddFragment:       CommandAddFragment,
		htmlx.ExtractAsFile:     CommandExtractAsFile,
		htmlx.ExtractAsFragment: CommandExtractAsFragment,
	}
	kindTitles = map[htmlx.ExtractionKind]string{
		htmlx.AddFragment:       "Wrap in fragment",
		htmlx.ExtractAsFile:     "Extract to template file",
		htmlx.ExtractAsFragment: "Extract to fragment",
	}
)

// CodeActions lists the extractions available for the element at pos.
func (s *Server) CodeActions(doc protocol.DocumentURI, pos protocol.Position) []protocol.CodeAction {
	actions := []protocol.CodeAction{}
	text, ok := s.docs.Get(doc)
	if !ok {
		return actions
	}
	for _, kind := range htmlx.CheckExtract(text, toPoint(text, pos)) {
		actions = append(actions, protocol.CodeAction{
			Title: kindTitles[kind],
			Kind:  protocol.RefactorExtract,
			Command: &protocol.Command{
				Title:     kindTitles[kind],
				Command:   kindCommands[kind],
				Arguments: []any{doc, pos.Line, pos.Character},
			},
		})
	}
	return actions
}

// commandArgs are the [uri, line, character] arguments of a command.
type commandArgs struct {
	URI      protocol.DocumentURI
	Position protocol.Position
}

// parseCommandArgs reads [uri, line, character]. Arguments of another kind
// are ignored and leave the zero value.
func parseCommandArgs(args []any) (commandArgs, error) {
	var out commandArgs
	for i, arg := range args {
		switch i {
		case 0:
			switch v := arg.(type) {
			case string:
				out.URI = protocol.DocumentURI(v)
			case protocol.DocumentURI:
				out.URI = v
			}
		case 1, 2:
			n, ok := argNumber(arg)
			if !ok {
				continue
			}
			if i == 1 {
				out.Position.Line = n
			} else {
				out.Position.Character = n
			}
		}
	}
	if out.URI == "" {
		return out, errors.New("missing document uri argument")
	}
	return out, nil
}

// argNumber accepts JSON numbers, decoded as float64, and the unsigned
// values CodeActions puts in its commands.
func argNumber(arg any) (uint32, bool) {
	switch v := arg.(type) {
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint32(v), true
	case uint32:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint32(v), true
	}
	return 0, false
}

// ExecuteCommand computes the workspace edit of an extraction command.
func (s *Server) ExecuteCommand(params protocol.ExecuteCommandParams) (WorkspaceEdit, error) {
	kind, ok := commandKinds[params.Command]
	if !ok {
		return WorkspaceEdit{}, fmt.Errorf("unknown command %q", params.Command)
	}
	args, err := parseCommandArgs(params.Arguments)
	if err != nil {
		return WorkspaceEdit{}, err
	}

	text, ok := s.docs.Get(args.URI)
	if !ok {
		data, err := os.ReadFile(filename(args.URI))
		if err != nil {
			return WorkspaceEdit{}, fmt.Errorf("read document: %w", err)
		}
		text = string(data)
	}

	el, ok := htmlx.ElementAt(text, toPoint(text, args.Position))
	if !ok {
		return WorkspaceEdit{}, fmt.Errorf("no element at %d:%d", args.Position.Line, args.Position.Character)
	}
	if kind != htmlx.AddFragment && el.ID == "" {
		return WorkspaceEdit{}, fmt.Errorf("%s needs an element with an id", kind)
	}

	switch kind {
	case htmlx.AddFragment:
		return s.addFragment(args.URI, text, el), nil
	case htmlx.ExtractAsFile:
		return s.extractAsFile(args.URI, text, el), nil
	default:
		return s.extractAsFragment(args.URI, text, el), nil
	}
}

// addFragment wraps el in place:
//
//	{#fragment id=ID}
//	<div id="ID">...</div>
//	{/fragment}
//
// Elements without an id get tag and line, e.g. div8.
func (s *Server) addFragment(doc protocol.DocumentURI, text string, el htmlx.Element) WorkspaceEdit {
	id := el.ID
	if id == "" {
		id = fmt.Sprintf("%s%d", el.Tag, el.StartPoint.Line)
	}
	indent := indentAt(text, el.StartPoint)
	start := toPosition(text, el.StartPoint)
	end := toPosition(text, el.EndPoint)

	return WorkspaceEdit{Changes: map[protocol.DocumentURI][]protocol.TextEdit{
		doc: {
			{Range: protocol.Range{Start: start, End: start}, NewText: "{#fragment id=" + id + "}\n" + indent},
			{Range: protocol.Range{Start: end, End: end}, NewText: "\n" + indent + "{/fragment}"},
		},
	}}
}

// extractAsFile moves el to ID.html next to the current template and
// includes the new template in its place.
func (s *Server) extractAsFile(doc protocol.DocumentURI, text string, el htmlx.Element) WorkspaceEdit {
	path := filename(doc)
	newPath := filepath.Join(filepath.Dir(path), el.ID+".html")
	newURI := uri.File(newPath)

	root := ""
	if index := s.templates.Load(); index != nil {
		root = index.Root
	}
	include := "{#include " + qute.FragmentPrefix(newPath, root) + " /}"

	origin := protocol.Position{}
	return WorkspaceEdit{DocumentChanges: []any{
		protocol.CreateFile{Kind: protocol.CreateResourceOperation, URI: newURI},
		protocol.TextDocumentEdit{
			TextDocument: protocol.OptionalVersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: newURI},
			},
			Edits: []protocol.TextEdit{{Range: protocol.Range{Start: origin, End: origin}, NewText: el.Text(text) + "\n"}},
		},
		protocol.TextDocumentEdit{
			TextDocument: protocol.OptionalVersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: doc},
			},
			Edits: []protocol.TextEdit{{Range: elementRange(text, el), NewText: include}},
		},
	}}
}

// extractAsFragment replaces el with {#include $ID /} and appends a
// non-rendered fragment holding el to the document.
func (s *Server) extractAsFragment(doc protocol.DocumentURI, text string, el htmlx.Element) WorkspaceEdit {
	eof := toPosition(text, htmlx.PointAt(text, len(text)))
	fragment := "{#fragment id=" + el.ID + " rendered=false}\n" + el.Text(text) + "\n{/fragment}\n"
	if !strings.HasSuffix(text, "\n") {
		fragment = "\n" + fragment
	}

	return WorkspaceEdit{Changes: map[protocol.DocumentURI][]protocol.TextEdit{
		doc: {
			{Range: elementRange(text, el), NewText: "{#include " + qute.FragmentSeparator + el.ID + " /}"},
			{Range: protocol.Range{Start: eof, End: eof}, NewText: fragment},
		},
	}}
}

// indentAt returns the text before p on its line when it is only
// whitespace.
func indentAt(text string, p htmlx.Point) string {
	line, _ := lineAt(text, p.Line)
	before := line[:min(p.Col, len(line))]
	if strings.TrimLeft(before, " \t") != "" {
		return ""
	}
	return before
}

func elementRange(text string, el htmlx.Element) protocol.Range {
	return protocol.Range{Start: toPosition(text, el.StartPoint), End: toPosition(text, el.EndPoint)}
}

// toPoint converts a client position to a byte point.
func toPoint(text string, pos protocol.Position) htmlx.Point {
	line, _ := lineAt(text, int(pos.Line))
	return htmlx.Point{Line: int(pos.Line), Col: byteOffset(line, int(pos.Character))}
}

// toPosition converts a byte point to a client position.
func toPosition(text string, p htmlx.Point) protocol.Position {
	line, _ := lineAt(text, p.Line)
	return protocol.Position{Line: uint32(p.Line), Character: uint32(utf16Column(line, p.Col))}
}

package lsp

import (
	"context"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/abiiranathan/qute-lsp/qute"
)

// Diagnostics reports the unresolved includes of an open template. Only
// documents inside the templates folder are checked.
func (s *Server) Diagnostics(doc protocol.DocumentURI) []protocol.Diagnostic {
	diags := []protocol.Diagnostic{}
	text, ok := s.docs.Get(doc)
	if !ok {
		return diags
	}
	index := s.templates.Load()
	path := filename(doc)
	if index == nil || !isBelow(path, index.Root) {
		return diags
	}

	for _, p := range index.ValidateIncludes(qute.FragmentPrefix(path, index.Root), text) {
		line, _ := lineAt(text, p.Line)
		severity := protocol.DiagnosticSeverityError
		if p.Severity == qute.SeverityWarning {
			severity = protocol.DiagnosticSeverityWarning
		}
		diags = append(diags, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(p.Line), Character: uint32(utf16Column(line, p.Column))},
				End:   protocol.Position{Line: uint32(p.Line), Character: uint32(utf16Column(line, p.EndColumn))},
			},
			Severity: severity,
			Source:   "qute-lsp",
			Message:  p.Message,
		})
	}
	return diags
}

func (s *Server) publishDiagnostics(ctx context.Context, conn *jsonrpc2.Conn, doc protocol.DocumentURI) {
	params := protocol.PublishDiagnosticsParams{URI: doc, Diagnostics: s.Diagnostics(doc)}
	if err := conn.Notify(ctx, "textDocument/publishDiagnostics", params); err != nil {
		s.logger.Debug("publishDiagnostics failed", zap.String("uri", string(doc)), zap.Error(err))
	}
}

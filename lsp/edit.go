package lsp

import "go.lsp.dev/protocol"

// WorkspaceEdit is a protocol.WorkspaceEdit whose document changes may
// also create files: DocumentChanges holds protocol.CreateFile and
// protocol.TextDocumentEdit values, applied in order.
type WorkspaceEdit struct {
	Changes         map[protocol.DocumentURI][]protocol.TextEdit `json:"changes,omitempty"`
	DocumentChanges []any                                        `json:"documentChanges,omitempty"`
}

// applyWorkspaceEditParams are the workspace/applyEdit params carrying a
// WorkspaceEdit.
type applyWorkspaceEditParams struct {
	Label string        `json:"label,omitempty"`
	Edit  WorkspaceEdit `json:"edit"`
}

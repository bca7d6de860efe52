// Package lsp implements the qute-lsp language server. It completes and
// navigates route URLs in htmx and form attributes, completes and navigates
// Qute includes, offers section snippets, and extracts elements into
// fragments or templates.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/abiiranathan/qute-lsp/analyzer"
	"github.com/abiiranathan/qute-lsp/analyzer/ast"
	"github.com/abiiranathan/qute-lsp/analyzer/java"
	"github.com/abiiranathan/qute-lsp/config"
	"github.com/abiiranathan/qute-lsp/qute"
	"github.com/abiiranathan/qute-lsp/route"
)

// Commands executed through workspace/executeCommand.
const (
	CommandAddFragment       = "qute.addFragment"
	CommandExtractAsFile     = "qute.extractAsFile"
	CommandExtractAsFragment = "qute.extractAsFragment"
)

// ErrExitWithoutShutdown is returned by Serve when the client sent exit
// without a prior shutdown request.
var ErrExitWithoutShutdown = errors.New("exit received before shutdown")

// Server is a language server for one workspace.
//
// Requests are handled one at a time in arrival order, so a completion
// always sees the text of every change sent before it.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	docs      *Store
	routes    *route.Table
	templates atomic.Pointer[qute.Index]

	mu   sync.RWMutex // guards root
	root string

	shutdown atomic.Bool
	exited   chan struct{}
	exitOnce sync.Once
}

// NewServer creates a server for the workspace in cfg. The workspace root
// may be replaced by the client's root in initialize.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		docs:   NewStore(),
		routes: route.NewTable(),
		root:   cfg.Workspace.Dir,
		exited: make(chan struct{}),
	}
}

// Routes exposes the route table.
func (s *Server) Routes() *route.Table { return s.routes }

// Templates returns the last templates scan, or nil.
func (s *Server) Templates() *qute.Index { return s.templates.Load() }

// Root returns the workspace root.
func (s *Server) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

func (s *Server) setRoot(root string) {
	s.mu.Lock()
	s.root = root
	s.mu.Unlock()
}

func (s *Server) workspace() config.Workspace {
	ws := s.cfg.Workspace
	ws.Dir = s.Root()
	return ws
}

// Serve speaks the protocol on rwc with Content-Length framing until the
// client disconnects, the client sends exit, or ctx is done.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	// Handlers and the goroutines they start stop with the connection.
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(connCtx, stream,
		jsonrpc2.HandlerWithError(s.handle).SuppressErrClosed(),
		jsonrpc2.SetLogger(zap.NewStdLog(s.logger.Named("jsonrpc2"))),
	)

	select {
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	case <-conn.DisconnectNotify():
		return nil
	case <-s.exited:
		conn.Close()
		if !s.shutdown.Load() {
			return ErrExitWithoutShutdown
		}
		return nil
	}
}

// handle dispatches one request or notification.
func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	log := s.logger.With(zap.String("method", req.Method))
	log.Debug("request")

	if s.shutdown.Load() && req.Method != "exit" {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server is shutting down"}
	}

	switch req.Method {
	case "initialize":
		var params protocol.InitializeParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.initialize(params), nil

	case "initialized":
		s.Rescan(ctx)
		s.logMessage(ctx, conn, protocol.MessageTypeInfo, fmt.Sprintf("qute-lsp started: %d routes", s.routes.Len()))
		log.Info("started", zap.String("root", s.Root()), zap.Int("routes", s.routes.Len()))
		if s.cfg.Workspace.Watch {
			go func() {
				if err := s.watchTemplates(ctx, conn, watchDebounce); err != nil {
					s.logger.Warn("template watcher stopped", zap.Error(err))
				}
			}()
		}
		return nil, nil

	case "shutdown":
		s.shutdown.Store(true)
		return nil, nil

	case "exit":
		s.exitOnce.Do(func() { close(s.exited) })
		return nil, nil

	case "textDocument/didOpen":
		var params protocol.DidOpenTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		s.docs.Set(params.TextDocument.URI, params.TextDocument.Text)
		s.publishDiagnostics(ctx, conn, params.TextDocument.URI)
		return nil, nil

	case "textDocument/didChange":
		var params protocol.DidChangeTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		// Full sync: the first change carries the whole text.
		if len(params.ContentChanges) > 0 {
			s.docs.Set(params.TextDocument.URI, params.ContentChanges[0].Text)
			s.publishDiagnostics(ctx, conn, params.TextDocument.URI)
		}
		return nil, nil

	case "textDocument/didClose":
		var params protocol.DidCloseTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		s.docs.Delete(params.TextDocument.URI)
		s.publishDiagnostics(ctx, conn, params.TextDocument.URI)
		return nil, nil

	case "textDocument/didSave":
		var params protocol.DidSaveTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		if params.Text != "" {
			s.docs.Set(params.TextDocument.URI, params.Text)
		}
		s.didSave(ctx, params.TextDocument.URI)
		s.publishDiagnostics(ctx, conn, params.TextDocument.URI)
		return nil, nil

	case "textDocument/completion":
		var params protocol.CompletionParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.Completion(params.TextDocument.URI, params.Position), nil

	case "textDocument/definition":
		var params protocol.DefinitionParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		if loc := s.Definition(params.TextDocument.URI, params.Position); loc != nil {
			return loc, nil
		}
		return nil, nil

	case "textDocument/codeAction":
		var params protocol.CodeActionParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		return s.CodeActions(params.TextDocument.URI, params.Range.Start), nil

	case "workspace/executeCommand":
		var params protocol.ExecuteCommandParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		edit, err := s.ExecuteCommand(params)
		if err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
		}
		// Replying before the client answers applyEdit keeps the read
		// loop free to receive that answer.
		go s.applyEdit(context.WithoutCancel(ctx), conn, params.Command, edit)
		return nil, nil
	}

	if req.Notif {
		// $/cancelRequest, $/setTrace and other notifications are optional.
		return nil, nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not supported: " + req.Method}
}

func (s *Server) initialize(params protocol.InitializeParams) *protocol.InitializeResult {
	switch {
	case params.RootURI != "":
		s.setRoot(filename(params.RootURI))
	case len(params.WorkspaceFolders) > 0:
		s.setRoot(filename(uri.URI(params.WorkspaceFolders[0].URI)))
	case params.RootPath != "":
		s.setRoot(params.RootPath)
	}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncKindFull,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{`"`, "/", "#", "$"},
			},
			DefinitionProvider: true,
			CodeActionProvider: true,
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: []string{CommandAddFragment, CommandExtractAsFile, CommandExtractAsFragment},
			},
		},
		ServerInfo: &protocol.ServerInfo{Name: "qute-lsp"},
	}
}

// Rescan rebuilds the route table and the templates index.
func (s *Server) Rescan(ctx context.Context) {
	s.scanRoutes(ctx)
	s.scanTemplates(ctx)
}

func (s *Server) scanRoutes(ctx context.Context) {
	ws := s.workspace()
	res, err := analyzer.ScanRoutes(ctx, ws)
	if err != nil {
		s.logger.Warn("route scan aborted", zap.String("dir", ws.Dir), zap.Error(err))
		return
	}
	for _, e := range res.Errors {
		s.logger.Debug("route scan problem", zap.String("problem", e))
	}
	s.routes.ReplaceAll(res.Routes)
	s.logger.Info("routes scanned", zap.String("dir", ws.Dir), zap.Int("routes", len(res.Routes)))
}

// scanJavaFile replaces the routes declared in one Java file. A file that
// can no longer be read loses its routes.
func (s *Server) scanJavaFile(path string) {
	source := uri.File(path)
	file, err := java.ScanFile(path)
	if err != nil {
		s.logger.Warn("java rescan failed", zap.String("file", path), zap.Error(err))
	}
	for _, e := range file.Errors {
		s.logger.Debug("route scan problem", zap.String("problem", e))
	}
	s.routes.Replace(source, file.Routes)
	s.logger.Info("routes rescanned", zap.String("file", path), zap.Int("routes", len(file.Routes)))
}

func (s *Server) scanTemplates(ctx context.Context) {
	dir := s.workspace().TemplatesDir()
	if dir == "" {
		s.logger.Debug("no templates folder", zap.String("dir", s.Root()))
		return
	}
	index, err := qute.ScanTemplates(ctx, dir)
	if err != nil {
		s.logger.Warn("template scan failed", zap.String("dir", dir), zap.Error(err))
		return
	}
	for _, e := range index.Errors {
		s.logger.Warn("template problem", zap.String("problem", e))
	}
	s.templates.Store(index)
	s.logger.Info("templates scanned", zap.String("dir", dir), zap.Int("templates", len(index.Documents)))
}

// didSave rescans what a saved file can affect. A Java resource only
// declares its own routes, so only that file is rescanned; Go routes can
// span packages and need the whole module.
func (s *Server) didSave(ctx context.Context, doc protocol.DocumentURI) {
	path := filename(doc)
	switch filepath.Ext(path) {
	case ".java":
		if s.cfg.Workspace.Java {
			s.scanJavaFile(path)
		}
		return
	case ".go":
		if s.cfg.Workspace.Go {
			ast.Invalidate(s.Root())
			s.scanRoutes(ctx)
		}
		return
	}
	if index := s.templates.Load(); index != nil && isBelow(path, index.Root) {
		s.scanTemplates(ctx)
	}
}

func isBelow(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *Server) logMessage(ctx context.Context, conn *jsonrpc2.Conn, typ protocol.MessageType, msg string) {
	if err := conn.Notify(ctx, "window/logMessage", protocol.LogMessageParams{Type: typ, Message: msg}); err != nil {
		s.logger.Debug("logMessage failed", zap.Error(err))
	}
}

// applyEdit asks the client to apply edit.
func (s *Server) applyEdit(ctx context.Context, conn *jsonrpc2.Conn, label string, edit WorkspaceEdit) {
	var res protocol.ApplyWorkspaceEditResponse
	if err := conn.Call(ctx, "workspace/applyEdit", applyWorkspaceEditParams{Label: label, Edit: edit}, &res); err != nil {
		s.logger.Warn("applyEdit failed", zap.String("command", label), zap.Error(err))
		return
	}
	if !res.Applied {
		s.logger.Warn("applyEdit rejected", zap.String("command", label), zap.String("reason", res.FailureReason))
	}
}

func unmarshalParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

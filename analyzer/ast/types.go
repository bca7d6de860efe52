package ast

import (
	goast "go/ast"
	"go/types"

	"github.com/abiiranathan/qute-lsp/route"
)

// RenderCall represents a template rendering invocation inside a handler.
type RenderCall struct {
	// File is the path to the Go file, relative to the analysis root.
	File string `json:"file"`
	// Line is the 1-based line of the call.
	Line int `json:"line"`
	// Template is the name or path of the template being rendered.
	Template string `json:"template"`
}

// AnalysisResult is the top-level output of a Go source scan.
type AnalysisResult struct {
	// Routes lists every route registration found, in file order.
	Routes []route.Route `json:"routes"`
	// RenderCalls lists every template render call found in handlers.
	RenderCalls []RenderCall `json:"renderCalls"`
	// Errors contains any non-fatal errors encountered during the analysis process.
	Errors []string `json:"errors"`
}

// AnalysisConfig defines the function and type names used to recognise
// route registrations and template renders.
type AnalysisConfig struct {
	// RouteMethods are the router methods that register a route for the
	// HTTP method of the same name (default: GET, POST, PUT, ...).
	RouteMethods []string
	// HandleFunctionName registers a route with an explicit method as its
	// first argument: r.Handle("GET", "/path", h) (default: "Handle").
	HandleFunctionName string
	// GroupFunctionName creates a sub-router with a path prefix (default: "Group").
	GroupFunctionName string
	// RouterTypeNames restricts registrations to receivers of these named
	// types when type information is available.
	RouterTypeNames []string
	// RenderFunctionNames are the calls that render a template by name
	// (default: "HTML", "Render", "ExecuteTemplate").
	RenderFunctionNames []string
}

// DefaultConfig matches gin, echo, rex and chi style routers.
var DefaultConfig = AnalysisConfig{
	RouteMethods:        []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
	HandleFunctionName:  "Handle",
	GroupFunctionName:   "Group",
	RouterTypeNames:     []string{"Engine", "RouterGroup", "IRouter", "IRoutes", "Router", "Group", "Echo", "Mux"},
	RenderFunctionNames: []string{"HTML", "Render", "ExecuteTemplate"},
}

// FuncScope holds the route registrations found in one function.
type FuncScope struct {
	Registrations []registration
}

// registration is a route registration call with its resolved pieces.
type registration struct {
	call    *goast.CallExpr
	method  string
	path    string
	handler goast.Expr // last handler argument, nil when absent
}

// handlerInfo is what the handler index knows about a function.
type handlerInfo struct {
	name      string
	obj       types.Object
	templates []string
	renders   []RenderCall
}

// funcWorkUnit wraps an AST node for concurrent processing.
type funcWorkUnit struct {
	node goast.Node
}

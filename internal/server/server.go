// Package server wires the bookmark tools into an MCP server. No business
// logic lives here, only wiring.
package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nikbrunner/linkvault/internal/extract"
	"github.com/nikbrunner/linkvault/internal/reconcile"
	"github.com/nikbrunner/linkvault/internal/repository"
	"github.com/nikbrunner/linkvault/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Deps are the components the tools share.
type Deps struct {
	Repo            *repository.Repository
	Reconciler      *reconcile.Reconciler
	Extractor       extract.Extractor
	Browser         tools.BrowserSource
	DefaultCategory string
}

// New creates the MCP server with every tool registered.
func New(d Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"linkvault",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	for _, t := range Tools(d) {
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}

// Tool is the shape every handler in package tools shares.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Tools builds every tool in registration order.
func Tools(d Deps) []Tool {
	return []Tool{
		tools.NewGetURLDataTool(d.Extractor),
		tools.NewStoreURLTool(d.Reconciler, d.Extractor, d.DefaultCategory),
		tools.NewSearchTool(d.Repo),
		tools.NewListCategoriesTool(d.Repo),
		tools.NewListByCategoryTool(d.Repo),
		tools.NewListByTagTool(d.Repo),
		tools.NewListTagsTool(d.Repo),
		tools.NewFindTool(d.Repo),
		tools.NewDeleteBookmarkTool(d.Repo),
		tools.NewRenameCategoryTool(d.Repo),
		tools.NewDeleteCategoryTool(d.Repo),
		tools.NewListBrowserTool(d.Browser),
		tools.NewImportBrowserTool(d.Reconciler, d.Browser, d.DefaultCategory),
	}
}

const instructions = `linkvault keeps a personal bookmark collection organised by category and tag.

To save a page: call get_url_data to read it, choose a category, tags and an
importance from 1 to 5, then call store_url. Storing a URL that is already in
the category updates only the fields you pass.

Errors start with a status in brackets: [invalid_input], [not_found],
[ambiguous_reference], [conflict], [extraction_failed] or [error]. On
[ambiguous_reference] ask which category was meant and retry with it.`

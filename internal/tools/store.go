package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nikbrunner/linkvault/internal/extract"
	"github.com/nikbrunner/linkvault/internal/normalize"
	"github.com/nikbrunner/linkvault/internal/reconcile"
)

// GetURLDataTool handles the get_url_data MCP tool.
type GetURLDataTool struct {
	extractor extract.Extractor
}

// NewGetURLDataTool creates a GetURLDataTool.
func NewGetURLDataTool(extractor extract.Extractor) *GetURLDataTool {
	return &GetURLDataTool{extractor: extractor}
}

// Definition returns the MCP tool definition for get_url_data.
func (t *GetURLDataTool) Definition() mcp.Tool {
	return mcp.NewTool("get_url_data",
		mcp.WithDescription(
			"Fetch a web page and extract its title, description, main content and keywords. "+
				"Use the result to pick a category, tags and importance before calling store_url.",
		),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Page URL; https:// is assumed when no scheme is given"),
		),
	)
}

// Handle processes the get_url_data tool call.
func (t *GetURLDataTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := normalize.URL(req.GetString("url", ""))
	if err != nil {
		return errorResult(err), nil
	}

	res, err := t.extractor.Extract(ctx, url)
	if err != nil {
		return errorResult(err), nil
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// StoreURLTool handles the store_url MCP tool.
type StoreURLTool struct {
	reconciler      *reconcile.Reconciler
	extractor       extract.Extractor
	defaultCategory string
}

// NewStoreURLTool creates a StoreURLTool. Bookmarks without a category go to
// defaultCategory.
func NewStoreURLTool(reconciler *reconcile.Reconciler, extractor extract.Extractor, defaultCategory string) *StoreURLTool {
	return &StoreURLTool{reconciler: reconciler, extractor: extractor, defaultCategory: defaultCategory}
}

// Definition returns the MCP tool definition for store_url.
func (t *StoreURLTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Store a bookmark. If the URL is already saved in the category, only the fields you "+
				"pass are updated; everything else keeps its stored value.",
		),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Bookmark URL"),
		),
		mcp.WithString("category",
			mcp.Description(fmt.Sprintf("Category to file it under (default %q)", t.defaultCategory)),
		),
		mcp.WithBoolean("fetch",
			mcp.Description("Fetch the page to fill in a missing title or description"),
		),
	}
	return mcp.NewTool("store_url", append(opts, bookmarkParams()...)...)
}

// Handle processes the store_url tool call.
func (t *StoreURLTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := inputArgs(req)
	if err != nil {
		return errorResult(err), nil
	}
	category := req.GetString("category", t.defaultCategory)

	var ex extract.Extractor
	if boolArg(req, "fetch", false) {
		ex = t.extractor
	}

	res, err := t.reconciler.StoreFromURL(ctx, category, in, ex)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(describeStore(res)), nil
}

// describeStore reports a reconcile result in one or two lines.
func describeStore(res reconcile.Result) string {
	var b strings.Builder
	switch res.Outcome {
	case reconcile.Inserted:
		fmt.Fprintf(&b, "Stored new bookmark %s in %q.", res.Bookmark.URL, res.Bookmark.Category)
	case reconcile.Updated:
		fmt.Fprintf(&b, "Updated existing bookmark %s in %q.", res.Bookmark.URL, res.Bookmark.Category)
	default:
		fmt.Fprintf(&b, "Bookmark %s in %q is already up to date; nothing changed.", res.Bookmark.URL, res.Bookmark.Category)
	}
	if res.ExtractionErr != nil {
		fmt.Fprintf(&b, "\nNote: page content could not be fetched (%v); stored with the metadata provided.", res.ExtractionErr)
	}
	return b.String()
}

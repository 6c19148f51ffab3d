package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nikbrunner/linkvault/internal/browser"
	"github.com/nikbrunner/linkvault/internal/normalize"
	"github.com/nikbrunner/linkvault/internal/reconcile"
)

// BrowserSource reads bookmarks from the configured browser profiles.
type BrowserSource struct {
	Aggregator *browser.Aggregator
	Locations  []browser.Location
}

// request builds an aggregation request from the folder/root/file arguments.
func (s BrowserSource) request(req mcp.CallToolRequest) browser.Request {
	r := browser.Request{
		Locations: s.Locations,
		Filter: browser.Filter{
			Path: browser.ParsePath(req.GetString("folder", "")),
			Root: strings.TrimSpace(req.GetString("root", "")),
		},
		Dedupe: boolArg(req, "dedupe", true),
	}
	if file := strings.TrimSpace(req.GetString("file", "")); file != "" {
		r.Locations = nil
		r.Files = []string{file}
	}
	return r
}

func sourceParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("folder",
			mcp.Description(`Folder path below the root, e.g. "Work/AWS"; includes subfolders`),
		),
		mcp.WithString("root",
			mcp.Description("Limit to one root: bookmark_bar, other, synced or file"),
		),
		mcp.WithString("file",
			mcp.Description("Read this Bookmarks or exported HTML file instead of the browser profiles"),
		),
	}
}

// ListBrowserTool handles the list_browser_bookmarks MCP tool.
type ListBrowserTool struct {
	source BrowserSource
}

// NewListBrowserTool creates a ListBrowserTool.
func NewListBrowserTool(source BrowserSource) *ListBrowserTool {
	return &ListBrowserTool{source: source}
}

// Definition returns the MCP tool definition for list_browser_bookmarks.
func (t *ListBrowserTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"List bookmarks from every installed Chromium-family browser profile, merged and "+
				"de-duplicated. Nothing is stored; use import_browser_bookmark to import.",
		),
		mcp.WithBoolean("dedupe",
			mcp.Description("Drop repeated URLs across profiles (default true)"),
		),
	}
	return mcp.NewTool("list_browser_bookmarks", append(opts, sourceParams()...)...)
}

// Handle processes the list_browser_bookmarks tool call.
func (t *ListBrowserTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := t.source.Aggregator.Aggregate(ctx, t.source.request(req))

	var b strings.Builder
	if len(res.Bookmarks) == 0 {
		fmt.Fprintf(&b, "No browser bookmarks found (%d profiles read).\n", len(res.Profiles))
	} else {
		fmt.Fprintf(&b, "Found %d browser bookmarks in %d profiles:\n\n", len(res.Bookmarks), len(res.Profiles))
		for i, bm := range res.Bookmarks {
			fmt.Fprintf(&b, "[%d] %s\n    url: %s\n    folder: %s | profile: %s\n",
				i+1, bm.Title, bm.URL, folderLabel(bm), bm.Profile)
		}
	}
	writeWarnings(&b, res.Warnings)
	return mcp.NewToolResultText(b.String()), nil
}

func folderLabel(b browser.Bookmark) string {
	if len(b.FolderPath) == 0 {
		return b.Root
	}
	return b.Root + "/" + b.Folder()
}

func writeWarnings(b *strings.Builder, warnings []browser.Warning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%d profiles could not be read:\n", len(warnings))
	for _, w := range warnings {
		fmt.Fprintf(b, "- %v\n", w)
	}
}

// ImportBrowserTool handles the import_browser_bookmark MCP tool.
type ImportBrowserTool struct {
	reconciler      *reconcile.Reconciler
	source          BrowserSource
	defaultCategory string
}

// NewImportBrowserTool creates an ImportBrowserTool.
func NewImportBrowserTool(reconciler *reconcile.Reconciler, source BrowserSource, defaultCategory string) *ImportBrowserTool {
	return &ImportBrowserTool{reconciler: reconciler, source: source, defaultCategory: defaultCategory}
}

// Definition returns the MCP tool definition for import_browser_bookmark.
func (t *ImportBrowserTool) Definition() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(
			"Import browser bookmarks into a category. Pass url to import one bookmark, enriched "+
				"with the title and add date the browser recorded. Omit url and pass folder or root "+
				"to import everything below that folder. Fields already curated on an existing "+
				"bookmark are kept unless you pass new values.",
		),
		mcp.WithString("url",
			mcp.Description("Bookmark URL to import"),
		),
		mcp.WithString("category",
			mcp.Description(fmt.Sprintf("Target category (default %q)", t.defaultCategory)),
		),
	}
	opts = append(opts, bookmarkParams()...)
	return mcp.NewTool("import_browser_bookmark", append(opts, sourceParams()...)...)
}

// Handle processes the import_browser_bookmark tool call.
func (t *ImportBrowserTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", t.defaultCategory)
	if strings.TrimSpace(req.GetString("url", "")) == "" {
		return t.importFolder(ctx, req, category)
	}

	in, err := inputArgs(req)
	if err != nil {
		return errorResult(err), nil
	}
	d, err := normalize.Normalize(in)
	if err != nil {
		return errorResult(err), nil
	}

	res := t.source.Aggregator.Aggregate(ctx, t.source.request(req))
	if c, ok := findCandidate(res.Bookmarks, d.Bookmark.URL); ok {
		enrich(&d, c)
	}

	stored, err := t.reconciler.Store(ctx, category, d)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(describeStore(stored)), nil
}

func (t *ImportBrowserTool) importFolder(ctx context.Context, req mcp.CallToolRequest, category string) (*mcp.CallToolResult, error) {
	r := t.source.request(req)
	if len(r.Filter.Path) == 0 && r.Filter.Root == "" && len(r.Files) == 0 {
		return invalid("pass 'url' to import one bookmark, or 'folder', 'root' or 'file' to import many"), nil
	}

	res := t.source.Aggregator.Aggregate(ctx, r)
	out, err := t.reconciler.ImportBrowser(ctx, category, res.Bookmarks, tagsArg(req, "tags"))
	if err != nil {
		return errorResult(err), nil
	}

	var b strings.Builder
	s := out.Summary
	fmt.Fprintf(&b, "Imported %d browser bookmarks into %q: %d new, %d updated, %d unchanged, %d rejected.\n",
		len(out.Results), strings.TrimSpace(category), s.Inserted, s.Updated, s.Unchanged, s.Rejected)
	for _, item := range out.Results {
		if item.Outcome == reconcile.Rejected {
			fmt.Fprintf(&b, "- rejected %s: %v\n", item.Bookmark.URL, item.Err)
		}
	}
	writeWarnings(&b, res.Warnings)
	return mcp.NewToolResultText(b.String()), nil
}

func findCandidate(candidates []browser.Bookmark, url string) (browser.Bookmark, bool) {
	for _, c := range candidates {
		if u, err := normalize.URL(c.URL); err == nil && u == url {
			return c, true
		}
	}
	return browser.Bookmark{}, false
}

// enrich fills the title and creation time the caller left out from the
// browser's own record.
func enrich(d *normalize.Draft, c browser.Bookmark) {
	bd, err := normalize.FromBrowser(c)
	if err != nil {
		return
	}
	if !d.Has(normalize.FieldTitle) && bd.Has(normalize.FieldTitle) {
		d.Bookmark.Title = bd.Bookmark.Title
		d.Specified |= normalize.FieldTitle
	}
	if d.Bookmark.CreatedAt.IsZero() {
		d.Bookmark.CreatedAt = bd.Bookmark.CreatedAt
	}
}

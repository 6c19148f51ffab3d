package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nikbrunner/linkvault/internal/normalize"
	"github.com/nikbrunner/linkvault/internal/search"
)

// SearchTool handles the search_bookmarks MCP tool.
type SearchTool struct {
	repo Snapshotter
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(repo Snapshotter) *SearchTool {
	return &SearchTool{repo: repo}
}

// Definition returns the MCP tool definition for search_bookmarks.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("search_bookmarks",
		mcp.WithDescription(
			"Search stored bookmarks. Matches the query as a case-insensitive substring of the "+
				"URL, title, description or notes. Most recently updated first.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to look for"),
		),
		mcp.WithBoolean("fuzzy",
			mcp.Description("Fuzzy-match title and URL instead of substring search"),
		),
	)
}

// Handle processes the search_bookmarks tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	if query == "" {
		return invalid("'query' is required"), nil
	}

	e, err := engine(ctx, t.repo)
	if err != nil {
		return errorResult(err), nil
	}

	if boolArg(req, "fuzzy", false) {
		matches := e.Fuzzy(query)
		if len(matches) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No bookmarks match %q.", query)), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Found %d bookmarks:\n\n", len(matches))
		for i, m := range matches {
			formatBookmark(&b, i+1, *m.Bookmark)
			b.WriteString("\n")
		}
		return mcp.NewToolResultText(b.String()), nil
	}

	results := e.Search(query)
	if len(results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No bookmarks match %q.", query)), nil
	}
	return mcp.NewToolResultText(formatList("Found bookmarks", results)), nil
}

// ListCategoriesTool handles the list_categories MCP tool.
type ListCategoriesTool struct {
	repo Snapshotter
}

// NewListCategoriesTool creates a ListCategoriesTool.
func NewListCategoriesTool(repo Snapshotter) *ListCategoriesTool {
	return &ListCategoriesTool{repo: repo}
}

// Definition returns the MCP tool definition for list_categories.
func (t *ListCategoriesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_categories",
		mcp.WithDescription("List every category with its bookmark count."),
	)
}

// Handle processes the list_categories tool call.
func (t *ListCategoriesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := engine(ctx, t.repo)
	if err != nil {
		return errorResult(err), nil
	}

	categories := e.ListCategories()
	if len(categories) == 0 {
		return mcp.NewToolResultText("No categories yet."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d categories:\n", len(categories))
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s (%d)\n", c.Name, c.Count)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ListByCategoryTool handles the list_bookmarks_by_category MCP tool.
type ListByCategoryTool struct {
	repo Snapshotter
}

// NewListByCategoryTool creates a ListByCategoryTool.
func NewListByCategoryTool(repo Snapshotter) *ListByCategoryTool {
	return &ListByCategoryTool{repo: repo}
}

// Definition returns the MCP tool definition for list_bookmarks_by_category.
func (t *ListByCategoryTool) Definition() mcp.Tool {
	return mcp.NewTool("list_bookmarks_by_category",
		mcp.WithDescription("List the bookmarks in one category, most important first."),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("Category name"),
		),
	)
}

// Handle processes the list_bookmarks_by_category tool call.
func (t *ListByCategoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category, err := normalize.Category(req.GetString("category", ""))
	if err != nil {
		return errorResult(err), nil
	}

	e, err := engine(ctx, t.repo)
	if err != nil {
		return errorResult(err), nil
	}

	bookmarks := e.ListByCategory(category)
	if len(bookmarks) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No bookmarks in category %q.", category)), nil
	}
	return mcp.NewToolResultText(formatList("Bookmarks in "+category, bookmarks)), nil
}

// ListByTagTool handles the list_bookmarks_by_tag MCP tool.
type ListByTagTool struct {
	repo Snapshotter
}

// NewListByTagTool creates a ListByTagTool.
func NewListByTagTool(repo Snapshotter) *ListByTagTool {
	return &ListByTagTool{repo: repo}
}

// Definition returns the MCP tool definition for list_bookmarks_by_tag.
func (t *ListByTagTool) Definition() mcp.Tool {
	return mcp.NewTool("list_bookmarks_by_tag",
		mcp.WithDescription("List bookmarks carrying a tag, across every category."),
		mcp.WithString("tag",
			mcp.Required(),
			mcp.Description("Tag name (case-insensitive)"),
		),
	)
}

// Handle processes the list_bookmarks_by_tag tool call.
func (t *ListByTagTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := strings.TrimSpace(req.GetString("tag", ""))
	if tag == "" {
		return invalid("'tag' is required"), nil
	}

	e, err := engine(ctx, t.repo)
	if err != nil {
		return errorResult(err), nil
	}

	bookmarks := e.ListByTag(tag)
	if len(bookmarks) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No bookmarks tagged %q.", tag)), nil
	}
	return mcp.NewToolResultText(formatList("Bookmarks tagged "+tag, bookmarks)), nil
}

// ListTagsTool handles the list_tags MCP tool.
type ListTagsTool struct {
	repo Snapshotter
}

// NewListTagsTool creates a ListTagsTool.
func NewListTagsTool(repo Snapshotter) *ListTagsTool {
	return &ListTagsTool{repo: repo}
}

// Definition returns the MCP tool definition for list_tags.
func (t *ListTagsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag with the number of bookmarks carrying it."),
	)
}

// Handle processes the list_tags tool call.
func (t *ListTagsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := engine(ctx, t.repo)
	if err != nil {
		return errorResult(err), nil
	}

	tags := e.ListTags()
	if len(tags) == 0 {
		return mcp.NewToolResultText("No tags yet."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d tags:\n", len(tags))
	for _, tc := range tags {
		fmt.Fprintf(&b, "- %s (%d)\n", tc.Tag, tc.Count)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// FindTool handles the find_bookmark MCP tool.
type FindTool struct {
	repo Snapshotter
}

// NewFindTool creates a FindTool.
func NewFindTool(repo Snapshotter) *FindTool {
	return &FindTool{repo: repo}
}

// Definition returns the MCP tool definition for find_bookmark.
func (t *FindTool) Definition() mcp.Tool {
	return mcp.NewTool("find_bookmark",
		mcp.WithDescription(
			"Look up a bookmark by exact URL. Without a category the URL may exist in several "+
				"categories; all of them are listed so you can pick one.",
		),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Bookmark URL"),
		),
		mcp.WithString("category",
			mcp.Description("Restrict the lookup to one category"),
		),
	)
}

// Handle processes the find_bookmark tool call.
func (t *FindTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := normalize.URL(req.GetString("url", ""))
	if err != nil {
		return errorResult(err), nil
	}
	category := strings.TrimSpace(req.GetString("category", ""))

	e, err := engine(ctx, t.repo)
	if err != nil {
		return errorResult(err), nil
	}

	lookup := e.FindByURL(url, category)
	switch lookup.Kind {
	case search.LookupNone:
		return mcp.NewToolResultText(fmt.Sprintf("No bookmark found for %s.", url)), nil
	case search.LookupAmbiguous:
		header := fmt.Sprintf("%s exists in %d categories (%s); pass a category to pick one",
			url, len(lookup.Bookmarks), strings.Join(lookup.Categories(), ", "))
		return mcp.NewToolResultText(formatList(header, lookup.Bookmarks)), nil
	default:
		var b strings.Builder
		formatBookmark(&b, 1, lookup.Bookmarks[0])
		return mcp.NewToolResultText(b.String()), nil
	}
}

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nikbrunner/linkvault/internal/model"
	"github.com/nikbrunner/linkvault/internal/normalize"
)

// Mutator is the subset of the repository the management tools write through.
type Mutator interface {
	Delete(ctx context.Context, url, category string) (model.Bookmark, error)
	RenameCategory(ctx context.Context, oldName, newName string) (int, error)
	DeleteCategory(ctx context.Context, name string) (int, error)
}

// DeleteBookmarkTool handles the delete_bookmark MCP tool.
type DeleteBookmarkTool struct {
	repo Mutator
}

// NewDeleteBookmarkTool creates a DeleteBookmarkTool.
func NewDeleteBookmarkTool(repo Mutator) *DeleteBookmarkTool {
	return &DeleteBookmarkTool{repo: repo}
}

// Definition returns the MCP tool definition for delete_bookmark.
func (t *DeleteBookmarkTool) Definition() mcp.Tool {
	return mcp.NewTool("delete_bookmark",
		mcp.WithDescription(
			"Delete a bookmark by URL. When the URL is saved in more than one category you must "+
				"pass the category; otherwise the call fails with ambiguous_reference.",
		),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Bookmark URL"),
		),
		mcp.WithString("category",
			mcp.Description("Category to delete from"),
		),
	)
}

// Handle processes the delete_bookmark tool call.
func (t *DeleteBookmarkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := normalize.URL(req.GetString("url", ""))
	if err != nil {
		return errorResult(err), nil
	}
	category := strings.TrimSpace(req.GetString("category", ""))

	removed, err := t.repo.Delete(ctx, url, category)
	if err != nil {
		return errorResult(fmt.Errorf("delete %s: %w", url, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %s from %q.", removed.URL, removed.Category)), nil
}

// RenameCategoryTool handles the rename_category MCP tool.
type RenameCategoryTool struct {
	repo Mutator
}

// NewRenameCategoryTool creates a RenameCategoryTool.
func NewRenameCategoryTool(repo Mutator) *RenameCategoryTool {
	return &RenameCategoryTool{repo: repo}
}

// Definition returns the MCP tool definition for rename_category.
func (t *RenameCategoryTool) Definition() mcp.Tool {
	return mcp.NewTool("rename_category",
		mcp.WithDescription(
			"Rename a category, moving all its bookmarks. Fails with conflict when the new name "+
				"already holds bookmarks.",
		),
		mcp.WithString("old_name",
			mcp.Required(),
			mcp.Description("Current category name"),
		),
		mcp.WithString("new_name",
			mcp.Required(),
			mcp.Description("New category name"),
		),
	)
}

// Handle processes the rename_category tool call.
func (t *RenameCategoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldName := strings.TrimSpace(req.GetString("old_name", ""))
	newName := strings.TrimSpace(req.GetString("new_name", ""))

	moved, err := t.repo.RenameCategory(ctx, oldName, newName)
	if err != nil {
		return errorResult(fmt.Errorf("rename %q to %q: %w", oldName, newName, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Renamed %q to %q (%d bookmarks).", oldName, newName, moved)), nil
}

// DeleteCategoryTool handles the delete_category MCP tool.
type DeleteCategoryTool struct {
	repo Mutator
}

// NewDeleteCategoryTool creates a DeleteCategoryTool.
func NewDeleteCategoryTool(repo Mutator) *DeleteCategoryTool {
	return &DeleteCategoryTool{repo: repo}
}

// Definition returns the MCP tool definition for delete_category.
func (t *DeleteCategoryTool) Definition() mcp.Tool {
	return mcp.NewTool("delete_category",
		mcp.WithDescription("Delete a category and every bookmark in it."),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("Category name"),
		),
	)
}

// Handle processes the delete_category tool call.
func (t *DeleteCategoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := normalize.Category(req.GetString("category", ""))
	if err != nil {
		return errorResult(err), nil
	}

	removed, err := t.repo.DeleteCategory(ctx, name)
	if err != nil {
		return errorResult(fmt.Errorf("category %q: %w", name, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted category %q and its %d bookmarks.", name, removed)), nil
}

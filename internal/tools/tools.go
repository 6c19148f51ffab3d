// Package tools provides the MCP tool handlers the assistant calls.
//
// Each tool follows the same shape:
//   - a struct holding its dependencies, built by a constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
//
// Failures are tool errors whose text starts with a bracketed status
// (for example "[not_found]") so callers can branch on them. A query that
// matches nothing is a success with an explanatory message.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nikbrunner/linkvault/internal/extract"
	"github.com/nikbrunner/linkvault/internal/model"
	"github.com/nikbrunner/linkvault/internal/normalize"
	"github.com/nikbrunner/linkvault/internal/search"
)

// Status values carried at the start of every tool error.
const (
	StatusInvalidInput     = "invalid_input"
	StatusNotFound         = "not_found"
	StatusAmbiguous        = "ambiguous_reference"
	StatusConflict         = "conflict"
	StatusExtractionFailed = "extraction_failed"
	StatusError            = "error"
)

// Snapshotter returns a consistent read-only copy of the store.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*model.Store, error)
}

// StatusOf maps an error onto its status string.
func StatusOf(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return StatusInvalidInput
	case errors.Is(err, model.ErrNotFound):
		return StatusNotFound
	case errors.Is(err, model.ErrAmbiguous):
		return StatusAmbiguous
	case errors.Is(err, model.ErrConflict):
		return StatusConflict
	case errors.Is(err, extract.ErrExtractionFailed):
		return StatusExtractionFailed
	default:
		return StatusError
	}
}

// errorResult builds a tool error tagged with err's status.
func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("[%s] %v", StatusOf(err), err))
}

// invalid builds an invalid_input tool error.
func invalid(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", StatusInvalidInput, fmt.Sprintf(format, args...)))
}

func engine(ctx context.Context, repo Snapshotter) (*search.Engine, error) {
	store, err := repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return search.New(store), nil
}

// optionalInt extracts an integer argument, returning nil when the key is
// missing. JSON numbers arrive as float64; fractional values are rejected.
func optionalInt(req mcp.CallToolRequest, key string) (*int, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	var n int
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return nil, &model.ValidationError{Field: key, Message: fmt.Sprintf("must be an integer, got %v", raw)}
		}
		n = int(v)
	case int:
		n = v
	default:
		return nil, &model.ValidationError{Field: key, Message: fmt.Sprintf("must be an integer, got %v", raw)}
	}
	return &n, nil
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// optionalString returns nil when key was not supplied, which keeps "absent"
// distinct from "".
func optionalString(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// tagsArg accepts a JSON array of strings or a comma separated string.
func tagsArg(req mcp.CallToolRequest, key string) []string {
	switch v := req.GetArguments()[key].(type) {
	case []any:
		tags := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	case []string:
		return v
	case string:
		return strings.Split(v, ",")
	default:
		return nil
	}
}

// inputArgs reads the bookmark fields shared by store_url and
// import_browser_bookmark.
func inputArgs(req mcp.CallToolRequest) (normalize.Input, error) {
	importance, err := optionalInt(req, "importance")
	if err != nil {
		return normalize.Input{}, err
	}
	return normalize.Input{
		URL:         req.GetString("url", ""),
		Title:       req.GetString("title", ""),
		Tags:        tagsArg(req, "tags"),
		Description: req.GetString("description", ""),
		Notes:       optionalString(req, "notes"),
		Importance:  importance,
	}, nil
}

// bookmarkParams are the schema options for the shared bookmark fields.
func bookmarkParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("title",
			mcp.Description("Page title; defaults to the URL when omitted"),
		),
		mcp.WithArray("tags",
			mcp.Description("Tags to attach; stored lower-cased and de-duplicated"),
			mcp.WithStringItems(),
		),
		mcp.WithString("description",
			mcp.Description("Short description of the content"),
		),
		mcp.WithNumber("importance",
			mcp.Description("Importance from 1 (low) to 5 (high); defaults to 3"),
		),
		mcp.WithString("notes",
			mcp.Description("Free-form notes; pass an empty string to clear existing notes"),
		),
	}
}

// formatBookmark writes a multi-line summary of b.
func formatBookmark(w *strings.Builder, i int, b model.Bookmark) {
	fmt.Fprintf(w, "[%d] %s\n", i, b.Title)
	fmt.Fprintf(w, "    url: %s\n", b.URL)
	fmt.Fprintf(w, "    category: %s | importance: %d", b.Category, b.Importance)
	if len(b.Tags) > 0 {
		fmt.Fprintf(w, " | tags: %s", strings.Join(b.Tags, ", "))
	}
	w.WriteString("\n")
	if b.Description != "" {
		fmt.Fprintf(w, "    %s\n", b.Description)
	}
	if b.Notes != nil && *b.Notes != "" {
		fmt.Fprintf(w, "    notes: %s\n", *b.Notes)
	}
}

func formatList(header string, bookmarks []model.Bookmark) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):\n\n", header, len(bookmarks))
	for i, bm := range bookmarks {
		formatBookmark(&b, i+1, bm)
		b.WriteString("\n")
	}
	return b.String()
}

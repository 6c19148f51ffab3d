package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/mock/gomock"

	"github.com/nikbrunner/linkvault/internal/browser"
	"github.com/nikbrunner/linkvault/internal/extract"
	"github.com/nikbrunner/linkvault/internal/extract/mocks"
	"github.com/nikbrunner/linkvault/internal/logging"
	"github.com/nikbrunner/linkvault/internal/model"
	"github.com/nikbrunner/linkvault/internal/reconcile"
	"github.com/nikbrunner/linkvault/internal/repository"
	"github.com/nikbrunner/linkvault/internal/storage"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

const chromeBookmarks = `{
  "roots": {
    "bookmark_bar": {
      "type": "folder", "name": "Bookmarks bar",
      "children": [
        {"type": "url", "name": "Top", "url": "https://top.com"},
        {"type": "folder", "name": "Work", "children": [
          {"type": "url", "name": "Jira", "url": "https://jira.example.com", "date_added": "13300000000000000"},
          {"type": "url", "name": "Not a link", "url": "javascript:void(0)"},
          {"type": "folder", "name": "AWS", "children": [
            {"type": "url", "name": "Console", "url": "https://console.aws.amazon.com"}
          ]}
        ]}
      ]
    }
  },
  "version": 1
}`

type env struct {
	repo       *repository.Repository
	reconciler *reconcile.Reconciler
	source     BrowserSource
	dir        string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()

	repo, err := repository.Open(storage.Options{DBPath: filepath.Join(dir, "bookmarks.db")}, logging.Discard())
	if err != nil {
		t.Fatalf("failed to open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	chrome := filepath.Join(dir, "chrome")
	writeFile(t, filepath.Join(chrome, "Default", "Bookmarks"), chromeBookmarks)

	return &env{
		repo:       repo,
		reconciler: reconcile.New(repo, logging.Discard()),
		source: BrowserSource{
			Aggregator: browser.NewAggregator(logging.Discard()),
			Locations:  []browser.Location{{Browser: "Chrome", Dir: chrome}},
		},
		dir: dir,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

type handler interface {
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// call runs h and fails the test on a Go error or a tool error.
func call(t *testing.T, h handler, args map[string]interface{}) string {
	t.Helper()
	res, err := h.Handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(res))
	}
	return resultText(res)
}

// callErr runs h and requires a tool error with the given status.
func callErr(t *testing.T, h handler, args map[string]interface{}, status string) string {
	t.Helper()
	res, err := h.Handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(res)
	if !res.IsError {
		t.Fatalf("expected tool error, got: %s", text)
	}
	if !strings.HasPrefix(text, "["+status+"]") {
		t.Fatalf("expected status %q, got: %s", status, text)
	}
	return text
}

func (e *env) store(t *testing.T, args map[string]interface{}) string {
	t.Helper()
	return call(t, NewStoreURLTool(e.reconciler, nil, "Read Later"), args)
}

// ─── store_url ───────────────────────────────────────────────────────────────

func TestStoreURL_InsertThenMerge(t *testing.T) {
	e := newEnv(t)

	text := e.store(t, map[string]interface{}{
		"url":        "https://x.org/a",
		"title":      "A",
		"category":   "Machine Learning",
		"tags":       []interface{}{"AI"},
		"importance": float64(4),
	})
	if !strings.Contains(text, "Stored new bookmark") {
		t.Errorf("expected insert, got: %s", text)
	}

	text = e.store(t, map[string]interface{}{
		"url":      "https://x.org/a",
		"category": "Machine Learning",
		"notes":    "reread",
	})
	if !strings.Contains(text, "Updated existing bookmark") {
		t.Errorf("expected update, got: %s", text)
	}

	store, err := e.repo.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(store.Bookmarks) != 1 {
		t.Fatalf("expected 1 bookmark, got %d", len(store.Bookmarks))
	}
	b := store.Bookmarks[0]
	if len(b.Tags) != 1 || b.Tags[0] != "ai" || b.Importance != 4 || b.NotesText() != "reread" || b.Title != "A" {
		t.Errorf("unexpected merge result: %+v", b)
	}
}

func TestStoreURL_DefaultCategoryAndDuplicate(t *testing.T) {
	e := newEnv(t)
	args := map[string]interface{}{"url": "example.com/page", "title": "Page"}

	e.store(t, args)
	text := e.store(t, args)
	if !strings.Contains(text, "already up to date") {
		t.Errorf("expected unchanged, got: %s", text)
	}
	if !strings.Contains(text, `"Read Later"`) || !strings.Contains(text, "https://example.com/page") {
		t.Errorf("expected default category and normalized url, got: %s", text)
	}
}

func TestStoreURL_InvalidInput(t *testing.T) {
	e := newEnv(t)
	tool := NewStoreURLTool(e.reconciler, nil, "Read Later")

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing url", map[string]interface{}{"title": "x"}},
		{"importance too high", map[string]interface{}{"url": "https://a.com", "importance": float64(7)}},
		{"fractional importance", map[string]interface{}{"url": "https://a.com", "importance": 2.5}},
		{"zero importance", map[string]interface{}{"url": "https://a.com", "importance": float64(0)}},
		{"string importance", map[string]interface{}{"url": "https://a.com", "importance": "high"}},
		{"blank category", map[string]interface{}{"url": "https://a.com", "category": "   "}},
		{"no host", map[string]interface{}{"url": "https://"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			callErr(t, tool, tt.args, StatusInvalidInput)
		})
	}

	store, _ := e.repo.Snapshot(context.Background())
	if len(store.Bookmarks) != 0 {
		t.Errorf("expected nothing stored, got %d", len(store.Bookmarks))
	}
}

func TestStoreURL_ZeroImportanceNeverTouchesExisting(t *testing.T) {
	e := newEnv(t)
	tool := NewStoreURLTool(e.reconciler, nil, "Read Later")

	e.store(t, map[string]interface{}{"url": "https://x.org/a", "category": "ML", "importance": float64(4)})
	callErr(t, tool, map[string]interface{}{"url": "https://x.org/a", "category": "ML", "importance": float64(0)}, StatusInvalidInput)

	store, err := e.repo.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b := store.Get("ML", "https://x.org/a")
	if b == nil || b.Importance != 4 {
		t.Errorf("expected importance 4 to survive, got %+v", b)
	}
}

func TestStoreURL_FetchFailureStillStores(t *testing.T) {
	e := newEnv(t)
	ctrl := gomock.NewController(t)
	ex := mocks.NewMockExtractor(ctrl)
	ex.EXPECT().
		Extract(gomock.Any(), "https://slow.example.com").
		Return(extract.Result{}, fmt.Errorf("%w: timeout", extract.ErrExtractionFailed))

	tool := NewStoreURLTool(e.reconciler, ex, "Read Later")
	text := call(t, tool, map[string]interface{}{
		"url":   "https://slow.example.com",
		"fetch": true,
	})
	if !strings.Contains(text, "Stored new bookmark") || !strings.Contains(text, "could not be fetched") {
		t.Errorf("expected stored with extraction note, got: %s", text)
	}
}

func TestStoreURL_Definition(t *testing.T) {
	def := NewStoreURLTool(nil, nil, "Inbox").Definition()
	if def.Name != "store_url" {
		t.Errorf("tool name = %q, want store_url", def.Name)
	}
	for _, p := range []string{"url", "category", "title", "tags", "description", "importance", "notes", "fetch"} {
		if _, ok := def.InputSchema.Properties[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}
	if len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "url" {
		t.Errorf("expected only url required, got %v", def.InputSchema.Required)
	}
}

// ─── get_url_data ────────────────────────────────────────────────────────────

func TestGetURLData(t *testing.T) {
	ctrl := gomock.NewController(t)
	ex := mocks.NewMockExtractor(ctrl)
	ex.EXPECT().
		Extract(gomock.Any(), "https://go.dev").
		Return(extract.Result{URL: "https://go.dev", Title: "The Go Programming Language"}, nil)

	text := call(t, NewGetURLDataTool(ex), map[string]interface{}{"url": "go.dev"})
	if !strings.Contains(text, `"title": "The Go Programming Language"`) {
		t.Errorf("expected JSON with title, got: %s", text)
	}
}

func TestGetURLData_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	ex := mocks.NewMockExtractor(ctrl)
	ex.EXPECT().
		Extract(gomock.Any(), gomock.Any()).
		Return(extract.Result{}, fmt.Errorf("%w: status 404", extract.ErrExtractionFailed))

	tool := NewGetURLDataTool(ex)
	callErr(t, tool, map[string]interface{}{"url": "https://gone.example.com"}, StatusExtractionFailed)
	callErr(t, tool, map[string]interface{}{"url": ""}, StatusInvalidInput)
}

// ─── queries ─────────────────────────────────────────────────────────────────

func TestQueryTools(t *testing.T) {
	e := newEnv(t)
	e.store(t, map[string]interface{}{"url": "https://go.dev", "title": "Go", "category": "Dev", "tags": "lang, google"})
	e.store(t, map[string]interface{}{"url": "https://rust-lang.org", "title": "Rust", "category": "Dev", "tags": []interface{}{"lang"}})
	e.store(t, map[string]interface{}{"url": "https://go.dev", "title": "Go", "category": "Reading"})

	text := call(t, NewListCategoriesTool(e.repo), nil)
	if !strings.Contains(text, "- Dev (2)") || !strings.Contains(text, "- Reading (1)") {
		t.Errorf("unexpected categories: %s", text)
	}

	text = call(t, NewListTagsTool(e.repo), nil)
	if !strings.Contains(text, "- lang (2)") || !strings.Contains(text, "- google (1)") {
		t.Errorf("unexpected tags: %s", text)
	}

	text = call(t, NewListByTagTool(e.repo), map[string]interface{}{"tag": "LANG"})
	if !strings.Contains(text, "(2)") {
		t.Errorf("expected 2 tagged bookmarks: %s", text)
	}

	text = call(t, NewListByCategoryTool(e.repo), map[string]interface{}{"category": "Dev"})
	if !strings.Contains(text, "https://rust-lang.org") {
		t.Errorf("expected rust in Dev: %s", text)
	}

	text = call(t, NewSearchTool(e.repo), map[string]interface{}{"query": "RUST"})
	if !strings.Contains(text, "https://rust-lang.org") || strings.Contains(text, "https://go.dev") {
		t.Errorf("unexpected search result: %s", text)
	}

	text = call(t, NewSearchTool(e.repo), map[string]interface{}{"query": "rst", "fuzzy": true})
	if !strings.Contains(text, "https://rust-lang.org") {
		t.Errorf("expected fuzzy match: %s", text)
	}
}

func TestQueryTools_NothingMatchedIsNotAnError(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		tool handler
		args map[string]interface{}
		want string
	}{
		{"categories", NewListCategoriesTool(e.repo), nil, "No categories"},
		{"tags", NewListTagsTool(e.repo), nil, "No tags"},
		{"search", NewSearchTool(e.repo), map[string]interface{}{"query": "zzz"}, "No bookmarks match"},
		{"by tag", NewListByTagTool(e.repo), map[string]interface{}{"tag": "zzz"}, "No bookmarks tagged"},
		{"by category", NewListByCategoryTool(e.repo), map[string]interface{}{"category": "Nope"}, "No bookmarks in category"},
		{"find", NewFindTool(e.repo), map[string]interface{}{"url": "https://none.com"}, "No bookmark found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if text := call(t, tt.tool, tt.args); !strings.Contains(text, tt.want) {
				t.Errorf("expected %q, got: %s", tt.want, text)
			}
		})
	}

	callErr(t, NewSearchTool(e.repo), map[string]interface{}{"query": "  "}, StatusInvalidInput)
}

func TestFindBookmark(t *testing.T) {
	e := newEnv(t)
	e.store(t, map[string]interface{}{"url": "https://go.dev", "title": "Go", "category": "Dev"})
	e.store(t, map[string]interface{}{"url": "https://go.dev", "title": "Go", "category": "Reading"})

	text := call(t, NewFindTool(e.repo), map[string]interface{}{"url": "https://go.dev"})
	if !strings.Contains(text, "exists in 2 categories (Dev, Reading)") {
		t.Errorf("expected ambiguous listing, got: %s", text)
	}

	text = call(t, NewFindTool(e.repo), map[string]interface{}{"url": "https://go.dev", "category": "Reading"})
	if !strings.Contains(text, "category: Reading") || strings.Contains(text, "category: Dev") {
		t.Errorf("expected only Reading, got: %s", text)
	}
}

// ─── management ──────────────────────────────────────────────────────────────

func TestDeleteBookmark(t *testing.T) {
	e := newEnv(t)
	e.store(t, map[string]interface{}{"url": "https://go.dev", "category": "Dev"})
	e.store(t, map[string]interface{}{"url": "https://go.dev", "category": "Reading"})
	tool := NewDeleteBookmarkTool(e.repo)

	text := callErr(t, tool, map[string]interface{}{"url": "https://go.dev"}, StatusAmbiguous)
	if !strings.Contains(text, "Dev, Reading") {
		t.Errorf("expected candidate categories, got: %s", text)
	}

	call(t, tool, map[string]interface{}{"url": "https://go.dev", "category": "Dev"})

	// Now unique, so no category is needed.
	call(t, tool, map[string]interface{}{"url": "https://go.dev"})

	callErr(t, tool, map[string]interface{}{"url": "https://go.dev"}, StatusNotFound)
}

func TestCategoryTools(t *testing.T) {
	e := newEnv(t)
	e.store(t, map[string]interface{}{"url": "https://a.com", "category": "Research"})
	e.store(t, map[string]interface{}{"url": "https://b.com", "category": "Research"})
	e.store(t, map[string]interface{}{"url": "https://c.com", "category": "Archive"})
	rename := NewRenameCategoryTool(e.repo)
	del := NewDeleteCategoryTool(e.repo)

	callErr(t, rename, map[string]interface{}{"old_name": "Research", "new_name": "Archive"}, StatusConflict)
	callErr(t, rename, map[string]interface{}{"old_name": "Missing", "new_name": "Other"}, StatusNotFound)
	callErr(t, rename, map[string]interface{}{"old_name": "Research", "new_name": " "}, StatusInvalidInput)

	text := call(t, rename, map[string]interface{}{"old_name": "Research", "new_name": "Deep Research"})
	if !strings.Contains(text, "(2 bookmarks)") {
		t.Errorf("expected 2 moved, got: %s", text)
	}

	text = call(t, del, map[string]interface{}{"category": "Deep Research"})
	if !strings.Contains(text, "its 2 bookmarks") {
		t.Errorf("expected 2 deleted, got: %s", text)
	}
	callErr(t, del, map[string]interface{}{"category": "Deep Research"}, StatusNotFound)

	store, _ := e.repo.Snapshot(context.Background())
	if len(store.Bookmarks) != 1 || store.Bookmarks[0].Category != "Archive" {
		t.Errorf("expected only Archive left, got %+v", store.Bookmarks)
	}
}

// ─── browser ─────────────────────────────────────────────────────────────────

func TestListBrowserBookmarks(t *testing.T) {
	e := newEnv(t)
	writeFile(t, filepath.Join(e.dir, "chrome", "Broken", "Bookmarks"), "{not json")

	text := call(t, NewListBrowserTool(e.source), map[string]interface{}{"folder": "Work"})
	if !strings.Contains(text, "Found 3 browser bookmarks") {
		t.Errorf("expected 3 bookmarks under Work, got: %s", text)
	}
	if !strings.Contains(text, "folder: bookmark_bar/Work/AWS") {
		t.Errorf("expected nested folder label, got: %s", text)
	}
	if !strings.Contains(text, "1 profiles could not be read") {
		t.Errorf("expected warning for broken profile, got: %s", text)
	}
}

func TestListBrowserBookmarks_NoBrowser(t *testing.T) {
	source := BrowserSource{
		Aggregator: browser.NewAggregator(logging.Discard()),
		Locations:  []browser.Location{{Browser: "Chrome", Dir: filepath.Join(t.TempDir(), "absent")}},
	}

	text := call(t, NewListBrowserTool(source), nil)
	if !strings.Contains(text, "No browser bookmarks found") {
		t.Errorf("expected empty result, got: %s", text)
	}
}

func TestImportBrowserBookmark_Single(t *testing.T) {
	e := newEnv(t)
	tool := NewImportBrowserTool(e.reconciler, e.source, "Read Later")

	text := call(t, tool, map[string]interface{}{
		"url":      "https://JIRA.example.com",
		"category": "Work",
		"tags":     []interface{}{"tickets"},
	})
	if !strings.Contains(text, "Stored new bookmark") {
		t.Errorf("expected insert, got: %s", text)
	}

	store, _ := e.repo.Snapshot(context.Background())
	b := store.Get("Work", "https://jira.example.com")
	if b == nil {
		t.Fatal("expected bookmark stored under normalized url")
	}
	if b.Title != "Jira" {
		t.Errorf("expected title from browser, got %q", b.Title)
	}
	if b.CreatedAt.Year() != 2022 {
		t.Errorf("expected browser add date, got %v", b.CreatedAt)
	}

	// Re-import without tags keeps the curated ones.
	text = call(t, tool, map[string]interface{}{"url": "https://jira.example.com", "category": "Work"})
	if !strings.Contains(text, "already up to date") {
		t.Errorf("expected unchanged on re-import, got: %s", text)
	}
	store, _ = e.repo.Snapshot(context.Background())
	if got := store.Get("Work", "https://jira.example.com").Tags; len(got) != 1 || got[0] != "tickets" {
		t.Errorf("expected tags preserved, got %v", got)
	}
}

func TestImportBrowserBookmark_Folder(t *testing.T) {
	e := newEnv(t)
	tool := NewImportBrowserTool(e.reconciler, e.source, "Read Later")

	text := call(t, tool, map[string]interface{}{"folder": "Work", "category": "Work", "tags": "work"})
	if !strings.Contains(text, "3 browser bookmarks") || !strings.Contains(text, "2 new") || !strings.Contains(text, "1 rejected") {
		t.Errorf("unexpected summary: %s", text)
	}

	text = call(t, tool, map[string]interface{}{"folder": "Work", "category": "Work"})
	if !strings.Contains(text, "2 unchanged") {
		t.Errorf("expected idempotent re-import, got: %s", text)
	}

	callErr(t, tool, map[string]interface{}{"category": "Work"}, StatusInvalidInput)
}

// ─── status mapping ──────────────────────────────────────────────────────────

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&model.ValidationError{Field: "url", Message: "bad"}, StatusInvalidInput},
		{fmt.Errorf("wrapped: %w", model.ErrNotFound), StatusNotFound},
		{&model.AmbiguousError{URL: "u", Categories: []string{"a", "b"}}, StatusAmbiguous},
		{model.ErrConflict, StatusConflict},
		{fmt.Errorf("%w: x", extract.ErrExtractionFailed), StatusExtractionFailed},
		{errors.New("disk full"), StatusError},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

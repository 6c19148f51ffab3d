package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/linkvault/internal/extract"
	"github.com/nikbrunner/linkvault/internal/extract/mocks"
	"github.com/nikbrunner/linkvault/internal/logging"
	"github.com/nikbrunner/linkvault/internal/model"
	"github.com/nikbrunner/linkvault/internal/reconcile"
	"github.com/nikbrunner/linkvault/internal/repository"
	"github.com/nikbrunner/linkvault/internal/storage"
)

func intPtr(n int) *int { return &n }

func newRouter(t *testing.T, ex extract.Extractor) http.Handler {
	t.Helper()
	repo, err := repository.Open(storage.Options{
		Backend:  storage.BackendJSON,
		JSONPath: filepath.Join(t.TempDir(), "bookmarks.json"),
	}, logging.Discard())
	assert.NilError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return NewRouter(&Deps{
		Repo:            repo,
		Reconciler:      reconcile.New(repo, logging.Discard()),
		Extractor:       ex,
		DefaultCategory: "Read Later",
		Logger:          logging.Discard(),
	})
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		assert.NilError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func store(t *testing.T, h http.Handler, req StoreRequest) StoreResponse {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/bookmarks", req)
	assert.Assert(t, rec.Code == http.StatusCreated || rec.Code == http.StatusOK, rec.Body.String())
	return decode[StoreResponse](t, rec)
}

func TestStoreBookmark(t *testing.T) {
	h := newRouter(t, nil)

	rec := do(t, h, http.MethodPost, "/api/bookmarks", StoreRequest{
		URL: "https://x.org/a", Title: "A", Category: "Machine Learning", Tags: []string{"ai"}, Importance: intPtr(4),
	})
	assert.Equal(t, rec.Code, http.StatusCreated)
	assert.Equal(t, decode[StoreResponse](t, rec).Outcome, "inserted")

	notes := "reread"
	rec = do(t, h, http.MethodPost, "/api/bookmarks", StoreRequest{
		URL: "https://x.org/a", Category: "Machine Learning", Notes: &notes,
	})
	assert.Equal(t, rec.Code, http.StatusOK)
	resp := decode[StoreResponse](t, rec)
	assert.Equal(t, resp.Outcome, "updated")
	assert.DeepEqual(t, resp.Bookmark.Tags, []string{"ai"})
	assert.Equal(t, resp.Bookmark.Importance, 4)
	assert.Equal(t, resp.Bookmark.NotesText(), "reread")

	resp = store(t, h, StoreRequest{URL: "https://x.org/a", Category: "Machine Learning", Notes: &notes})
	assert.Equal(t, resp.Outcome, "unchanged")
}

func TestStoreBookmark_DefaultCategory(t *testing.T) {
	h := newRouter(t, nil)

	resp := store(t, h, StoreRequest{URL: "example.com"})
	assert.Equal(t, resp.Bookmark.Category, "Read Later")
	assert.Equal(t, resp.Bookmark.URL, "https://example.com")
}

func TestStoreBookmark_FetchFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ex := mocks.NewMockExtractor(ctrl)
	ex.EXPECT().
		Extract(gomock.Any(), "https://down.example.com").
		Return(extract.Result{}, fmt.Errorf("%w: connection refused", extract.ErrExtractionFailed))
	h := newRouter(t, ex)

	resp := store(t, h, StoreRequest{URL: "https://down.example.com", Fetch: true})
	assert.Equal(t, resp.Outcome, "inserted")
	assert.Assert(t, is.Contains(resp.ExtractionError, "connection refused"))
}

func TestErrors(t *testing.T) {
	h := newRouter(t, nil)
	store(t, h, StoreRequest{URL: "https://go.dev", Category: "Dev"})
	store(t, h, StoreRequest{URL: "https://go.dev", Category: "Reading"})

	tests := []struct {
		name       string
		method     string
		target     string
		body       any
		wantCode   int
		wantStatus string
	}{
		{"bad importance", http.MethodPost, "/api/bookmarks", StoreRequest{URL: "https://a.com", Importance: intPtr(9)}, http.StatusBadRequest, "invalid_input"},
		{"zero importance", http.MethodPost, "/api/bookmarks", map[string]any{"url": "https://a.com", "importance": 0}, http.StatusBadRequest, "invalid_input"},
		{"bad body", http.MethodPost, "/api/bookmarks", "not an object", http.StatusBadRequest, "invalid_input"},
		{"missing url", http.MethodGet, "/api/bookmarks", nil, http.StatusBadRequest, "invalid_input"},
		{"delete absent", http.MethodDelete, "/api/bookmarks?url=https://nope.com", nil, http.StatusNotFound, "not_found"},
		{"delete ambiguous", http.MethodDelete, "/api/bookmarks?url=https://go.dev", nil, http.StatusConflict, "ambiguous_reference"},
		{"rename conflict", http.MethodPatch, "/api/categories/Dev", RenameRequest{Name: "Reading"}, http.StatusConflict, "conflict"},
		{"rename absent", http.MethodPatch, "/api/categories/Nope", RenameRequest{Name: "Other"}, http.StatusNotFound, "not_found"},
		{"delete category absent", http.MethodDelete, "/api/categories/Nope", nil, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, rec.Code, tt.wantCode, rec.Body.String())
			assert.Equal(t, decode[ErrorResponse](t, rec).Status, tt.wantStatus)
		})
	}

	rec := do(t, h, http.MethodDelete, "/api/bookmarks?url=https://go.dev", nil)
	assert.DeepEqual(t, decode[ErrorResponse](t, rec).Categories, []string{"Dev", "Reading"})
}

func TestFindBookmark(t *testing.T) {
	h := newRouter(t, nil)
	store(t, h, StoreRequest{URL: "https://go.dev", Category: "Dev"})
	store(t, h, StoreRequest{URL: "https://go.dev", Category: "Reading"})

	find := func(query string) LookupResponse {
		rec := do(t, h, http.MethodGet, "/api/bookmarks?"+query, nil)
		assert.Equal(t, rec.Code, http.StatusOK)
		return decode[LookupResponse](t, rec)
	}

	got := find("url=" + url.QueryEscape("https://go.dev"))
	assert.Equal(t, got.Result, "ambiguous")
	assert.DeepEqual(t, got.Categories, []string{"Dev", "Reading"})

	got = find("url=go.dev&category=Dev")
	assert.Equal(t, got.Result, "unique")
	assert.Equal(t, got.Bookmarks[0].Category, "Dev")

	got = find("url=https://absent.com")
	assert.Equal(t, got.Result, "none")
	assert.Assert(t, is.Len(got.Bookmarks, 0))
}

func TestQueries(t *testing.T) {
	h := newRouter(t, nil)
	store(t, h, StoreRequest{URL: "https://go.dev", Title: "Go", Category: "Dev", Tags: []string{"lang"}})
	store(t, h, StoreRequest{URL: "https://rust-lang.org", Title: "Rust", Category: "Dev", Tags: []string{"lang"}, Importance: intPtr(5)})
	store(t, h, StoreRequest{URL: "https://news.ycombinator.com", Title: "HN", Category: "Reading"})

	rec := do(t, h, http.MethodGet, "/api/categories", nil)
	assert.DeepEqual(t, decode[[]model.CategoryCount](t, rec), []model.CategoryCount{
		{Name: "Dev", Count: 2},
		{Name: "Reading", Count: 1},
	})

	rec = do(t, h, http.MethodGet, "/api/categories/Dev", nil)
	dev := decode[[]model.Bookmark](t, rec)
	assert.Assert(t, is.Len(dev, 2))
	assert.Equal(t, dev[0].URL, "https://rust-lang.org", "most important first")

	rec = do(t, h, http.MethodGet, "/api/categories/Empty", nil)
	assert.Equal(t, rec.Body.String(), "[]\n")

	rec = do(t, h, http.MethodGet, "/api/tags", nil)
	assert.DeepEqual(t, decode[[]model.TagCount](t, rec), []model.TagCount{{Tag: "lang", Count: 2}})

	rec = do(t, h, http.MethodGet, "/api/tags/LANG", nil)
	assert.Assert(t, is.Len(decode[[]model.Bookmark](t, rec), 2))

	rec = do(t, h, http.MethodGet, "/api/search?q=ycombinator", nil)
	hits := decode[[]model.Bookmark](t, rec)
	assert.Assert(t, is.Len(hits, 1))
	assert.Equal(t, hits[0].Title, "HN")

	rec = do(t, h, http.MethodGet, "/api/search?q=", nil)
	assert.Equal(t, rec.Body.String(), "[]\n")
}

func TestCategoryLifecycle(t *testing.T) {
	h := newRouter(t, nil)
	store(t, h, StoreRequest{URL: "https://a.com", Category: "Research"})
	store(t, h, StoreRequest{URL: "https://b.com", Category: "Research"})

	rec := do(t, h, http.MethodPatch, "/api/categories/Research", RenameRequest{Name: "Deep Research"})
	assert.Equal(t, rec.Code, http.StatusOK, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/categories/Research", nil)
	assert.Assert(t, is.Len(decode[[]model.Bookmark](t, rec), 0))

	rec = do(t, h, http.MethodGet, "/api/categories/Deep%20Research", nil)
	assert.Assert(t, is.Len(decode[[]model.Bookmark](t, rec), 2))

	rec = do(t, h, http.MethodDelete, "/api/categories/Deep%20Research", nil)
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, decode[map[string]int](t, rec)["deleted"], 2)
}

func TestDeleteBookmark(t *testing.T) {
	h := newRouter(t, nil)
	store(t, h, StoreRequest{URL: "https://go.dev", Category: "Dev"})

	rec := do(t, h, http.MethodDelete, "/api/bookmarks?url=go.dev", nil)
	assert.Equal(t, rec.Code, http.StatusOK, rec.Body.String())
	assert.Equal(t, decode[model.Bookmark](t, rec).Category, "Dev")
}

func TestHealthz(t *testing.T) {
	rec := do(t, newRouter(t, nil), http.MethodGet, "/healthz", nil)
	assert.Equal(t, rec.Code, http.StatusOK)
}

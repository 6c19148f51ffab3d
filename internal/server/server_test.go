package server

import (
	"testing"

	"github.com/nikbrunner/linkvault/internal/browser"
	"github.com/nikbrunner/linkvault/internal/tools"
)

func TestTools_Names(t *testing.T) {
	want := []string{
		"get_url_data",
		"store_url",
		"search_bookmarks",
		"list_categories",
		"list_bookmarks_by_category",
		"list_bookmarks_by_tag",
		"list_tags",
		"find_bookmark",
		"delete_bookmark",
		"rename_category",
		"delete_category",
		"list_browser_bookmarks",
		"import_browser_bookmark",
	}

	got := Tools(Deps{
		Browser:         tools.BrowserSource{Aggregator: browser.NewAggregator(nil)},
		DefaultCategory: "Read Later",
	})
	if len(got) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(got))
	}
	for i, tool := range got {
		if name := tool.Definition().Name; name != want[i] {
			t.Errorf("tool %d: got %q, want %q", i, name, want[i])
		}
	}
}

func TestNew(t *testing.T) {
	if s := New(Deps{DefaultCategory: "Read Later"}); s == nil {
		t.Fatal("expected server")
	}
}

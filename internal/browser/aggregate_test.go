package browser_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nikbrunner/linkvault/internal/browser"
	"github.com/nikbrunner/linkvault/internal/logging"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func profileJSON(urls ...string) string {
	children := ""
	for i, u := range urls {
		if i > 0 {
			children += ","
		}
		children += `{"type": "url", "name": "` + u + `", "url": "` + u + `"}`
	}
	return `{"roots": {"bookmark_bar": {"type": "folder", "name": "Bar", "children": [` + children + `]}}}`
}

func newAggregator(concurrency int) *browser.Aggregator {
	return &browser.Aggregator{Concurrency: concurrency, Logger: logging.Discard()}
}

func TestAggregate_CorruptProfileBecomesWarning(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "Default", profileJSON("https://a.com"))
	writeProfile(t, dir, "Profile 1", `{"roots": {"bookmark_bar": `)
	writeProfile(t, dir, "Profile 2", profileJSON("https://b.com"))

	got := newAggregator(2).Aggregate(context.Background(), browser.Request{
		Locations: []browser.Location{{Browser: "Chrome", Dir: dir}},
	})

	assert.Assert(t, is.Len(got.Profiles, 3))
	assert.Assert(t, is.Len(got.Warnings, 1))
	assert.Equal(t, got.Warnings[0].Profile, "Profile 1")
	assert.Assert(t, is.ErrorContains(got.Warnings[0], "invalid bookmarks file"))

	assert.Assert(t, is.Len(got.Bookmarks, 2))
	assert.Equal(t, got.Bookmarks[0].URL, "https://a.com")
	assert.Equal(t, got.Bookmarks[1].URL, "https://b.com")
}

func TestAggregate_OrderIsDiscoveryOrder(t *testing.T) {
	dir := t.TempDir()
	var want []string
	for i := 0; i < 12; i++ {
		name := "Profile " + string(rune('A'+i))
		url := "https://example.com/" + string(rune('a'+i))
		writeProfile(t, dir, name, profileJSON(url))
		want = append(want, url)
	}

	for _, concurrency := range []int{1, 3, 8} {
		got := newAggregator(concurrency).Aggregate(context.Background(), browser.Request{
			Locations: []browser.Location{{Browser: "Chrome", Dir: dir}},
		})

		var urls []string
		for _, b := range got.Bookmarks {
			urls = append(urls, b.URL)
		}
		assert.DeepEqual(t, urls, want)
	}
}

func TestAggregate_FilesAndDedupe(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "Default", profileJSON("https://a.com", "https://shared.com"))

	export := filepath.Join(t.TempDir(), "export.html")
	html := `<DL><p><DT><A HREF="https://shared.com">Shared</A><DT><A HREF="https://c.com">C</A></DL><p>`
	assert.NilError(t, os.WriteFile(export, []byte(html), 0644))

	req := browser.Request{
		Locations: []browser.Location{{Browser: "Chrome", Dir: dir}},
		Files:     []string{export},
	}

	all := newAggregator(2).Aggregate(context.Background(), req)
	assert.Assert(t, is.Len(all.Bookmarks, 4))

	req.Dedupe = true
	deduped := newAggregator(2).Aggregate(context.Background(), req)
	assert.Assert(t, is.Len(deduped.Bookmarks, 3))
	assert.Equal(t, deduped.Bookmarks[1].Profile, "Default")
	assert.Equal(t, deduped.Bookmarks[2].URL, "https://c.com")
}

func TestAggregate_MissingFileIsWarning(t *testing.T) {
	got := newAggregator(1).Aggregate(context.Background(), browser.Request{
		Files: []string{filepath.Join(t.TempDir(), "nope.html")},
	})

	assert.Assert(t, is.Len(got.Warnings, 1))
	assert.Assert(t, is.Len(got.Bookmarks, 0))
}

func TestAggregate_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "Default", profileJSON("https://a.com"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := newAggregator(1).Aggregate(ctx, browser.Request{
		Locations: []browser.Location{{Browser: "Chrome", Dir: dir}},
	})
	assert.Assert(t, is.Len(got.Warnings, 1))
	assert.Assert(t, is.Len(got.Bookmarks, 0))
}

func TestFilter(t *testing.T) {
	bookmarks := []browser.Bookmark{
		{URL: "https://console.aws.amazon.com", FolderPath: []string{"Work", "AWS"}, Root: browser.RootBookmarkBar},
		{URL: "https://aws-deep.com", FolderPath: []string{"Work", "AWS", "Billing"}, Root: browser.RootBookmarkBar},
		{URL: "https://jira.example.com", FolderPath: []string{"Work"}, Root: browser.RootBookmarkBar},
		{URL: "https://aws-lower.com", FolderPath: []string{"Work", "aws"}, Root: browser.RootBookmarkBar},
		{URL: "https://awsome.com", FolderPath: []string{"Work", "AWSome"}, Root: browser.RootBookmarkBar},
		{URL: "https://other.com", FolderPath: []string{"Work", "AWS"}, Root: browser.RootOther},
	}

	tests := []struct {
		name   string
		filter browser.Filter
		want   []string
	}{
		{
			name:   "segment prefix",
			filter: browser.Filter{Path: browser.ParsePath("Work/AWS")},
			want:   []string{"https://console.aws.amazon.com", "https://aws-deep.com", "https://other.com"},
		},
		{
			name:   "segment prefix with root",
			filter: browser.Filter{Path: browser.ParsePath("/Work/AWS/"), Root: browser.RootBookmarkBar},
			want:   []string{"https://console.aws.amazon.com", "https://aws-deep.com"},
		},
		{
			name:   "root only",
			filter: browser.Filter{Root: browser.RootOther},
			want:   []string{"https://other.com"},
		},
		{
			name:   "no match",
			filter: browser.Filter{Path: []string{"Personal"}},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []string{}
			for _, b := range browser.FilterBookmarks(bookmarks, tt.filter) {
				got = append(got, b.URL)
			}
			assert.DeepEqual(t, got, tt.want)
		})
	}
}

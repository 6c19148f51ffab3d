package extract_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nikbrunner/linkvault/internal/extract"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestParse_Fallbacks(t *testing.T) {
	tests := []struct {
		name            string
		html            string
		wantTitle       string
		wantDescription string
		wantKeywords    []string
	}{
		{
			name: "title and meta description",
			html: `<html><head><title>  The Go Blog </title>
				<meta name="description" content="Official blog of the Go project">
				<meta name="keywords" content="go, golang , blog,go"></head>
				<body><p>ignored paragraph</p></body></html>`,
			wantTitle:       "The Go Blog",
			wantDescription: "Official blog of the Go project",
			wantKeywords:    []string{"go", "golang", "blog"},
		},
		{
			name: "short title falls back to og:title",
			html: `<html><head><title>Hi</title>
				<meta property="og:title" content="A Proper Title">
				<meta property="og:description" content="Described through open graph"></head></html>`,
			wantTitle:       "A Proper Title",
			wantDescription: "Described through open graph",
			wantKeywords:    []string{},
		},
		{
			name:            "no title uses h1 and first paragraph",
			html:            `<html><body><h1>Heading Title</h1><p>First paragraph text here.</p><p>Second.</p></body></html>`,
			wantTitle:       "Heading Title",
			wantDescription: "First paragraph text here.",
			wantKeywords:    []string{},
		},
		{
			name:            "tag elements become keywords",
			html:            `<html><head><title>Tagged page</title></head><body><span class="tag">ml</span><a class="topic">AI</a></body></html>`,
			wantTitle:       "Tagged page",
			wantDescription: "",
			wantKeywords:    []string{"ml", "AI"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extract.Parse("https://example.com", strings.NewReader(tt.html))
			assert.NilError(t, err)
			assert.Equal(t, got.URL, "https://example.com")
			assert.Equal(t, got.Title, tt.wantTitle)
			assert.Equal(t, got.Description, tt.wantDescription)
			assert.DeepEqual(t, got.Keywords, tt.wantKeywords)
		})
	}
}

func TestParse_DescriptionTruncated(t *testing.T) {
	long := strings.Repeat("a", 500)
	got, err := extract.Parse("https://example.com", strings.NewReader("<p>"+long+"</p>"))
	assert.NilError(t, err)
	assert.Equal(t, len(got.Description), 200)
}

func TestParse_ContentPrefersMainContainer(t *testing.T) {
	html := `<html><body>
		<nav><p>navigation links that are long enough to count</p></nav>
		<article><h2>Intro</h2><p>Body text.</p><li>point</li></article>
	</body></html>`

	got, err := extract.Parse("https://example.com", strings.NewReader(html))
	assert.NilError(t, err)
	assert.Equal(t, got.Content, "Intro\n\nBody text.\n\npoint")
}

func TestHTTPExtractor_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a user agent")
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Served Page</title></head></html>`))
	}))
	defer srv.Close()

	e := extract.NewHTTPExtractor(5 * time.Second)
	got, err := e.Extract(context.Background(), srv.URL)

	assert.NilError(t, err)
	assert.Equal(t, got.Title, "Served Page")
	assert.Equal(t, got.URL, srv.URL)
}

func TestHTTPExtractor_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/slow":
			time.Sleep(200 * time.Millisecond)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name string
		url  string
	}{
		{name: "status 404", url: srv.URL + "/missing"},
		{name: "timeout", url: srv.URL + "/slow"},
		{name: "bad url", url: "://nope"},
		{name: "unreachable", url: "http://127.0.0.1:1"},
	}

	e := extract.NewHTTPExtractor(50 * time.Millisecond)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(context.Background(), tt.url)
			assert.Assert(t, errors.Is(err, extract.ErrExtractionFailed), "got %v", err)
		})
	}
}

func TestHTTPExtractor_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := extract.NewHTTPExtractor(time.Second).Extract(ctx, srv.URL)
	assert.Assert(t, is.ErrorContains(err, "extraction failed"))
}

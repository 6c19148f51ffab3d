//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_extractor.go -package=mocks github.com/nikbrunner/linkvault/internal/extract Extractor

// Package extract fetches web pages and pulls bookmark metadata out of them.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrExtractionFailed wraps every fetch or parse failure.
var ErrExtractionFailed = errors.New("extraction failed")

const (
	descriptionLimit = 200
	contentLimit     = 12000
	keywordLimit     = 10
	// Titles shorter than this are treated as placeholders.
	minTitleLength = 5
	// Descriptions shorter than this fall through to the next source.
	minDescriptionLength = 10
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Result is the metadata extracted from one page.
type Result struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"meta_description"`
	Content     string    `json:"main_content,omitempty"`
	Keywords    []string  `json:"keywords"`
	FetchedAt   time.Time `json:"timestamp"`
}

// Extractor fetches a URL and extracts its metadata.
type Extractor interface {
	Extract(ctx context.Context, url string) (Result, error)
}

// HTTPExtractor implements Extractor over HTTP.
type HTTPExtractor struct {
	client *http.Client
}

// NewHTTPExtractor creates an extractor whose requests time out after timeout.
func NewHTTPExtractor(timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{client: &http.Client{Timeout: timeout}}
}

// NewHTTPExtractorWithClient creates an extractor using client.
func NewHTTPExtractorWithClient(client *http.Client) *HTTPExtractor {
	return &HTTPExtractor{client: client}
}

// Extract fetches url and parses the response body.
func (e *HTTPExtractor) Extract(ctx context.Context, url string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("%w: %s returned %s", ErrExtractionFailed, url, resp.Status)
	}

	return Parse(url, resp.Body)
}

// Parse extracts metadata from an HTML document read from r.
func Parse(pageURL string, r io.Reader) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("%w: parse html: %v", ErrExtractionFailed, err)
	}

	return Result{
		URL:         pageURL,
		Title:       title(doc),
		Description: description(doc),
		Content:     content(doc),
		Keywords:    keywords(doc),
		FetchedAt:   time.Now().UTC(),
	}, nil
}

func meta(doc *goquery.Document, attr, value string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[%s=%q]`, attr, value)).First().Attr("content")
	return strings.TrimSpace(content)
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// title prefers <title>, then og:title, then the first <h1>.
func title(doc *goquery.Document) string {
	t := text(doc.Find("title").First())
	if len(t) < minTitleLength {
		if og := meta(doc, "property", "og:title"); og != "" {
			t = og
		}
	}
	if len(t) < minTitleLength {
		if h1 := text(doc.Find("h1").First()); h1 != "" {
			t = h1
		}
	}
	return t
}

// description prefers the description metas, then the first paragraph.
func description(doc *goquery.Document) string {
	var d string
	for _, attr := range []string{"name", "property"} {
		for _, value := range []string{"description", "og:description", "twitter:description"} {
			if v := meta(doc, attr, value); v != "" {
				d = v
				if len(d) > minDescriptionLength {
					return d
				}
			}
		}
	}

	if len(d) < minDescriptionLength {
		if p := text(doc.Find("p").First()); p != "" {
			d = truncate(p, descriptionLimit)
		}
	}
	return d
}

// content collects readable text from the main container, or from every
// substantial paragraph and heading when the page has none.
func content(doc *goquery.Document) string {
	var b strings.Builder

	container := doc.Find("main, article").First()
	if container.Length() == 0 {
		container = doc.Find("div.content, div.main, div.post, div.entry, div#content, div#main").First()
	}

	if container.Length() > 0 {
		container.Find("p, h1, h2, h3, h4, h5, h6, li").Each(func(_ int, s *goquery.Selection) {
			if t := text(s); t != "" {
				b.WriteString(t)
				b.WriteString("\n\n")
			}
		})
	} else {
		doc.Find("p, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
			if t := text(s); len(t) > 20 {
				b.WriteString(t)
				b.WriteString("\n\n")
			}
		})
	}

	return truncate(strings.TrimSpace(b.String()), contentLimit)
}

// keywords reads meta keywords, falling back to elements styled as tags.
func keywords(doc *goquery.Document) []string {
	var raw []string
	if kw := meta(doc, "name", "keywords"); kw != "" {
		raw = strings.Split(kw, ",")
	} else {
		doc.Find(".tag, .category, .topic, .label").Each(func(_ int, s *goquery.Selection) {
			raw = append(raw, text(s))
		})
	}

	seen := make(map[string]bool)
	out := []string{}
	for _, k := range raw {
		k = strings.TrimSpace(k)
		if k == "" || seen[strings.ToLower(k)] {
			continue
		}
		seen[strings.ToLower(k)] = true
		out = append(out, k)
		if len(out) == keywordLimit {
			break
		}
	}
	return out
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

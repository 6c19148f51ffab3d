package browser

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// DefaultConcurrency bounds parallel profile parsing.
const DefaultConcurrency = 4

// Filter selects bookmarks by folder. An empty Path keeps every folder; an
// empty Root keeps every root.
type Filter struct {
	Path []string
	Root string
}

// ParsePath splits a folder reference like "Work/AWS" into segments.
func ParsePath(s string) []string {
	var segments []string
	for _, seg := range strings.Split(s, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// Match reports whether b lies in the filtered folder or below it. Segments
// compare exactly and case-sensitively.
func (f Filter) Match(b Bookmark) bool {
	if f.Root != "" && b.Root != f.Root {
		return false
	}
	if len(f.Path) > len(b.FolderPath) {
		return false
	}
	return slices.Equal(f.Path, b.FolderPath[:len(f.Path)])
}

// FilterBookmarks keeps the bookmarks matching f, preserving order.
func FilterBookmarks(bookmarks []Bookmark, f Filter) []Bookmark {
	if len(f.Path) == 0 && f.Root == "" {
		return bookmarks
	}
	out := []Bookmark{}
	for _, b := range bookmarks {
		if f.Match(b) {
			out = append(out, b)
		}
	}
	return out
}

// Dedupe drops bookmarks whose URL was already seen, keeping the first.
func Dedupe(bookmarks []Bookmark) []Bookmark {
	seen := make(map[string]bool, len(bookmarks))
	out := make([]Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		if seen[b.URL] {
			continue
		}
		seen[b.URL] = true
		out = append(out, b)
	}
	return out
}

// Request describes what to aggregate.
type Request struct {
	// Locations are browser user-data directories to discover profiles in.
	Locations []Location
	// Files are bookmark files read in addition to discovered profiles.
	Files  []string
	Filter Filter
	Dedupe bool
}

// Aggregator reads many profiles concurrently.
type Aggregator struct {
	Concurrency int
	Logger      *slog.Logger
}

// NewAggregator creates an Aggregator with DefaultConcurrency.
func NewAggregator(logger *slog.Logger) *Aggregator {
	return &Aggregator{Concurrency: DefaultConcurrency, Logger: logger}
}

type parsed struct {
	bookmarks []Bookmark
	err       error
}

// Aggregate discovers and parses every profile in req. Profiles that fail to
// parse become warnings. Output order is discovery order regardless of which
// worker finishes first.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) Result {
	profiles := Discover(req.Locations)
	for _, f := range req.Files {
		profiles = append(profiles, FileProfile(f))
	}

	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := a.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]parsed, len(profiles))
	jobs := make(chan int, len(profiles))
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results[idx] = parsed{err: err}
					continue
				}
				bookmarks, err := ReadProfile(profiles[idx])
				results[idx] = parsed{bookmarks: bookmarks, err: err}
			}
		}()
	}

	for i := range profiles {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	result := Result{Bookmarks: []Bookmark{}, Profiles: profiles}
	for i, r := range results {
		if r.err != nil {
			w := Warning{Profile: profiles[i].Name, Path: profiles[i].Path, Err: r.err}
			logger.Warn("skipping bookmark source",
				"browser", profiles[i].Browser,
				"profile", w.Profile,
				"path", w.Path,
				"error", r.err,
			)
			result.Warnings = append(result.Warnings, w)
			continue
		}
		result.Bookmarks = append(result.Bookmarks, r.bookmarks...)
	}

	result.Bookmarks = FilterBookmarks(result.Bookmarks, req.Filter)
	if req.Dedupe {
		result.Bookmarks = Dedupe(result.Bookmarks)
	}

	logger.Debug("aggregated browser bookmarks",
		"profiles", len(profiles),
		"bookmarks", len(result.Bookmarks),
		"warnings", len(result.Warnings),
	)
	return result
}

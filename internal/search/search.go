// Package search answers read queries over a store snapshot.
package search

import (
	"sort"
	"strings"

	"github.com/nikbrunner/linkvault/internal/model"
	"github.com/sahilm/fuzzy"
)

// Engine evaluates queries against one snapshot. It never mutates the store.
type Engine struct {
	store *model.Store
	tags  model.TagIndex
}

// New builds an Engine and its tag index over store.
func New(store *model.Store) *Engine {
	return &Engine{store: store, tags: store.TagIndex()}
}

// LookupKind classifies the outcome of FindByURL.
type LookupKind int

const (
	LookupNone LookupKind = iota
	LookupUnique
	LookupAmbiguous
)

func (k LookupKind) String() string {
	switch k {
	case LookupUnique:
		return "unique"
	case LookupAmbiguous:
		return "ambiguous"
	default:
		return "none"
	}
}

// Lookup is the result of resolving a URL reference.
type Lookup struct {
	Kind      LookupKind
	Bookmarks []model.Bookmark
}

// Categories lists the categories of the matched bookmarks.
func (l Lookup) Categories() []string {
	out := make([]string, len(l.Bookmarks))
	for i, b := range l.Bookmarks {
		out[i] = b.Category
	}
	return out
}

// ListCategories returns every category with its count, sorted by name.
func (e *Engine) ListCategories() []model.CategoryCount {
	return e.store.Categories()
}

// ListByCategory returns the members of name, most important first.
// An absent category yields an empty result.
func (e *Engine) ListByCategory(name string) []model.Bookmark {
	result := e.store.GetBookmarksInCategory(name)
	sortByImportance(result)
	return result
}

// ListByTag returns every bookmark carrying tag, across categories.
func (e *Engine) ListByTag(tag string) []model.Bookmark {
	refs := e.tags[model.CleanTag(tag)]
	result := make([]model.Bookmark, 0, len(refs))
	for _, ref := range refs {
		if b := e.store.Get(ref.Category, ref.URL); b != nil {
			result = append(result, *b)
		}
	}
	sortByImportance(result)
	return result
}

// ListTags returns every tag with its count, sorted by tag.
func (e *Engine) ListTags() []model.TagCount {
	return e.tags.Counts()
}

// Search matches query case-insensitively as a substring of the URL, title,
// description or notes. Most recently updated bookmarks come first.
// A blank query matches nothing.
func (e *Engine) Search(query string) []model.Bookmark {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var result []model.Bookmark
	for _, b := range e.store.Bookmarks {
		if matches(b, q) {
			result = append(result, b)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.URL < b.URL
	})
	return result
}

func matches(b model.Bookmark, q string) bool {
	for _, field := range []string{b.URL, b.Title, b.Description, b.NotesText()} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// FindByURL resolves url, optionally restricted to category.
func (e *Engine) FindByURL(url, category string) Lookup {
	if category != "" {
		if b := e.store.Get(category, url); b != nil {
			return Lookup{Kind: LookupUnique, Bookmarks: []model.Bookmark{*b}}
		}
		return Lookup{Kind: LookupNone}
	}

	found := e.store.FindURL(url)
	switch len(found) {
	case 0:
		return Lookup{Kind: LookupNone}
	case 1:
		return Lookup{Kind: LookupUnique, Bookmarks: found}
	default:
		sort.Slice(found, func(i, j int) bool {
			return found[i].Category < found[j].Category
		})
		return Lookup{Kind: LookupAmbiguous, Bookmarks: found}
	}
}

// sortByImportance orders by importance desc, then updated desc, then URL
// and finally category so the result is deterministic.
func sortByImportance(bookmarks []model.Bookmark) {
	sort.SliceStable(bookmarks, func(i, j int) bool {
		a, b := bookmarks[i], bookmarks[j]
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if a.URL != b.URL {
			return a.URL < b.URL
		}
		return a.Category < b.Category
	})
}

// FuzzyResult represents a fuzzy search match.
type FuzzyResult struct {
	Bookmark       *model.Bookmark
	MatchedIndexes []int
	Score          int
}

// fuzzySource implements fuzzy.Source matching on title and URL.
type fuzzySource []*model.Bookmark

func (fs fuzzySource) String(i int) string {
	return fs[i].Title + " " + fs[i].URL
}

func (fs fuzzySource) Len() int {
	return len(fs)
}

// Fuzzy searches all bookmarks by title and URL using fuzzy matching.
// Returns results sorted by match score (best first).
func (e *Engine) Fuzzy(query string) []FuzzyResult {
	if query == "" {
		return nil
	}

	// Build slice of bookmark pointers
	bookmarks := make(fuzzySource, len(e.store.Bookmarks))
	for i := range e.store.Bookmarks {
		bookmarks[i] = &e.store.Bookmarks[i]
	}

	matches := fuzzy.FindFrom(query, bookmarks)

	results := make([]FuzzyResult, len(matches))
	for i, m := range matches {
		results[i] = FuzzyResult{
			Bookmark:       bookmarks[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}

package model

import (
	"slices"
	"sort"
	"strings"
	"time"
)

// Store holds every bookmark. Categories are implicit: a category exists
// while at least one bookmark names it.
type Store struct {
	Bookmarks []Bookmark `json:"bookmarks"`
}

// CategoryCount is a category name with its bookmark count.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NewStore creates an empty Store with initialized slices.
func NewStore() *Store {
	return &Store{
		Bookmarks: []Bookmark{},
	}
}

// CleanCategory trims a category name and rejects blank ones.
func CleanCategory(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "category", Message: "must not be empty"}
	}
	return name, nil
}

// Get finds the bookmark at (category, url), returns nil if not found.
func (s *Store) Get(category, url string) *Bookmark {
	if i := s.indexOf(category, url); i >= 0 {
		return &s.Bookmarks[i]
	}
	return nil
}

// FindURL returns every bookmark with the given URL, in store order.
func (s *Store) FindURL(url string) []Bookmark {
	var result []Bookmark
	for _, b := range s.Bookmarks {
		if b.URL == url {
			result = append(result, b)
		}
	}
	return result
}

// GetBookmarksInCategory returns bookmarks in the given category.
func (s *Store) GetBookmarksInCategory(category string) []Bookmark {
	var result []Bookmark
	for _, b := range s.Bookmarks {
		if b.Category == category {
			result = append(result, b)
		}
	}
	return result
}

// HasCategory reports whether any bookmark belongs to category.
func (s *Store) HasCategory(category string) bool {
	for _, b := range s.Bookmarks {
		if b.Category == category {
			return true
		}
	}
	return false
}

// Put inserts b or replaces the bookmark already stored at (category, url).
// A replaced bookmark keeps its ID, CreatedAt and VisitedAt.
// Returns true when a new record was created.
func (s *Store) Put(b Bookmark) (bool, error) {
	if err := b.Validate(); err != nil {
		return false, err
	}

	if b.Tags == nil {
		b.Tags = []string{}
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}

	if i := s.indexOf(b.Category, b.URL); i >= 0 {
		existing := s.Bookmarks[i]
		b.ID = existing.ID
		b.CreatedAt = existing.CreatedAt
		if b.VisitedAt == nil {
			b.VisitedAt = existing.VisitedAt
		}
		s.Bookmarks[i] = b
		return false, nil
	}

	if b.ID == "" {
		b.ID = generateUUID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = b.UpdatedAt
	}
	s.Bookmarks = append(s.Bookmarks, b)
	return true, nil
}

// Delete removes the bookmark with url. An empty category means "wherever it
// is", which fails with *AmbiguousError when the URL is in several categories.
func (s *Store) Delete(url, category string) (Bookmark, error) {
	if category == "" {
		matches := s.FindURL(url)
		switch len(matches) {
		case 0:
			return Bookmark{}, ErrNotFound
		case 1:
			category = matches[0].Category
		default:
			categories := make([]string, len(matches))
			for i, m := range matches {
				categories[i] = m.Category
			}
			sort.Strings(categories)
			return Bookmark{}, &AmbiguousError{URL: url, Categories: categories}
		}
	}

	i := s.indexOf(category, url)
	if i < 0 {
		return Bookmark{}, ErrNotFound
	}
	removed := s.Bookmarks[i]
	s.Bookmarks = slices.Delete(s.Bookmarks, i, i+1)
	return removed, nil
}

// RenameCategory moves every bookmark of oldName to newName.
// Renaming onto a different populated category is a conflict, never a merge.
func (s *Store) RenameCategory(oldName, newName string) (int, error) {
	newName, err := CleanCategory(newName)
	if err != nil {
		return 0, err
	}
	if !s.HasCategory(oldName) {
		return 0, ErrNotFound
	}
	if oldName == newName {
		return 0, nil
	}
	if s.HasCategory(newName) {
		return 0, ErrConflict
	}

	now := time.Now().UTC()
	moved := 0
	for i := range s.Bookmarks {
		if s.Bookmarks[i].Category == oldName {
			s.Bookmarks[i].Category = newName
			s.Bookmarks[i].UpdatedAt = now
			moved++
		}
	}
	return moved, nil
}

// DeleteCategory removes every bookmark in the category.
func (s *Store) DeleteCategory(name string) (int, error) {
	before := len(s.Bookmarks)
	s.Bookmarks = slices.DeleteFunc(s.Bookmarks, func(b Bookmark) bool {
		return b.Category == name
	})
	removed := before - len(s.Bookmarks)
	if removed == 0 {
		return 0, ErrNotFound
	}
	return removed, nil
}

// MarkVisited stamps VisitedAt on the bookmark at (category, url).
func (s *Store) MarkVisited(category, url string, at time.Time) error {
	b := s.Get(category, url)
	if b == nil {
		return ErrNotFound
	}
	at = at.UTC()
	b.VisitedAt = &at
	return nil
}

// Categories returns every category with its count, sorted by name.
func (s *Store) Categories() []CategoryCount {
	counts := make(map[string]int)
	for _, b := range s.Bookmarks {
		counts[b.Category]++
	}

	result := make([]CategoryCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, CategoryCount{Name: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// TagIndex builds the derived tag index for the current bookmarks.
func (s *Store) TagIndex() TagIndex {
	return BuildTagIndex(s.Bookmarks)
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	c := &Store{Bookmarks: make([]Bookmark, len(s.Bookmarks))}
	for i, b := range s.Bookmarks {
		c.Bookmarks[i] = b.Clone()
	}
	return c
}

func (s *Store) indexOf(category, url string) int {
	for i := range s.Bookmarks {
		if s.Bookmarks[i].Category == category && s.Bookmarks[i].URL == url {
			return i
		}
	}
	return -1
}

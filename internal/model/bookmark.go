package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	// MinImportance and MaxImportance bound the importance score.
	MinImportance = 1
	MaxImportance = 5
	// DefaultImportance is used when a source does not supply one.
	DefaultImportance = 3
)

// Bookmark represents a saved URL with metadata.
type Bookmark struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	Description string     `json:"description"`
	Notes       *string    `json:"notes,omitempty"` // nil = no notes, distinct from ""
	Importance  int        `json:"importance"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	VisitedAt   *time.Time `json:"visited_at,omitempty"` // nil = never opened
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	URL         string
	Title       string
	Category    string
	Tags        []string
	Description string
	Notes       *string
	Importance  int
	CreatedAt   time.Time
}

// NewBookmark creates a Bookmark with generated UUID and timestamps.
// A zero CreatedAt means now; a zero Importance means DefaultImportance.
func NewBookmark(params NewBookmarkParams) Bookmark {
	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}

	now := time.Now().UTC()
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	importance := params.Importance
	if importance == 0 {
		importance = DefaultImportance
	}

	return Bookmark{
		ID:          generateUUID(),
		URL:         params.URL,
		Title:       params.Title,
		Category:    params.Category,
		Tags:        tags,
		Description: params.Description,
		Notes:       params.Notes,
		Importance:  importance,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}
}

// Validate checks the invariants every stored bookmark must satisfy.
func (b Bookmark) Validate() error {
	if b.URL == "" {
		return &ValidationError{Field: "url", Message: "must not be empty"}
	}
	category, err := CleanCategory(b.Category)
	if err != nil {
		return err
	}
	if category != b.Category {
		return &ValidationError{Field: "category", Message: "must not have surrounding whitespace"}
	}
	if b.Title == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if err := ValidateImportance(b.Importance); err != nil {
		return err
	}
	seen := make(map[string]bool, len(b.Tags))
	for _, tag := range b.Tags {
		clean := CleanTag(tag)
		if clean == "" {
			return &ValidationError{Field: "tags", Message: "must not contain empty tags"}
		}
		if seen[clean] {
			return &ValidationError{Field: "tags", Message: fmt.Sprintf("duplicate tag %q", tag)}
		}
		seen[clean] = true
	}
	return nil
}

// ValidateImportance rejects scores outside [MinImportance, MaxImportance].
func ValidateImportance(importance int) error {
	if importance < MinImportance || importance > MaxImportance {
		return &ValidationError{
			Field:   "importance",
			Message: "must be between 1 and 5",
		}
	}
	return nil
}

// HasTag reports whether the bookmark carries tag.
func (b Bookmark) HasTag(tag string) bool {
	return slices.Contains(b.Tags, tag)
}

// NotesText returns the notes or "" when absent.
func (b Bookmark) NotesText() string {
	if b.Notes == nil {
		return ""
	}
	return *b.Notes
}

// Clone returns a deep copy of the bookmark.
func (b Bookmark) Clone() Bookmark {
	c := b
	c.Tags = slices.Clone(b.Tags)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if b.Notes != nil {
		notes := *b.Notes
		c.Notes = &notes
	}
	if b.VisitedAt != nil {
		visited := *b.VisitedAt
		c.VisitedAt = &visited
	}
	return c
}

// Equal reports whether two bookmarks carry the same user-visible content.
// IDs and timestamps are ignored.
func (b Bookmark) Equal(o Bookmark) bool {
	if b.URL != o.URL || b.Title != o.Title || b.Category != o.Category ||
		b.Description != o.Description || b.Importance != o.Importance {
		return false
	}
	if (b.Notes == nil) != (o.Notes == nil) {
		return false
	}
	if b.Notes != nil && *b.Notes != *o.Notes {
		return false
	}
	return slices.Equal(b.Tags, o.Tags)
}

// generateUUID creates a new UUID string.
func generateUUID() string {
	return uuid.New().String()
}

package model

import (
	"sort"
	"strings"
)

// Ref identifies a bookmark by its natural key.
type Ref struct {
	Category string `json:"category"`
	URL      string `json:"url"`
}

// TagIndex maps a tag to the bookmarks carrying it. It is always derived
// from the bookmark set and never persisted.
type TagIndex map[string][]Ref

// TagCount is a tag with the number of bookmarks carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// CleanTag returns the canonical form of a tag: trimmed and lower-cased.
func CleanTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// BuildTagIndex derives the tag index from bookmarks, preserving their order.
func BuildTagIndex(bookmarks []Bookmark) TagIndex {
	ix := make(TagIndex)
	for _, b := range bookmarks {
		ref := Ref{Category: b.Category, URL: b.URL}
		seen := make(map[string]bool, len(b.Tags))
		for _, tag := range b.Tags {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			ix[tag] = append(ix[tag], ref)
		}
	}
	return ix
}

// Counts returns every tag with its count, sorted by tag.
func (ix TagIndex) Counts() []TagCount {
	result := make([]TagCount, 0, len(ix))
	for tag, refs := range ix {
		result = append(result, TagCount{Tag: tag, Count: len(refs)})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Tag < result[j].Tag
	})
	return result
}

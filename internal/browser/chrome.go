package browser

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"
)

// chromeEpochOffset is the number of microseconds between 1601-01-01, the
// Chromium timestamp epoch, and the Unix epoch.
const chromeEpochOffset = 11644473600 * 1_000_000

type chromeFile struct {
	Roots map[string]json.RawMessage `json:"roots"`
}

type chromeNode struct {
	Type      string       `json:"type"`
	Name      string       `json:"name"`
	URL       string       `json:"url"`
	DateAdded string       `json:"date_added"`
	Children  []chromeNode `json:"children"`
}

var rootOrder = map[string]int{
	RootBookmarkBar: 0,
	RootOther:       1,
	RootSynced:      2,
}

// ParseChrome reads a Chromium Bookmarks JSON file. Bookmarks are returned
// root by root (bar, other, synced) in document order. Folder paths exclude
// the root container.
func ParseChrome(r io.Reader, p Profile) ([]Bookmark, error) {
	var file chromeFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("invalid bookmarks file: %w", err)
	}
	if file.Roots == nil {
		return nil, fmt.Errorf("invalid bookmarks file: no roots")
	}

	roots := make([]string, 0, len(file.Roots))
	for name := range file.Roots {
		roots = append(roots, name)
	}
	sort.Slice(roots, func(i, j int) bool {
		oi, iok := rootOrder[roots[i]]
		oj, jok := rootOrder[roots[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return roots[i] < roots[j]
		}
	})

	bookmarks := []Bookmark{}
	for _, root := range roots {
		var node chromeNode
		// Some versions keep scalar bookkeeping values next to the roots.
		if err := json.Unmarshal(file.Roots[root], &node); err != nil {
			continue
		}
		for _, child := range node.Children {
			bookmarks = walkChrome(child, nil, root, p, bookmarks)
		}
	}
	return bookmarks, nil
}

func walkChrome(n chromeNode, path []string, root string, p Profile, out []Bookmark) []Bookmark {
	switch n.Type {
	case "url":
		if n.URL == "" {
			return out
		}
		out = append(out, Bookmark{
			URL:        n.URL,
			Title:      n.Name,
			FolderPath: append([]string{}, path...),
			Profile:    p.Name,
			Browser:    p.Browser,
			Root:       root,
			AddedAt:    chromeTime(n.DateAdded),
		})
	case "folder":
		folder := append(append([]string{}, path...), n.Name)
		for _, child := range n.Children {
			out = walkChrome(child, folder, root, p, out)
		}
	}
	return out
}

// chromeTime converts a Chromium timestamp (microseconds since 1601) to UTC.
func chromeTime(s string) time.Time {
	us, err := strconv.ParseInt(s, 10, 64)
	if err != nil || us <= 0 {
		return time.Time{}
	}
	return time.UnixMicro(us - chromeEpochOffset).UTC()
}

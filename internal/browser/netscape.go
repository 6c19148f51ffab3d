package browser

import (
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// pendingFolder is an H3 waiting for the DL that holds its contents.
type pendingFolder struct {
	name string
	root bool // toolbar container, not part of the folder path
}

// ParseNetscapeHTML parses a Netscape bookmark HTML export. Folder paths
// follow the H3/DL nesting; a folder marked PERSONAL_TOOLBAR_FOLDER is the
// bookmark bar container and is reported as Root instead.
func ParseNetscapeHTML(r io.Reader, p Profile) ([]Bookmark, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	bookmarks := []Bookmark{}

	// Track current folder stack for hierarchy
	var stack []pendingFolder
	var pending *pendingFolder

	currentPath := func() (string, []string) {
		root := RootFile
		path := []string{}
		for _, f := range stack {
			if f.root {
				root = RootBookmarkBar
				continue
			}
			path = append(path, f.name)
		}
		return root, path
	}

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				// Folder definition - will be pushed when we see the next DL
				if name := getTextContent(n); name != "" {
					pending = &pendingFolder{
						name: name,
						root: strings.EqualFold(getAttr(n, "personal_toolbar_folder"), "true"),
					}
				}
				return

			case "a":
				href := getAttr(n, "href")
				if href == "" {
					// Skip bookmarks without URL
					return
				}

				root, path := currentPath()
				b := Bookmark{
					URL:        href,
					Title:      getTextContent(n),
					FolderPath: path,
					Profile:    p.Name,
					Browser:    p.Browser,
					Root:       root,
				}
				if addDate := getAttr(n, "add_date"); addDate != "" {
					if ts, err := strconv.ParseInt(addDate, 10, 64); err == nil {
						b.AddedAt = time.Unix(ts, 0).UTC()
					}
				}
				bookmarks = append(bookmarks, b)
				return

			case "dl":
				pushed := false
				if pending != nil {
					stack = append(stack, *pending)
					pending = nil
					pushed = true
				}

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				if pushed {
					stack = stack[:len(stack)-1]
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return bookmarks, nil
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}

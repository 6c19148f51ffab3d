package exporter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/linkvault/internal/model"
	"github.com/nikbrunner/linkvault/internal/search"
)

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/linkvault-export-YYYY-MM-DD.html
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("linkvault-export-%s.html", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// ExportHTML exports the store to Netscape bookmark HTML format. Each
// category becomes a folder; tags and descriptions ride along as the TAGS
// attribute and a DD entry.
func ExportHTML(store *model.Store) string {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	engine := search.New(store)
	for _, category := range engine.ListCategories() {
		writeCategory(&b, category.Name, engine.ListByCategory(category.Name))
	}

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String()
}

// WriteFile exports store to path, creating the directory if needed.
func WriteFile(path string, store *model.Store) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(ExportHTML(store)), 0644)
}

// writeCategory writes one category folder and its bookmarks.
func writeCategory(b *strings.Builder, name string, bookmarks []model.Bookmark) {
	const prefix = "    "

	fmt.Fprintf(b, "%s<DT><H3>%s</H3>\n", prefix, html.EscapeString(name))
	fmt.Fprintf(b, "%s<DL><p>\n", prefix)

	for _, bookmark := range bookmarks {
		fmt.Fprintf(b,
			"%s%s<DT><A HREF=\"%s\" ADD_DATE=\"%d\" LAST_MODIFIED=\"%d\"",
			prefix, prefix,
			html.EscapeString(bookmark.URL),
			bookmark.CreatedAt.Unix(),
			bookmark.UpdatedAt.Unix(),
		)
		if len(bookmark.Tags) > 0 {
			fmt.Fprintf(b, " TAGS=\"%s\"", html.EscapeString(strings.Join(bookmark.Tags, ",")))
		}
		fmt.Fprintf(b, ">%s</A>\n", html.EscapeString(bookmark.Title))

		if bookmark.Description != "" {
			fmt.Fprintf(b, "%s%s<DD>%s\n", prefix, prefix, html.EscapeString(bookmark.Description))
		}
	}

	fmt.Fprintf(b, "%s</DL><p>\n", prefix)
}

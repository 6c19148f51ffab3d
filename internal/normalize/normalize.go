// Package normalize converts bookmark payloads from every source into the
// canonical model.Bookmark shape. It never touches storage.
package normalize

import (
	"net/url"
	"strings"

	"github.com/nikbrunner/linkvault/internal/browser"
	"github.com/nikbrunner/linkvault/internal/extract"
	"github.com/nikbrunner/linkvault/internal/model"
)

// Field identifies an optional bookmark field a source may supply.
type Field uint8

const (
	FieldTitle Field = 1 << iota
	FieldDescription
	FieldNotes
	FieldImportance
	FieldTags
)

// Input is a loosely typed bookmark payload. Zero values mean "not supplied",
// except Notes and Importance where nil means not supplied. An empty Notes
// clears; a supplied Importance is always validated.
type Input struct {
	URL         string
	Title       string
	Category    string
	Tags        []string
	Description string
	Notes       *string
	Importance  *int
}

// Draft is a normalized bookmark plus the set of optional fields its source
// actually supplied. Fields outside Specified hold defaults.
type Draft struct {
	Bookmark  model.Bookmark
	Specified Field
}

// Has reports whether the source supplied f.
func (d Draft) Has(f Field) bool {
	return d.Specified&f != 0
}

// Normalize validates in and fills defaults. The category is cleaned when
// present; callers that take the category separately may leave it empty.
func Normalize(in Input) (Draft, error) {
	u, err := URL(in.URL)
	if err != nil {
		return Draft{}, err
	}

	var d Draft
	b := model.Bookmark{
		URL:        u,
		Title:      u,
		Tags:       []string{},
		Importance: model.DefaultImportance,
	}

	if strings.TrimSpace(in.Category) != "" {
		if b.Category, err = Category(in.Category); err != nil {
			return Draft{}, err
		}
	}
	if title := strings.TrimSpace(in.Title); title != "" {
		b.Title = title
		d.Specified |= FieldTitle
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		b.Description = desc
		d.Specified |= FieldDescription
	}
	if in.Notes != nil {
		notes := strings.TrimSpace(*in.Notes)
		b.Notes = &notes
		d.Specified |= FieldNotes
	}
	if in.Importance != nil {
		if err := model.ValidateImportance(*in.Importance); err != nil {
			return Draft{}, err
		}
		b.Importance = *in.Importance
		d.Specified |= FieldImportance
	}
	if tags := Tags(in.Tags); len(tags) > 0 {
		b.Tags = tags
		d.Specified |= FieldTags
	}

	d.Bookmark = b
	return d, nil
}

// FromExtraction normalizes a content extraction result. Keywords become tags.
func FromExtraction(r extract.Result) (Draft, error) {
	return Normalize(Input{
		URL:         r.URL,
		Title:       r.Title,
		Description: r.Description,
		Tags:        r.Keywords,
	})
}

// FromBrowser normalizes a browser bookmark. The browser's add date becomes
// the creation time.
func FromBrowser(b browser.Bookmark) (Draft, error) {
	d, err := Normalize(Input{URL: b.URL, Title: b.Title})
	if err != nil {
		return Draft{}, err
	}
	if !b.AddedAt.IsZero() {
		d.Bookmark.CreatedAt = b.AddedAt.UTC()
	}
	return d, nil
}

// URL canonicalizes a bookmark URL. A bare host such as "example.com/x" gets
// an https scheme; the scheme and host are lower-cased.
func URL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &model.ValidationError{Field: "url", Message: "must not be empty"}
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", &model.ValidationError{Field: "url", Message: err.Error()}
	}
	if u.Scheme == "" || u.Host == "" {
		return "", &model.ValidationError{Field: "url", Message: "must have a scheme and host"}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String(), nil
}

// Tags trims, lower-cases and deduplicates tags, dropping empty ones.
// First-seen order is kept.
func Tags(raw []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(raw))
	for _, t := range raw {
		t = model.CleanTag(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Category trims a category name and rejects blank ones.
func Category(name string) (string, error) {
	return model.CleanCategory(name)
}

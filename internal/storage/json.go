package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nikbrunner/linkvault/internal/model"
)

// document is the on-disk JSON shape: category name → ordered records.
// Version 0 is the legacy shape without a schemaVersion marker. Keys this
// build does not know are kept in Extra and written back unchanged.
type document struct {
	SchemaVersion int                        `json:"schemaVersion"`
	Categories    map[string][]record        `json:"categories"`
	Extra         map[string]json.RawMessage `json:"-"`
}

var documentKeys = map[string]bool{"schemaVersion": true, "categories": true}

func (d *document) UnmarshalJSON(data []byte) error {
	type plain document
	if err := json.Unmarshal(data, (*plain)(d)); err != nil {
		return err
	}
	extra, err := unknownKeys(data, documentKeys)
	d.Extra = extra
	return err
}

func (d document) MarshalJSON() ([]byte, error) {
	type plain document
	data, err := json.Marshal(plain(d))
	if err != nil {
		return nil, err
	}
	return withUnknownKeys(data, d.Extra)
}

type record struct {
	ID          string   `json:"id,omitempty"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
	Notes       *string  `json:"notes,omitempty"`
	Importance  int      `json:"importance"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
	VisitedAt   *string  `json:"visited_at,omitempty"`
	DateAdded   string   `json:"date_added,omitempty"` // legacy, read only

	Extra map[string]json.RawMessage `json:"-"`
}

// recordKeys are the record fields this build writes itself. The legacy
// date_added is not among them so it survives a rewrite through Extra.
var recordKeys = map[string]bool{
	"id": true, "url": true, "title": true, "tags": true, "description": true,
	"notes": true, "importance": true, "created_at": true, "updated_at": true,
	"visited_at": true,
}

func (r *record) UnmarshalJSON(data []byte) error {
	type plain record
	if err := json.Unmarshal(data, (*plain)(r)); err != nil {
		return err
	}
	extra, err := unknownKeys(data, recordKeys)
	r.Extra = extra
	return err
}

func (r record) MarshalJSON() ([]byte, error) {
	type plain record
	data, err := json.Marshal(plain(r))
	if err != nil {
		return nil, err
	}
	return withUnknownKeys(data, r.Extra)
}

// unknownKeys returns the members of the JSON object data not named in known.
func unknownKeys(data []byte, known map[string]bool) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	var extra map[string]json.RawMessage
	for k, v := range all {
		if known[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = v
	}
	return extra, nil
}

// withUnknownKeys adds extra to the JSON object data without overriding
// members already present.
func withUnknownKeys(data []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return data, nil
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := all[k]; !ok {
			all[k] = v
		}
	}
	return json.Marshal(all)
}

// loaded is what a load remembers for the next save: the version read and
// the unknown keys, per document and per bookmark id.
type loaded struct {
	version int
	extra   map[string]json.RawMessage
	records map[string]map[string]json.RawMessage
}

// JSONStorage implements Storage using a JSON file.
// Writes are serialized within the process and replace the file atomically.
type JSONStorage struct {
	path string
	mu   sync.Mutex
}

// NewJSONStorage creates a new JSONStorage with the given file path.
func NewJSONStorage(path string) *JSONStorage {
	return &JSONStorage{path: path}
}

// Path returns the storage file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// Close is a no-op; the file is not held open.
func (s *JSONStorage) Close() error {
	return nil
}

// Load reads the store from the JSON file.
// Returns an empty store if the file doesn't exist.
func (s *JSONStorage) Load(ctx context.Context) (*model.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	store, _, err := s.load()
	return store, err
}

// Update applies fn to the current store and writes the result.
func (s *JSONStorage) Update(ctx context.Context, fn func(*model.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, prev, err := s.load()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(store); err != nil {
		return err
	}
	return s.save(store, prev)
}

func (s *JSONStorage) load() (*model.Store, loaded, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewStore(), loaded{}, nil
		}
		return nil, loaded{}, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, loaded{}, err
	}

	store, records := migrateDocument(&doc)
	return store, loaded{version: doc.SchemaVersion, extra: doc.Extra, records: records}, nil
}

// migrateDocument forward-migrates records to the current schema and
// flattens them into a Store. Categories are visited in name order. Unknown
// record keys are returned by bookmark id.
func migrateDocument(doc *document) (*model.Store, map[string]map[string]json.RawMessage) {
	store := model.NewStore()
	records := make(map[string]map[string]json.RawMessage)

	names := make([]string, 0, len(doc.Categories))
	for name := range doc.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, r := range doc.Categories[name] {
			b := r.toBookmark(name, doc.SchemaVersion)
			if len(r.Extra) > 0 {
				records[b.ID] = r.Extra
			}
			store.Bookmarks = append(store.Bookmarks, b)
		}
	}
	return store, records
}

func (r record) toBookmark(category string, version int) model.Bookmark {
	b := model.Bookmark{
		ID:          r.ID,
		URL:         r.URL,
		Title:       r.Title,
		Category:    category,
		Tags:        r.Tags,
		Description: r.Description,
		Notes:       r.Notes,
		Importance:  r.Importance,
	}

	created := r.CreatedAt
	if version < 1 && created == "" {
		created = r.DateAdded
	}
	if t, ok := parseTime(created); ok {
		b.CreatedAt = t
	}
	if t, ok := parseTime(r.UpdatedAt); ok {
		b.UpdatedAt = t
	} else {
		b.UpdatedAt = b.CreatedAt
	}
	if r.VisitedAt != nil {
		if t, ok := parseTime(*r.VisitedAt); ok {
			b.VisitedAt = &t
		}
	}

	// Legacy documents always wrote notes, using "" for none.
	if version < 2 && b.Notes != nil && *b.Notes == "" {
		b.Notes = nil
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Title == "" {
		b.Title = b.URL
	}
	if b.Importance == 0 {
		b.Importance = model.DefaultImportance
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	return b
}

// save writes the store to the JSON file, carrying over what prev kept.
// A document written by a newer build keeps its version.
// Creates the directory if it doesn't exist.
func (s *JSONStorage) save(store *model.Store, prev loaded) error {
	// Ensure directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	doc := document{
		SchemaVersion: max(prev.version, CurrentSchemaVersion),
		Categories:    make(map[string][]record),
		Extra:         prev.extra,
	}
	for _, b := range store.Bookmarks {
		r := fromBookmark(b)
		r.Extra = prev.records[b.ID]
		doc.Categories[b.Category] = append(doc.Categories[b.Category], r)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bookmarks-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func fromBookmark(b model.Bookmark) record {
	r := record{
		ID:          b.ID,
		URL:         b.URL,
		Title:       b.Title,
		Tags:        b.Tags,
		Description: b.Description,
		Notes:       b.Notes,
		Importance:  b.Importance,
		CreatedAt:   formatTime(b.CreatedAt),
		UpdatedAt:   formatTime(b.UpdatedAt),
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if b.VisitedAt != nil {
		v := formatTime(*b.VisitedAt)
		r.VisitedAt = &v
	}
	return r
}

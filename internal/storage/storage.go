package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nikbrunner/linkvault/internal/model"
)

// CurrentSchemaVersion is the persisted schema this build writes.
//
//	v1: url, title, category, tags, description, importance, timestamps
//	v2: notes
//	v3: visited_at
const CurrentSchemaVersion = 3

// Storage defines the interface for persisting bookmarks.
type Storage interface {
	// Load returns a consistent snapshot of the persisted store.
	Load(ctx context.Context) (*model.Store, error)
	// Update loads the store, applies fn and persists the result atomically.
	// When fn returns an error nothing is written.
	Update(ctx context.Context, fn func(*model.Store) error) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// Options selects and locates a storage backend.
type Options struct {
	Backend  string
	DBPath   string
	JSONPath string
}

// Open opens the configured storage backend.
func Open(opts Options) (Storage, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendSQLite:
		return NewSQLiteStorage(opts.DBPath)
	case BackendJSON:
		return NewJSONStorage(opts.JSONPath), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// timeLayouts are tried in order when reading persisted timestamps.
// The naive layouts cover legacy documents that stored local time without a zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

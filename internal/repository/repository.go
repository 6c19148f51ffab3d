// Package repository owns the bookmark store for the lifetime of the process.
//
// Every mutation goes through Update, which serializes writers in-process and
// relies on the storage transaction for cross-process safety. Readers take a
// Snapshot and never observe a partially applied write.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nikbrunner/linkvault/internal/model"
	"github.com/nikbrunner/linkvault/internal/storage"
)

// ErrClosed is returned by operations on a closed Repository.
var ErrClosed = errors.New("repository closed")

// Repository is the single writer over a storage backend.
type Repository struct {
	mu      sync.Mutex
	storage storage.Storage
	logger  *slog.Logger
	closed  bool
}

// Open opens the configured backend and wraps it.
func Open(opts storage.Options, logger *slog.Logger) (*Repository, error) {
	s, err := storage.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return New(s, logger), nil
}

// New wraps an already opened backend.
func New(s storage.Storage, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{storage: s, logger: logger}
}

// Close releases the backend. Further calls fail with ErrClosed.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.storage.Close()
}

// Snapshot returns a consistent copy of the store. Callers may read it
// freely; changes to it are never persisted.
func (r *Repository) Snapshot(ctx context.Context) (*model.Store, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	store, err := r.storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	return store, nil
}

// Update applies fn as one all-or-nothing write.
func (r *Repository) Update(ctx context.Context, fn func(*model.Store) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	return r.storage.Update(ctx, fn)
}

// Put inserts b or updates the bookmark at its (category, url) in place.
func (r *Repository) Put(ctx context.Context, b model.Bookmark) (bool, error) {
	var created bool
	err := r.Update(ctx, func(s *model.Store) error {
		var err error
		created, err = s.Put(b)
		return err
	})
	if err != nil {
		return false, err
	}

	r.logger.Info("bookmark stored",
		"url", b.URL,
		"category", b.Category,
		"created", created,
	)
	return created, nil
}

// Delete removes the bookmark with url; see model.Store.Delete for how an
// empty category is resolved.
func (r *Repository) Delete(ctx context.Context, url, category string) (model.Bookmark, error) {
	var removed model.Bookmark
	err := r.Update(ctx, func(s *model.Store) error {
		var err error
		removed, err = s.Delete(url, category)
		return err
	})
	if err != nil {
		return model.Bookmark{}, err
	}

	r.logger.Info("bookmark deleted", "url", removed.URL, "category", removed.Category)
	return removed, nil
}

// RenameCategory moves every member of oldName to newName.
func (r *Repository) RenameCategory(ctx context.Context, oldName, newName string) (int, error) {
	var moved int
	err := r.Update(ctx, func(s *model.Store) error {
		var err error
		moved, err = s.RenameCategory(oldName, newName)
		return err
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info("category renamed", "from", oldName, "to", newName, "bookmarks", moved)
	return moved, nil
}

// DeleteCategory removes the category and every bookmark in it.
func (r *Repository) DeleteCategory(ctx context.Context, name string) (int, error) {
	var removed int
	err := r.Update(ctx, func(s *model.Store) error {
		var err error
		removed, err = s.DeleteCategory(name)
		return err
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info("category deleted", "category", name, "bookmarks", removed)
	return removed, nil
}

// MarkVisited records that the bookmark was opened now.
func (r *Repository) MarkVisited(ctx context.Context, category, url string) error {
	err := r.Update(ctx, func(s *model.Store) error {
		return s.MarkVisited(category, url, time.Now())
	})
	if err != nil {
		return err
	}

	r.logger.Debug("bookmark visited", "url", url, "category", category)
	return nil
}

// Package reconcile decides whether an incoming bookmark is new, changes an
// existing record, or is a duplicate, and merges it field by field.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nikbrunner/linkvault/internal/browser"
	"github.com/nikbrunner/linkvault/internal/extract"
	"github.com/nikbrunner/linkvault/internal/model"
	"github.com/nikbrunner/linkvault/internal/normalize"
)

// Outcome classifies what a store did.
type Outcome int

const (
	Inserted Outcome = iota + 1
	Updated
	Unchanged
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result reports one reconciled bookmark.
type Result struct {
	Outcome  Outcome
	Bookmark model.Bookmark
	// Err is set for Rejected import candidates.
	Err error
	// ExtractionErr is set when content extraction failed but the bookmark
	// was stored from caller-supplied metadata anyway.
	ExtractionErr error
}

// ImportSummary counts outcomes of a batch import.
type ImportSummary struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Rejected  int `json:"rejected"`
}

func (s *ImportSummary) add(o Outcome) {
	switch o {
	case Inserted:
		s.Inserted++
	case Updated:
		s.Updated++
	case Unchanged:
		s.Unchanged++
	case Rejected:
		s.Rejected++
	}
}

// ImportResult is the per-candidate outcome of ImportBrowser.
type ImportResult struct {
	Results []Result
	Summary ImportSummary
}

// Updater applies an atomic read-modify-write to the store.
type Updater interface {
	Update(ctx context.Context, fn func(*model.Store) error) error
}

// Reconciler merges drafts into the repository.
type Reconciler struct {
	repo   Updater
	logger *slog.Logger
}

// New creates a Reconciler writing through repo.
func New(repo Updater, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{repo: repo, logger: logger}
}

// errUnchanged aborts an update that would write nothing.
var errUnchanged = errors.New("unchanged")

// Store writes d into category. An absent (category, url) is inserted. A
// present one is merged: fields the draft specified overwrite, the rest keep
// their stored values. A merge that changes nothing is not written.
func (r *Reconciler) Store(ctx context.Context, category string, d normalize.Draft) (Result, error) {
	category, err := normalize.Category(category)
	if err != nil {
		return Result{}, err
	}

	var result Result
	err = r.repo.Update(ctx, func(s *model.Store) error {
		now := time.Now().UTC()

		existing := s.Get(category, d.Bookmark.URL)
		if existing == nil {
			b := d.Bookmark.Clone()
			b.ID = ""
			b.Category = category
			if b.CreatedAt.IsZero() {
				b.CreatedAt = now
			}
			b.UpdatedAt = now
			if _, err := s.Put(b); err != nil {
				return err
			}
			result = Result{Outcome: Inserted, Bookmark: *s.Get(category, b.URL)}
			return nil
		}

		merged := merge(*existing, d)
		if merged.Equal(*existing) {
			result = Result{Outcome: Unchanged, Bookmark: existing.Clone()}
			return errUnchanged
		}

		merged.UpdatedAt = now
		if _, err := s.Put(merged); err != nil {
			return err
		}
		result = Result{Outcome: Updated, Bookmark: *s.Get(category, merged.URL)}
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return Result{}, err
	}

	r.logger.Debug("bookmark reconciled",
		"url", result.Bookmark.URL,
		"category", category,
		"outcome", result.Outcome.String(),
	)
	return result, nil
}

// merge overlays the fields d specified onto existing.
func merge(existing model.Bookmark, d normalize.Draft) model.Bookmark {
	m := existing.Clone()
	in := d.Bookmark.Clone()

	if d.Has(normalize.FieldTitle) {
		m.Title = in.Title
	}
	if d.Has(normalize.FieldDescription) {
		m.Description = in.Description
	}
	if d.Has(normalize.FieldNotes) {
		m.Notes = in.Notes
	}
	if d.Has(normalize.FieldImportance) {
		m.Importance = in.Importance
	}
	if d.Has(normalize.FieldTags) {
		m.Tags = in.Tags
	}
	return m
}

// ImportBrowser normalizes and stores every candidate into category, adding
// tags to each. A rejected candidate is reported and the rest continue; each
// candidate is written atomically on its own.
func (r *Reconciler) ImportBrowser(ctx context.Context, category string, candidates []browser.Bookmark, tags []string) (ImportResult, error) {
	if _, err := normalize.Category(category); err != nil {
		return ImportResult{}, err
	}
	extra := normalize.Tags(tags)

	out := ImportResult{Results: make([]Result, 0, len(candidates))}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		res, err := r.importOne(ctx, category, c, extra)
		if err != nil {
			if !errors.Is(err, model.ErrInvalidInput) {
				return out, fmt.Errorf("import %s: %w", c.URL, err)
			}
			res = Result{Outcome: Rejected, Bookmark: model.Bookmark{URL: c.URL, Title: c.Title}, Err: err}
			r.logger.Warn("import candidate rejected", "url", c.URL, "profile", c.Profile, "error", err)
		}
		out.Results = append(out.Results, res)
		out.Summary.add(res.Outcome)
	}

	r.logger.Info("browser import finished",
		"category", category,
		"inserted", out.Summary.Inserted,
		"updated", out.Summary.Updated,
		"unchanged", out.Summary.Unchanged,
		"rejected", out.Summary.Rejected,
	)
	return out, nil
}

func (r *Reconciler) importOne(ctx context.Context, category string, c browser.Bookmark, tags []string) (Result, error) {
	d, err := normalize.FromBrowser(c)
	if err != nil {
		return Result{}, err
	}
	if len(tags) > 0 {
		d.Bookmark.Tags = tags
		d.Specified |= normalize.FieldTags
	}
	return r.Store(ctx, category, d)
}

// StoreFromURL stores in, asking ex for any title or description the caller
// left out. Extraction failure is logged and reported on the result, and the
// caller's metadata is stored regardless.
func (r *Reconciler) StoreFromURL(ctx context.Context, category string, in normalize.Input, ex extract.Extractor) (Result, error) {
	d, err := normalize.Normalize(in)
	if err != nil {
		return Result{}, err
	}

	var extractErr error
	if ex != nil && (!d.Has(normalize.FieldTitle) || !d.Has(normalize.FieldDescription)) {
		extractErr = r.fill(ctx, &d, ex)
	}

	result, err := r.Store(ctx, category, d)
	if err != nil {
		return Result{}, err
	}
	result.ExtractionErr = extractErr
	return result, nil
}

func (r *Reconciler) fill(ctx context.Context, d *normalize.Draft, ex extract.Extractor) error {
	res, err := ex.Extract(ctx, d.Bookmark.URL)
	if err != nil {
		r.logger.Warn("content extraction failed", "url", d.Bookmark.URL, "error", err)
		return err
	}
	res.URL = d.Bookmark.URL

	e, err := normalize.FromExtraction(res)
	if err != nil {
		r.logger.Warn("content extraction unusable", "url", d.Bookmark.URL, "error", err)
		return err
	}

	if !d.Has(normalize.FieldTitle) && e.Has(normalize.FieldTitle) {
		d.Bookmark.Title = e.Bookmark.Title
		d.Specified |= normalize.FieldTitle
	}
	if !d.Has(normalize.FieldDescription) && e.Has(normalize.FieldDescription) {
		d.Bookmark.Description = e.Bookmark.Description
		d.Specified |= normalize.FieldDescription
	}
	return nil
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nikbrunner/linkvault/internal/extract"
	"github.com/nikbrunner/linkvault/internal/logging"
	"github.com/nikbrunner/linkvault/internal/model"
	"github.com/nikbrunner/linkvault/internal/normalize"
	"github.com/nikbrunner/linkvault/internal/reconcile"
	"github.com/nikbrunner/linkvault/internal/repository"
	"github.com/nikbrunner/linkvault/internal/search"
)

// Handler serves the bookmark endpoints.
type Handler struct {
	repo            *repository.Repository
	reconciler      *reconcile.Reconciler
	extractor       extract.Extractor
	defaultCategory string
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	Categories []string `json:"categories,omitempty"`
}

// StoreRequest is the body of POST /api/bookmarks. Omitted fields keep their
// stored values when the bookmark already exists.
type StoreRequest struct {
	URL         string   `json:"url"`
	Category    string   `json:"category"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
	Notes       *string  `json:"notes"`
	Importance  *int     `json:"importance"`
	Fetch       bool     `json:"fetch"`
}

// StoreResponse reports what a store did.
type StoreResponse struct {
	Outcome         string         `json:"outcome"`
	Bookmark        model.Bookmark `json:"bookmark"`
	ExtractionError string         `json:"extraction_error,omitempty"`
}

// LookupResponse is the tagged result of an exact URL lookup.
type LookupResponse struct {
	Result     string           `json:"result"`
	Categories []string         `json:"categories,omitempty"`
	Bookmarks  []model.Bookmark `json:"bookmarks"`
}

// RenameRequest is the body of PATCH /api/categories/{name}.
type RenameRequest struct {
	Name string `json:"name"`
}

func (h *Handler) engine(w http.ResponseWriter, r *http.Request) (*search.Engine, bool) {
	store, err := h.repo.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return search.New(store), true
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, e.ListCategories())
}

func (h *Handler) listByCategory(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(e.ListByCategory(chi.URLParam(r, "name"))))
}

func (h *Handler) renameCategory(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &model.ValidationError{Field: "body", Message: err.Error()})
		return
	}

	oldName := chi.URLParam(r, "name")
	newName := strings.TrimSpace(req.Name)
	moved, err := h.repo.RenameCategory(r.Context(), oldName, newName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"category": newName, "moved": moved})
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	removed, err := h.repo.DeleteCategory(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"deleted": removed})
}

func (h *Handler) listTags(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, e.ListTags())
}

func (h *Handler) listByTag(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(e.ListByTag(chi.URLParam(r, "tag"))))
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}

	q := r.URL.Query().Get("q")
	if r.URL.Query().Get("fuzzy") == "true" {
		matches := e.Fuzzy(q)
		out := make([]model.Bookmark, len(matches))
		for i, m := range matches {
			out[i] = *m.Bookmark
		}
		writeJSON(w, r, http.StatusOK, out)
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(e.Search(q)))
}

func (h *Handler) findBookmark(w http.ResponseWriter, r *http.Request) {
	url, err := normalize.URL(r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	e, ok := h.engine(w, r)
	if !ok {
		return
	}

	lookup := e.FindByURL(url, strings.TrimSpace(r.URL.Query().Get("category")))
	resp := LookupResponse{Result: lookup.Kind.String(), Bookmarks: nonNil(lookup.Bookmarks)}
	if lookup.Kind == search.LookupAmbiguous {
		resp.Categories = lookup.Categories()
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) storeBookmark(w http.ResponseWriter, r *http.Request) {
	var req StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &model.ValidationError{Field: "body", Message: err.Error()})
		return
	}

	category := req.Category
	if category == "" {
		category = h.defaultCategory
	}

	var ex extract.Extractor
	if req.Fetch {
		ex = h.extractor
	}

	res, err := h.reconciler.StoreFromURL(r.Context(), category, normalize.Input{
		URL:         req.URL,
		Title:       req.Title,
		Tags:        req.Tags,
		Description: req.Description,
		Notes:       req.Notes,
		Importance:  req.Importance,
	}, ex)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := StoreResponse{Outcome: res.Outcome.String(), Bookmark: res.Bookmark}
	if res.ExtractionErr != nil {
		resp.ExtractionError = res.ExtractionErr.Error()
	}
	status := http.StatusOK
	if res.Outcome == reconcile.Inserted {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, resp)
}

func (h *Handler) deleteBookmark(w http.ResponseWriter, r *http.Request) {
	url, err := normalize.URL(r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	removed, err := h.repo.Delete(r.Context(), url, strings.TrimSpace(r.URL.Query().Get("category")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, removed)
}

// nonNil keeps empty results encoding as [] rather than null.
func nonNil(bookmarks []model.Bookmark) []model.Bookmark {
	if bookmarks == nil {
		return []model.Bookmark{}
	}
	return bookmarks
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// writeError maps err onto an HTTP status and the {"status","message"} body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Message: err.Error()}
	var code int

	var ambiguous *model.AmbiguousError
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		code, resp.Status = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, model.ErrNotFound):
		code, resp.Status = http.StatusNotFound, "not_found"
	case errors.As(err, &ambiguous):
		code, resp.Status = http.StatusConflict, "ambiguous_reference"
		resp.Categories = ambiguous.Categories
	case errors.Is(err, model.ErrConflict):
		code, resp.Status = http.StatusConflict, "conflict"
	case errors.Is(err, extract.ErrExtractionFailed):
		code, resp.Status = http.StatusBadGateway, "extraction_failed"
	default:
		code, resp.Status = http.StatusInternalServerError, "error"
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "request failed", "error", err)
	}

	writeJSON(w, r, code, resp)
}

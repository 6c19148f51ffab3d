package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a delete or rename target is absent.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguous is returned when a URL spans several categories and none was given.
	ErrAmbiguous = errors.New("ambiguous reference")
	// ErrConflict is returned when a rename would collide with a populated category.
	ErrConflict = errors.New("conflict")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is makes ValidationError match ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// AmbiguousError names the categories a URL was found in.
type AmbiguousError struct {
	URL        string
	Categories []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("url %s exists in %d categories (%s); specify one",
		e.URL, len(e.Categories), strings.Join(e.Categories, ", "))
}

// Is makes AmbiguousError match ErrAmbiguous.
func (e *AmbiguousError) Is(target error) bool {
	return target == ErrAmbiguous
}

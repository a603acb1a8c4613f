package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrCategoryInUse    = errors.New("category is still referenced by projects")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
)

// ValidationError carries a reason per offending input field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = reason
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// MediaError aborts a create or update: one file of the batch could not be ingested.
type MediaError struct {
	Op       string // "upload" | "record"
	FileName string
	Err      error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media %s failed for %q: %v", e.Op, e.FileName, e.Err)
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// CleanupError records one media item that could not be removed. It never
// aborts the operation that produced it.
type CleanupError struct {
	MediaID   uuid.UUID
	ObjectKey string
	Op        string // "resolve-key" | "delete-object" | "delete-record"
	Err       error
}

func (e CleanupError) Error() string {
	return fmt.Sprintf("cleanup %s failed for media %s (%s): %v", e.Op, e.MediaID, e.ObjectKey, e.Err)
}

func (e CleanupError) Unwrap() error {
	return e.Err
}

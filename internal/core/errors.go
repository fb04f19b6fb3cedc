package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/kiterunner/internal/validator"
)

// Store-level failures, produced by repositories.
var (
	ErrRecordNotFound    = xerrors.Message("No record found")
	ErrDuplicateEmail    = xerrors.Message("Duplicate email")
	ErrDuplicateUsername = xerrors.Message("Duplicate username")
	ErrDuplicatedSlug    = xerrors.Message("Duplicate slug")
	ErrConflict          = xerrors.Message("Concurrent write conflict")
)

var (
	ErrAuthenticationRequired = xerrors.Message("Authentication credentials were not provided.")
	ErrInvalidToken           = xerrors.Message("Invalid or expired authentication token.")
	ErrInvalidCredentials     = xerrors.Message("Invalid email or password.")
	ErrPermissionDenied       = xerrors.Message("You do not have permission to perform this action.")
)

// ValidationError carries per-field messages for malformed or conflicting input.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Errors[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func NewValidationError(v *validator.Validator) *ValidationError {
	return &ValidationError{Errors: v.Errors}
}

func fieldError(key, message string) *ValidationError {
	return &ValidationError{Errors: map[string]string{key: message}}
}

// NotFoundError reports a missing entity; Resource names the entity kind.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func articleNotFound(slug string) *NotFoundError {
	return &NotFoundError{Resource: "article", Message: fmt.Sprintf("Could not found any article with slug: %s", slug)}
}

func profileNotFound(username string) *NotFoundError {
	return &NotFoundError{Resource: "profile", Message: fmt.Sprintf("Profile with username: %s not found.", username)}
}

func commentNotFound(id int64) *NotFoundError {
	return &NotFoundError{Resource: "comment", Message: fmt.Sprintf("Could not found any comment with id: %d", id)}
}

package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("conflict")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrInvalidProfile      = errors.New("invalid profile")
	ErrDuplicateIdentity   = errors.New("duplicate identity")
	ErrStoreWrite          = errors.New("store write failed")
)

type AppError struct {
	Err     error  // sentinel error for errors.Is checks
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Unauthorized returns an AppError for failed login attempts.
// HTTP handlers map this to 401 Unauthorized.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// UnsupportedProvider is returned when a login names a provider that is not
// in the configured set. The provider table is closed — there is no generic
// fallback flow.
func UnsupportedProvider(name string) *AppError {
	return &AppError{
		Err:     ErrUnsupportedProvider,
		Message: fmt.Sprintf("unsupported auth provider %q", name),
	}
}

// InvalidProfile is returned when a provider profile is missing a field we
// cannot do without (e.g. the display name the internal id is derived from).
func InvalidProfile(field, message string) *AppError {
	return &AppError{
		Err:     ErrInvalidProfile,
		Message: message,
		Field:   field,
	}
}

// DuplicateIdentity is returned when a new identity would derive an internal
// id that a different provider identity already owns. The second
// registration is rejected rather than overwriting the first user's entry.
func DuplicateIdentity(id string) *AppError {
	return &AppError{
		Err:     ErrDuplicateIdentity,
		Message: fmt.Sprintf("a different account already uses the id %q", id),
	}
}

// StoreWrite wraps a directory store write failure. When this is raised the
// record exists only in memory; the reconciler rolls that entry back so the
// index never claims a record the store does not hold.
func StoreWrite(err error) *AppError {
	return &AppError{
		Err:     ErrStoreWrite,
		Message: fmt.Sprintf("persisting user record: %v", err),
	}
}

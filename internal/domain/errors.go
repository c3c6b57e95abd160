package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized is returned when a credential is missing or invalid.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError reports malformed client input for a named field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ValidationErrors collects every field failure from one request, so clients
// see all problems at once instead of fixing them one by one.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// Messages returns the individual failure descriptions.
func (e ValidationErrors) Messages() []string {
	out := make([]string, len(e))
	for i, ve := range e {
		out[i] = ve.Reason
	}
	return out
}

// NotFoundError reports that an entity is absent for the caller's scope. It is
// returned both when the entity does not exist and when it belongs to another
// business, so existence never leaks across tenants.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFoundError creates a not-found error for an entity.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// InsufficientStockError reports a stock adjustment that would drive a
// product's stock negative.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// PersistenceError reports a storage-layer fault. Retriable errors may succeed
// on a later attempt (lock conflicts, serialization failures).
type PersistenceError struct {
	Op        string
	Retriable bool
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps a storage fault.
func NewPersistenceError(op string, retriable bool, err error) *PersistenceError {
	return &PersistenceError{Op: op, Retriable: retriable, Err: err}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	var ves ValidationErrors
	return errors.As(err, &ves)
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInsufficientStock reports whether err is an insufficient-stock error.
func IsInsufficientStock(err error) bool {
	var is *InsufficientStockError
	return errors.As(err, &is)
}

// IsRetriable reports whether err is a persistence failure worth retrying.
func IsRetriable(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Retriable
}

// Package errors provides custom error types for the knowledge agent.
// These errors classify every failure the reconciliation engine can meet
// (validation, transient network, terminal not-found, store write, search
// unavailable) so callers can decide between retrying, skipping and giving up
// with errors.Is instead of string matching.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's tree matches target.
var Is = errors.Is

// As finds the first error in err's tree that matches target.
var As = errors.As

// Common sentinel errors for the knowledge agent
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransient indicates a failure worth retrying (network error, unexpected status)
	ErrTransient = errors.New("transient failure")

	// ErrStoreWrite indicates that the record store rejected or failed a write
	ErrStoreWrite = errors.New("store write failed")

	// ErrSearchUnavailable indicates that the search provider could not be queried
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrRateLimited indicates that a remote API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents a terminal "does not exist" answer.
// A fetch that ends in NotFoundError is never retried.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a missing or malformed required field.
// Validation failures are never retried.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// TransientNetworkError represents a retryable network failure or an
// unexpected (non-2xx, non-404) HTTP status.
type TransientNetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *TransientNetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *TransientNetworkError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransientNetworkError) Is(target error) bool {
	return target == ErrTransient
}

// StoreWriteError represents a failed create, update or archive against the record store.
type StoreWriteError struct {
	Operation string // "create", "update", "archive"
	Title     string
	ID        string
	Err       error
}

// Error implements the error interface
func (e *StoreWriteError) Error() string {
	subject := e.Title
	if subject == "" {
		subject = e.ID
	}
	return fmt.Sprintf("store %s of %q failed: %v", e.Operation, subject, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *StoreWriteError) Is(target error) bool {
	return target == ErrStoreWrite
}

// NewStoreWriteError creates a new StoreWriteError
func NewStoreWriteError(operation, title, id string, err error) *StoreWriteError {
	return &StoreWriteError{Operation: operation, Title: title, ID: id, Err: err}
}

// SearchUnavailableError represents a search provider failure.
// The reconciler treats it as an unsuccessful healing attempt.
type SearchUnavailableError struct {
	Provider string
	Query    string
	Err      error
}

// Error implements the error interface
func (e *SearchUnavailableError) Error() string {
	return fmt.Sprintf("search via %s for %q unavailable: %v", e.Provider, e.Query, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SearchUnavailableError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *SearchUnavailableError) Is(target error) bool {
	return target == ErrSearchUnavailable
}

// APIError represents an error response from a remote API (record store, notifier, search).
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Service, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == 404:
		return target == ErrNotFound
	case e.StatusCode == 429:
		return target == ErrRateLimited || target == ErrTransient
	case e.StatusCode >= 500 || e.StatusCode == 0:
		return target == ErrTransient
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{
		Service:    service,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "html"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "list", "query", "create", "load"
	Resource  string // "records", "config", "snapshot"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a terminal not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTransient checks if an error is worth retrying
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsStoreWrite checks if an error is a record store write failure
func IsStoreWrite(err error) bool {
	return errors.Is(err, ErrStoreWrite)
}

// IsSearchUnavailable checks if an error is a search provider failure
func IsSearchUnavailable(err error) bool {
	return errors.Is(err, ErrSearchUnavailable)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Message: err.Error(), Err: err}
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return &ResourceError{Operation: operation, Resource: resource, ID: id, Message: err.Error(), Err: err}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}

// WrapAPI wraps an error as an APIError
func WrapAPI(service string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Service:    service,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}

// Package common defines shared constants and sentinel errors used across
// the tasktracker server layers. Callers should use errors.Is / errors.As
// to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Authentication errors. ErrInvalidCredentials covers both an unknown
	// email and a wrong password.
	ErrInvalidCredentials = errors.New("bad credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")

	// Authorization errors.
	ErrForbidden = errors.New("forbidden")

	// Token lifecycle errors.
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature is invalid")
	ErrTokenExpired   = errors.New("token expired")

	// Hashing errors.
	ErrEmptyPassword = errors.New("empty password")
)

// DuplicateCredentialError reports that a unique user attribute is taken.
type DuplicateCredentialError struct {
	Field string
	Value string
}

func (e *DuplicateCredentialError) Error() string {
	return fmt.Sprintf("User with %s '%s' already exists", e.Field, e.Value)
}

// NewDuplicateCredential returns a *DuplicateCredentialError for field/value.
func NewDuplicateCredential(field, value string) error {
	return &DuplicateCredentialError{Field: field, Value: value}
}

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// NewValidationError returns a *ValidationError for field/reason.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

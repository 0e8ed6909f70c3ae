// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package apierror defines the error taxonomy surfaced to API callers.
// Every error carries a Kind, which selects the HTTP class, and a stable machine code.
package apierror

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthorized
	KindForbidden
	// KindDependency marks a failure of an external collaborator after the primary mutation committed
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindDependency:
		return "dependency"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Status overrides the default HTTP status of the kind when non zero
	Status  int
	Fields  map[string][]string

	err error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Code + ": " + e.Message + ": " + e.err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is matches any *Error carrying the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of e carrying cause
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.err = cause
	return &c
}

// WithFields returns a copy of e carrying field level details
func (e *Error) WithFields(fields map[string][]string) *Error {
	c := *e
	c.Fields = fields
	return &c
}

// WithMessage returns a copy of e with a different human message
func (e *Error) WithMessage(msg string) *Error {
	c := *e
	c.Message = msg
	return &c
}

// HTTPStatus maps the error to its response status
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}

	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// NewWithStatus builds an error whose status differs from the default of its kind
func NewWithStatus(kind Kind, status int, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Status: status}
}

// As extracts the *Error from err, if any
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsPartial reports whether err only signals a failed side effect of a committed operation
func IsPartial(err error) bool {
	e, ok := As(err)
	return ok && e.Kind == KindDependency
}

var (
	ErrInternal   = New(KindInternal, "internal_error", "An unexpected error occurred.")
	ErrValidation = New(KindValidation, "validation_error", "Invalid input.")
	ErrForbidden  = New(KindForbidden, "permission_denied", "You do not have permission to perform this action.")
	ErrNotFound   = New(KindNotFound, "not_found", "Resource not found.")
)

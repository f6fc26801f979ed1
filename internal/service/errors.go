// Package service implements the account session operations: register,
// login, refresh, logout and password change.
//
// Every error returned to callers carries one of the Code* oops codes and a
// public message that is safe to show to the client.  The HTTP layer maps
// codes to status codes.
package service

import (
	"github.com/samber/oops"
)

// Error codes.
const (
	CodeValidation   = "VALIDATION_FAILED"
	CodeConflict     = "CONFLICT"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL"
)

// Validation reports missing or malformed input.
func Validation(msg string) error {
	return oops.Code(CodeValidation).Public(msg).New(msg)
}

// Conflict reports a duplicate identity.
func Conflict(msg string, cause error) error {
	return build(CodeConflict, msg, cause)
}

// NotFound reports a missing user.
func NotFound(msg string, cause error) error {
	return build(CodeNotFound, msg, cause)
}

// Unauthorized reports a missing or rejected credential.
func Unauthorized(msg string, cause error) error {
	return build(CodeUnauthorized, msg, cause)
}

// Internal reports an unexpected failure.  msg is shown to the client, the
// cause is only logged.
func Internal(msg string, cause error) error {
	return build(CodeInternal, msg, cause)
}

func build(code, msg string, cause error) error {
	b := oops.Code(code).Public(msg)
	if cause == nil {
		return b.New(msg)
	}
	return b.Wrap(cause)
}

// HasCode reports whether err is an oops error carrying code.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Code() == code
}

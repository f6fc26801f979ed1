// Package repository defines the persistence layer.  The sentinel errors in
// this file let higher layers distinguish failure scenarios without
// inspecting driver errors: ErrNotFound when no row matches, ErrConflict
// when a unique identity already exists, and ErrStaleRefreshToken when a
// conditional refresh-token swap finds a different stored value.
package repository

import "errors"

// ErrNotFound is returned when the referenced user does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when registration would duplicate an existing
// email or full name.  Handlers translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrStaleRefreshToken is returned by RotateRefreshToken when the stored
// refresh token no longer equals the presented one, either because it was
// already rotated or because the session was cleared.
var ErrStaleRefreshToken = errors.New("stale refresh token")

// Package apperr defines sentinel errors shared across layers.
package apperr

import "errors"

var (
	// ErrNotFound covers both missing particles and particles owned by
	// another user; callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")
)

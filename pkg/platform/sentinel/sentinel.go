// Package sentinel holds errors that describe infrastructure facts rather
// than caller mistakes. Stores return them, possibly wrapped, and services
// translate them into decisions or domain error codes.
//
// Input validation errors belong in pkg/domain-errors instead.
package sentinel

import "errors"

var (
	// ErrNotFound means the store has no such record or artifact.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable means a store or dependency could not be reached in time.
	ErrUnavailable = errors.New("unavailable")
)

// internal/session/errors.go
package session

import "errors"

var (
	// ErrValidation wraps every locally rejected draft or patch. No remote
	// call is made and the cache is untouched when it is returned.
	ErrValidation = errors.New("task validation failed")

	// ErrDuplicateTitle is returned by Create, and by Update on a title
	// change, when the owner already has a task with the exact same title.
	ErrDuplicateTitle = errors.New("a task with this title already exists")

	// ErrNotFound is returned by mutations that target an id missing from
	// the local cache.
	ErrNotFound = errors.New("task not found in session")
)

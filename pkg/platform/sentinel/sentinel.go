// Package sentinel holds the facts identity and audit stores report about
// rows. Services translate them into domain errors; validation failures
// never use them.
package sentinel

import "errors"

var (
	// ErrNotFound: no row matches the key.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a unique column (character id, chat user id) is taken,
	// or an exclusive resource such as the pass lock is held elsewhere.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyUsed: a pending row was claimed by someone else first.
	ErrAlreadyUsed = errors.New("already used")
)

package common

import "errors"

var (
	// ErrNotFound is returned when a row does not exist at all.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when a row exists but belongs to another
	// user. Distinct from ErrNotFound so read-state mutations can tell a
	// foreign id apart from a missing one.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadySent is the official "reminder already exists" signal: the
	// (event, user, lead-time) unique index rejected the insert. Producers
	// treat it as a benign skip, never as a failure.
	ErrAlreadySent = errors.New("notification already sent")
)

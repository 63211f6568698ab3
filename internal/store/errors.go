package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")
	// ErrStaleStatus is returned by conditional updates whose status guard
	// did not match, e.g. a progress write against a terminal job.
	ErrStaleStatus = errors.New("status changed concurrently")
)

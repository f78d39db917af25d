package collection

import "errors"

var (
	// ErrNotFound means the id's score interval yielded nothing. Distinct
	// from ErrInvalidResource: the request was well-formed, the lookup was
	// empty.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidResource rejects payloads that are not non-empty JSON
	// objects. No side effect has occurred when it is returned.
	ErrInvalidResource = errors.New("resource-shape invalid")

	// ErrInvalidName rejects namespace or collection names that cannot be
	// used as key parts.
	ErrInvalidName = errors.New("invalid name")
)

// Package apperr defines the service-wide error taxonomy. Lower layers
// classify their failures into these sentinels; transport layers map them
// to status codes without seeing storage-specific detail.
package apperr

import "errors"

var (
	// ErrNotFound: the referenced entity does not exist or does not belong
	// to the requesting principal. Ownership misses are indistinguishable
	// from absence on purpose.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument: malformed request or stream (missing metadata,
	// oversized chunk, unsupported filter/sort combination).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict: the request contradicts current state.
	ErrConflict = errors.New("conflict")

	// ErrInternal: storage I/O failures, content-type inference failures,
	// unexpected relational errors.
	ErrInternal = errors.New("internal error")
)

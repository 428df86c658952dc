package remote

import "errors"

// Errors reported by remote store adapters. Adapters wrap transport
// specific failures so callers can match them with errors.Is.
var (
	// ErrNotFound indicates that the document does not exist
	ErrNotFound = errors.New("document not found")

	// ErrPermissionDenied indicates that the identity may not access the path
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnauthenticated indicates that no valid session was presented
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnavailable indicates a connectivity or server failure
	ErrUnavailable = errors.New("remote store unavailable")

	// ErrInvalidArgument indicates that the store rejected the data
	ErrInvalidArgument = errors.New("invalid argument")
)


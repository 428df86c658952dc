package collection

import "errors"

var (
	// ErrAuthRequired is reported when a workspace is bound but nobody is signed in
	ErrAuthRequired = errors.New("auth required")

	// ErrRemoteDisabled is reported when the orchestrator has no remote store
	ErrRemoteDisabled = errors.New("remote store disabled")

	// ErrEmptyID is returned by item operations without an identifier
	ErrEmptyID = errors.New("item id is empty")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("collection manager closed")
)

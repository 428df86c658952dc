package sync

import "errors"

var (
	// ErrMalformedPath indicates an explicit path that does not address a document
	ErrMalformedPath = errors.New("malformed document path")

	// ErrNoIdentity indicates that resolution needs a signed-in identity
	ErrNoIdentity = errors.New("no identity")

	// ErrNoWorkspace indicates that a workspace-scoped collection has no active workspace
	ErrNoWorkspace = errors.New("no active workspace")

	// ErrOffline is returned by SyncPending while offline
	ErrOffline = errors.New("offline")

	// ErrSyncInProgress is returned when SyncPending is already running
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrEmptyKey is returned for saves without a key
	ErrEmptyKey = errors.New("key is empty")
)

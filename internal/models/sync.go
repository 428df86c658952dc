package models

import (
	"encoding/json"
	"time"
)

// SyncStatus describes the synchronization state of one orchestrator.
type SyncStatus struct {
	LastSyncTime   time.Time `json:"last_sync_time"`
	Online         bool      `json:"online"`
	Syncing        bool      `json:"syncing"`
	PendingChanges bool      `json:"pending_changes"`
}

// WriteOp is the kind of remote mutation a pending write replays.
type WriteOp string

const (
	// WriteOpField merges {key: payload} into the target document.
	WriteOpField WriteOp = "field"
	// WriteOpMerge merges the payload object as the document fields.
	WriteOpMerge WriteOp = "merge"
	// WriteOpDelete deletes the target document.
	WriteOpDelete WriteOp = "delete"
)

// WritePolicy tells the replay how to commit a pending write.
// When Path is zero it is resolved at replay time from Collection and Workspace.
type WritePolicy struct {
	Path       DocumentPath `json:"path"`
	Op         WriteOp      `json:"op"`
	Collection string       `json:"collection,omitempty"`
	Workspace  string       `json:"workspace,omitempty"`
}

// PendingWrite is a write that could not be committed remotely.
// Only the most recent item per Key is kept.
type PendingWrite struct {
	QueuedAt time.Time       `json:"queued_at"`
	ID       string          `json:"id"`
	Key      string          `json:"key"`
	Payload  json.RawMessage `json:"payload"`
	Policy   WritePolicy     `json:"policy"`
}

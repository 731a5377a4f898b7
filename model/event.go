package model

// ChangeType names what happened to a tracker.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// ChangeEvent is pushed on the tracker change feed after every successful
// write. Tracker is nil for deletions.
type ChangeEvent struct {
	Type      ChangeType      `json:"type"`
	ID        int64           `json:"id"`
	Tracker   *BackendTracker `json:"tracker,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

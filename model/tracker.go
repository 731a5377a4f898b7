package model

import "time"

// MaxTaskLength is the longest task string the tracker API accepts.
const MaxTaskLength = 500

// Tracker is the row persisted by the tracker API. Task holds the encoded
// track metadata.
type Tracker struct {
	ID        int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Task      string     `json:"task" gorm:"type:varchar(500);not null"`
	StartTime time.Time  `json:"start_time" gorm:"not null"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName pins the table name used by the original schema.
func (Tracker) TableName() string {
	return "tracker"
}

// Wire converts the row to its client-facing representation.
func (t *Tracker) Wire() BackendTracker {
	bt := BackendTracker{
		ID:        t.ID,
		Task:      t.Task,
		StartTime: wireTime(t.StartTime),
		CreatedAt: wireTime(t.CreatedAt),
		UpdatedAt: wireTime(t.UpdatedAt),
	}
	if t.EndTime != nil {
		bt.EndTime = wireTime(*t.EndTime)
	}
	return bt
}

func wireTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// TrackerInput is the body of a create call as decoded by the server.
type TrackerInput struct {
	Task      string     `json:"task"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// TrackerChanges is the body of an update call as decoded by the server.
type TrackerChanges struct {
	Task      *string    `json:"task,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// BackendTracker is a tracker as it travels over the wire to the client.
// Timestamps are ISO-8601 strings.
type BackendTracker struct {
	ID        int64  `json:"id"`
	Task      string `json:"task"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CreateTrackerRequest is the client's create payload.
type CreateTrackerRequest struct {
	Task      string `json:"task"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`
}

// UpdateTrackerRequest is the client's update payload. Nil fields are left
// untouched by the server.
type UpdateTrackerRequest struct {
	Task      *string `json:"task,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
}

package model

import "time"

// Status is the workflow state of a track.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority is the urgency of a track.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Track is a task as the client sees it. ID, CreatedAt and UpdatedAt are
// assigned by the tracker API and never set locally.
type Track struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	Tags        []string   `json:"tags"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Clone returns a copy of t that shares no memory with it.
func (t Track) Clone() Track {
	c := t
	c.Tags = append([]string{}, t.Tags...)
	if t.EndTime != nil {
		end := *t.EndTime
		c.EndTime = &end
	}
	return c
}

// Draft returns the client-owned fields of t.
func (t Track) Draft() TrackDraft {
	return TrackDraft{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Tags:        t.Tags,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
	}
}

// TrackDraft carries the fields needed to create a track.
type TrackDraft struct {
	Title       string
	Description string
	Status      Status
	Priority    Priority
	Tags        []string
	StartTime   time.Time
	EndTime     *time.Time
}

// TrackPatch is a partial update. Nil fields keep the current value.
type TrackPatch struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	Tags        *[]string
	StartTime   *time.Time
	EndTime     *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p TrackPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.Tags == nil && p.StartTime == nil && p.EndTime == nil
}

// Apply merges the patch onto t and returns the result. t is not modified.
func (p TrackPatch) Apply(t Track) Track {
	merged := t.Clone()
	if p.Title != nil {
		merged.Title = *p.Title
	}
	if p.Description != nil {
		merged.Description = *p.Description
	}
	if p.Status != nil {
		merged.Status = *p.Status
	}
	if p.Priority != nil {
		merged.Priority = *p.Priority
	}
	if p.Tags != nil {
		merged.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.StartTime != nil {
		merged.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		end := *p.EndTime
		merged.EndTime = &end
	}
	return merged
}

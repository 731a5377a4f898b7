// Package codec maps tracks to and from the tracker API's single task string.
//
// The task string has the form
//
//	{title} | {description} | STATUS:{status} | PRIORITY:{priority}[ | TAGS:{t1,t2,...}]
//
// The separator is not escaped: a title or description containing " | "
// does not survive a round trip. Decoding never fails; missing or unknown
// values fall back to defaults.
package codec

import (
	"strings"
	"time"

	"tracksync/model"
)

// Separator joins the segments of an encoded task.
const Separator = " | "

const (
	statusPrefix   = "STATUS:"
	priorityPrefix = "PRIORITY:"
	tagsPrefix     = "TAGS:"

	// DefaultTitle replaces an empty or missing title segment.
	DefaultTitle = "Untitled"
)

// Metadata is the part of a track carried inside the task string.
type Metadata struct {
	Title       string
	Description string
	Status      model.Status
	Priority    model.Priority
	Tags        []string
}

// EncodeTask builds the task string for the given fields.
func EncodeTask(title, description string, status model.Status, priority model.Priority, tags []string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString(Separator)
	b.WriteString(description)
	b.WriteString(Separator)
	b.WriteString(statusPrefix)
	b.WriteString(string(status))
	b.WriteString(Separator)
	b.WriteString(priorityPrefix)
	b.WriteString(string(priority))
	if len(tags) > 0 {
		b.WriteString(Separator)
		b.WriteString(tagsPrefix)
		b.WriteString(strings.Join(tags, ","))
	}
	return b.String()
}

// DecodeTask parses a task string. Later segments win when a prefix repeats.
func DecodeTask(task string) Metadata {
	parts := strings.Split(task, Separator)

	md := Metadata{
		Title:    DefaultTitle,
		Status:   model.StatusPending,
		Priority: model.PriorityMedium,
		Tags:     []string{},
	}
	if parts[0] != "" {
		md.Title = parts[0]
	}
	if len(parts) > 1 {
		md.Description = parts[1]
	}

	for _, part := range parts[min(2, len(parts)):] {
		switch {
		case strings.HasPrefix(part, statusPrefix):
			if s := model.Status(strings.TrimPrefix(part, statusPrefix)); s.Valid() {
				md.Status = s
			}
		case strings.HasPrefix(part, priorityPrefix):
			if p := model.Priority(strings.TrimPrefix(part, priorityPrefix)); p.Valid() {
				md.Priority = p
			}
		case strings.HasPrefix(part, tagsPrefix):
			md.Tags = splitTags(strings.TrimPrefix(part, tagsPrefix))
		}
	}
	return md
}

func splitTags(raw string) []string {
	tags := []string{}
	if raw == "" {
		return tags
	}
	for _, t := range strings.Split(raw, ",") {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// HasDelimiter reports whether s would be split apart on decode once
// encoded. That covers the separator itself and a leading or trailing pipe
// that joins the separator written next to it.
func HasDelimiter(s string) bool {
	return strings.Contains(" "+s+" ", Separator)
}

// ToTrack decodes a wire tracker. Unparseable timestamps become the zero
// time and an empty end_time becomes nil.
func ToTrack(bt model.BackendTracker) model.Track {
	md := DecodeTask(bt.Task)
	t := model.Track{
		ID:          bt.ID,
		Title:       md.Title,
		Description: md.Description,
		Status:      md.Status,
		Priority:    md.Priority,
		Tags:        md.Tags,
		StartTime:   parseTime(bt.StartTime),
		CreatedAt:   parseTime(bt.CreatedAt),
		UpdatedAt:   parseTime(bt.UpdatedAt),
	}
	if bt.EndTime != "" {
		end := parseTime(bt.EndTime)
		t.EndTime = &end
	}
	return t
}

// ToCreateRequest encodes a draft for the create call.
func ToCreateRequest(d model.TrackDraft) model.CreateTrackerRequest {
	req := model.CreateTrackerRequest{
		Task:      EncodeTask(d.Title, d.Description, d.Status, d.Priority, d.Tags),
		StartTime: formatTime(d.StartTime),
	}
	if d.EndTime != nil {
		req.EndTime = formatTime(*d.EndTime)
	}
	return req
}

// ToUpdateRequest encodes a complete track for the update call. The task
// string has no per-field form, so t must already hold every field; merge a
// partial change onto the cached record first.
func ToUpdateRequest(t model.Track) model.UpdateTrackerRequest {
	task := EncodeTask(t.Title, t.Description, t.Status, t.Priority, t.Tags)
	req := model.UpdateTrackerRequest{Task: &task}
	if !t.StartTime.IsZero() {
		start := formatTime(t.StartTime)
		req.StartTime = &start
	}
	if t.EndTime != nil {
		end := formatTime(*t.EndTime)
		req.EndTime = &end
	}
	return req
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

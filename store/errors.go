package store

import (
	"fmt"
	"strings"

	"tracksync/codec"
	"tracksync/model"
)

// Operation names carried by SyncError.
const (
	OpRefresh = "refresh"
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
)

// SyncError reports a failed remote call. The cache is left as it was
// before the operation started.
type SyncError struct {
	Op  string
	ID  int64 // zero for refresh and create
	Err error
}

func (e *SyncError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s track %d: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s tracks: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// NotFoundError is returned when an id is not in the cache.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("track %d not found", e.ID)
}

// ValidationError describes user input the store would accept but the
// codec cannot represent faithfully.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateDraft checks the fields a user types when creating a track.
func ValidateDraft(d model.TrackDraft) error {
	if err := validateText("title", d.Title, true); err != nil {
		return err
	}
	if err := validateText("description", d.Description, true); err != nil {
		return err
	}
	if err := validateTags(d.Tags); err != nil {
		return err
	}
	if d.Status != "" && !d.Status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", d.Status)}
	}
	if d.Priority != "" && !d.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", d.Priority)}
	}
	if d.EndTime != nil && !d.StartTime.IsZero() && d.EndTime.Before(d.StartTime) {
		return &ValidationError{Field: "end time", Reason: "must not be before start time"}
	}
	return nil
}

// ValidatePatch checks only the fields the patch sets.
func ValidatePatch(p model.TrackPatch) error {
	if p.IsEmpty() {
		return &ValidationError{Field: "patch", Reason: "nothing to change"}
	}
	if p.Title != nil {
		if err := validateText("title", *p.Title, true); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := validateText("description", *p.Description, true); err != nil {
			return err
		}
	}
	if p.Tags != nil {
		if err := validateTags(*p.Tags); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *p.Status)}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", *p.Priority)}
	}
	return nil
}

func validateText(field, value string, required bool) error {
	if required && strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	if codec.HasDelimiter(value) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must not contain %q", codec.Separator)}
	}
	return nil
}

func validateTags(tags []string) error {
	for _, tag := range tags {
		if strings.Contains(tag, ",") || codec.HasDelimiter(tag) {
			return &ValidationError{Field: "tags", Reason: fmt.Sprintf("tag %q contains a reserved character", tag)}
		}
	}
	return nil
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"tracksync/logger"
	"tracksync/model"
	"tracksync/repository"

	"github.com/gorilla/mux"
)

// ListCache caches the serialized tracker list. *cache.TrackerCache
// satisfies it.
type ListCache interface {
	GetList(ctx context.Context) ([]model.BackendTracker, bool, error)
	SetList(ctx context.Context, trackers []model.BackendTracker) error
	Invalidate(ctx context.Context) error
}

// Publisher receives an event after every successful write. *feed.Hub
// satisfies it.
type Publisher interface {
	Publish(ev model.ChangeEvent)
}

// TrackerHandler serves the /trackers endpoints. cache and events may be nil.
type TrackerHandler struct {
	repo   repository.TrackerRepository
	cache  ListCache
	events Publisher

	// writes bumps on every successful write, before the cache is
	// invalidated, so list reads can tell their rows went stale.
	writes atomic.Uint64
}

// NewTrackerHandler creates the tracker endpoints.
func NewTrackerHandler(repo repository.TrackerRepository, cache ListCache, events Publisher) *TrackerHandler {
	return &TrackerHandler{repo: repo, cache: cache, events: events}
}

// ListTrackers handles GET /trackers. Trackers are returned newest first.
func (h *TrackerHandler) ListTrackers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cache != nil {
		cached, ok, err := h.cache.GetList(ctx)
		if err != nil {
			logger.Warn("tracker list cache read failed", logger.ErrorField(err))
		} else if ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	gen := h.writes.Load()
	trackers, err := h.repo.List(ctx)
	if err != nil {
		logger.Error("list trackers failed", logger.ErrorField(err))
		sendError(w, r, http.StatusInternalServerError,
			"Failed to fetch trackers",
			"An error occurred while retrieving trackers from database",
			CodeFetchError)
		return
	}

	wire := make([]model.BackendTracker, 0, len(trackers))
	for i := range trackers {
		wire = append(wire, trackers[i].Wire())
	}

	if h.cache != nil {
		h.storeList(ctx, gen, wire)
	}
	writeJSON(w, http.StatusOK, wire)
}

// GetTracker handles GET /trackers/{id}.
func (h *TrackerHandler) GetTracker(w http.ResponseWriter, r *http.Request) {
	id, ok := trackerID(w, r)
	if !ok {
		return
	}

	tracker, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTrackerNotFound) {
			sendNotFound(w, r, id)
			return
		}
		logger.Error("get tracker failed", logger.Int64("id", id), logger.ErrorField(err))
		sendError(w, r, http.StatusInternalServerError,
			"Failed to fetch tracker",
			"An error occurred while retrieving the tracker from database",
			CodeFetchError)
		return
	}
	writeJSON(w, http.StatusOK, tracker.Wire())
}

// CreateTracker handles POST /trackers.
func (h *TrackerHandler) CreateTracker(w http.ResponseWriter, r *http.Request) {
	var input model.TrackerInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, r, http.StatusBadRequest,
			"Invalid JSON payload",
			"Request body must be valid JSON matching the create tracker schema",
			CodeInvalidJSON)
		return
	}

	if problems := validateCreate(input); len(problems) > 0 {
		sendError(w, r, http.StatusBadRequest, "Validation failed", strings.Join(problems, "; "), CodeValidationError)
		return
	}

	tracker := &model.Tracker{Task: input.Task, StartTime: input.StartTime.UTC(), EndTime: utcPtr(input.EndTime)}
	if err := h.repo.Create(r.Context(), tracker); err != nil {
		logger.Error("create tracker failed", logger.ErrorField(err))
		sendError(w, r, http.StatusInternalServerError,
			"Failed to create tracker",
			"An error occurred while saving the tracker to database",
			CodeCreateError)
		return
	}

	wire := tracker.Wire()
	h.changed(r.Context(), model.ChangeCreated, tracker.ID, &wire)
	logger.Info("tracker created", logger.Int64("id", tracker.ID))
	writeJSON(w, http.StatusCreated, wire)
}

// UpdateTracker handles PUT /trackers/{id}. Only the fields present in the
// body are changed.
func (h *TrackerHandler) UpdateTracker(w http.ResponseWriter, r *http.Request) {
	id, ok := trackerID(w, r)
	if !ok {
		return
	}

	var changes model.TrackerChanges
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		sendError(w, r, http.StatusBadRequest,
			"Invalid JSON payload",
			"Request body must be valid JSON matching the update tracker schema",
			CodeInvalidJSON)
		return
	}

	if problems := validateUpdate(changes); len(problems) > 0 {
		sendError(w, r, http.StatusBadRequest, "Validation failed", strings.Join(problems, "; "), CodeValidationError)
		return
	}
	changes.StartTime = utcPtr(changes.StartTime)
	changes.EndTime = utcPtr(changes.EndTime)

	tracker, err := h.repo.Update(r.Context(), id, changes)
	if err != nil {
		if errors.Is(err, repository.ErrTrackerNotFound) {
			sendNotFound(w, r, id)
			return
		}
		logger.Error("update tracker failed", logger.Int64("id", id), logger.ErrorField(err))
		sendError(w, r, http.StatusInternalServerError,
			"Failed to update tracker",
			"An error occurred while updating the tracker in database",
			CodeUpdateError)
		return
	}

	wire := tracker.Wire()
	h.changed(r.Context(), model.ChangeUpdated, id, &wire)
	logger.Info("tracker updated", logger.Int64("id", id))
	writeJSON(w, http.StatusOK, wire)
}

// DeleteTracker handles DELETE /trackers/{id}.
func (h *TrackerHandler) DeleteTracker(w http.ResponseWriter, r *http.Request) {
	id, ok := trackerID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrTrackerNotFound) {
			sendNotFound(w, r, id)
			return
		}
		logger.Error("delete tracker failed", logger.Int64("id", id), logger.ErrorField(err))
		sendError(w, r, http.StatusInternalServerError,
			"Failed to delete tracker",
			"An error occurred while deleting the tracker from database",
			CodeDeleteError)
		return
	}

	h.changed(r.Context(), model.ChangeDeleted, id, nil)
	logger.Info("tracker deleted", logger.Int64("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// changed drops the cached list and publishes the event.
// storeList caches rows read at write generation gen. Rows are not cached
// when a write landed during the read, and are dropped again when one
// landed while they were being stored.
func (h *TrackerHandler) storeList(ctx context.Context, gen uint64, wire []model.BackendTracker) {
	if h.writes.Load() != gen {
		return
	}
	if err := h.cache.SetList(ctx, wire); err != nil {
		logger.Warn("tracker list cache write failed", logger.ErrorField(err))
		return
	}
	if h.writes.Load() != gen {
		if err := h.cache.Invalidate(ctx); err != nil {
			logger.Warn("tracker list cache invalidation failed", logger.ErrorField(err))
		}
	}
}

func (h *TrackerHandler) changed(ctx context.Context, typ model.ChangeType, id int64, tracker *model.BackendTracker) {
	h.writes.Add(1)
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			logger.Warn("tracker list cache invalidation failed", logger.ErrorField(err))
		}
	}
	if h.events != nil {
		h.events.Publish(model.ChangeEvent{Type: typ, ID: id, Tracker: tracker, Timestamp: time.Now().UnixMilli()})
	}
}

// trackerID parses the {id} path variable and answers 400 when it is not a
// positive integer.
func trackerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		sendError(w, r, http.StatusBadRequest, "Invalid ID parameter", err.Error(), CodeInvalidID)
		return 0, false
	}
	return id, true
}

func parseID(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("id parameter is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("id must be a valid integer")
	}
	if id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

func sendNotFound(w http.ResponseWriter, r *http.Request, id int64) {
	sendError(w, r, http.StatusNotFound,
		"Tracker not found",
		fmt.Sprintf("No tracker exists with ID %d", id),
		CodeNotFound)
}

func validateTask(task string, required bool) string {
	switch {
	case task == "":
		if required {
			return "task is required and cannot be empty"
		}
		return "task cannot be empty"
	case strings.TrimSpace(task) == "":
		return "task cannot contain only whitespace"
	case utf8.RuneCountInString(task) > model.MaxTaskLength:
		return fmt.Sprintf("task cannot exceed %d characters", model.MaxTaskLength)
	}
	return ""
}

func validateCreate(in model.TrackerInput) []string {
	var problems []string
	if msg := validateTask(in.Task, true); msg != "" {
		problems = append(problems, msg)
	}
	if in.StartTime.IsZero() {
		problems = append(problems, "start_time is required")
	}
	if in.EndTime != nil && !in.EndTime.IsZero() && in.EndTime.Before(in.StartTime) {
		problems = append(problems, "end_time must be after start_time")
	}
	return problems
}

func validateUpdate(in model.TrackerChanges) []string {
	if in.Task == nil && in.StartTime == nil && in.EndTime == nil {
		return []string{"at least one field (task, start_time, or end_time) must be provided for update"}
	}

	var problems []string
	if in.Task != nil {
		if msg := validateTask(*in.Task, false); msg != "" {
			problems = append(problems, msg)
		}
	}
	if in.StartTime != nil && in.EndTime != nil &&
		!in.StartTime.IsZero() && !in.EndTime.IsZero() &&
		in.EndTime.Before(*in.StartTime) {
		problems = append(problems, "end_time must be after start_time")
	}
	return problems
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tracksync/model"
	"tracksync/repository"
)

type fakeRepo struct {
	listFn   func(ctx context.Context) ([]model.Tracker, error)
	getFn    func(ctx context.Context, id int64) (*model.Tracker, error)
	createFn func(ctx context.Context, t *model.Tracker) error
	updateFn func(ctx context.Context, id int64, changes model.TrackerChanges) (*model.Tracker, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (f *fakeRepo) List(ctx context.Context) ([]model.Tracker, error) { return f.listFn(ctx) }
func (f *fakeRepo) GetByID(ctx context.Context, id int64) (*model.Tracker, error) {
	return f.getFn(ctx, id)
}
func (f *fakeRepo) Create(ctx context.Context, t *model.Tracker) error { return f.createFn(ctx, t) }
func (f *fakeRepo) Update(ctx context.Context, id int64, c model.TrackerChanges) (*model.Tracker, error) {
	return f.updateFn(ctx, id, c)
}
func (f *fakeRepo) Delete(ctx context.Context, id int64) error { return f.deleteFn(ctx, id) }

type fakeCache struct {
	list        []model.BackendTracker
	hit         bool
	sets        int
	invalidated int
}

func (c *fakeCache) GetList(context.Context) ([]model.BackendTracker, bool, error) {
	return c.list, c.hit, nil
}

func (c *fakeCache) SetList(_ context.Context, l []model.BackendTracker) error {
	c.sets++
	c.list = l
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.invalidated++
	c.hit = false
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ChangeEvent
}

func (p *recordingPublisher) Publish(ev model.ChangeEvent) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

var t0 = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

func row(id int64, task string) *model.Tracker {
	return &model.Tracker{ID: id, Task: task, StartTime: t0, CreatedAt: t0, UpdatedAt: t0}
}

func serve(h *TrackerHandler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	NewRouter(h, nil).ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if resp.Timestamp == "" {
		t.Error("error body has no timestamp")
	}
	return resp
}

func TestListTrackers(t *testing.T) {
	repo := &fakeRepo{listFn: func(context.Context) ([]model.Tracker, error) {
		return []model.Tracker{*row(2, "b"), *row(1, "a")}, nil
	}}
	cache := &fakeCache{}
	h := NewTrackerHandler(repo, cache, nil)

	rr := serve(h, http.MethodGet, "/trackers", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var got []model.BackendTracker
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[0].StartTime != "2025-04-01T12:00:00Z" {
		t.Errorf("body = %+v", got)
	}
	if cache.sets != 1 {
		t.Errorf("cache populated %d times, want 1", cache.sets)
	}
}

func TestListTrackersServedFromCache(t *testing.T) {
	repo := &fakeRepo{listFn: func(context.Context) ([]model.Tracker, error) {
		t.Error("repository queried on cache hit")
		return nil, nil
	}}
	cache := &fakeCache{hit: true, list: []model.BackendTracker{{ID: 9, Task: "cached"}}}

	rr := serve(NewTrackerHandler(repo, cache, nil), http.MethodGet, "/trackers", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "cached") {
		t.Errorf("got %d %s", rr.Code, rr.Body.String())
	}
}

// hookCache runs onSet after storing a list, simulating a write that
// commits between SetList and the handler's final check.
type hookCache struct {
	fakeCache
	onSet func()
}

func (c *hookCache) SetList(ctx context.Context, l []model.BackendTracker) error {
	err := c.fakeCache.SetList(ctx, l)
	if c.onSet != nil {
		c.onSet()
	}
	return err
}

func TestListTrackersSkipsCacheAfterConcurrentWrite(t *testing.T) {
	cache := &fakeCache{}
	var h *TrackerHandler
	repo := &fakeRepo{
		deleteFn: func(context.Context, int64) error { return nil },
	}
	repo.listFn = func(context.Context) ([]model.Tracker, error) {
		rows := []model.Tracker{*row(1, "a")}
		// a delete commits while the list query is in flight
		if rr := serve(h, http.MethodDelete, "/trackers/1", ""); rr.Code != http.StatusNoContent {
			t.Fatalf("delete status = %d", rr.Code)
		}
		return rows, nil
	}
	h = NewTrackerHandler(repo, cache, nil)

	if rr := serve(h, http.MethodGet, "/trackers", ""); rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if cache.sets != 0 {
		t.Errorf("stale list cached %d times, want 0", cache.sets)
	}
}

func TestListTrackersDropsCacheWrittenDuringWrite(t *testing.T) {
	cache := &hookCache{}
	repo := &fakeRepo{
		listFn: func(context.Context) ([]model.Tracker, error) {
			return []model.Tracker{*row(1, "a")}, nil
		},
		deleteFn: func(context.Context, int64) error { return nil },
	}
	h := NewTrackerHandler(repo, cache, nil)
	cache.onSet = func() {
		cache.onSet = nil
		if rr := serve(h, http.MethodDelete, "/trackers/1", ""); rr.Code != http.StatusNoContent {
			t.Fatalf("delete status = %d", rr.Code)
		}
	}

	if rr := serve(h, http.MethodGet, "/trackers", ""); rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if cache.sets != 1 || cache.invalidated != 2 {
		t.Errorf("sets = %d, invalidated = %d; want 1 and 2", cache.sets, cache.invalidated)
	}
}

func TestListTrackersEmptyIsArray(t *testing.T) {
	repo := &fakeRepo{listFn: func(context.Context) ([]model.Tracker, error) { return nil, nil }}
	rr := serve(NewTrackerHandler(repo, nil, nil), http.MethodGet, "/trackers", "")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", rr.Body.String())
	}
}

func TestCreateTracker(t *testing.T) {
	repo := &fakeRepo{createFn: func(_ context.Context, tr *model.Tracker) error {
		tr.ID = 5
		tr.CreatedAt, tr.UpdatedAt = t0, t0
		return nil
	}}
	cache := &fakeCache{hit: true}
	pub := &recordingPublisher{}
	h := NewTrackerHandler(repo, cache, pub)

	rr := serve(h, http.MethodPost, "/trackers", `{"task":"a | b | STATUS:pending | PRIORITY:low","start_time":"2025-04-01T14:00:00+02:00"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	var got model.BackendTracker
	json.NewDecoder(rr.Body).Decode(&got)
	if got.ID != 5 || got.StartTime != "2025-04-01T12:00:00Z" || got.EndTime != "" {
		t.Errorf("body = %+v", got)
	}
	if cache.invalidated != 1 {
		t.Errorf("cache invalidated %d times", cache.invalidated)
	}
	if len(pub.events) != 1 || pub.events[0].Type != model.ChangeCreated || pub.events[0].Tracker == nil {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestCreateTrackerValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
		wantMsg  string
	}{
		{"bad json", `{"task":`, CodeInvalidJSON, ""},
		{"missing task", `{"start_time":"2025-04-01T12:00:00Z"}`, CodeValidationError, "task is required"},
		{"whitespace task", `{"task":"   ","start_time":"2025-04-01T12:00:00Z"}`, CodeValidationError, "only whitespace"},
		{"long task", `{"task":"` + strings.Repeat("x", 501) + `","start_time":"2025-04-01T12:00:00Z"}`, CodeValidationError, "exceed 500"},
		{"missing start", `{"task":"a"}`, CodeValidationError, "start_time is required"},
		{"end before start", `{"task":"a","start_time":"2025-04-01T12:00:00Z","end_time":"2025-04-01T11:00:00Z"}`, CodeValidationError, "end_time must be after start_time"},
	}

	repo := &fakeRepo{createFn: func(context.Context, *model.Tracker) error {
		t.Error("repository reached with invalid input")
		return nil
	}}
	h := NewTrackerHandler(repo, nil, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h, http.MethodPost, "/trackers", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rr.Code)
			}
			resp := decodeError(t, rr)
			if resp.Code != tt.wantCode || !strings.Contains(resp.Message, tt.wantMsg) {
				t.Errorf("error = %+v", resp)
			}
		})
	}
}

func TestCreateTrackerStorageFailure(t *testing.T) {
	repo := &fakeRepo{createFn: func(context.Context, *model.Tracker) error { return errors.New("disk full") }}
	pub := &recordingPublisher{}
	rr := serve(NewTrackerHandler(repo, nil, pub), http.MethodPost, "/trackers", `{"task":"a","start_time":"2025-04-01T12:00:00Z"}`)
	if rr.Code != http.StatusInternalServerError || decodeError(t, rr).Code != CodeCreateError {
		t.Errorf("status = %d", rr.Code)
	}
	if len(pub.events) != 0 {
		t.Error("event published for a failed write")
	}
}

func TestGetTracker(t *testing.T) {
	repo := &fakeRepo{getFn: func(_ context.Context, id int64) (*model.Tracker, error) {
		if id == 3 {
			return row(3, "c"), nil
		}
		return nil, repository.ErrTrackerNotFound
	}}
	h := NewTrackerHandler(repo, nil, nil)

	if rr := serve(h, http.MethodGet, "/trackers/3", ""); rr.Code != http.StatusOK {
		t.Errorf("GET existing = %d", rr.Code)
	}

	rr := serve(h, http.MethodGet, "/trackers/4", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("GET missing = %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != CodeNotFound || resp.Message != "No tracker exists with ID 4" {
		t.Errorf("error = %+v", resp)
	}
}

func TestInvalidID(t *testing.T) {
	h := NewTrackerHandler(&fakeRepo{}, nil, nil)
	for _, path := range []string{"/trackers/abc", "/trackers/0", "/trackers/-2"} {
		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
			rr := serve(h, method, path, `{"task":"x"}`)
			if rr.Code != http.StatusBadRequest || decodeError(t, rr).Code != CodeInvalidID {
				t.Errorf("%s %s = %d", method, path, rr.Code)
			}
		}
	}
}

func TestUpdateTracker(t *testing.T) {
	var gotChanges model.TrackerChanges
	repo := &fakeRepo{updateFn: func(_ context.Context, id int64, c model.TrackerChanges) (*model.Tracker, error) {
		gotChanges = c
		if id != 2 {
			return nil, repository.ErrTrackerNotFound
		}
		return row(2, *c.Task), nil
	}}
	cache := &fakeCache{}
	pub := &recordingPublisher{}
	h := NewTrackerHandler(repo, cache, pub)

	rr := serve(h, http.MethodPut, "/trackers/2", `{"task":"renamed"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if gotChanges.Task == nil || *gotChanges.Task != "renamed" || gotChanges.StartTime != nil || gotChanges.EndTime != nil {
		t.Errorf("changes = %+v", gotChanges)
	}
	if cache.invalidated != 1 || len(pub.events) != 1 || pub.events[0].Type != model.ChangeUpdated {
		t.Errorf("side effects: invalidated=%d events=%+v", cache.invalidated, pub.events)
	}

	if rr := serve(h, http.MethodPut, "/trackers/8", `{"task":"x"}`); rr.Code != http.StatusNotFound {
		t.Errorf("missing id = %d", rr.Code)
	}
}

func TestUpdateTrackerValidation(t *testing.T) {
	h := NewTrackerHandler(&fakeRepo{}, nil, nil)
	tests := map[string]string{
		"empty body":       `{}`,
		"empty task":       `{"task":""}`,
		"end before start": `{"start_time":"2025-04-01T12:00:00Z","end_time":"2025-04-01T10:00:00Z"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rr := serve(h, http.MethodPut, "/trackers/1", body)
			if rr.Code != http.StatusBadRequest || decodeError(t, rr).Code != CodeValidationError {
				t.Errorf("status = %d", rr.Code)
			}
		})
	}
}

func TestDeleteTracker(t *testing.T) {
	repo := &fakeRepo{deleteFn: func(_ context.Context, id int64) error {
		switch id {
		case 1:
			return nil
		case 2:
			return repository.ErrTrackerNotFound
		}
		return errors.New("locked")
	}}
	pub := &recordingPublisher{}
	h := NewTrackerHandler(repo, nil, pub)

	rr := serve(h, http.MethodDelete, "/trackers/1", "")
	if rr.Code != http.StatusNoContent || rr.Body.Len() != 0 {
		t.Errorf("delete = %d %q", rr.Code, rr.Body.String())
	}
	if len(pub.events) != 1 || pub.events[0].Type != model.ChangeDeleted || pub.events[0].Tracker != nil {
		t.Errorf("events = %+v", pub.events)
	}

	if rr := serve(h, http.MethodDelete, "/trackers/2", ""); rr.Code != http.StatusNotFound {
		t.Errorf("missing = %d", rr.Code)
	}
	rr = serve(h, http.MethodDelete, "/trackers/3", "")
	if rr.Code != http.StatusInternalServerError || decodeError(t, rr).Code != CodeDeleteError {
		t.Errorf("failure = %d", rr.Code)
	}
}

func TestHealthAndMiddleware(t *testing.T) {
	h := NewTrackerHandler(&fakeRepo{}, nil, nil)

	rr := serve(h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Errorf("health = %d %q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("no request id assigned")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	NewRouter(h, nil).ServeHTTP(rr, req)
	if rr.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("request id = %q, want the caller's", rr.Header().Get(RequestIDHeader))
	}

	rr = serve(h, http.MethodOptions, "/trackers/1", "")
	if rr.Code != http.StatusOK {
		t.Errorf("preflight = %d", rr.Code)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr string
	}{
		{"12", 12, ""},
		{"", 0, "required"},
		{"1.5", 0, "valid integer"},
		{"0", 0, "positive"},
	}
	for _, tt := range tests {
		got, err := parseID(tt.raw)
		if tt.wantErr == "" {
			if err != nil || got != tt.want {
				t.Errorf("parseID(%q) = %d, %v", tt.raw, got, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("parseID(%q) error = %v, want %q", tt.raw, err, tt.wantErr)
		}
	}
}

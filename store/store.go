// Package store keeps a local, observable copy of the tracker list and
// synchronizes every change with the tracker API.
//
// The cache is replaced wholesale by Refresh and patched by Create, Update
// and Delete only after the remote call succeeded. A failed call leaves the
// cache untouched.
package store

import (
	"context"
	"sync"

	"tracksync/codec"
	"tracksync/logger"
	"tracksync/model"
)

// Remote is the subset of the tracker API the store needs.
// *client.Client satisfies it.
type Remote interface {
	ListTrackers(ctx context.Context) ([]model.BackendTracker, error)
	CreateTracker(ctx context.Context, req model.CreateTrackerRequest) (*model.BackendTracker, error)
	UpdateTracker(ctx context.Context, id int64, req model.UpdateTrackerRequest) (*model.BackendTracker, error)
	DeleteTracker(ctx context.Context, id int64) error
}

// Snapshot is the observable state handed to subscribers.
type Snapshot struct {
	Tracks  []model.Track
	Loading bool
	Err     error
}

// Option configures a Store.
type Option func(*Store)

// WithObserver registers fn as a subscriber from the start.
func WithObserver(fn func(Snapshot)) Option {
	return func(s *Store) {
		s.subscribe(fn)
	}
}

// Store is the client-side track cache.
type Store struct {
	remote Remote

	mu      sync.RWMutex
	tracks  []model.Track
	loading bool
	err     error

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// New creates an empty store backed by remote.
func New(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote: remote,
		tracks: []model.Track{},
		subs:   make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh replaces the cache with the backend's list, in backend order.
func (s *Store) Refresh(ctx context.Context) error {
	s.begin(true)

	backend, err := s.remote.ListTrackers(ctx)
	if err != nil {
		return s.fail(&SyncError{Op: OpRefresh, Err: err})
	}

	tracks := make([]model.Track, 0, len(backend))
	for _, bt := range backend {
		tracks = append(tracks, codec.ToTrack(bt))
	}

	s.mu.Lock()
	s.tracks = tracks
	s.loading = false
	s.mu.Unlock()

	logger.Debug("track cache refreshed", logger.Int("count", len(tracks)))
	s.notify()
	return nil
}

// Create sends draft to the backend and prepends the stored track.
func (s *Store) Create(ctx context.Context, draft model.TrackDraft) (model.Track, error) {
	s.begin(false)

	created, err := s.remote.CreateTracker(ctx, codec.ToCreateRequest(draft))
	if err != nil {
		return model.Track{}, s.fail(&SyncError{Op: OpCreate, Err: err})
	}
	track := codec.ToTrack(*created)

	s.mu.Lock()
	tracks := make([]model.Track, 0, len(s.tracks)+1)
	tracks = append(tracks, track)
	s.tracks = append(tracks, s.tracks...)
	s.mu.Unlock()

	logger.Info("track created", logger.Int64("id", track.ID))
	s.notify()
	return track.Clone(), nil
}

// Update merges patch onto the cached track id, sends the full record and
// replaces the cached entry in place with the backend's answer. An id that
// is not cached fails with *NotFoundError without contacting the backend.
func (s *Store) Update(ctx context.Context, id int64, patch model.TrackPatch) (model.Track, error) {
	s.begin(false)

	current, ok := s.Get(id)
	if !ok {
		return model.Track{}, s.fail(&NotFoundError{ID: id})
	}
	merged := patch.Apply(current)

	updated, err := s.remote.UpdateTracker(ctx, id, codec.ToUpdateRequest(merged))
	if err != nil {
		return model.Track{}, s.fail(&SyncError{Op: OpUpdate, ID: id, Err: err})
	}
	track := codec.ToTrack(*updated)

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		tracks := append([]model.Track(nil), s.tracks...)
		tracks[i] = track
		s.tracks = tracks
	}
	s.mu.Unlock()

	logger.Info("track updated", logger.Int64("id", id))
	s.notify()
	return track.Clone(), nil
}

// Delete removes id from the backend and then from the cache.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.begin(false)

	if err := s.remote.DeleteTracker(ctx, id); err != nil {
		return s.fail(&SyncError{Op: OpDelete, ID: id, Err: err})
	}

	s.mu.Lock()
	s.tracks = without(s.tracks, id)
	s.mu.Unlock()

	logger.Info("track deleted", logger.Int64("id", id))
	s.notify()
	return nil
}

// ApplyChange folds a change-feed event into the cache without a remote
// call. Created tracks are prepended, updated ones replaced in place (or
// prepended when unknown) and deleted ones removed.
func (s *Store) ApplyChange(ev model.ChangeEvent) {
	s.mu.Lock()
	switch ev.Type {
	case model.ChangeCreated, model.ChangeUpdated:
		if ev.Tracker == nil {
			s.mu.Unlock()
			return
		}
		track := codec.ToTrack(*ev.Tracker)
		tracks := append([]model.Track(nil), s.tracks...)
		if i := s.indexOf(track.ID); i >= 0 {
			tracks[i] = track
		} else {
			tracks = append([]model.Track{track}, tracks...)
		}
		s.tracks = tracks
	case model.ChangeDeleted:
		s.tracks = without(s.tracks, ev.ID)
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.notify()
}

// Get looks id up in the cache.
func (s *Store) Get(id int64) (model.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tracks[i].Clone(), true
	}
	return model.Track{}, false
}

// Tracks returns a copy of the cached list.
func (s *Store) Tracks() []model.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.tracks)
}

// Err returns the error of the last operation, or nil.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Loading reports whether a refresh is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Snapshot returns the current observable state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Tracks: cloneAll(s.tracks), Loading: s.loading, Err: s.err}
}

// Subscribe calls fn after every state change until the returned cancel
// function is called.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	id := s.subscribe(fn)
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) subscribe(fn func(Snapshot)) int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return id
}

// begin clears the previous error and, for refresh, raises the loading flag.
func (s *Store) begin(loading bool) {
	s.mu.Lock()
	s.err = nil
	if loading {
		s.loading = true
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.err = err
	s.loading = false
	s.mu.Unlock()

	logger.Warn("track sync failed", logger.ErrorField(err))
	s.notify()
	return err
}

func (s *Store) notify() {
	snap := s.Snapshot()

	s.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id int64) int {
	for i := range s.tracks {
		if s.tracks[i].ID == id {
			return i
		}
	}
	return -1
}

func without(tracks []model.Track, id int64) []model.Track {
	out := make([]model.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func cloneAll(tracks []model.Track) []model.Track {
	out := make([]model.Track, len(tracks))
	for i, t := range tracks {
		out[i] = t.Clone()
	}
	return out
}

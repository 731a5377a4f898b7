package store

import (
	"strings"

	"tracksync/model"
)

// Search returns the tracks whose title, description or any tag contains
// query, ignoring case. An empty query matches every track.
func Search(tracks []model.Track, query string) []model.Track {
	q := strings.ToLower(query)
	out := make([]model.Track, 0, len(tracks))
	for _, t := range tracks {
		if matches(t, q) {
			out = append(out, t)
		}
	}
	return out
}

// Search filters the cached tracks. It never contacts the backend.
func (s *Store) Search(query string) []model.Track {
	return Search(s.Tracks(), query)
}

func matches(t model.Track, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

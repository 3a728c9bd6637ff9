// Package memory is an in-process document store. It backs the test
// suites and STORAGE_BACKEND=memory; every operation is atomic under a
// single lock.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"videotube-api/internal/pipeline"
	"videotube-api/internal/playlist"
	"videotube-api/internal/subscription"
	"videotube-api/internal/user"
	"videotube-api/internal/video"
)

type Store struct {
	mu            sync.RWMutex
	users         []user.User
	playlists     []playlist.Playlist
	videos        []video.Video
	subscriptions []subscription.Subscription
	now           func() time.Time
}

func New() *Store {
	return &Store{now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{store: s}
}

func (s *Store) Playlists() *PlaylistRepository {
	return &PlaylistRepository{store: s}
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

// InsertVideo stores v, assigning an id and timestamps when missing.
func (s *Store) InsertVideo(v video.Video) (video.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == "" {
		id, err := newID()
		if err != nil {
			return video.Video{}, err
		}
		v.ID = id
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
		v.UpdatedAt = v.CreatedAt
	}
	s.videos = append(s.videos, v)
	return v, nil
}

// InsertSubscription stores a subscriber → channel edge.
func (s *Store) InsertSubscription(subscriber, channel string) (subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := newID()
	if err != nil {
		return subscription.Subscription{}, err
	}
	sub := subscription.Subscription{ID: id, Subscriber: subscriber, Channel: channel, CreatedAt: s.now()}
	s.subscriptions = append(s.subscriptions, sub)
	return sub, nil
}

// AppendWatchHistory records that userID watched videoID.
func (s *Store) AppendWatchHistory(userID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.userIndex(userID)
	if i < 0 {
		return user.ErrNotFound
	}
	s.users[i].WatchHistory = append(s.users[i].WatchHistory, videoID)
	return nil
}

// Find implements pipeline.Source.
func (s *Store) Find(_ context.Context, collection, field string, values []any) ([]pipeline.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []pipeline.Document
	switch collection {
	case user.Collection:
		for _, u := range s.users {
			docs = append(docs, u.Document())
		}
	case video.Collection:
		for _, v := range s.videos {
			docs = append(docs, v.Document())
		}
	case playlist.Collection:
		for _, p := range s.playlists {
			docs = append(docs, p.Document())
		}
	case subscription.Collection:
		for _, sub := range s.subscriptions {
			docs = append(docs, sub.Document())
		}
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}

	out := make([]pipeline.Document, 0)
	for _, doc := range docs {
		got, ok := doc[field]
		if !ok {
			continue
		}
		for _, v := range values {
			if sameValue(got, v) {
				out = append(out, doc)
				break
			}
		}
	}
	return out, nil
}

// sameValue is == for comparable values. Array fields such as watchHistory
// never match a scalar lookup.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

func (s *Store) userIndex(id string) int {
	for i := range s.users {
		if s.users[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) playlistIndex(id string) int {
	for i := range s.playlists {
		if s.playlists[i].ID == id {
			return i
		}
	}
	return -1
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid v7: %w", err)
	}
	return id.String(), nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

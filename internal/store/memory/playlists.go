package memory

import (
	"context"

	"videotube-api/internal/playlist"
)

type PlaylistRepository struct {
	store *Store
}

func (r *PlaylistRepository) Create(_ context.Context, p playlist.Playlist) (playlist.Playlist, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.playlists {
		if existing.Owner == p.Owner && existing.Name == p.Name {
			return playlist.Playlist{}, playlist.ErrDuplicate
		}
	}

	if p.ID == "" {
		id, err := newID()
		if err != nil {
			return playlist.Playlist{}, err
		}
		p.ID = id
	}
	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Videos = cloneStrings(p.Videos)
	if p.Videos == nil {
		p.Videos = []string{}
	}
	s.playlists = append(s.playlists, p)

	return copyPlaylist(p), nil
}

func (r *PlaylistRepository) GetByID(_ context.Context, id string) (playlist.Playlist, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.playlistIndex(id)
	if i < 0 {
		return playlist.Playlist{}, playlist.ErrNotFound
	}
	return copyPlaylist(s.playlists[i]), nil
}

func (r *PlaylistRepository) FindByOwnerAndName(_ context.Context, owner, name string) (playlist.Playlist, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.playlists {
		if p.Owner == owner && p.Name == name {
			return copyPlaylist(p), nil
		}
	}
	return playlist.Playlist{}, playlist.ErrNotFound
}

func (r *PlaylistRepository) AddVideo(_ context.Context, id, videoID string) (playlist.Playlist, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.playlistIndex(id)
	if i < 0 {
		return playlist.Playlist{}, playlist.ErrNotFound
	}
	for _, v := range s.playlists[i].Videos {
		if v == videoID {
			return copyPlaylist(s.playlists[i]), nil
		}
	}
	s.playlists[i].Videos = append(s.playlists[i].Videos, videoID)
	s.playlists[i].UpdatedAt = s.now()
	return copyPlaylist(s.playlists[i]), nil
}

func (r *PlaylistRepository) RemoveVideo(_ context.Context, id, videoID string) (playlist.Playlist, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.playlistIndex(id)
	if i < 0 {
		return playlist.Playlist{}, playlist.ErrNotFound
	}
	kept := make([]string, 0, len(s.playlists[i].Videos))
	for _, v := range s.playlists[i].Videos {
		if v != videoID {
			kept = append(kept, v)
		}
	}
	s.playlists[i].Videos = kept
	s.playlists[i].UpdatedAt = s.now()
	return copyPlaylist(s.playlists[i]), nil
}

func (r *PlaylistRepository) Update(_ context.Context, id, name, description string) (playlist.Playlist, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.playlistIndex(id)
	if i < 0 {
		return playlist.Playlist{}, playlist.ErrNotFound
	}
	for _, other := range s.playlists {
		if other.ID != id && other.Owner == s.playlists[i].Owner && other.Name == name {
			return playlist.Playlist{}, playlist.ErrDuplicate
		}
	}
	s.playlists[i].Name = name
	s.playlists[i].Description = description
	s.playlists[i].UpdatedAt = s.now()
	return copyPlaylist(s.playlists[i]), nil
}

func (r *PlaylistRepository) Delete(_ context.Context, id string) (playlist.Playlist, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.playlistIndex(id)
	if i < 0 {
		return playlist.Playlist{}, playlist.ErrNotFound
	}
	deleted := s.playlists[i]
	s.playlists = append(s.playlists[:i], s.playlists[i+1:]...)
	return copyPlaylist(deleted), nil
}

func copyPlaylist(p playlist.Playlist) playlist.Playlist {
	p.Videos = cloneStrings(p.Videos)
	return p
}

package playlist

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"videotube-api/internal/principal"
	"videotube-api/internal/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body playlistRequest
	if err := response.DecodeJSON(w, r, &body); err != nil {
		response.Fail(w, err)
		return
	}

	p, _ := principal.FromContext(r.Context())
	created, err := h.service.Create(r.Context(), p, body.Name, body.Description)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.OK(w, http.StatusCreated, created, "Playlist created successfully")
}

func (h *Handler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.service.ListByOwner(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.OK(w, http.StatusOK, playlists, "User playlists fetched successfully")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	pl, err := h.service.Get(r.Context(), chi.URLParam(r, "playlistId"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.OK(w, http.StatusOK, pl, "Playlist fetched successfully")
}

func (h *Handler) AddVideo(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	pl, err := h.service.AddVideo(r.Context(), p, chi.URLParam(r, "playlistId"), chi.URLParam(r, "videoId"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.OK(w, http.StatusOK, pl, "Video added to playlist successfully")
}

func (h *Handler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	pl, err := h.service.RemoveVideo(r.Context(), p, chi.URLParam(r, "playlistId"), chi.URLParam(r, "videoId"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.OK(w, http.StatusOK, pl, "Video removed from playlist successfully")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var body playlistRequest
	if err := response.DecodeJSON(w, r, &body); err != nil {
		response.Fail(w, err)
		return
	}

	p, _ := principal.FromContext(r.Context())
	pl, err := h.service.Update(r.Context(), p, chi.URLParam(r, "playlistId"), body.Name, body.Description)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.OK(w, http.StatusOK, pl, "Playlist updated successfully")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	pl, err := h.service.Delete(r.Context(), p, chi.URLParam(r, "playlistId"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.OK(w, http.StatusOK, pl, "Playlist deleted successfully")
}

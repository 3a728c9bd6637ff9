package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"videotube-api/internal/media"
	"videotube-api/internal/principal"
	"videotube-api/internal/response"
)

type Handler struct {
	service *Service
	stash   *media.Stash
}

func NewHandler(service *Service, stash *media.Stash) *Handler {
	return &Handler{service: service, stash: stash}
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := h.stash.ParseForm(w, r); err != nil {
		response.Fail(w, err)
		return
	}

	avatarPath, err := h.stash.SaveImage(r, "avatar")
	if err != nil {
		response.Fail(w, err)
		return
	}
	defer h.stash.Remove(avatarPath)

	coverPath, err := h.stash.SaveImage(r, "coverImage")
	if err != nil {
		response.Fail(w, err)
		return
	}
	defer h.stash.Remove(coverPath)

	created, err := h.service.Register(r.Context(), RegisterInput{
		FullName:       r.FormValue("fullName"),
		Email:          r.FormValue("email"),
		Username:       r.FormValue("username"),
		Password:       r.FormValue("password"),
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.OK(w, http.StatusCreated, created, "User registered successfully")
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	u, err := h.service.GetCurrentUser(r.Context(), p)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.OK(w, http.StatusOK, u, "Current user fetched successfully")
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var body updateAccountRequest
	if err := response.DecodeJSON(w, r, &body); err != nil {
		response.Fail(w, err)
		return
	}

	p, _ := principal.FromContext(r.Context())
	u, err := h.service.UpdateAccountDetails(r.Context(), p, body.FullName, body.Email)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.OK(w, http.StatusOK, u, "Account details updated successfully")
}

func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, AvatarImage, "Avatar image updated successfully")
}

func (h *Handler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, CoverImage, "Cover image updated successfully")
}

func (h *Handler) updateImage(w http.ResponseWriter, r *http.Request, field ImageField, message string) {
	if err := h.stash.ParseForm(w, r); err != nil {
		response.Fail(w, err)
		return
	}

	localPath, err := h.stash.SaveImage(r, string(field))
	if err != nil {
		response.Fail(w, err)
		return
	}
	defer h.stash.Remove(localPath)

	p, _ := principal.FromContext(r.Context())
	var u Public
	if field == AvatarImage {
		u, err = h.service.UpdateAvatar(r.Context(), p, localPath)
	} else {
		u, err = h.service.UpdateCoverImage(r.Context(), p, localPath)
	}
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.OK(w, http.StatusOK, u, message)
}

func (h *Handler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	viewer, _ := principal.FromContext(r.Context())
	profile, err := h.service.GetChannelProfile(r.Context(), viewer, chi.URLParam(r, "username"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.OK(w, http.StatusOK, profile, "User channel fetched successfully")
}

func (h *Handler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	history, err := h.service.GetWatchHistory(r.Context(), p)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.OK(w, http.StatusOK, history, "Watch history fetched successfully")
}

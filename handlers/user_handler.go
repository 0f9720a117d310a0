package handlers

import (
	"net/http"

	"github.com/smashpoint/tournament-api/middleware"
	"github.com/smashpoint/tournament-api/services"
)

type UserHandler struct {
	userService  services.UserService
	statsService services.StatsService
}

func NewUserHandler(userService services.UserService, statsService services.StatsService) *UserHandler {
	return &UserHandler{
		userService:  userService,
		statsService: statsService,
	}
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.userService.GetUser(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := readPagination(r)

	users, meta, err := h.userService.ListUsers(r.Context(), page, perPage)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"users": users, "meta": meta}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	var input services.UpdateProfileInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), id, currentUser, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	contentType := r.Header.Get("Content-Type")
	user, err := h.userService.UploadAvatar(r.Context(), id, currentUser, contentType, r.Body)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stats, err := h.statsService.GetUserStats(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

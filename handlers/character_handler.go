package handlers

import (
	"net/http"

	"github.com/smashpoint/tournament-api/middleware"
	"github.com/smashpoint/tournament-api/services"
)

type CharacterHandler struct {
	characterService services.CharacterService
}

func NewCharacterHandler(characterService services.CharacterService) *CharacterHandler {
	return &CharacterHandler{characterService: characterService}
}

func (h *CharacterHandler) Create(w http.ResponseWriter, r *http.Request) {
	currentUser, _ := middleware.UserFromContext(r.Context())

	var input services.CharacterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	character, err := h.characterService.CreateCharacter(r.Context(), currentUser, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"character": character}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CharacterHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "characterID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	character, err := h.characterService.GetCharacter(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"character": character}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CharacterHandler) List(w http.ResponseWriter, r *http.Request) {
	var game *string
	if gameStr := r.URL.Query().Get("game"); gameStr != "" {
		game = &gameStr
	}

	characters, err := h.characterService.ListCharacters(r.Context(), game)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"characters": characters}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CharacterHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "characterID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	var input services.CharacterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	character, err := h.characterService.UpdateCharacter(r.Context(), id, currentUser, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"character": character}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CharacterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "characterID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	if err := h.characterService.DeleteCharacter(r.Context(), id, currentUser); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CharacterHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "characterID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	contentType := r.Header.Get("Content-Type")
	character, err := h.characterService.UploadImage(r.Context(), id, currentUser, contentType, r.Body)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"character": character}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CharacterHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "characterID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	usage, err := h.characterService.GetUsage(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"usage": usage}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

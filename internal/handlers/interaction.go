package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairup/internal/models"
	"github.com/HammerMeetNail/pairup/internal/services"
)

type InteractionHandler struct {
	interactionService services.InteractionServiceInterface
}

func NewInteractionHandler(interactionService services.InteractionServiceInterface) *InteractionHandler {
	return &InteractionHandler{interactionService: interactionService}
}

type SubmitInteractionRequest struct {
	ToUser string `json:"to_user"`
	Kind   string `json:"kind"`
}

type InteractionListResponse struct {
	Interactions []models.Interaction `json:"interactions"`
}

func (h *InteractionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req SubmitInteractionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	targetID, err := uuid.Parse(req.ToUser)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	kind, err := models.ParseInteractionKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Kind must be like or dislike")
		return
	}

	result, err := h.interactionService.Submit(r.Context(), services.SubmitInteractionParams{
		ActorID:  user.ID,
		TargetID: targetID,
		Kind:     kind,
	})
	if errors.Is(err, services.ErrCannotInteractSelf) {
		writeError(w, http.StatusBadRequest, "Cannot interact with yourself")
		return
	}
	if errors.Is(err, services.ErrInvalidUserID) || errors.Is(err, services.ErrInvalidInteractionKind) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, services.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if errors.Is(err, services.ErrDuplicateInteraction) {
		writeError(w, http.StatusConflict, "You have already interacted with this user")
		return
	}
	if err != nil {
		writeInternalError(w, r, "submitting interaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *InteractionHandler) List(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	interactions, err := h.interactionService.ListSent(r.Context(), user.ID)
	if err != nil {
		writeInternalError(w, r, "listing interactions", err)
		return
	}

	writeJSON(w, http.StatusOK, InteractionListResponse{Interactions: interactions})
}

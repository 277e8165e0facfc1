package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/HammerMeetNail/pairup/internal/models"
	"github.com/HammerMeetNail/pairup/internal/services"
)

type LikesHandler struct {
	likes services.LikeHistoryInterface
}

func NewLikesHandler(likes services.LikeHistoryInterface) *LikesHandler {
	return &LikesHandler{likes: likes}
}

type LikeHistoryResponse struct {
	LikesCount int                       `json:"likes_count"`
	History    []models.LikeHistoryEntry `json:"history"`
}

// History returns the likes the caller has received, newest first.
func (h *LikesHandler) History(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "Limit must be a positive integer")
			return
		}
		limit = parsed
	}

	count, err := h.likes.LikesCount(r.Context(), user.ID)
	if errors.Is(err, services.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, "getting likes count", err)
		return
	}

	history, err := h.likes.History(r.Context(), user.ID, limit)
	if err != nil {
		writeInternalError(w, r, "listing like history", err)
		return
	}

	writeJSON(w, http.StatusOK, LikeHistoryResponse{LikesCount: count, History: history})
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/HammerMeetNail/pairup/internal/models"
	"github.com/HammerMeetNail/pairup/internal/services"
)

type MatchHandler struct {
	matchService services.MatchServiceInterface
}

func NewMatchHandler(matchService services.MatchServiceInterface) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

type MatchListResponse struct {
	Matches    []models.Match `json:"matches"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// List returns the caller's active matches. Query params: cursor, limit.
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
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

	page, err := h.matchService.ListActive(r.Context(), user.ID, r.URL.Query().Get("cursor"), limit)
	if errors.Is(err, models.ErrInvalidCursor) {
		writeError(w, http.StatusBadRequest, "Invalid cursor")
		return
	}
	if err != nil {
		writeInternalError(w, r, "listing matches", err)
		return
	}

	writeJSON(w, http.StatusOK, MatchListResponse{Matches: page.Matches, NextCursor: page.NextCursor})
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	matchID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	match, err := h.matchService.GetByID(r.Context(), matchID)
	if errors.Is(err, services.ErrMatchNotFound) {
		writeError(w, http.StatusNotFound, "Match not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, "getting match", err)
		return
	}
	// Outsiders get the same answer as for a missing match.
	if !match.HasUser(user.ID) {
		writeError(w, http.StatusNotFound, "Match not found")
		return
	}

	writeJSON(w, http.StatusOK, match)
}

// Deactivate ends the match for both participants (unmatch).
func (h *MatchHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	matchID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	err = h.matchService.Deactivate(r.Context(), matchID, user.ID)
	if errors.Is(err, services.ErrMatchNotFound) {
		writeError(w, http.StatusNotFound, "Match not found")
		return
	}
	if errors.Is(err, services.ErrNotAParticipant) {
		writeError(w, http.StatusForbidden, "Not a participant in this match")
		return
	}
	if err != nil {
		writeInternalError(w, r, "deactivating match", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
